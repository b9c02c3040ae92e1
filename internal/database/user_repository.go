package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/recipereel/workers/internal/domain"
)

// UserRepository resolves delivery addresses. This is the admin-level
// lookup: the users table is otherwise off limits to the workers.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// LookupEmail returns the delivery address for a user id.
// Returns domain.ErrNotFound when the user does not exist or has no email.
func (r *UserRepository) LookupEmail(ctx context.Context, userID string) (string, error) {
	query := `SELECT email FROM users WHERE id = $1`

	var email sql.NullString
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup user email: %w", err)
	}
	if !email.Valid || email.String == "" {
		return "", domain.ErrNotFound
	}
	return email.String, nil
}
