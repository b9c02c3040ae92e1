package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/recipereel/workers/internal/domain"
)

// CommentRepository reads the comment projection used to render
// notification emails. Read-only.
type CommentRepository struct {
	db *sql.DB
}

// NewCommentRepository creates a new repository
func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// FetchByIDs returns the projections for the given comment ids in one
// batched query. Deleted comments are silently absent from the result;
// callers decide what an empty result means.
func (r *CommentRepository) FetchByIDs(ctx context.Context, ids []string) ([]domain.CommentProjection, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT c.id, c.text, COALESCE(p.display_name, 'Someone') AS commenter_name,
		       c.recipe_id, r.title AS recipe_title
		FROM comments c
		JOIN recipes r ON r.id = c.recipe_id
		LEFT JOIN profiles p ON p.user_id = c.author_id
		WHERE c.id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("fetch comments by ids: %w", err)
	}
	defer rows.Close()

	var comments []domain.CommentProjection
	for rows.Next() {
		var c domain.CommentProjection
		if err := rows.Scan(&c.ID, &c.Text, &c.CommenterName, &c.RecipeID, &c.RecipeTitle); err != nil {
			return nil, fmt.Errorf("scan comment projection: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
