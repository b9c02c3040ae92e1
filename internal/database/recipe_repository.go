package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/recipereel/workers/internal/domain"
)

// RecipeRepository reads the recipe projection the dispatcher needs.
// Read-only: the workers never mutate recipes.
type RecipeRepository struct {
	db *sqlx.DB
}

// NewRecipeRepository creates a new repository
func NewRecipeRepository(db *sqlx.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// FetchSnapshot returns the recipe joined with its owner's display name.
// Returns domain.ErrNotFound when the recipe does not exist.
func (r *RecipeRepository) FetchSnapshot(ctx context.Context, recipeID string) (*domain.RecipeSnapshot, error) {
	query := `
		SELECT r.id, r.title, r.ingredients, r.instructions, r.thumbnail_url,
		       r.is_public, r.owner_id, r.source_name, p.display_name AS owner_name
		FROM recipes r
		LEFT JOIN profiles p ON p.user_id = r.owner_id
		WHERE r.id = $1`

	var snap domain.RecipeSnapshot
	var ingredients, instructions pq.StringArray

	err := r.db.QueryRowContext(ctx, query, recipeID).Scan(
		&snap.ID, &snap.Title, &ingredients, &instructions, &snap.ThumbnailURL,
		&snap.IsPublic, &snap.OwnerID, &snap.SourceName, &snap.OwnerName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch recipe snapshot: %w", err)
	}

	snap.Ingredients = ingredients
	snap.Instructions = instructions
	return &snap, nil
}
