package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/recipereel/workers/internal/domain"
)

// repostSelectList is the column list for SELECT on repost_queue (single source for schema changes)
const repostSelectList = `id, recipe_id, is_posted, error_message, posted_at,
			platform_post_id, platform_post_url, created_at`

// RepostRepository manages the repost_queue table.
type RepostRepository struct {
	db *sql.DB
}

// NewRepostRepository creates a new repository
func NewRepostRepository(db *sql.DB) *RepostRepository {
	return &RepostRepository{db: db}
}

// FetchUnposted returns unposted items oldest first, up to limit. Items with
// a recorded error from an earlier run still match and are retried.
func (r *RepostRepository) FetchUnposted(ctx context.Context, limit int) ([]domain.RepostItem, error) {
	query := `
		SELECT ` + repostSelectList + `
		FROM repost_queue
		WHERE is_posted = FALSE
		ORDER BY created_at ASC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unposted: %w", err)
	}
	defer rows.Close()

	return scanRepostItems(rows)
}

// MarkPosted records a successful publish in a single update: sets the
// posted flag and timestamp, stores the platform post id/url, and clears
// any error message left by a previous attempt.
func (r *RepostRepository) MarkPosted(ctx context.Context, id, platformPostID, platformPostURL string) error {
	query := `
		UPDATE repost_queue
		SET is_posted = TRUE,
		    posted_at = NOW(),
		    platform_post_id = $2,
		    platform_post_url = $3,
		    error_message = NULL
		WHERE id = $1`
	if err := r.execExpectOneRow(ctx, query, id, platformPostID, platformPostURL); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("mark posted: %w", err)
	}
	return nil
}

// MarkFailed records a failure reason. The item stays unposted and will be
// picked up again on a future run.
func (r *RepostRepository) MarkFailed(ctx context.Context, id, message string) error {
	query := `
		UPDATE repost_queue
		SET error_message = $2
		WHERE id = $1`
	if err := r.execExpectOneRow(ctx, query, id, message); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// execExpectOneRow runs an exec and returns domain.ErrNotFound when no row was affected
func (r *RepostRepository) execExpectOneRow(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("get affected rows: %w", rowsErr)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanRepostItems(rows *sql.Rows) ([]domain.RepostItem, error) {
	var items []domain.RepostItem
	for rows.Next() {
		var item domain.RepostItem
		err := rows.Scan(
			&item.ID, &item.RecipeID, &item.IsPosted, &item.ErrorMessage,
			&item.PostedAt, &item.PlatformPostID, &item.PlatformPostURL, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan repost item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
