package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/recipereel/workers/internal/domain"
)

// NotificationRepository manages the notification_queue table.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new repository
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// FetchUnsent returns all unsent notification records newest first, each
// joined with the recipient profile's comment-notification preference.
// Filtering on the preference happens in the aggregator, before grouping.
func (r *NotificationRepository) FetchUnsent(ctx context.Context) ([]domain.NotificationRecord, error) {
	query := `
		SELECT n.id, n.comment_id, n.recipe_id, n.recipient_id, n.sent,
		       COALESCE(p.recipe_comment_notifications, TRUE) AS notifications_enabled,
		       n.created_at
		FROM notification_queue n
		LEFT JOIN profiles p ON p.user_id = n.recipient_id
		WHERE n.sent = FALSE
		ORDER BY n.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch unsent notifications: %w", err)
	}
	defer rows.Close()

	var records []domain.NotificationRecord
	for rows.Next() {
		var rec domain.NotificationRecord
		err := rows.Scan(
			&rec.ID, &rec.CommentID, &rec.RecipeID, &rec.RecipientID,
			&rec.Sent, &rec.NotificationsEnabled, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkSent sets sent = TRUE for every id in one bulk update.
func (r *NotificationRepository) MarkSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE notification_queue
		SET sent = TRUE
		WHERE id = ANY($1)`

	result, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("mark notifications sent: %w", err)
	}
	rows, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("get affected rows: %w", rowsErr)
	}
	if rows != int64(len(ids)) {
		return fmt.Errorf("mark notifications sent: updated %d of %d rows", rows, len(ids))
	}
	return nil
}
