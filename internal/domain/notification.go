package domain

import "time"

// NotificationRecord is one row of the notification_queue table joined with
// the recipient's profile. NotificationsEnabled carries the recipient's
// recipe_comment_notifications preference; records for recipients who
// disabled the preference are filtered out before any grouping or counting.
type NotificationRecord struct {
	ID                   string    `db:"id"`
	CommentID            string    `db:"comment_id"`
	RecipeID             string    `db:"recipe_id"`
	RecipientID          string    `db:"recipient_id"`
	Sent                 bool      `db:"sent"`
	NotificationsEnabled bool      `db:"notifications_enabled"`
	CreatedAt            time.Time `db:"created_at"`
}

// CommentProjection is the read-only join used to render one line of a
// notification email.
type CommentProjection struct {
	ID            string `db:"id"`
	Text          string `db:"text"`
	CommenterName string `db:"commenter_name"`
	RecipeID      string `db:"recipe_id"`
	RecipeTitle   string `db:"recipe_title"`
}

// RecipientGroup is the fan-in unit of the aggregator: every pending
// notification for one recipient, in the order the records were fetched.
type RecipientGroup struct {
	RecipientID string
	Records     []NotificationRecord
}

// NotificationIDs returns the queue row ids of the group, for the bulk
// mark-sent update.
func (g *RecipientGroup) NotificationIDs() []string {
	ids := make([]string, 0, len(g.Records))
	for _, r := range g.Records {
		ids = append(ids, r.ID)
	}
	return ids
}

// CommentIDs returns the comment ids referenced by the group, for the
// batched comment lookup.
func (g *RecipientGroup) CommentIDs() []string {
	ids := make([]string, 0, len(g.Records))
	for _, r := range g.Records {
		ids = append(ids, r.CommentID)
	}
	return ids
}

// GroupByRecipient partitions records by recipient id. Group order follows
// the first appearance of each recipient in the input; record order within
// a group is the input order. Records are assumed to be pre-filtered.
func GroupByRecipient(records []NotificationRecord) []RecipientGroup {
	index := make(map[string]int, len(records))
	groups := make([]RecipientGroup, 0, len(records))

	for _, r := range records {
		i, ok := index[r.RecipientID]
		if !ok {
			i = len(groups)
			index[r.RecipientID] = i
			groups = append(groups, RecipientGroup{RecipientID: r.RecipientID})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}
