// Package domain contains the core models shared by the batch workers.
package domain

import "time"

// UnknownSource is the display name used when a recipe has neither an
// explicit source name nor an owning profile with a display name.
const UnknownSource = "Unknown"

// RepostItem is one row of the repost_queue table: a scheduled request to
// republish a recipe to the social platform.
//
// An item is in exactly one of three states:
//   - unposted and unattempted (IsPosted false, ErrorMessage nil)
//   - unposted with a recorded error, eligible for a future run
//   - posted (terminal; never revisited by the dispatcher)
type RepostItem struct {
	ID              string     `db:"id"`
	RecipeID        string     `db:"recipe_id"`
	IsPosted        bool       `db:"is_posted"`
	ErrorMessage    *string    `db:"error_message"`
	PostedAt        *time.Time `db:"posted_at"`
	PlatformPostID  *string    `db:"platform_post_id"`
	PlatformPostURL *string    `db:"platform_post_url"`
	CreatedAt       time.Time  `db:"created_at"`
}

// HasError reports whether a previous run recorded a failure for this item.
func (r *RepostItem) HasError() bool {
	return r.ErrorMessage != nil && *r.ErrorMessage != ""
}

// PlatformPost is the outcome of a successful publish call.
type PlatformPost struct {
	ID  string
	URL string
}

// RecipeSnapshot is the read-only projection of a recipe the dispatcher
// needs to build a post: caption inputs plus the publish preconditions.
type RecipeSnapshot struct {
	ID           string   `db:"id"`
	Title        string   `db:"title"`
	Ingredients  []string `db:"-"`
	Instructions []string `db:"-"`
	ThumbnailURL string   `db:"thumbnail_url"`
	IsPublic     bool     `db:"is_public"`
	OwnerID      string   `db:"owner_id"`
	SourceName   *string  `db:"source_name"`
	OwnerName    *string  `db:"owner_name"`
}

// SourceDisplay resolves the attribution line for a recipe: the explicit
// source name when present, else the owning profile's display name, else
// the UnknownSource placeholder.
func (s *RecipeSnapshot) SourceDisplay() string {
	if s.SourceName != nil && *s.SourceName != "" {
		return *s.SourceName
	}
	if s.OwnerName != nil && *s.OwnerName != "" {
		return *s.OwnerName
	}
	return UnknownSource
}
