package domain

import "errors"

// Common errors
var (
	// ErrNotFound is returned when an entity is not found in the database.
	ErrNotFound = errors.New("entity not found")

	// ErrRecipeNotFound is the repost failure reason for a missing recipe.
	ErrRecipeNotFound = errors.New("Recipe not found")

	// ErrRecipeNotPublic is the repost failure reason for a private recipe.
	ErrRecipeNotPublic = errors.New("recipe is not public")

	// ErrNoCommentsResolved is recorded when every comment referenced by a
	// recipient group has been deleted since the notifications were queued.
	ErrNoCommentsResolved = errors.New("no comments could be resolved")
)
