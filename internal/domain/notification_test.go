package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipereel/workers/internal/domain"
)

func record(id, commentID, recipientID string) domain.NotificationRecord {
	return domain.NotificationRecord{
		ID:          id,
		CommentID:   commentID,
		RecipeID:    "r1",
		RecipientID: recipientID,
	}
}

func TestGroupByRecipientPreservesOrder(t *testing.T) {
	records := []domain.NotificationRecord{
		record("n1", "c1", "alice"),
		record("n2", "c2", "bob"),
		record("n3", "c3", "alice"),
		record("n4", "c4", "carol"),
		record("n5", "c5", "bob"),
	}

	groups := domain.GroupByRecipient(records)
	require.Len(t, groups, 3)

	// Group order follows first appearance of each recipient.
	assert.Equal(t, "alice", groups[0].RecipientID)
	assert.Equal(t, "bob", groups[1].RecipientID)
	assert.Equal(t, "carol", groups[2].RecipientID)

	// Record order within each group is the input order.
	assert.Equal(t, []string{"n1", "n3"}, groups[0].NotificationIDs())
	assert.Equal(t, []string{"c2", "c5"}, groups[1].CommentIDs())
	assert.Equal(t, []string{"n4"}, groups[2].NotificationIDs())
}

func TestGroupByRecipientEmptyInput(t *testing.T) {
	assert.Empty(t, domain.GroupByRecipient(nil))
}

func TestSourceDisplay(t *testing.T) {
	source := "Nonna's Kitchen"
	owner := "Maria"
	empty := ""

	tests := []struct {
		name     string
		snapshot domain.RecipeSnapshot
		want     string
	}{
		{
			name:     "source name wins over owner",
			snapshot: domain.RecipeSnapshot{SourceName: &source, OwnerName: &owner},
			want:     "Nonna's Kitchen",
		},
		{
			name:     "falls back to owner display name",
			snapshot: domain.RecipeSnapshot{OwnerName: &owner},
			want:     "Maria",
		},
		{
			name:     "empty source falls back to owner",
			snapshot: domain.RecipeSnapshot{SourceName: &empty, OwnerName: &owner},
			want:     "Maria",
		},
		{
			name:     "no attribution at all",
			snapshot: domain.RecipeSnapshot{},
			want:     domain.UnknownSource,
		},
		{
			name:     "empty owner name",
			snapshot: domain.RecipeSnapshot{OwnerName: &empty},
			want:     domain.UnknownSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snapshot.SourceDisplay())
		})
	}
}

func TestRepostItemHasError(t *testing.T) {
	msg := "Recipe not found"
	empty := ""

	assert.False(t, (&domain.RepostItem{}).HasError())
	assert.False(t, (&domain.RepostItem{ErrorMessage: &empty}).HasError())
	assert.True(t, (&domain.RepostItem{ErrorMessage: &msg}).HasError())
}
