// Package dedup guards the two crash windows the queue tables cannot see:
// a publish that succeeded before its write-back, and a digest that was
// delivered before its mark-sent update. Redis remembers the side effect
// independently of Postgres; losing Redis degrades to the unprotected
// behavior rather than failing the run.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/recipereel/workers/internal/domain"
	"github.com/recipereel/workers/internal/logger"
)

const digestHashLen = 16

// Tracker records completed side effects in Redis with a TTL.
type Tracker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger logger.Logger
}

// NewTracker creates a tracker.
func NewTracker(client redis.UniversalClient, ttl time.Duration, log logger.Logger) *Tracker {
	return &Tracker{
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func repostKey(queueItemID string) string {
	return fmt.Sprintf("reposted:item:%s", queueItemID)
}

func digestKey(recipientID, hash string) string {
	return fmt.Sprintf("notified:%s:%s", recipientID, hash)
}

// RepostRecord is the payload stored for a completed publish, so a
// follow-up run can finish the write-back without re-publishing.
type RepostRecord struct {
	PostID  string `json:"post_id"`
	PostURL string `json:"post_url"`
}

// MarkReposted records a successful publish for a queue item.
func (t *Tracker) MarkReposted(ctx context.Context, queueItemID string, post domain.PlatformPost) error {
	payload, err := json.Marshal(RepostRecord{PostID: post.ID, PostURL: post.URL})
	if err != nil {
		return fmt.Errorf("marshal repost record: %w", err)
	}

	key := repostKey(queueItemID)
	if err := t.client.Set(ctx, key, payload, t.ttl).Err(); err != nil {
		t.logger.Error("Redis error marking item as reposted",
			logger.String("queue_item_id", queueItemID),
			logger.String("redis_key", key),
			logger.Error(err))
		return err
	}
	return nil
}

// LookupRepost returns the recorded publish for a queue item, or nil when
// none is recorded. Redis errors are logged and treated as "not recorded"
// so the dispatcher falls back to its normal path.
func (t *Tracker) LookupRepost(ctx context.Context, queueItemID string) *RepostRecord {
	key := repostKey(queueItemID)

	payload, err := t.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		t.logger.Error("Redis error checking reposted item",
			logger.String("queue_item_id", queueItemID),
			logger.String("redis_key", key),
			logger.Error(err))
		return nil
	}

	var rec RepostRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		t.logger.Error("corrupt repost record in Redis",
			logger.String("redis_key", key),
			logger.Error(err))
		return nil
	}
	return &rec
}

// MarkNotified records a delivered digest for a recipient.
func (t *Tracker) MarkNotified(ctx context.Context, recipientID, hash string) error {
	key := digestKey(recipientID, hash)
	if err := t.client.Set(ctx, key, "1", t.ttl).Err(); err != nil {
		t.logger.Error("Redis error marking digest as delivered",
			logger.String("recipient_id", recipientID),
			logger.String("redis_key", key),
			logger.Error(err))
		return err
	}
	return nil
}

// HasNotified reports whether the exact digest was already delivered to the
// recipient. Redis errors are logged and treated as "not delivered".
func (t *Tracker) HasNotified(ctx context.Context, recipientID, hash string) bool {
	key := digestKey(recipientID, hash)

	exists, err := t.client.Exists(ctx, key).Result()
	if err != nil {
		t.logger.Error("Redis error checking delivered digest",
			logger.String("recipient_id", recipientID),
			logger.String("redis_key", key),
			logger.Error(err))
		return false
	}
	return exists == 1
}

// DigestHash derives a stable identity for a digest from the comment ids it
// contains, independent of fetch order.
func DigestHash(commentIDs []string) string {
	sorted := make([]string, len(commentIDs))
	copy(sorted, commentIDs)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:])[:digestHashLen]
}
