// Package metrics tracks run counters in Redis so operators can watch the
// workers without a scrape target: the processes exit after each run, so
// counters live out-of-process with a bounded TTL.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/recipereel/workers/internal/logger"
)

const (
	keyPrefix  = "metrics:workers"
	metricsTTL = 7 * 24 * time.Hour
)

// Counter names.
const (
	CounterReposted        = "reposted"
	CounterRepostFailed    = "repost_failed"
	CounterRecipientsSent  = "recipients_sent"
	CounterRecipientErrors = "recipient_errors"
)

// Stats is a point-in-time read of all worker counters.
type Stats struct {
	Reposted        int64 `json:"reposted"`
	RepostFailed    int64 `json:"repost_failed"`
	RecipientsSent  int64 `json:"recipients_sent"`
	RecipientErrors int64 `json:"recipient_errors"`
}

// Tracker implements the counters using Redis.
type Tracker struct {
	client redis.UniversalClient
	logger logger.Logger
}

// NewTracker creates a metrics tracker.
func NewTracker(client redis.UniversalClient, log logger.Logger) *Tracker {
	return &Tracker{client: client, logger: log}
}

func key(counter string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, counter)
}

// Incr increments a counter and refreshes its TTL. Failures are logged and
// returned but callers treat them as best-effort.
func (t *Tracker) Incr(ctx context.Context, counter string) error {
	k := key(counter)

	pipe := t.client.Pipeline()
	pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, metricsTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		t.logger.Warn("Failed to increment counter",
			logger.String("counter", counter),
			logger.String("redis_key", k),
			logger.Error(err))
		return fmt.Errorf("increment %s counter: %w", counter, err)
	}
	return nil
}

// GetStats reads every counter. A missing key reads as zero.
func (t *Tracker) GetStats(ctx context.Context) (*Stats, error) {
	counters := []string{CounterReposted, CounterRepostFailed, CounterRecipientsSent, CounterRecipientErrors}

	values := make(map[string]int64, len(counters))
	for _, counter := range counters {
		raw, err := t.client.Get(ctx, key(counter)).Result()
		if err == redis.Nil {
			values[counter] = 0
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s counter: %w", counter, err)
		}
		n, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return nil, fmt.Errorf("parse %s counter: %w", counter, parseErr)
		}
		values[counter] = n
	}

	return &Stats{
		Reposted:        values[CounterReposted],
		RepostFailed:    values[CounterRepostFailed],
		RecipientsSent:  values[CounterRecipientsSent],
		RecipientErrors: values[CounterRecipientErrors],
	}, nil
}

// Report reads every counter and logs the snapshot. Backs the -stats flag
// on both binaries.
func (t *Tracker) Report(ctx context.Context) error {
	stats, err := t.GetStats(ctx)
	if err != nil {
		return err
	}

	t.logger.Info("Worker counters", logger.Any("counters", stats))
	return nil
}
