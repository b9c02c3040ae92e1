// Package worker implements the two batch workers: the repost dispatcher
// and the comment-notification aggregator. Both follow the same shape:
// poll the queue, isolate per-item failures, perform the side effect,
// record the outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/recipereel/workers/internal/dedup"
	"github.com/recipereel/workers/internal/domain"
	"github.com/recipereel/workers/internal/logger"
	"github.com/recipereel/workers/internal/metrics"
	"github.com/recipereel/workers/internal/urlcheck"
)

const (
	defaultBatchSize     = 1
	defaultRetryAttempts = 3
	defaultRetryDelay    = 5 * time.Second

	dryRunPostURL = "https://instagram.com/p/dry-run"
)

// RepostQueue is the dispatcher's view of the repost_queue table.
type RepostQueue interface {
	FetchUnposted(ctx context.Context, limit int) ([]domain.RepostItem, error)
	MarkPosted(ctx context.Context, id, platformPostID, platformPostURL string) error
	MarkFailed(ctx context.Context, id, message string) error
}

// RecipeStore resolves recipe snapshots.
type RecipeStore interface {
	FetchSnapshot(ctx context.Context, recipeID string) (*domain.RecipeSnapshot, error)
}

// CaptionGenerator produces the post caption for a recipe.
type CaptionGenerator interface {
	Generate(ctx context.Context, snap *domain.RecipeSnapshot) (string, error)
}

// PlatformPublisher publishes an image post to the social platform.
type PlatformPublisher interface {
	Publish(ctx context.Context, imageURL, captionText string) (*domain.PlatformPost, error)
}

// OperatorMailer delivers failure alerts to the operator. Best-effort.
type OperatorMailer interface {
	SendOperatorAlert(subject, body string) error
}

// RepostDedup remembers completed publishes across the write-back crash
// window. Optional; nil disables the recovery path.
type RepostDedup interface {
	LookupRepost(ctx context.Context, queueItemID string) *dedup.RepostRecord
	MarkReposted(ctx context.Context, queueItemID string, post domain.PlatformPost) error
}

// RunMetrics records run counters. Optional; nil disables counting.
type RunMetrics interface {
	Incr(ctx context.Context, counter string) error
}

// DispatcherConfig holds configuration options
type DispatcherConfig struct {
	// BatchSize is the number of queue items drained per run.
	BatchSize int
	// RetryAttempts is the total number of publish attempts per item.
	RetryAttempts int
	// RetryDelay is the fixed pause between publish attempts.
	RetryDelay time.Duration
	// DryRun performs every step except the publish call and the
	// thumbnail gate, writing back a synthetic success.
	DryRun bool
}

// DefaultDispatcherConfig returns sensible defaults
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:     defaultBatchSize,
		RetryAttempts: defaultRetryAttempts,
		RetryDelay:    defaultRetryDelay,
	}
}

// DispatcherDeps bundles the dispatcher's collaborators.
type DispatcherDeps struct {
	Queue     RepostQueue
	Recipes   RecipeStore
	Captions  CaptionGenerator
	Publisher PlatformPublisher
	Mailer    OperatorMailer
	Dedup     RepostDedup
	Metrics   RunMetrics
	Logger    logger.Logger
}

// Dispatcher drains the repost queue once per Run call.
type Dispatcher struct {
	queue     RepostQueue
	recipes   RecipeStore
	captions  CaptionGenerator
	publisher PlatformPublisher
	mailer    OperatorMailer
	dedup     RepostDedup
	metrics   RunMetrics
	logger    logger.Logger
	tracer    trace.Tracer

	cfg DispatcherConfig

	// now is swapped out in tests.
	now func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(deps DispatcherDeps, cfg DispatcherConfig) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	return &Dispatcher{
		queue:     deps.Queue,
		recipes:   deps.Recipes,
		captions:  deps.Captions,
		publisher: deps.Publisher,
		mailer:    deps.Mailer,
		dedup:     deps.Dedup,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		tracer:    otel.Tracer("repost-dispatcher"),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run drains the currently-available backlog and returns. Only a failure of
// the initial queue fetch is returned; per-item failures are recorded on the
// item and never abort the run.
func (d *Dispatcher) Run(ctx context.Context) error {
	started := time.Now()
	runID := uuid.NewString()
	log := d.logger.With(logger.String("run_id", runID))

	items, err := d.queue.FetchUnposted(ctx, d.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("fetch unposted queue items: %w", err)
	}
	if len(items) == 0 {
		log.Debug("repost queue is empty")
		return nil
	}

	log.Info("draining repost queue",
		logger.Int("count", len(items)),
		logger.Bool("dry_run", d.cfg.DryRun))

	for i := range items {
		d.processItem(ctx, log, &items[i])
	}

	log.Info("repost queue drained",
		logger.Int("count", len(items)),
		logger.Duration("elapsed", time.Since(started)))
	return nil
}

func (d *Dispatcher) processItem(ctx context.Context, log logger.Logger, item *domain.RepostItem) {
	ctx, span := d.tracer.Start(ctx, "repost.dispatch",
		trace.WithAttributes(
			attribute.String("queue_item_id", item.ID),
			attribute.String("recipe_id", item.RecipeID),
			attribute.Bool("dry_run", d.cfg.DryRun),
		))
	defer span.End()

	log = log.With(
		logger.String("queue_item_id", item.ID),
		logger.String("recipe_id", item.RecipeID))

	// A publish recorded by a previous run that crashed before its
	// write-back: finish the write-back instead of posting again.
	if d.dedup != nil {
		if rec := d.dedup.LookupRepost(ctx, item.ID); rec != nil {
			log.Warn("publish already recorded for item, completing write-back",
				logger.String("platform_post_id", rec.PostID))
			d.recordSuccess(ctx, log, item, domain.PlatformPost{ID: rec.PostID, URL: rec.PostURL})
			return
		}
	}

	snap, err := d.recipes.FetchSnapshot(ctx, item.RecipeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			d.failItem(ctx, log, item, "lookup", domain.ErrRecipeNotFound)
			return
		}
		d.failItem(ctx, log, item, "lookup", err)
		return
	}

	if !snap.IsPublic {
		d.failItem(ctx, log, item, "precondition", domain.ErrRecipeNotPublic)
		return
	}

	if !d.cfg.DryRun {
		if err := urlcheck.CheckPublicThumbnail(snap.ThumbnailURL); err != nil {
			d.failItem(ctx, log, item, "precondition", err)
			return
		}
	}

	captionText, err := d.captions.Generate(ctx, snap)
	if err != nil {
		d.failItem(ctx, log, item, "caption", err)
		return
	}

	post, err := d.publish(ctx, log, snap.ThumbnailURL, captionText)
	if err != nil {
		d.failItem(ctx, log, item, "publish", err)
		return
	}

	if d.dedup != nil && !d.cfg.DryRun {
		// Record the side effect before the Postgres write-back so a crash
		// between the two cannot cause a duplicate post.
		if markErr := d.dedup.MarkReposted(ctx, item.ID, *post); markErr != nil {
			log.Warn("failed to record publish in dedup tracker", logger.Error(markErr))
		}
	}

	d.recordSuccess(ctx, log, item, *post)
}

// publish performs the platform call with the configured retry attempts, or
// synthesizes a post in dry-run mode.
func (d *Dispatcher) publish(ctx context.Context, log logger.Logger, imageURL, captionText string) (*domain.PlatformPost, error) {
	if d.cfg.DryRun {
		return &domain.PlatformPost{
			ID:  fmt.Sprintf("dry-run-%d", d.now().Unix()),
			URL: dryRunPostURL,
		}, nil
	}

	var lastErr error
	for attempt := 1; attempt <= d.cfg.RetryAttempts; attempt++ {
		post, err := d.publisher.Publish(ctx, imageURL, captionText)
		if err == nil {
			return post, nil
		}
		lastErr = err

		log.Warn("publish attempt failed",
			logger.Int("attempt", attempt),
			logger.Int("max_attempts", d.cfg.RetryAttempts),
			logger.Error(err))

		if attempt == d.cfg.RetryAttempts {
			break
		}
		select {
		case <-time.After(d.cfg.RetryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("publish aborted: %w", ctx.Err())
		}
	}
	return nil, lastErr
}

// recordSuccess writes back the posted state. A write-back failure is
// logged and swallowed; the dedup record keeps the next run from
// re-publishing the item.
func (d *Dispatcher) recordSuccess(ctx context.Context, log logger.Logger, item *domain.RepostItem, post domain.PlatformPost) {
	if err := d.queue.MarkPosted(ctx, item.ID, post.ID, post.URL); err != nil {
		log.Error("published but failed to mark queue item as posted",
			logger.String("platform_post_id", post.ID),
			logger.Error(err))
	}

	if d.metrics != nil {
		if err := d.metrics.Incr(ctx, metrics.CounterReposted); err != nil {
			log.Warn("failed to record repost metric", logger.Error(err))
		}
	}

	log.Info("recipe reposted",
		logger.String("platform_post_id", post.ID),
		logger.String("platform_post_url", post.URL))
}

// failItem records the failure reason on the queue item and alerts the
// operator. Both writes are best-effort and never abort the run.
func (d *Dispatcher) failItem(ctx context.Context, log logger.Logger, item *domain.RepostItem, stage string, cause error) {
	message := cause.Error()

	log.Error("repost failed",
		logger.String("stage", stage),
		logger.Error(cause))

	if err := d.queue.MarkFailed(ctx, item.ID, message); err != nil {
		log.Error("failed to record repost error on queue item", logger.Error(err))
	}

	subject := fmt.Sprintf("Repost failed: queue item %s", item.ID)
	body := fmt.Sprintf("Recipe %s could not be reposted.\n\nStage: %s\nError: %s\n",
		item.RecipeID, stage, message)
	if item.HasError() {
		body += fmt.Sprintf("Previous error: %s\n", *item.ErrorMessage)
	}
	if err := d.mailer.SendOperatorAlert(subject, body); err != nil {
		log.Error("failed to send operator alert", logger.Error(err))
	}

	if d.metrics != nil {
		if err := d.metrics.Incr(ctx, metrics.CounterRepostFailed); err != nil {
			log.Warn("failed to record repost failure metric", logger.Error(err))
		}
	}
}
