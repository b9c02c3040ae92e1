package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/recipereel/workers/internal/dedup"
	"github.com/recipereel/workers/internal/domain"
	"github.com/recipereel/workers/internal/logger"
	"github.com/recipereel/workers/internal/mailer"
	"github.com/recipereel/workers/internal/metrics"
)

// NotificationQueue is the aggregator's view of the notification_queue table.
type NotificationQueue interface {
	FetchUnsent(ctx context.Context) ([]domain.NotificationRecord, error)
	MarkSent(ctx context.Context, ids []string) error
}

// CommentStore resolves comment projections in one batched lookup.
type CommentStore interface {
	FetchByIDs(ctx context.Context, ids []string) ([]domain.CommentProjection, error)
}

// UserDirectory resolves recipient delivery addresses.
type UserDirectory interface {
	LookupEmail(ctx context.Context, userID string) (string, error)
}

// NotificationMailer sends the single and digest forms of the
// comment-notification email.
type NotificationMailer interface {
	SendCommentNotification(to, recipientID string, line mailer.CommentLine) error
	SendCommentDigest(to, recipientID string, lines []mailer.CommentLine) error
}

// NotifyDedup remembers delivered digests across the mark-sent crash
// window. Optional; nil disables the recovery path.
type NotifyDedup interface {
	HasNotified(ctx context.Context, recipientID, hash string) bool
	MarkNotified(ctx context.Context, recipientID, hash string) error
}

// HealthCheck is one named readiness probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Counts summarizes one aggregator run.
type Counts struct {
	// Processed is the number of records considered after the
	// preference filter.
	Processed int
	// Sent is the number of recipients successfully notified.
	Sent int
	// Errors is the number of recipients that failed.
	Errors int
	// BookkeepingErrors counts sent outcomes whose follow-up writes
	// failed. The affected recipients still appear in Sent; the rows
	// stay unsent until a later run repairs them.
	BookkeepingErrors int
}

// AggregatorDeps bundles the aggregator's collaborators.
type AggregatorDeps struct {
	Queue    NotificationQueue
	Comments CommentStore
	Users    UserDirectory
	Mailer   NotificationMailer
	Dedup    NotifyDedup
	Metrics  RunMetrics
	Logger   logger.Logger
	// Checks drive VerifyConnections.
	Checks []HealthCheck
}

// Aggregator fans pending comment notifications in by recipient and sends
// one email per recipient per run.
type Aggregator struct {
	queue    NotificationQueue
	comments CommentStore
	users    UserDirectory
	mailer   NotificationMailer
	dedup    NotifyDedup
	metrics  RunMetrics
	logger   logger.Logger
	tracer   trace.Tracer
	checks   []HealthCheck

	recipeBaseURL string
}

// NewAggregator creates an aggregator. recipeBaseURL is the base for recipe
// links in the emails.
func NewAggregator(deps AggregatorDeps, recipeBaseURL string) *Aggregator {
	return &Aggregator{
		queue:         deps.Queue,
		comments:      deps.Comments,
		users:         deps.Users,
		mailer:        deps.Mailer,
		dedup:         deps.Dedup,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		tracer:        otel.Tracer("notification-aggregator"),
		checks:        deps.Checks,
		recipeBaseURL: strings.TrimSuffix(recipeBaseURL, "/"),
	}
}

// ProcessNotifications drains the notification queue once. Recipients whose
// preference disables comment notifications are filtered out before
// grouping and do not appear in any count. A failure of the initial fetch
// is returned as the error with zero counts; per-recipient failures are
// reflected in Counts.Errors only.
func (a *Aggregator) ProcessNotifications(ctx context.Context) (Counts, error) {
	runID := uuid.NewString()
	log := a.logger.With(logger.String("run_id", runID))

	records, err := a.queue.FetchUnsent(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("fetch unsent notifications: %w", err)
	}

	eligible := records[:0:0]
	for _, r := range records {
		if r.NotificationsEnabled {
			eligible = append(eligible, r)
		}
	}

	counts := Counts{Processed: len(eligible)}
	if len(eligible) == 0 {
		log.Debug("no eligible notifications pending")
		return counts, nil
	}

	groups := domain.GroupByRecipient(eligible)
	log.Info("aggregating notifications",
		logger.Int("records", len(eligible)),
		logger.Int("recipients", len(groups)))

	for i := range groups {
		if err := a.notifyRecipient(ctx, log, &groups[i], &counts); err != nil {
			counts.Errors++
			log.Error("failed to notify recipient",
				logger.String("recipient_id", groups[i].RecipientID),
				logger.Error(err))
			a.incrMetric(ctx, log, metrics.CounterRecipientErrors)
			continue
		}
		counts.Sent++
		a.incrMetric(ctx, log, metrics.CounterRecipientsSent)
	}

	log.Info("notification run complete",
		logger.Int("processed", counts.Processed),
		logger.Int("sent", counts.Sent),
		logger.Int("errors", counts.Errors),
		logger.Int("bookkeeping_errors", counts.BookkeepingErrors))
	return counts, nil
}

func (a *Aggregator) notifyRecipient(ctx context.Context, log logger.Logger, group *domain.RecipientGroup, counts *Counts) error {
	ctx, span := a.tracer.Start(ctx, "notification.send",
		trace.WithAttributes(
			attribute.String("recipient_id", group.RecipientID),
			attribute.Int("record_count", len(group.Records)),
		))
	defer span.End()

	hash := dedup.DigestHash(group.CommentIDs())

	// A digest delivered by a previous run that crashed before its
	// mark-sent update: repair the bookkeeping instead of emailing again.
	if a.dedup != nil && a.dedup.HasNotified(ctx, group.RecipientID, hash) {
		log.Warn("digest already delivered to recipient, repairing bookkeeping",
			logger.String("recipient_id", group.RecipientID))
		a.markSent(ctx, log, group, counts)
		return nil
	}

	email, err := a.users.LookupEmail(ctx, group.RecipientID)
	if err != nil {
		return fmt.Errorf("resolve recipient email: %w", err)
	}

	comments, err := a.comments.FetchByIDs(ctx, group.CommentIDs())
	if err != nil {
		return fmt.Errorf("fetch comments: %w", err)
	}
	if len(comments) == 0 {
		return domain.ErrNoCommentsResolved
	}

	lines := make([]mailer.CommentLine, 0, len(comments))
	for _, c := range comments {
		lines = append(lines, mailer.CommentLine{
			CommenterName: c.CommenterName,
			RecipeTitle:   c.RecipeTitle,
			RecipeURL:     fmt.Sprintf("%s/recipes/%s", a.recipeBaseURL, c.RecipeID),
			Text:          c.Text,
		})
	}

	if len(lines) == 1 {
		err = a.mailer.SendCommentNotification(email, group.RecipientID, lines[0])
	} else {
		err = a.mailer.SendCommentDigest(email, group.RecipientID, lines)
	}
	if err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}

	if a.dedup != nil {
		if markErr := a.dedup.MarkNotified(ctx, group.RecipientID, hash); markErr != nil {
			log.Warn("failed to record delivered digest in dedup tracker",
				logger.String("recipient_id", group.RecipientID),
				logger.Error(markErr))
		}
	}

	a.markSent(ctx, log, group, counts)

	log.Info("recipient notified",
		logger.String("recipient_id", group.RecipientID),
		logger.Int("comments", len(lines)))
	return nil
}

// markSent performs the bulk sent update. A failure here does not revert
// the sent outcome; it is surfaced through Counts.BookkeepingErrors and
// the dedup record protects the next run.
func (a *Aggregator) markSent(ctx context.Context, log logger.Logger, group *domain.RecipientGroup, counts *Counts) {
	if err := a.queue.MarkSent(ctx, group.NotificationIDs()); err != nil {
		counts.BookkeepingErrors++
		log.Error("sent but failed to mark notifications as sent",
			logger.String("recipient_id", group.RecipientID),
			logger.Error(err))
	}
}

func (a *Aggregator) incrMetric(ctx context.Context, log logger.Logger, counter string) {
	if a.metrics == nil {
		return
	}
	if err := a.metrics.Incr(ctx, counter); err != nil {
		log.Warn("failed to record metric",
			logger.String("counter", counter),
			logger.Error(err))
	}
}

// VerifyConnections runs the configured readiness checks and returns the
// first failure.
func (a *Aggregator) VerifyConnections(ctx context.Context) error {
	return RunHealthChecks(ctx, a.checks)
}

// RunHealthChecks runs readiness probes in order and returns the first
// failure, named after the check that produced it.
func RunHealthChecks(ctx context.Context, checks []HealthCheck) error {
	for _, hc := range checks {
		if err := hc.Check(ctx); err != nil {
			return fmt.Errorf("%s check failed: %w", hc.Name, err)
		}
	}
	return nil
}
