package app

import (
	"context"

	"github.com/recipereel/workers/internal/database"
	"github.com/recipereel/workers/internal/logger"
	"github.com/recipereel/workers/internal/worker"
)

// AggregatorApp wires the comment-notification aggregator with its
// dependencies.
type AggregatorApp struct {
	*App
	aggregator *worker.Aggregator
}

// NewAggregator creates a fully wired aggregator application.
func NewAggregator(opts Options) (*AggregatorApp, error) {
	base, err := newApp(opts, "notification-digest")
	if err != nil {
		return nil, err
	}

	mailClient := base.newMailer()

	checks := append(base.healthChecks(), worker.HealthCheck{
		Name:  "smtp",
		Check: func(context.Context) error { return mailClient.Dial() },
	})

	aggregator := worker.NewAggregator(worker.AggregatorDeps{
		Queue:    database.NewNotificationRepository(base.db.DB),
		Comments: database.NewCommentRepository(base.db.DB),
		Users:    database.NewUserRepository(base.db.DB),
		Mailer:   mailClient,
		Dedup:    base.dedupTracker,
		Metrics:  base.metricsTracker,
		Logger:   base.logger,
		Checks:   checks,
	}, base.config.Notifications.RecipeBaseURL)

	return &AggregatorApp{App: base, aggregator: aggregator}, nil
}

// Run processes the pending notification queue once and returns the run
// counts.
func (a *AggregatorApp) Run(ctx context.Context) (worker.Counts, error) {
	a.logger.Info("Starting notification aggregator run")

	counts, err := a.aggregator.ProcessNotifications(ctx)
	if err != nil {
		return counts, err
	}

	a.logger.Info("Notification aggregator run complete",
		logger.Int("processed", counts.Processed),
		logger.Int("sent", counts.Sent),
		logger.Int("errors", counts.Errors),
		logger.Int("bookkeeping_errors", counts.BookkeepingErrors),
	)
	return counts, nil
}

// Verify checks every backing connection and returns the first failure.
func (a *AggregatorApp) Verify(ctx context.Context) error {
	return a.aggregator.VerifyConnections(ctx)
}
