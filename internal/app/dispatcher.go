package app

import (
	"context"
	"fmt"

	"github.com/recipereel/workers/internal/caption"
	"github.com/recipereel/workers/internal/database"
	"github.com/recipereel/workers/internal/instagram"
	"github.com/recipereel/workers/internal/logger"
	"github.com/recipereel/workers/internal/worker"
)

// DispatcherApp wires the repost dispatcher with its dependencies.
type DispatcherApp struct {
	*App
	dispatcher *worker.Dispatcher
	checks     []worker.HealthCheck
	dryRun     bool
}

// NewDispatcher creates a fully wired dispatcher application.
func NewDispatcher(ctx context.Context, opts Options) (*DispatcherApp, error) {
	base, err := newApp(opts, "repost-dispatcher")
	if err != nil {
		return nil, err
	}

	cfg := base.config

	captionClient, err := caption.NewClient(ctx, cfg.Caption.APIKey, cfg.Caption.Model)
	if err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("create caption client: %w", err)
	}

	igClient, err := instagram.NewClient(
		cfg.Instagram.BaseURL, cfg.Instagram.AccountID, cfg.Instagram.AccessToken,
		base.logger,
	)
	if err != nil {
		_ = base.Close()
		return nil, fmt.Errorf("create instagram client: %w", err)
	}

	dryRun := cfg.Dispatcher.DryRun || opts.DryRun

	mailClient := base.newMailer()

	// The dispatcher depends on SMTP for operator alerts, so its probe
	// dials the relay too.
	checks := append(base.healthChecks(), worker.HealthCheck{
		Name:  "smtp",
		Check: func(context.Context) error { return mailClient.Dial() },
	})

	dispatcher := worker.NewDispatcher(worker.DispatcherDeps{
		Queue:     database.NewRepostRepository(base.db.DB),
		Recipes:   database.NewRecipeRepository(base.db),
		Captions:  captionClient,
		Publisher: igClient,
		Mailer:    mailClient,
		Dedup:     base.dedupTracker,
		Metrics:   base.metricsTracker,
		Logger:    base.logger,
	}, worker.DispatcherConfig{
		BatchSize:     cfg.Dispatcher.BatchSize,
		RetryAttempts: cfg.Dispatcher.RetryAttempts,
		RetryDelay:    cfg.Dispatcher.RetryDelay.Std(),
		DryRun:        dryRun,
	})

	return &DispatcherApp{App: base, dispatcher: dispatcher, checks: checks, dryRun: dryRun}, nil
}

// Verify checks every backing connection and returns the first failure.
func (a *DispatcherApp) Verify(ctx context.Context) error {
	return worker.RunHealthChecks(ctx, a.checks)
}

// Run drains the repost queue once and returns.
func (a *DispatcherApp) Run(ctx context.Context) error {
	a.logger.Info("Starting repost dispatcher run",
		logger.Int("batch_size", a.config.Dispatcher.BatchSize),
		logger.Bool("dry_run", a.dryRun),
	)
	return a.dispatcher.Run(ctx)
}
