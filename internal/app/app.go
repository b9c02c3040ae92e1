// Package app provides application lifecycle management for the batch workers.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/recipereel/workers/internal/config"
	"github.com/recipereel/workers/internal/database"
	"github.com/recipereel/workers/internal/dedup"
	"github.com/recipereel/workers/internal/logger"
	"github.com/recipereel/workers/internal/mailer"
	"github.com/recipereel/workers/internal/metrics"
	"github.com/recipereel/workers/internal/worker"
)

const pingTimeout = 5 * time.Second

// Options contains configuration for creating an App.
type Options struct {
	ConfigPath string
	Version    string
	// DryRun overrides the dispatcher's configured dry_run when true.
	DryRun bool
}

// App holds the infrastructure shared by both workers: config, logger,
// Postgres pool and Redis client. Each binary embeds it through its
// worker-specific wrapper.
type App struct {
	config      *config.Config
	logger      logger.Logger
	db          *sqlx.DB
	redisClient redis.UniversalClient

	dedupTracker   *dedup.Tracker
	metricsTracker *metrics.Tracker
}

// newApp initializes the shared infrastructure and verifies both backing
// store connections before any worker logic runs.
func newApp(opts Options, service string) (*App, error) {
	cfg, appLogger, err := loadConfigAndLogger(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	appLogger = appLogger.With(
		logger.String("service", service),
		logger.String("version", opts.Version),
	)

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to Postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
		_ = db.Close()
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to Redis: %w", pingErr)
	}

	return &App{
		config:         cfg,
		logger:         appLogger,
		db:             db,
		redisClient:    redisClient,
		dedupTracker:   dedup.NewTracker(redisClient, cfg.Notifications.DedupTTL.Std(), appLogger),
		metricsTracker: metrics.NewTracker(redisClient, appLogger),
	}, nil
}

// loadConfigAndLogger loads configuration and creates the logger.
func loadConfigAndLogger(configPath string) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, appLogger, nil
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}

// Close cleans up resources.
func (a *App) Close() error {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", logger.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close Postgres pool", logger.Error(err))
		}
	}
	return a.logger.Sync()
}

// healthChecks lists the backing connections shared by both workers, in
// probe order.
func (a *App) healthChecks() []worker.HealthCheck {
	return []worker.HealthCheck{
		{Name: "postgres", Check: func(ctx context.Context) error {
			return a.db.PingContext(ctx)
		}},
		{Name: "redis", Check: func(ctx context.Context) error {
			return a.redisClient.Ping(ctx).Err()
		}},
	}
}

// ReportStats logs the current Redis run counters.
func (a *App) ReportStats(ctx context.Context) error {
	return a.metricsTracker.Report(ctx)
}

func (a *App) newMailer() *mailer.Client {
	smtp := a.config.SMTP
	return mailer.NewClient(
		smtp.Host, smtp.Port, smtp.Username, smtp.Password,
		smtp.From, smtp.OperatorAddr,
		a.config.Notifications.RecipeBaseURL,
	)
}
