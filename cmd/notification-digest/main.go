// Package main is the entry point for the comment-notification aggregator.
// It processes the pending notification queue once and exits; scheduling
// is external.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/recipereel/workers/internal/app"
	"github.com/recipereel/workers/internal/logger"
)

var (
	// version can be set at build time via -ldflags
	version = "dev"
)

func main() {
	var configPath string
	var verify bool
	var stats bool
	flag.StringVar(&configPath, "config", "config.yml", "Path to configuration file")
	flag.BoolVar(&verify, "verify", false, "Check backing connections and exit")
	flag.BoolVar(&stats, "stats", false, "Log the run counters and exit")
	flag.Parse()

	// A missing .env is fine; the environment may be set by the scheduler.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application, err := app.NewAggregator(app.Options{
		ConfigPath: configPath,
		Version:    version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to close application: %v\n", closeErr)
		}
	}()

	if verify {
		if verifyErr := application.Verify(ctx); verifyErr != nil {
			application.Logger().Error("Connection check failed", logger.Error(verifyErr))
			_ = application.Close()
			os.Exit(1)
		}
		application.Logger().Info("All connections verified")
		return
	}

	if stats {
		if statsErr := application.ReportStats(ctx); statsErr != nil {
			application.Logger().Error("Failed to read run counters", logger.Error(statsErr))
			_ = application.Close()
			os.Exit(1)
		}
		return
	}

	if _, runErr := application.Run(ctx); runErr != nil {
		application.Logger().Error("Aggregator run failed", logger.Error(runErr))
		_ = application.Close()
		os.Exit(1)
	}
}
