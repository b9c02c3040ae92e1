package logger

import (
	"errors"
	"testing"
	"time"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
	}{
		{
			name:  "development mode",
			debug: true,
		},
		{
			name:  "production mode",
			debug: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := NewLogger(tt.debug)
			if err != nil {
				t.Fatalf("NewLogger() error = %v, want nil", err)
			}
			if log == nil {
				t.Fatal("NewLogger() returned nil logger")
			}

			log.Info("test message")

			// Sync errors are acceptable in test environments
			_ = log.Sync()
		})
	}
}

func TestNewNopLogger(t *testing.T) {
	log := NewNopLogger()
	if log == nil {
		t.Fatal("NewNopLogger() returned nil")
	}

	// Nop logger should not panic on any operation
	log.Debug("debug")
	log.Info("info")
	log.Warn("warn")
	log.Error("error")

	withLogger := log.With(String("key", "value"))
	if withLogger == nil {
		t.Fatal("With() returned nil")
	}

	_ = log.Sync()
}

func TestLoggerLevels(t *testing.T) {
	log, err := NewLogger(true)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer log.Sync()

	tests := []struct {
		name string
		fn   func(string, ...Field)
	}{
		{
			name: "Debug",
			fn:   log.Debug,
		},
		{
			name: "Info",
			fn:   log.Info,
		},
		{
			name: "Warn",
			fn:   log.Warn,
		},
		{
			name: "Error",
			fn:   log.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Should not panic
			tt.fn("test message")
			tt.fn("test with fields", String("key", "value"))
		})
	}
}

func TestLoggerStructuredFields(t *testing.T) {
	log, err := NewLogger(true)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer log.Sync()

	log.Debug("test fields",
		String("item_id", "item-1"),
		Int("processed", 42),
		Bool("dry_run", true),
		Duration("elapsed", time.Second),
		Error(errors.New("test error")),
		Any("counts", map[string]int{"sent": 3}),
	)

	// Should not panic
}

func TestLoggerWith(t *testing.T) {
	log, err := NewLogger(true)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer log.Sync()

	contextLogger := log.With(
		String("service", "repost-dispatcher"),
		String("version", "1.0.0"),
	)

	if contextLogger == nil {
		t.Fatal("With() returned nil")
	}

	contextLogger.Info("message with context")

	chainedLogger := contextLogger.With(
		String("run_id", "12345"),
	)

	if chainedLogger == nil {
		t.Fatal("chained With() returned nil")
	}

	chainedLogger.Info("message with chained context")

	// Original logger should not have context
	log.Info("message without context")
}

func TestLoggerSync(t *testing.T) {
	log, err := NewLogger(true)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	log.Info("message 1")
	log.Info("message 2")

	// Multiple syncs should be safe
	_ = log.Sync()
	_ = log.Sync()
}

func TestLoggerConcurrent(t *testing.T) {
	log, err := NewLogger(true)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer log.Sync()

	done := make(chan bool, 10)
	for i := range 10 {
		go func(id int) {
			log.Info("concurrent message",
				Int("goroutine_id", id),
			)
			done <- true
		}(i)
	}

	for range 10 {
		<-done
	}
}
