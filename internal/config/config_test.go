package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return path
}

const minimalConfig = `
database:
  host: localhost
  dbname: recipereel
`

func TestLoadDefaults(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Environment != EnvDevelopment {
		t.Errorf("Environment = %q, want %q", cfg.Environment, EnvDevelopment)
	}
	if cfg.Dispatcher.BatchSize != 1 {
		t.Errorf("Dispatcher.BatchSize = %d, want 1", cfg.Dispatcher.BatchSize)
	}
	if cfg.Dispatcher.RetryAttempts != 3 {
		t.Errorf("Dispatcher.RetryAttempts = %d, want 3", cfg.Dispatcher.RetryAttempts)
	}
	if cfg.Dispatcher.RetryDelay.Std() != 5*time.Second {
		t.Errorf("Dispatcher.RetryDelay = %v, want 5s", cfg.Dispatcher.RetryDelay.Std())
	}
	if cfg.Notifications.RecipeBaseURL != "http://localhost:3000" {
		t.Errorf("RecipeBaseURL = %q, want development default", cfg.Notifications.RecipeBaseURL)
	}
	if cfg.Notifications.DedupTTL.Std() != 7*24*time.Hour {
		t.Errorf("DedupTTL = %v, want 168h", cfg.Notifications.DedupTTL.Std())
	}
	if cfg.Database.SSLMode != "disable" {
		t.Errorf("Database.SSLMode = %q, want disable", cfg.Database.SSLMode)
	}
}

func TestLoadProductionBaseURL(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+"environment: production\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Notifications.RecipeBaseURL != "https://recipereel.app" {
		t.Errorf("RecipeBaseURL = %q, want production default", cfg.Notifications.RecipeBaseURL)
	}
}

func TestLoadExplicitBaseURLWins(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+`
environment: production
notifications:
  recipe_base_url: https://staging.recipereel.app
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Notifications.RecipeBaseURL != "https://staging.recipereel.app" {
		t.Errorf("RecipeBaseURL = %q, want configured value", cfg.Notifications.RecipeBaseURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_DEBUG", "yes")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("DISPATCHER_DRY_RUN", "1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Environment != EnvProduction {
		t.Errorf("Environment = %q, want production", cfg.Environment)
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true from APP_DEBUG")
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("Database.Host = %q, want db.internal", cfg.Database.Host)
	}
	if cfg.Caption.APIKey != "test-key" {
		t.Errorf("Caption.APIKey = %q, want test-key", cfg.Caption.APIKey)
	}
	if !cfg.Dispatcher.DryRun {
		t.Error("Dispatcher.DryRun = false, want true from env")
	}
}

func TestLoadDurationStrings(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+`
dispatcher:
  retry_delay: 2s
notifications:
  dedup_ttl: 48h
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Dispatcher.RetryDelay.Std() != 2*time.Second {
		t.Errorf("Dispatcher.RetryDelay = %v, want 2s", cfg.Dispatcher.RetryDelay.Std())
	}
	if cfg.Notifications.DedupTTL.Std() != 48*time.Hour {
		t.Errorf("DedupTTL = %v, want 48h", cfg.Notifications.DedupTTL.Std())
	}
}

func TestLoadUnknownEnvironmentDefaultsToProduction(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+"environment: staging\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("Environment = %q, want staging", cfg.Environment)
	}
	if cfg.Notifications.RecipeBaseURL != "https://recipereel.app" {
		t.Errorf("RecipeBaseURL = %q, want production default for non-development environment",
			cfg.Notifications.RecipeBaseURL)
	}
}

func TestLoadBadDurationString(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+"dispatcher:\n  retry_delay: soon\n")

	if _, err := Load(path); err == nil {
		t.Error("Load() error = nil, want duration parse error")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing database host",
			yaml: "database:\n  dbname: recipereel\n",
		},
		{
			name: "missing database name",
			yaml: "database:\n  host: localhost\n",
		},
		{
			name: "negative retry delay",
			yaml: minimalConfig + "dispatcher:\n  retry_delay: -1s\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.yaml)
			if _, err := Load(path); err == nil {
				t.Error("Load() error = nil, want validation error")
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{" yes ", true},
		{"false", false},
		{"0", false},
		{"", false},
		{"banana", false},
	}

	for _, tt := range tests {
		if got := parseBool(tt.in); got != tt.want {
			t.Errorf("parseBool(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
