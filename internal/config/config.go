// Package config loads the worker configuration from YAML with environment
// variable overrides. Business logic never reads the environment directly;
// everything, including the recipe base URL, is injected from here.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// EnvDevelopment selects local defaults (recipe links point at the dev server).
	// Any other environment value gets production defaults.
	EnvDevelopment = "development"
	// EnvProduction selects production defaults.
	EnvProduction = "production"

	devRecipeBaseURL  = "http://localhost:3000"
	prodRecipeBaseURL = "https://recipereel.app"

	defaultBatchSize     = 1
	defaultRetryAttempts = 3
	defaultRetryDelay    = 5 * time.Second
	defaultDedupTTL      = 7 * 24 * time.Hour
	defaultCaptionModel  = "gemini-2.5-flash"
	defaultGraphBaseURL  = "https://graph.instagram.com/v21.0"
	defaultSMTPPort      = 587
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// such as "5s" or "168h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration for both batch workers.
type Config struct {
	Debug       bool   `yaml:"debug"`
	Environment string `yaml:"environment"`

	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	SMTP          SMTPConfig          `yaml:"smtp"`
	Caption       CaptionConfig       `yaml:"caption"`
	Instagram     InstagramConfig     `yaml:"instagram"`
	Dispatcher    DispatcherConfig    `yaml:"dispatcher"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis connection settings for the dedup and metrics trackers.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SMTPConfig holds email delivery settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// OperatorAddr receives dispatcher failure alerts.
	OperatorAddr string `yaml:"operator_addr"`
}

// CaptionConfig holds caption-generation settings.
type CaptionConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// InstagramConfig holds Graph API publishing settings.
type InstagramConfig struct {
	BaseURL     string `yaml:"base_url"`
	AccountID   string `yaml:"account_id"`
	AccessToken string `yaml:"access_token"`
}

// DispatcherConfig tunes the repost dispatcher.
type DispatcherConfig struct {
	// BatchSize is the number of queue items drained per run. The default of 1
	// keeps the blast radius of a bad run to a single platform post.
	BatchSize     int `yaml:"batch_size"`
	RetryAttempts int `yaml:"retry_attempts"`
	// RetryDelay is a fixed pause between publish attempts. No backoff.
	RetryDelay Duration `yaml:"retry_delay"`
	DryRun     bool     `yaml:"dry_run"`
}

// NotificationsConfig tunes the comment-notification aggregator.
type NotificationsConfig struct {
	// RecipeBaseURL is the base for recipe links in notification emails.
	// Defaulted from Environment when unset.
	RecipeBaseURL string `yaml:"recipe_base_url"`
	// DedupTTL bounds how long a delivered digest is remembered in Redis.
	DedupTTL Duration `yaml:"dedup_ttl"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	overrideWithEnvVars(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Dispatcher.BatchSize <= 0 {
		return fmt.Errorf("dispatcher.batch_size must be positive, got %d", c.Dispatcher.BatchSize)
	}
	if c.Dispatcher.RetryAttempts <= 0 {
		return fmt.Errorf("dispatcher.retry_attempts must be positive, got %d", c.Dispatcher.RetryAttempts)
	}
	if c.Dispatcher.RetryDelay < 0 {
		return fmt.Errorf("dispatcher.retry_delay must not be negative, got %v", c.Dispatcher.RetryDelay.Std())
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = EnvDevelopment
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = defaultSMTPPort
	}
	if cfg.Caption.Model == "" {
		cfg.Caption.Model = defaultCaptionModel
	}
	if cfg.Instagram.BaseURL == "" {
		cfg.Instagram.BaseURL = defaultGraphBaseURL
	}
	if cfg.Dispatcher.BatchSize == 0 {
		cfg.Dispatcher.BatchSize = defaultBatchSize
	}
	if cfg.Dispatcher.RetryAttempts == 0 {
		cfg.Dispatcher.RetryAttempts = defaultRetryAttempts
	}
	if cfg.Dispatcher.RetryDelay == 0 {
		cfg.Dispatcher.RetryDelay = Duration(defaultRetryDelay)
	}
	if cfg.Notifications.DedupTTL == 0 {
		cfg.Notifications.DedupTTL = Duration(defaultDedupTTL)
	}
	if cfg.Notifications.RecipeBaseURL == "" {
		if cfg.Environment == EnvDevelopment {
			cfg.Notifications.RecipeBaseURL = devRecipeBaseURL
		} else {
			cfg.Notifications.RecipeBaseURL = prodRecipeBaseURL
		}
	}
}

// overrideWithEnvVars overrides configuration with environment variables.
// Credentials are usually supplied this way in deployment.
func overrideWithEnvVars(cfg *Config) {
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Environment = env
	}
	if debug := os.Getenv("APP_DEBUG"); debug != "" {
		cfg.Debug = parseBool(debug)
	}
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		cfg.Database.Port = port
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.User = user
	}
	if pass := os.Getenv("DB_PASSWORD"); pass != "" {
		cfg.Database.Password = pass
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Database.DBName = name
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		cfg.Redis.Password = pass
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		cfg.SMTP.Host = host
	}
	if user := os.Getenv("SMTP_USERNAME"); user != "" {
		cfg.SMTP.Username = user
	}
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		cfg.SMTP.Password = pass
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.Caption.APIKey = key
	}
	if token := os.Getenv("IG_ACCESS_TOKEN"); token != "" {
		cfg.Instagram.AccessToken = token
	}
	if account := os.Getenv("IG_ACCOUNT_ID"); account != "" {
		cfg.Instagram.AccountID = account
	}
	if dryRun := os.Getenv("DISPATCHER_DRY_RUN"); dryRun != "" {
		cfg.Dispatcher.DryRun = parseBool(dryRun)
	}
}

// parseBool parses a string value as a boolean.
// Returns true for "true", "1", "yes" (case-insensitive), false otherwise.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
