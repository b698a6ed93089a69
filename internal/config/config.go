package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Local database configuration (API call ledger + sync cache)
	Database DatabaseConfig

	// Auth0 configuration
	Auth0 Auth0Config

	// Directus CMS configuration
	Directus DirectusConfig

	// Stripe configuration
	Stripe StripeConfig

	// User sync configuration
	Sync SyncConfig

	// Application configuration
	App AppConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds local SQLite database settings
type DatabaseConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// Auth0Config holds identity provider settings
type Auth0Config struct {
	Domain       string
	ClientID     string
	ClientSecret string
	MgmtAudience string
}

// DirectusConfig holds headless CMS settings
type DirectusConfig struct {
	BaseURL     string
	StaticToken string
	Timeout     time.Duration
}

// StripeConfig holds payment processor settings. SecretKey is optional:
// when absent the customer sync integration is disabled, nothing else.
type StripeConfig struct {
	SecretKey string
}

// SyncConfig holds user reconciliation settings
type SyncConfig struct {
	Interval time.Duration
}

// AppConfig holds public application settings
type AppConfig struct {
	BaseURL string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Path:        getEnv("DB_PATH", "./data/zizcon.db"),
			BusyTimeout: getDurationEnv("DB_BUSY_TIMEOUT", 5*time.Second),
		},
		Auth0: Auth0Config{
			Domain:       getEnv("AUTH0_DOMAIN", ""),
			ClientID:     getEnv("AUTH0_CLIENT_ID", ""),
			ClientSecret: getEnv("AUTH0_CLIENT_SECRET", ""),
			MgmtAudience: getEnv("AUTH0_MGMT_AUDIENCE", ""),
		},
		Directus: DirectusConfig{
			BaseURL:     getEnv("DIRECTUS_URL", "http://localhost:8355"),
			StaticToken: getEnv("DIRECTUS_STATIC_TOKEN", ""),
			Timeout:     getDurationEnv("DIRECTUS_TIMEOUT", 15*time.Second),
		},
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},
		Sync: SyncConfig{
			Interval: getDurationEnv("SYNC_INTERVAL", time.Hour),
		},
		App: AppConfig{
			BaseURL: getEnv("APP_BASE_URL", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid. The Stripe secret key is
// deliberately not required: its absence disables the customer sync only.
func (c *Config) Validate() error {
	if c.Auth0.Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0.ClientID == "" {
		return fmt.Errorf("AUTH0_CLIENT_ID is required")
	}
	if c.Auth0.ClientSecret == "" {
		return fmt.Errorf("AUTH0_CLIENT_SECRET is required")
	}
	if c.Auth0.MgmtAudience == "" {
		return fmt.Errorf("AUTH0_MGMT_AUDIENCE is required")
	}
	if c.Directus.BaseURL == "" {
		return fmt.Errorf("DIRECTUS_URL is required")
	}
	if c.Directus.StaticToken == "" {
		return fmt.Errorf("DIRECTUS_STATIC_TOKEN is required")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	return nil
}

// StripeEnabled reports whether the payment processor integration is configured
func (c *Config) StripeEnabled() bool {
	return c.Stripe.SecretKey != ""
}

// GetDSN returns the SQLite connection string with WAL journaling and a busy
// timeout for concurrent inserts from multiple in-process requests
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)",
		c.Path, c.BusyTimeout.Milliseconds(),
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
