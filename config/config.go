package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Authentication configuration
//   - database.go: Durable storage backends (Postgres, Redis, SQLite)
//   - http.go: HTTP server configuration
//   - portal.go: Backend client, session, guard and capture bridge
//   - logging.go: Log level and format
type AppConfig struct {
	// IsDev controls development mode behavior (template hot reloading, etc.)
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth AuthConfig

	// HTTP server configuration
	HTTP HTTPConfig

	// Backend API client configuration
	Backend BackendConfig `envPrefix:"BACKEND_"`

	// Session registry and route guard
	Session SessionConfig `envPrefix:"SESSION_"`
	Guard   GuardConfig   `envPrefix:"GUARD_"`

	// Durable storage selection and backends
	Storage  StorageConfig
	Postgres DBConfig     `envPrefix:"DB_"`
	Redis    RedisConfig  `envPrefix:"REDIS_"`
	SQLite   SQLiteConfig `envPrefix:"SQLITE_"`

	// Capture bridge configuration
	Capture CaptureConfig `envPrefix:"CAPTURE_"`

	// Logging configuration
	Logging LoggingConfig `envPrefix:"LOG_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Auth.Sanitize()
	c.Backend.Sanitize()
	c.Session.Sanitize()
	c.Guard.Sanitize()
	c.Redis.Sanitize()
	c.SQLite.Sanitize()
	c.Capture.Sanitize()
	c.Logging.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// Validate checks rules that span more than one group.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Auth.Mode == AuthModeOAuth && c.Auth.OAuth.Issuer == "" {
		errs = append(errs, errors.New("OAUTH_ISSUER is required when AUTH_MODE=oauth"))
	}
	if c.Auth.Mode == AuthModeMock && !c.IsDev {
		errs = append(errs, errors.New("AUTH_MODE=mock is only allowed in development mode"))
	}
	if c.Capture.Transport == CaptureTransportRedis && c.Storage.Driver != StorageDriverRedis && c.Redis.URI == "" {
		errs = append(errs, errors.New("CAPTURE_TRANSPORT=redis requires REDIS_URI"))
	}
	if c.Storage.Driver == StorageDriverSQLite && c.SQLite.Path == "" {
		errs = append(errs, errors.New("SQLITE_PATH is required when STORAGE_DRIVER=sqlite"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
