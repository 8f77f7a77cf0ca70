package config

import (
	"fmt"

	"github.com/rezkam/agentplane/internal/env"
)

// Config holds the full application configuration, loaded from the
// environment. Sections validate themselves; cross-section production
// safety checks live in Validate.
type Config struct {
	// Env selects the deployment environment: dev, staging, prod.
	Env string `env:"APP_ENV" default:"dev"`

	// HTTPPort is the listen port for the API server.
	HTTPPort string `env:"HTTP_PORT" default:"8080"`

	// DatabaseURL is the Postgres DSN. Empty selects the in-memory
	// adapters (dev and tests only).
	DatabaseURL string `env:"DATABASE_URL"`

	Provisioning Provisioning
	RateLimit    RateLimit
	Auth         Auth
	Gateway      Gateway
	Archive      Archive

	// OTelEnabled turns on the OTLP exporters and the slog bridge.
	OTelEnabled bool `env:"OTEL_ENABLED" default:"false"`
}

// Load parses environment variables into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Load(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the deployment environment is production.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Validate enforces cross-section constraints that only apply in
// production. Section-level validation runs during env.Load.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if c.Gateway.AllowAPIKeyFallback {
		return fmt.Errorf("ALLOW_API_KEY_FALLBACK must not be enabled in production")
	}
	if !c.Gateway.UseManagedIdentity {
		return fmt.Errorf("AZURE_USE_MANAGED_IDENTITY must not be disabled in production")
	}
	return nil
}
