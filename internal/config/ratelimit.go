package config

import "fmt"

// Rate limit backend selectors.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// RateLimit configures the per-tenant fixed-window limiter.
type RateLimit struct {
	Backend   string `env:"RATE_LIMIT_BACKEND" default:"memory"`
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
	KeyPrefix string `env:"RATE_LIMIT_REDIS_KEY_PREFIX" default:"agentplane:ratelimit"`

	// FailOpen admits requests when the Redis backend is unreachable.
	FailOpen bool `env:"RATE_LIMIT_FAIL_OPEN" default:"true"`

	// DefaultRPM applies to plans without an explicit per-minute limit.
	DefaultRPM int `env:"DEFAULT_RATE_LIMIT_RPM" default:"60"`
}

// Validate checks backend-specific requirements.
func (r *RateLimit) Validate() error {
	switch r.Backend {
	case RateLimitBackendMemory:
	case RateLimitBackendRedis:
		if r.RedisURL == "" {
			return fmt.Errorf("RATE_LIMIT_REDIS_URL is required when RATE_LIMIT_BACKEND is 'redis'")
		}
	default:
		return fmt.Errorf("unknown RATE_LIMIT_BACKEND: %s", r.Backend)
	}
	if r.DefaultRPM < 1 {
		return fmt.Errorf("DEFAULT_RATE_LIMIT_RPM must be at least 1")
	}
	return nil
}
