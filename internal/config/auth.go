package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Auth configures tenant and admin request authentication.
type Auth struct {
	// TenantAPIKeysJSON maps tenant_id to static API key, as a JSON
	// object. Example: {"t-1":"key-1"}.
	TenantAPIKeysJSON string `env:"TENANT_API_KEYS_JSON"`

	// JWKSURL enables asymmetric JWT verification against a JWKS
	// document. Takes precedence over the shared secret.
	JWKSURL             string `env:"JWT_JWKS_URL"`
	Issuer              string `env:"JWT_ISSUER"`
	Audience            string `env:"JWT_AUDIENCE"`
	JWKSCacheTTLSeconds int    `env:"JWT_JWKS_CACHE_TTL_SECONDS" default:"300"`

	// SharedSecret enables symmetric JWT verification when no JWKS URL
	// is configured.
	SharedSecret string `env:"JWT_SHARED_SECRET"`
	Algorithm    string `env:"JWT_ALGORITHM" default:"HS256"`
}

// Validate checks structural requirements of the auth section.
func (a *Auth) Validate() error {
	if a.TenantAPIKeysJSON != "" {
		if _, err := a.TenantAPIKeys(); err != nil {
			return err
		}
	}
	if a.JWKSCacheTTLSeconds < 0 {
		return fmt.Errorf("JWT_JWKS_CACHE_TTL_SECONDS must not be negative")
	}
	return nil
}

// TenantAPIKeys parses the configured tenant API key map.
func (a *Auth) TenantAPIKeys() (map[string]string, error) {
	if a.TenantAPIKeysJSON == "" {
		return map[string]string{}, nil
	}
	keys := map[string]string{}
	if err := json.Unmarshal([]byte(a.TenantAPIKeysJSON), &keys); err != nil {
		return nil, fmt.Errorf("TENANT_API_KEYS_JSON is not a valid JSON object: %w", err)
	}
	return keys, nil
}

// JWKSCacheTTL returns the JWKS cache TTL as a duration.
func (a *Auth) JWKSCacheTTL() time.Duration {
	return time.Duration(a.JWKSCacheTTLSeconds) * time.Second
}
