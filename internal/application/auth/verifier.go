package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rezkam/agentplane/internal/domain"
)

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// TokenVerifierConfig selects the JWT verification mechanism. A JWKS URL
// takes precedence over the shared secret.
type TokenVerifierConfig struct {
	JWKSURL      string
	JWKSCacheTTL int // seconds
	Issuer       string
	Audience     string
	SharedSecret string
	Algorithm    string // used with the shared secret, default HS256
}

// TokenVerifier validates bearer tokens with either a JWKS endpoint
// (asymmetric) or a shared secret (symmetric).
type TokenVerifier struct {
	cfg  TokenVerifierConfig
	jwks *JWKSCache
}

// NewTokenVerifier builds a verifier from config. Returns a verifier even
// when no mechanism is configured; Configured reports whether it can
// actually verify anything.
func NewTokenVerifier(cfg TokenVerifierConfig) *TokenVerifier {
	v := &TokenVerifier{cfg: cfg}
	if cfg.JWKSURL != "" {
		ttl := cfg.JWKSCacheTTL
		if ttl <= 0 {
			ttl = 300
		}
		v.jwks = NewJWKSCache(cfg.JWKSURL, secondsToDuration(ttl))
	}
	return v
}

// Configured reports whether a verification mechanism is available.
func (v *TokenVerifier) Configured() bool {
	return v.cfg.JWKSURL != "" || v.cfg.SharedSecret != ""
}

// Verify validates the token signature, expiry, and the configured issuer
// and audience, returning its claims.
func (v *TokenVerifier) Verify(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	if !v.Configured() {
		return nil, fmt.Errorf("%w: no token verifier configured", domain.ErrUnauthenticated)
	}

	opts := []jwt.ParserOption{}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}

	var keyfunc jwt.Keyfunc
	if v.jwks != nil {
		opts = append(opts, jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}))
		keyfunc = func(token *jwt.Token) (any, error) {
			kid, _ := token.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("token has no kid header")
			}
			return v.jwks.Key(ctx, kid)
		}
	} else {
		alg := v.cfg.Algorithm
		if alg == "" {
			alg = "HS256"
		}
		opts = append(opts, jwt.WithValidMethods([]string{alg}))
		keyfunc = func(_ *jwt.Token) (any, error) {
			return []byte(v.cfg.SharedSecret), nil
		}
	}

	token, err := jwt.Parse(tokenString, keyfunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", domain.ErrUnauthenticated)
	}
	return claims, nil
}

// claimStrings reads a claim that may be a string or a list of strings.
func claimStrings(claims jwt.MapClaims, name string) []string {
	switch v := claims[name].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
