package auth

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/rezkam/agentplane/internal/domain"
)

// TenantAuthenticator verifies that a data-plane request is made on
// behalf of the tenant it names. Static API keys are checked first when
// the request carries one; bearer tokens go through the token verifier.
type TenantAuthenticator struct {
	apiKeys    map[string]string // tenant_id -> key
	verifier   *TokenVerifier
	production bool
}

// NewTenantAuthenticator builds the tenant verifier. With no API keys and
// no token verifier configured, requests pass through outside production
// and are rejected as misconfigured in production.
func NewTenantAuthenticator(apiKeys map[string]string, verifier *TokenVerifier, production bool) *TenantAuthenticator {
	if apiKeys == nil {
		apiKeys = map[string]string{}
	}
	return &TenantAuthenticator{apiKeys: apiKeys, verifier: verifier, production: production}
}

// configured reports whether any credential mechanism is set up.
func (a *TenantAuthenticator) configured() bool {
	return len(a.apiKeys) > 0 || (a.verifier != nil && a.verifier.Configured())
}

// Authenticate checks the supplied credentials against the claimed
// tenant and acting customer. apiKey and bearer come from the X-Api-Key
// and Authorization headers; either may be empty. The static key is
// tried first; a wrong key falls through to the bearer token.
func (a *TenantAuthenticator) Authenticate(ctx context.Context, tenantID, customerID, apiKey, bearer string) error {
	if !a.configured() {
		if a.production {
			return fmt.Errorf("%w: no tenant authentication configured", domain.ErrMisconfigured)
		}
		return nil
	}

	if apiKey != "" && len(a.apiKeys) > 0 {
		expected, ok := a.apiKeys[tenantID]
		if ok && subtle.ConstantTimeCompare([]byte(expected), []byte(apiKey)) == 1 {
			return nil
		}
	}

	if bearer != "" && a.verifier != nil && a.verifier.Configured() {
		claims, err := a.verifier.Verify(ctx, bearer)
		if err != nil {
			return err
		}
		if !tokenCoversTenant(claims, tenantID) {
			return fmt.Errorf("%w: token does not cover tenant %s", domain.ErrUnauthenticated, tenantID)
		}
		if tokenSubject(claims) != customerID {
			return fmt.Errorf("%w: token subject does not match customer", domain.ErrUnauthenticated)
		}
		return nil
	}

	return fmt.Errorf("%w: invalid tenant credentials", domain.ErrUnauthenticated)
}

// tokenCoversTenant accepts a token whose tenant_id or tid claim names
// the tenant, or whose tenants list contains it (or the wildcard).
func tokenCoversTenant(claims map[string]any, tenantID string) bool {
	if tid, _ := claims["tenant_id"].(string); tid == tenantID {
		return true
	}
	if tid, _ := claims["tid"].(string); tid == tenantID {
		return true
	}
	for _, t := range claimStrings(claims, "tenants") {
		if t == tenantID || t == domain.WildcardCustomer {
			return true
		}
	}
	return false
}

// tokenSubject returns the first of the sub, oid, upn claims, the
// identities a token may bind the acting customer user to.
func tokenSubject(claims map[string]any) string {
	for _, name := range []string{"sub", "oid", "upn"} {
		if v, _ := claims[name].(string); v != "" {
			return v
		}
	}
	return ""
}
