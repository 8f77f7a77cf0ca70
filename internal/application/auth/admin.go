package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/rezkam/agentplane/internal/domain"
)

// Admin roles and scopes recognised by the control-plane endpoints.
const (
	RolePlatformAdmin = "platform_admin"

	ScopePlansRead       = "plans.read"
	ScopePlansWrite      = "plans.write"
	ScopeTenantPlanWrite = "tenant.plan.write"
	ScopeTenantUsageRead = "tenant.usage.read"
	ScopeBillingRead     = "billing.read"
	ScopeUsageExport     = "usage.export"
	ScopeIdentityRead    = "admin.identity.read"
	ScopeAgentsRead      = "agents.read"
	ScopeAgentsWrite     = "agents.write"
)

// AdminIdentity is the verified caller of an admin endpoint.
type AdminIdentity struct {
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
	Scopes  []string `json:"scopes"`
	Tenants []string `json:"tenants"`
}

// AdminAuthenticator verifies admin bearer tokens and enforces
// scope and tenant containment. platform_admin bypasses both.
type AdminAuthenticator struct {
	verifier *TokenVerifier
}

// NewAdminAuthenticator builds the admin verifier.
func NewAdminAuthenticator(verifier *TokenVerifier) *AdminAuthenticator {
	return &AdminAuthenticator{verifier: verifier}
}

// Authenticate verifies the bearer token and returns the admin identity.
// An admin path with no verifier configured is a deployment fault, never
// a pass-through.
func (a *AdminAuthenticator) Authenticate(ctx context.Context, bearer string) (*AdminIdentity, error) {
	if a.verifier == nil || !a.verifier.Configured() {
		return nil, fmt.Errorf("%w: no admin authentication configured", domain.ErrMisconfigured)
	}
	if bearer == "" {
		return nil, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
	}

	claims, err := a.verifier.Verify(ctx, bearer)
	if err != nil {
		return nil, err
	}

	sub, _ := claims["sub"].(string)
	return &AdminIdentity{
		Subject: sub,
		Roles:   claimStrings(claims, "roles"),
		Scopes:  claimStrings(claims, "scopes"),
		Tenants: claimStrings(claims, "tenants"),
	}, nil
}

// IsPlatformAdmin reports whether the identity carries the platform_admin role.
func (id *AdminIdentity) IsPlatformAdmin() bool {
	return slices.Contains(id.Roles, RolePlatformAdmin)
}

// RequireScope enforces that the identity holds the scope. platform_admin
// holds every scope implicitly.
func (id *AdminIdentity) RequireScope(scope string) error {
	if id.IsPlatformAdmin() {
		return nil
	}
	if slices.Contains(id.Scopes, scope) {
		return nil
	}
	return fmt.Errorf("%w: missing scope %s", domain.ErrForbidden, scope)
}

// RequireTenant enforces tenant containment: the identity must list the
// tenant (or the wildcard) unless it is a platform admin.
func (id *AdminIdentity) RequireTenant(tenantID string) error {
	if id.IsPlatformAdmin() {
		return nil
	}
	for _, t := range id.Tenants {
		if t == tenantID || t == domain.WildcardCustomer {
			return nil
		}
	}
	return fmt.Errorf("%w: not authorized for tenant %s", domain.ErrForbidden, tenantID)
}
