package access

import (
	"context"

	"github.com/rezkam/agentplane/internal/domain"
)

// Catalog stores tenant agents and customer entitlement grants.
//
// UpsertTenantAgent and GrantEntitlement are idempotent. Revoking a grant
// that does not exist is not an error.
type Catalog interface {
	UpsertTenantAgent(ctx context.Context, agent domain.TenantAgent) error
	GetTenantAgent(ctx context.Context, tenantID, agentID string) (*domain.TenantAgent, error)
	ListTenantAgents(ctx context.Context, tenantID string) ([]domain.TenantAgent, error)

	GrantEntitlement(ctx context.Context, grant domain.CustomerAgentEntitlement) error
	RevokeEntitlement(ctx context.Context, tenantID, customerID, agentID string) error
	ListEntitlements(ctx context.Context, tenantID string) ([]domain.CustomerAgentEntitlement, error)
	ListEntitlementsForAgent(ctx context.Context, tenantID, agentID string) ([]domain.CustomerAgentEntitlement, error)
	ListWildcardEntitlements(ctx context.Context) ([]domain.CustomerAgentEntitlement, error)
}

// TenantReader is the slice of the tenant catalog this service needs.
type TenantReader interface {
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
}
