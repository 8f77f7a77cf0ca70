package admission

import (
	"context"

	"github.com/rezkam/agentplane/internal/domain"
)

// TenantReader loads tenants for admission checks.
type TenantReader interface {
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
}

// PlanReader loads plans for admission checks.
type PlanReader interface {
	GetPlan(ctx context.Context, planID string) (*domain.Plan, error)
}

// EntitlementChecker enforces customer access to an agent.
type EntitlementChecker interface {
	CheckAccess(ctx context.Context, tenantID, customerID, agentID string) error
}

// GatewayRequest is one agent invocation handed to the provider.
type GatewayRequest struct {
	TenantID   string
	AgentID    string
	CustomerID string
	Message    string
}

// GatewayResponse is the provider's answer.
type GatewayResponse struct {
	Output string
	Model  string
}

// Gateway executes an admitted run against the hosted agent provider.
type Gateway interface {
	Execute(ctx context.Context, req GatewayRequest) (*GatewayResponse, error)
}
