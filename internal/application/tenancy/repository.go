package tenancy

import (
	"context"

	"github.com/rezkam/agentplane/internal/domain"
)

// TenantCatalog stores tenant records.
type TenantCatalog interface {
	CreateTenant(ctx context.Context, tenant domain.Tenant) error
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
	SetTenantStatus(ctx context.Context, tenantID, status string) error
	SetTenantPlan(ctx context.Context, tenantID, planID string) error
	ListTenants(ctx context.Context) ([]domain.Tenant, error)
}

// PlanCatalog stores plan records.
type PlanCatalog interface {
	UpsertPlan(ctx context.Context, plan domain.Plan) error
	GetPlan(ctx context.Context, planID string) (*domain.Plan, error)
	ListPlans(ctx context.Context) ([]domain.Plan, error)
}
