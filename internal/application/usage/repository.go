package usage

import (
	"context"

	"github.com/rezkam/agentplane/internal/domain"
)

// Meter is the append-only usage event store with monthly aggregation.
//
// RecordUsage is idempotent by RequestID: recording a duplicate returns
// false and leaves the stored event untouched. Summaries aggregate over
// UTC calendar months.
type Meter interface {
	RecordUsage(ctx context.Context, event domain.UsageEvent) (bool, error)
	TenantMonthSummary(ctx context.Context, tenantID, month string) (*domain.TenantUsageSummary, error)
	AllTenantsMonthSummary(ctx context.Context, month string) ([]domain.TenantUsageSummary, error)
}

// ArchiveStore persists a usage export snapshot outside the database.
type ArchiveStore interface {
	Save(ctx context.Context, name string, data []byte) error
}

// TenantReader is the slice of the tenant catalog the reporting side needs.
type TenantReader interface {
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
}

// PlanReader is the slice of the plan catalog the reporting side needs.
type PlanReader interface {
	GetPlan(ctx context.Context, planID string) (*domain.Plan, error)
}
