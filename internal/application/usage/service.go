package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rezkam/agentplane/internal/domain"
)

// BillingRecord is a tenant's month summary joined with its plan limits.
type BillingRecord struct {
	TenantID     string            `json:"tenant_id"`
	Month        string            `json:"month"`
	Plan         string            `json:"plan"`
	MessagesUsed int               `json:"messages_used"`
	TokensUsed   int               `json:"tokens_used"`
	CostEstimate float64           `json:"cost_estimate"`
	Limits       domain.PlanLimits `json:"limits"`
}

// Export is the all-tenant snapshot for one month.
type Export struct {
	Month       string                      `json:"month"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Tenants     []domain.TenantUsageSummary `json:"tenants"`
}

// Service answers usage and billing queries and produces monthly exports.
type Service struct {
	meter   Meter
	tenants TenantReader
	plans   PlanReader
	archive ArchiveStore // nil disables archiving
}

// NewService creates the usage reporting service. archive may be nil.
func NewService(meter Meter, tenants TenantReader, plans PlanReader, archive ArchiveStore) *Service {
	return &Service{meter: meter, tenants: tenants, plans: plans, archive: archive}
}

// TenantMonthSummary returns one tenant's aggregate for a month
// (defaulting to the current UTC month).
func (s *Service) TenantMonthSummary(ctx context.Context, tenantID, month string) (*domain.TenantUsageSummary, error) {
	month, err := domain.NormalizeMonth(month, time.Now())
	if err != nil {
		return nil, err
	}
	if _, err := s.tenants.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.meter.TenantMonthSummary(ctx, tenantID, month)
}

// BillingRecord joins a tenant's month summary with its plan limits.
func (s *Service) BillingRecord(ctx context.Context, tenantID, month string) (*BillingRecord, error) {
	month, err := domain.NormalizeMonth(month, time.Now())
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	plan, err := s.plans.GetPlan(ctx, tenant.Plan)
	if err != nil {
		return nil, fmt.Errorf("%w: plan %s", domain.ErrPlanNotUsable, tenant.Plan)
	}
	summary, err := s.meter.TenantMonthSummary(ctx, tenantID, month)
	if err != nil {
		return nil, err
	}

	return &BillingRecord{
		TenantID:     tenantID,
		Month:        month,
		Plan:         tenant.Plan,
		MessagesUsed: summary.MessagesUsed,
		TokensUsed:   summary.TokensUsed,
		CostEstimate: summary.CostEstimate,
		Limits:       plan.Limits,
	}, nil
}

// MonthExport builds the all-tenant snapshot for a month. With archive
// set it also writes the snapshot to the configured archive store as
// usage-export-YYYY-MM.json.
func (s *Service) MonthExport(ctx context.Context, month string, archive bool) (*Export, error) {
	month, err := domain.NormalizeMonth(month, time.Now())
	if err != nil {
		return nil, err
	}

	summaries, err := s.meter.AllTenantsMonthSummary(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate month %s: %w", month, err)
	}

	export := &Export{
		Month:       month,
		GeneratedAt: time.Now().UTC(),
		Tenants:     summaries,
	}

	if archive {
		if s.archive == nil {
			return nil, fmt.Errorf("%w: no export archive configured", domain.ErrInvalidInput)
		}
		data, err := json.Marshal(export)
		if err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		name := fmt.Sprintf("usage-export-%s.json", month)
		if err := s.archive.Save(ctx, name, data); err != nil {
			return nil, fmt.Errorf("failed to archive export: %w", err)
		}
		slog.InfoContext(ctx, "archived usage export", "month", month, "object", name)
	}

	return export, nil
}
