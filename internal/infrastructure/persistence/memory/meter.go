package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rezkam/agentplane/internal/domain"
)

// Meter is an in-memory usage event store.
type Meter struct {
	mu     sync.RWMutex
	events map[string]domain.UsageEvent // by request_id
}

// NewMeter creates an empty meter.
func NewMeter() *Meter {
	return &Meter{events: make(map[string]domain.UsageEvent)}
}

// RecordUsage appends an event; a duplicate request_id is ignored and
// reported as not recorded.
func (m *Meter) RecordUsage(_ context.Context, event domain.UsageEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.events[event.RequestID]; exists {
		return false, nil
	}
	m.events[event.RequestID] = event
	return true, nil
}

// TenantMonthSummary aggregates one tenant's events inside the month's
// UTC bounds. A tenant with no events gets a zero summary.
func (m *Meter) TenantMonthSummary(_ context.Context, tenantID, month string) (*domain.TenantUsageSummary, error) {
	start, end, err := domain.MonthBounds(month)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := &domain.TenantUsageSummary{TenantID: tenantID, Month: month}
	for _, event := range m.events {
		if event.TenantID != tenantID {
			continue
		}
		created := event.CreatedAt.UTC()
		if created.Before(start) || !created.Before(end) {
			continue
		}
		summary.MessagesUsed++
		summary.TokensUsed += event.TokensIn + event.TokensOut
		summary.CostEstimate += event.CostEstimate
	}
	return summary, nil
}

// AllTenantsMonthSummary aggregates every tenant with at least one event
// in the month, ordered by tenant id.
func (m *Meter) AllTenantsMonthSummary(_ context.Context, month string) ([]domain.TenantUsageSummary, error) {
	start, end, err := domain.MonthBounds(month)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	byTenant := make(map[string]*domain.TenantUsageSummary)
	for _, event := range m.events {
		created := event.CreatedAt.UTC()
		if created.Before(start) || !created.Before(end) {
			continue
		}
		summary, ok := byTenant[event.TenantID]
		if !ok {
			summary = &domain.TenantUsageSummary{TenantID: event.TenantID, Month: month}
			byTenant[event.TenantID] = summary
		}
		summary.MessagesUsed++
		summary.TokensUsed += event.TokensIn + event.TokensOut
		summary.CostEstimate += event.CostEstimate
	}

	out := make([]domain.TenantUsageSummary, 0, len(byTenant))
	for _, s := range byTenant {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}
