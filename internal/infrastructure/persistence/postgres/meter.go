package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/agentplane/internal/domain"
)

// Meter is the Postgres usage event store. Events are append-only and
// idempotent by request_id.
type Meter struct {
	pool *pgxpool.Pool
}

// NewMeter creates a meter on an existing pool.
func NewMeter(pool *pgxpool.Pool) *Meter {
	return &Meter{pool: pool}
}

// RecordUsage inserts the event, returning false when the request_id was
// already recorded. Duplicates leave the stored event untouched.
func (m *Meter) RecordUsage(ctx context.Context, event domain.UsageEvent) (bool, error) {
	tag, err := m.pool.Exec(ctx, `
		INSERT INTO usage_events (request_id, tenant_id, agent_id, model, latency_ms, tokens_in, tokens_out, cost_estimate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (request_id) DO NOTHING`,
		event.RequestID, event.TenantID, event.AgentID, event.Model,
		event.LatencyMS, event.TokensIn, event.TokensOut, event.CostEstimate, event.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to record usage event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// TenantMonthSummary aggregates one tenant's events over the given UTC
// calendar month. A tenant with no events gets a zero summary.
func (m *Meter) TenantMonthSummary(ctx context.Context, tenantID, month string) (*domain.TenantUsageSummary, error) {
	start, end, err := domain.MonthBounds(month)
	if err != nil {
		return nil, err
	}

	summary := domain.TenantUsageSummary{TenantID: tenantID, Month: month}
	row := m.pool.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(tokens_in + tokens_out), 0), COALESCE(SUM(cost_estimate), 0)
		FROM usage_events
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at < $3`,
		tenantID, start, end)
	if err := row.Scan(&summary.MessagesUsed, &summary.TokensUsed, &summary.CostEstimate); err != nil {
		return nil, fmt.Errorf("failed to aggregate tenant usage: %w", err)
	}
	return &summary, nil
}

// AllTenantsMonthSummary aggregates every tenant with at least one event
// in the given month, ordered by tenant_id.
func (m *Meter) AllTenantsMonthSummary(ctx context.Context, month string) ([]domain.TenantUsageSummary, error) {
	start, end, err := domain.MonthBounds(month)
	if err != nil {
		return nil, err
	}

	rows, err := m.pool.Query(ctx, `
		SELECT tenant_id, COUNT(*), COALESCE(SUM(tokens_in + tokens_out), 0), COALESCE(SUM(cost_estimate), 0)
		FROM usage_events
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY tenant_id
		ORDER BY tenant_id`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	defer rows.Close()

	var summaries []domain.TenantUsageSummary
	for rows.Next() {
		summary := domain.TenantUsageSummary{Month: month}
		if err := rows.Scan(&summary.TenantID, &summary.MessagesUsed, &summary.TokensUsed, &summary.CostEstimate); err != nil {
			return nil, fmt.Errorf("failed to scan usage summary: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}
