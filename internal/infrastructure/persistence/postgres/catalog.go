package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/agentplane/internal/domain"
)

// TenantCatalog is the Postgres tenant store.
type TenantCatalog struct {
	pool *pgxpool.Pool
}

// NewTenantCatalog creates a tenant catalog on an existing pool.
func NewTenantCatalog(pool *pgxpool.Pool) *TenantCatalog {
	return &TenantCatalog{pool: pool}
}

func (c *TenantCatalog) CreateTenant(ctx context.Context, tenant domain.Tenant) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO tenants (tenant_id, name, plan, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		tenant.TenantID, tenant.Name, tenant.Plan, tenant.Status, tenant.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tenant: %w", err)
	}
	return nil
}

func (c *TenantCatalog) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT tenant_id, name, plan, status, created_at
		FROM tenants WHERE tenant_id = $1`, tenantID)

	var tenant domain.Tenant
	err := row.Scan(&tenant.TenantID, &tenant.Name, &tenant.Plan, &tenant.Status, &tenant.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant: %w", err)
	}
	return &tenant, nil
}

func (c *TenantCatalog) SetTenantStatus(ctx context.Context, tenantID, status string) error {
	tag, err := c.pool.Exec(ctx, `UPDATE tenants SET status = $2 WHERE tenant_id = $1`, tenantID, status)
	if err != nil {
		return fmt.Errorf("failed to update tenant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (c *TenantCatalog) SetTenantPlan(ctx context.Context, tenantID, planID string) error {
	tag, err := c.pool.Exec(ctx, `UPDATE tenants SET plan = $2 WHERE tenant_id = $1`, tenantID, planID)
	if err != nil {
		return fmt.Errorf("failed to update tenant plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

func (c *TenantCatalog) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT tenant_id, name, plan, status, created_at
		FROM tenants ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		var tenant domain.Tenant
		if err := rows.Scan(&tenant.TenantID, &tenant.Name, &tenant.Plan, &tenant.Status, &tenant.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

// PlanCatalog is the Postgres plan store.
type PlanCatalog struct {
	pool *pgxpool.Pool
}

// NewPlanCatalog creates a plan catalog on an existing pool.
func NewPlanCatalog(pool *pgxpool.Pool) *PlanCatalog {
	return &PlanCatalog{pool: pool}
}

func (c *PlanCatalog) UpsertPlan(ctx context.Context, plan domain.Plan) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO plans (plan_id, display_name, monthly_messages, monthly_token_cap, max_agents, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (plan_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			monthly_messages = EXCLUDED.monthly_messages,
			monthly_token_cap = EXCLUDED.monthly_token_cap,
			max_agents = EXCLUDED.max_agents,
			active = EXCLUDED.active`,
		plan.PlanID, plan.DisplayName, plan.Limits.MonthlyMessages, plan.Limits.MonthlyTokenCap,
		plan.Limits.MaxAgents, plan.Active, plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}
	return nil
}

func (c *PlanCatalog) GetPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT plan_id, display_name, monthly_messages, monthly_token_cap, max_agents, active, created_at
		FROM plans WHERE plan_id = $1`, planID)

	plan, err := scanPlan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	return plan, nil
}

func (c *PlanCatalog) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT plan_id, display_name, monthly_messages, monthly_token_cap, max_agents, active, created_at
		FROM plans ORDER BY plan_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

func scanPlan(row pgx.Row) (*domain.Plan, error) {
	var plan domain.Plan
	err := row.Scan(&plan.PlanID, &plan.DisplayName, &plan.Limits.MonthlyMessages,
		&plan.Limits.MonthlyTokenCap, &plan.Limits.MaxAgents, &plan.Active, &plan.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
