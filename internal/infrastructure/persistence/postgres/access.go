package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/agentplane/internal/domain"
)

// AccessCatalog is the Postgres store for tenant agents and customer
// entitlement grants.
type AccessCatalog struct {
	pool *pgxpool.Pool
}

// NewAccessCatalog creates an access catalog on an existing pool.
func NewAccessCatalog(pool *pgxpool.Pool) *AccessCatalog {
	return &AccessCatalog{pool: pool}
}

func (c *AccessCatalog) UpsertTenantAgent(ctx context.Context, agent domain.TenantAgent) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO tenant_agents (tenant_id, agent_id, display_name, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, agent_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			active = EXCLUDED.active`,
		agent.TenantID, agent.AgentID, agent.DisplayName, agent.Active, agent.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert tenant agent: %w", err)
	}
	return nil
}

func (c *AccessCatalog) GetTenantAgent(ctx context.Context, tenantID, agentID string) (*domain.TenantAgent, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT tenant_id, agent_id, display_name, active, created_at
		FROM tenant_agents WHERE tenant_id = $1 AND agent_id = $2`,
		tenantID, agentID)

	var agent domain.TenantAgent
	err := row.Scan(&agent.TenantID, &agent.AgentID, &agent.DisplayName, &agent.Active, &agent.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant agent: %w", err)
	}
	return &agent, nil
}

func (c *AccessCatalog) ListTenantAgents(ctx context.Context, tenantID string) ([]domain.TenantAgent, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT tenant_id, agent_id, display_name, active, created_at
		FROM tenant_agents WHERE tenant_id = $1 ORDER BY agent_id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant agents: %w", err)
	}
	defer rows.Close()

	var agents []domain.TenantAgent
	for rows.Next() {
		var agent domain.TenantAgent
		if err := rows.Scan(&agent.TenantID, &agent.AgentID, &agent.DisplayName, &agent.Active, &agent.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant agent: %w", err)
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

func (c *AccessCatalog) GrantEntitlement(ctx context.Context, grant domain.CustomerAgentEntitlement) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO customer_agent_entitlements (tenant_id, customer_id, agent_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, customer_id, agent_id) DO NOTHING`,
		grant.TenantID, grant.CustomerID, grant.AgentID, grant.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to grant entitlement: %w", err)
	}
	return nil
}

func (c *AccessCatalog) RevokeEntitlement(ctx context.Context, tenantID, customerID, agentID string) error {
	_, err := c.pool.Exec(ctx, `
		DELETE FROM customer_agent_entitlements
		WHERE tenant_id = $1 AND customer_id = $2 AND agent_id = $3`,
		tenantID, customerID, agentID)
	if err != nil {
		return fmt.Errorf("failed to revoke entitlement: %w", err)
	}
	return nil
}

func (c *AccessCatalog) ListEntitlements(ctx context.Context, tenantID string) ([]domain.CustomerAgentEntitlement, error) {
	return c.queryEntitlements(ctx, `
		SELECT tenant_id, customer_id, agent_id, created_at
		FROM customer_agent_entitlements
		WHERE tenant_id = $1
		ORDER BY customer_id, agent_id`, tenantID)
}

func (c *AccessCatalog) ListEntitlementsForAgent(ctx context.Context, tenantID, agentID string) ([]domain.CustomerAgentEntitlement, error) {
	return c.queryEntitlements(ctx, `
		SELECT tenant_id, customer_id, agent_id, created_at
		FROM customer_agent_entitlements
		WHERE tenant_id = $1 AND agent_id = $2
		ORDER BY customer_id`, tenantID, agentID)
}

func (c *AccessCatalog) ListWildcardEntitlements(ctx context.Context) ([]domain.CustomerAgentEntitlement, error) {
	return c.queryEntitlements(ctx, `
		SELECT tenant_id, customer_id, agent_id, created_at
		FROM customer_agent_entitlements
		WHERE customer_id = '*'
		ORDER BY tenant_id, agent_id`)
}

func (c *AccessCatalog) queryEntitlements(ctx context.Context, query string, args ...any) ([]domain.CustomerAgentEntitlement, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlements: %w", err)
	}
	defer rows.Close()

	var grants []domain.CustomerAgentEntitlement
	for rows.Next() {
		var grant domain.CustomerAgentEntitlement
		if err := rows.Scan(&grant.TenantID, &grant.CustomerID, &grant.AgentID, &grant.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}
