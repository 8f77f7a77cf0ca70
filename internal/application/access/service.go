package access

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rezkam/agentplane/internal/domain"
)

// Service manages which agents a tenant runs and which of the tenant's
// customers may reach them.
type Service struct {
	catalog Catalog
	tenants TenantReader
}

// NewService creates the access service.
func NewService(catalog Catalog, tenants TenantReader) *Service {
	return &Service{catalog: catalog, tenants: tenants}
}

// UpsertAgent registers or updates an agent for a tenant.
func (s *Service) UpsertAgent(ctx context.Context, agent domain.TenantAgent) (*domain.TenantAgent, error) {
	if agent.TenantID == "" || agent.AgentID == "" {
		return nil, fmt.Errorf("%w: tenant_id and agent_id are required", domain.ErrInvalidInput)
	}
	if _, err := s.tenants.GetTenant(ctx, agent.TenantID); err != nil {
		return nil, err
	}
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = time.Now().UTC()
	}
	if err := s.catalog.UpsertTenantAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to store tenant agent: %w", err)
	}
	slog.InfoContext(ctx, "tenant agent stored", "tenant_id", agent.TenantID, "agent_id", agent.AgentID)
	return &agent, nil
}

// ListAgents returns the tenant's agents.
func (s *Service) ListAgents(ctx context.Context, tenantID string) ([]domain.TenantAgent, error) {
	if _, err := s.tenants.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.catalog.ListTenantAgents(ctx, tenantID)
}

// Grant records an entitlement for a customer (or the wildcard customer)
// on one of the tenant's registered agents.
func (s *Service) Grant(ctx context.Context, grant domain.CustomerAgentEntitlement) (*domain.CustomerAgentEntitlement, error) {
	if grant.TenantID == "" || grant.CustomerID == "" || grant.AgentID == "" {
		return nil, fmt.Errorf("%w: tenant_id, customer_id and agent_id are required", domain.ErrInvalidInput)
	}
	if _, err := s.tenants.GetTenant(ctx, grant.TenantID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetTenantAgent(ctx, grant.TenantID, grant.AgentID); err != nil {
		return nil, err
	}
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = time.Now().UTC()
	}
	if err := s.catalog.GrantEntitlement(ctx, grant); err != nil {
		return nil, fmt.Errorf("failed to store entitlement: %w", err)
	}
	slog.InfoContext(ctx, "entitlement granted",
		"tenant_id", grant.TenantID,
		"customer_id", grant.CustomerID,
		"agent_id", grant.AgentID)
	return &grant, nil
}

// Revoke removes an entitlement grant.
func (s *Service) Revoke(ctx context.Context, tenantID, customerID, agentID string) error {
	if tenantID == "" || customerID == "" || agentID == "" {
		return fmt.Errorf("%w: tenant_id, customer_id and agent_id are required", domain.ErrInvalidInput)
	}
	if err := s.catalog.RevokeEntitlement(ctx, tenantID, customerID, agentID); err != nil {
		return fmt.Errorf("failed to revoke entitlement: %w", err)
	}
	slog.InfoContext(ctx, "entitlement revoked",
		"tenant_id", tenantID,
		"customer_id", customerID,
		"agent_id", agentID)
	return nil
}

// ListEntitlements returns all grants for a tenant.
func (s *Service) ListEntitlements(ctx context.Context, tenantID string) ([]domain.CustomerAgentEntitlement, error) {
	return s.catalog.ListEntitlements(ctx, tenantID)
}

// CheckAccess enforces entitlements on the data plane. An agent with no
// grant rows is open to every customer of the tenant; once any grant
// exists, the customer needs an exact or wildcard grant.
func (s *Service) CheckAccess(ctx context.Context, tenantID, customerID, agentID string) error {
	grants, err := s.catalog.ListEntitlementsForAgent(ctx, tenantID, agentID)
	if err != nil {
		return fmt.Errorf("failed to load entitlements: %w", err)
	}
	if len(grants) == 0 {
		return nil
	}
	for _, g := range grants {
		if g.CustomerID == customerID || g.CustomerID == domain.WildcardCustomer {
			return nil
		}
	}
	return fmt.Errorf("%w: customer %s is not entitled to agent %s", domain.ErrForbidden, customerID, agentID)
}
