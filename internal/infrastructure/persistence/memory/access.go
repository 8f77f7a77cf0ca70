package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rezkam/agentplane/internal/domain"
)

type agentKey struct {
	tenantID string
	agentID  string
}

type grantKey struct {
	tenantID   string
	customerID string
	agentID    string
}

// AccessCatalog is an in-memory agent and entitlement store.
type AccessCatalog struct {
	mu     sync.RWMutex
	agents map[agentKey]domain.TenantAgent
	grants map[grantKey]domain.CustomerAgentEntitlement
}

// NewAccessCatalog creates an empty access catalog.
func NewAccessCatalog() *AccessCatalog {
	return &AccessCatalog{
		agents: make(map[agentKey]domain.TenantAgent),
		grants: make(map[grantKey]domain.CustomerAgentEntitlement),
	}
}

func (c *AccessCatalog) UpsertTenantAgent(_ context.Context, agent domain.TenantAgent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents[agentKey{agent.TenantID, agent.AgentID}] = agent
	return nil
}

func (c *AccessCatalog) GetTenantAgent(_ context.Context, tenantID, agentID string) (*domain.TenantAgent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	agent, ok := c.agents[agentKey{tenantID, agentID}]
	if !ok {
		return nil, domain.ErrAgentNotFound
	}
	return &agent, nil
}

func (c *AccessCatalog) ListTenantAgents(_ context.Context, tenantID string) ([]domain.TenantAgent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.TenantAgent
	for k, agent := range c.agents {
		if k.tenantID == tenantID {
			out = append(out, agent)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

func (c *AccessCatalog) GrantEntitlement(_ context.Context, grant domain.CustomerAgentEntitlement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := grantKey{grant.TenantID, grant.CustomerID, grant.AgentID}
	if _, exists := c.grants[key]; exists {
		return nil
	}
	c.grants[key] = grant
	return nil
}

func (c *AccessCatalog) RevokeEntitlement(_ context.Context, tenantID, customerID, agentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.grants, grantKey{tenantID, customerID, agentID})
	return nil
}

func (c *AccessCatalog) ListEntitlements(_ context.Context, tenantID string) ([]domain.CustomerAgentEntitlement, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.CustomerAgentEntitlement
	for k, grant := range c.grants {
		if k.tenantID == tenantID {
			out = append(out, grant)
		}
	}
	sortGrants(out)
	return out, nil
}

func (c *AccessCatalog) ListEntitlementsForAgent(_ context.Context, tenantID, agentID string) ([]domain.CustomerAgentEntitlement, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.CustomerAgentEntitlement
	for k, grant := range c.grants {
		if k.tenantID == tenantID && k.agentID == agentID {
			out = append(out, grant)
		}
	}
	sortGrants(out)
	return out, nil
}

func (c *AccessCatalog) ListWildcardEntitlements(_ context.Context) ([]domain.CustomerAgentEntitlement, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []domain.CustomerAgentEntitlement
	for k, grant := range c.grants {
		if k.customerID == domain.WildcardCustomer {
			out = append(out, grant)
		}
	}
	sortGrants(out)
	return out, nil
}

func sortGrants(grants []domain.CustomerAgentEntitlement) {
	sort.Slice(grants, func(i, j int) bool {
		if grants[i].TenantID != grants[j].TenantID {
			return grants[i].TenantID < grants[j].TenantID
		}
		if grants[i].AgentID != grants[j].AgentID {
			return grants[i].AgentID < grants[j].AgentID
		}
		return grants[i].CustomerID < grants[j].CustomerID
	})
}
