// Package memory holds in-memory implementations of the persistence
// ports. They back dev deployments without a database and the unit tests;
// Postgres is the production store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rezkam/agentplane/internal/domain"
)

// TenantCatalog is an in-memory tenant store.
type TenantCatalog struct {
	mu      sync.RWMutex
	tenants map[string]domain.Tenant
}

// NewTenantCatalog creates an empty tenant catalog.
func NewTenantCatalog() *TenantCatalog {
	return &TenantCatalog{tenants: make(map[string]domain.Tenant)}
}

func (c *TenantCatalog) CreateTenant(_ context.Context, tenant domain.Tenant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tenants[tenant.TenantID]; exists {
		return fmt.Errorf("%w: tenant %s already exists", domain.ErrInvalidInput, tenant.TenantID)
	}
	c.tenants[tenant.TenantID] = tenant
	return nil
}

func (c *TenantCatalog) GetTenant(_ context.Context, tenantID string) (*domain.Tenant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tenant, ok := c.tenants[tenantID]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return &tenant, nil
}

func (c *TenantCatalog) SetTenantStatus(_ context.Context, tenantID, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tenant, ok := c.tenants[tenantID]
	if !ok {
		return domain.ErrTenantNotFound
	}
	tenant.Status = status
	c.tenants[tenantID] = tenant
	return nil
}

func (c *TenantCatalog) SetTenantPlan(_ context.Context, tenantID, planID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tenant, ok := c.tenants[tenantID]
	if !ok {
		return domain.ErrTenantNotFound
	}
	tenant.Plan = planID
	c.tenants[tenantID] = tenant
	return nil
}

func (c *TenantCatalog) ListTenants(_ context.Context) ([]domain.Tenant, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Tenant, 0, len(c.tenants))
	for _, t := range c.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TenantID < out[j].TenantID })
	return out, nil
}

// PlanCatalog is an in-memory plan store.
type PlanCatalog struct {
	mu    sync.RWMutex
	plans map[string]domain.Plan
}

// NewPlanCatalog creates an empty plan catalog.
func NewPlanCatalog() *PlanCatalog {
	return &PlanCatalog{plans: make(map[string]domain.Plan)}
}

func (c *PlanCatalog) UpsertPlan(_ context.Context, plan domain.Plan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans[plan.PlanID] = plan
	return nil
}

func (c *PlanCatalog) GetPlan(_ context.Context, planID string) (*domain.Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	plan, ok := c.plans[planID]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return &plan, nil
}

func (c *PlanCatalog) ListPlans(_ context.Context) ([]domain.Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Plan, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlanID < out[j].PlanID })
	return out, nil
}
