package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/agentplane/internal/application/provisioning"
	"github.com/rezkam/agentplane/internal/domain"
)

// Service implements tenant and plan lifecycle operations. Creating a
// tenant also enqueues its bootstrap provisioning job; the tenant stays
// pending until the worker runs it.
type Service struct {
	tenants        TenantCatalog
	plans          PlanCatalog
	queue          provisioning.Queue
	jobMaxAttempts int
}

// NewService creates the tenancy service. jobMaxAttempts is the attempt
// budget written on new provisioning jobs.
func NewService(tenants TenantCatalog, plans PlanCatalog, queue provisioning.Queue, jobMaxAttempts int) *Service {
	if jobMaxAttempts < 1 {
		jobMaxAttempts = 1
	}
	return &Service{tenants: tenants, plans: plans, queue: queue, jobMaxAttempts: jobMaxAttempts}
}

// CreateTenantResult is returned by CreateTenant so callers can surface
// both the tenant and its bootstrap job.
type CreateTenantResult struct {
	Tenant domain.Tenant
	Job    domain.ProvisioningJob
}

// CreateTenant registers a pending tenant on an existing active plan and
// enqueues its bootstrap job. The job is idempotent per tenant, so a
// retried create cannot produce duplicate provisioning work.
func (s *Service) CreateTenant(ctx context.Context, name, planID string) (*CreateTenantResult, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if planID == "" {
		return nil, fmt.Errorf("%w: plan is required", domain.ErrInvalidInput)
	}

	plan, err := s.plans.GetPlan(ctx, planID)
	if errors.Is(err, domain.ErrPlanNotFound) {
		return nil, fmt.Errorf("%w: unknown plan %s", domain.ErrInvalidInput, planID)
	}
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, fmt.Errorf("%w: plan %s is inactive", domain.ErrInvalidInput, planID)
	}

	tenant := domain.Tenant{
		TenantID:  uuid.NewString(),
		Name:      name,
		Plan:      planID,
		Status:    domain.TenantStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tenants.CreateTenant(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	job, err := s.queue.Enqueue(ctx, provisioning.EnqueueParams{
		TenantID:       tenant.TenantID,
		Step:           domain.StepBootstrap,
		IdempotencyKey: domain.BootstrapIdempotencyKey(tenant.TenantID),
		MaxAttempts:    s.jobMaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue bootstrap job: %w", err)
	}

	slog.InfoContext(ctx, "tenant created",
		"tenant_id", tenant.TenantID,
		"plan", planID,
		"job_id", job.JobID)

	return &CreateTenantResult{Tenant: tenant, Job: *job}, nil
}

// GetTenant loads one tenant.
func (s *Service) GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	return s.tenants.GetTenant(ctx, tenantID)
}

// ListTenants returns all tenants.
func (s *Service) ListTenants(ctx context.Context) ([]domain.Tenant, error) {
	return s.tenants.ListTenants(ctx)
}

// UpdateTenantPlan moves a tenant to another active plan.
func (s *Service) UpdateTenantPlan(ctx context.Context, tenantID, planID string) (*domain.Tenant, error) {
	if planID == "" {
		return nil, fmt.Errorf("%w: plan is required", domain.ErrInvalidInput)
	}

	plan, err := s.plans.GetPlan(ctx, planID)
	if errors.Is(err, domain.ErrPlanNotFound) {
		return nil, fmt.Errorf("%w: unknown plan %s", domain.ErrInvalidInput, planID)
	}
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, fmt.Errorf("%w: plan %s is inactive", domain.ErrInvalidInput, planID)
	}

	if _, err := s.tenants.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	if err := s.tenants.SetTenantPlan(ctx, tenantID, planID); err != nil {
		return nil, fmt.Errorf("failed to update tenant plan: %w", err)
	}

	slog.InfoContext(ctx, "tenant plan updated", "tenant_id", tenantID, "plan", planID)
	return s.tenants.GetTenant(ctx, tenantID)
}

// CreatePlan validates and stores a plan.
func (s *Service) CreatePlan(ctx context.Context, plan domain.Plan) (*domain.Plan, error) {
	if plan.PlanID == "" {
		return nil, fmt.Errorf("%w: plan_id is required", domain.ErrInvalidInput)
	}
	if plan.DisplayName == "" {
		return nil, fmt.Errorf("%w: display_name is required", domain.ErrInvalidInput)
	}
	if plan.Limits.MonthlyMessages < 1 || plan.Limits.MonthlyTokenCap < 1 || plan.Limits.MaxAgents < 1 {
		return nil, fmt.Errorf("%w: plan limits must be positive", domain.ErrInvalidInput)
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now().UTC()
	}

	if err := s.plans.UpsertPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to store plan: %w", err)
	}
	slog.InfoContext(ctx, "plan stored", "plan_id", plan.PlanID)
	return &plan, nil
}

// GetPlan loads one plan.
func (s *Service) GetPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	return s.plans.GetPlan(ctx, planID)
}

// ListPlans returns all plans.
func (s *Service) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	return s.plans.ListPlans(ctx)
}

// GetJob loads one provisioning job for status polling.
func (s *Service) GetJob(ctx context.Context, jobID string) (*domain.ProvisioningJob, error) {
	return s.queue.GetJob(ctx, jobID)
}

// SeedPlans installs the default plans, skipping any that already exist
// so operator edits survive restarts.
func (s *Service) SeedPlans(ctx context.Context) error {
	defaults := []domain.Plan{
		{
			PlanID:      "starter",
			DisplayName: "Starter",
			Limits:      domain.PlanLimits{MonthlyMessages: 5000, MonthlyTokenCap: 2_000_000, MaxAgents: 3},
			Active:      true,
		},
		{
			PlanID:      "growth",
			DisplayName: "Growth",
			Limits:      domain.PlanLimits{MonthlyMessages: 25_000, MonthlyTokenCap: 10_000_000, MaxAgents: 15},
			Active:      true,
		},
		{
			PlanID:      "enterprise",
			DisplayName: "Enterprise",
			Limits:      domain.PlanLimits{MonthlyMessages: 200_000, MonthlyTokenCap: 120_000_000, MaxAgents: 100},
			Active:      true,
		},
	}

	for _, plan := range defaults {
		if _, err := s.plans.GetPlan(ctx, plan.PlanID); err == nil {
			continue
		}
		plan.CreatedAt = time.Now().UTC()
		if err := s.plans.UpsertPlan(ctx, plan); err != nil {
			return fmt.Errorf("failed to seed plan %s: %w", plan.PlanID, err)
		}
		slog.InfoContext(ctx, "seeded default plan", "plan_id", plan.PlanID)
	}
	return nil
}
