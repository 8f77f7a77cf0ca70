// Package admission runs the data-plane pipeline: every agent run passes
// tenant, plan, entitlement, rate and quota checks before it reaches the
// provider, and every admitted run is metered exactly once.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/agentplane/internal/application/quota"
	"github.com/rezkam/agentplane/internal/application/ratelimit"
	"github.com/rezkam/agentplane/internal/application/usage"
	"github.com/rezkam/agentplane/internal/domain"
)

// RunParams is one inbound agent run after transport-level validation.
// RequestID may be empty; one is assigned for the caller.
type RunParams struct {
	TenantID   string
	AgentID    string
	CustomerID string
	RequestID  string
	Message    string
}

// RunResult is the outcome of an admitted run.
type RunResult struct {
	RequestID string `json:"request_id"`
	TenantID  string `json:"tenant_id"`
	AgentID   string `json:"agent_id"`
	Output    string `json:"output"`
	Model     string `json:"model"`
	LatencyMS int    `json:"latency_ms"`
	TokensIn  int    `json:"tokens_in"`
	TokensOut int    `json:"tokens_out"`
}

// Service is the admission pipeline.
type Service struct {
	tenants      TenantReader
	plans        PlanReader
	entitlements EntitlementChecker
	limiter      ratelimit.Limiter
	meter        usage.Meter
	gateway      Gateway
	rateLimitRPM int
	now          func() time.Time
}

// Option is a functional option for configuring Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires the admission pipeline. rateLimitRPM is the per-minute
// admission budget per tenant/agent pair.
func NewService(
	tenants TenantReader,
	plans PlanReader,
	entitlements EntitlementChecker,
	limiter ratelimit.Limiter,
	meter usage.Meter,
	gateway Gateway,
	rateLimitRPM int,
	opts ...Option,
) *Service {
	s := &Service{
		tenants:      tenants,
		plans:        plans,
		entitlements: entitlements,
		limiter:      limiter,
		meter:        meter,
		gateway:      gateway,
		rateLimitRPM: rateLimitRPM,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run admits and executes one agent run.
//
// Check order is fixed: tenant state, plan, entitlement, rate limit,
// quota, gateway. The rate limit counter is consumed before the quota
// check, so a quota-denied request still burns a window slot.
func (s *Service) Run(ctx context.Context, params RunParams) (*RunResult, error) {
	if params.Message == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	if params.RequestID == "" {
		params.RequestID = uuid.NewString()
	}

	tenant, err := s.tenants.GetTenant(ctx, params.TenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Status != domain.TenantStatusActive {
		return nil, fmt.Errorf("%w: status is %s", domain.ErrTenantNotActive, tenant.Status)
	}

	plan, err := s.plans.GetPlan(ctx, tenant.Plan)
	if err != nil {
		return nil, fmt.Errorf("%w: plan %s", domain.ErrPlanNotUsable, tenant.Plan)
	}
	if !plan.Active {
		return nil, fmt.Errorf("%w: plan %s is inactive", domain.ErrPlanNotUsable, tenant.Plan)
	}

	if s.entitlements != nil && params.CustomerID != "" {
		if err := s.entitlements.CheckAccess(ctx, params.TenantID, params.CustomerID, params.AgentID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	allowed, err := s.limiter.Allow(ctx, ratelimit.Key(params.TenantID, params.AgentID), s.rateLimitRPM, now)
	if err != nil {
		return nil, fmt.Errorf("rate limiter failed: %w", err)
	}
	if !allowed {
		return nil, domain.ErrRateLimited
	}

	month := domain.CurrentMonthUTC(now)
	summary, err := s.meter.TenantMonthSummary(ctx, params.TenantID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to load month summary: %w", err)
	}
	if decision := quota.AllowRequest(*summary, plan.Limits, quota.EstimateTokens(params.Message)); !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuotaExceeded, decision.Reason)
	}

	start := s.now()
	resp, err := s.gateway.Execute(ctx, GatewayRequest{
		TenantID:   params.TenantID,
		AgentID:    params.AgentID,
		CustomerID: params.CustomerID,
		Message:    params.Message,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway execution failed: %w", err)
	}
	latency := int(s.now().Sub(start).Milliseconds())

	result := &RunResult{
		RequestID: params.RequestID,
		TenantID:  params.TenantID,
		AgentID:   params.AgentID,
		Output:    resp.Output,
		Model:     resp.Model,
		LatencyMS: latency,
		TokensIn:  quota.PromptTokens(params.Message),
		TokensOut: quota.PromptTokens(resp.Output),
	}

	recorded, err := s.meter.RecordUsage(ctx, domain.UsageEvent{
		RequestID:    result.RequestID,
		TenantID:     result.TenantID,
		AgentID:      result.AgentID,
		Model:        result.Model,
		LatencyMS:    result.LatencyMS,
		TokensIn:     result.TokensIn,
		TokensOut:    result.TokensOut,
		CostEstimate: 0,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}
	if !recorded {
		slog.InfoContext(ctx, "duplicate request_id, usage not re-counted",
			"request_id", result.RequestID,
			"tenant_id", result.TenantID)
	}

	return result, nil
}
