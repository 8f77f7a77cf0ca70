package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/agentplane/internal/application/auth"
	"github.com/rezkam/agentplane/internal/domain"
	"github.com/rezkam/agentplane/internal/infrastructure/http/middleware"
	"github.com/rezkam/agentplane/internal/infrastructure/http/response"
)

type createPlanRequest struct {
	PlanID          string `json:"plan_id"`
	DisplayName     string `json:"display_name"`
	MonthlyMessages int    `json:"monthly_messages"`
	MonthlyTokenCap int    `json:"monthly_token_cap"`
	MaxAgents       int    `json:"max_agents"`
	Active          bool   `json:"active"`
}

// ListPlans handles GET /v1/admin/plans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopePlansRead); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	plans, err := h.tenants.ListPlans(r.Context())
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, plans)
}

// GetPlan handles GET /v1/admin/plans/{id}.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopePlansRead); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	plan, err := h.tenants.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, plan)
}

// CreatePlan handles POST /v1/admin/plans. Posting an existing plan_id
// updates it.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopePlansWrite); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	var req createPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	plan, err := h.tenants.CreatePlan(r.Context(), domain.Plan{
		PlanID:      req.PlanID,
		DisplayName: req.DisplayName,
		Limits: domain.PlanLimits{
			MonthlyMessages: req.MonthlyMessages,
			MonthlyTokenCap: req.MonthlyTokenCap,
			MaxAgents:       req.MaxAgents,
		},
		Active: req.Active,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.Created(w, plan)
}

type updateTenantPlanRequest struct {
	PlanID string `json:"plan_id"`
}

// UpdateTenantPlan handles PATCH /v1/admin/tenants/{id}/plan.
func (h *Handler) UpdateTenantPlan(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")

	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopeTenantPlanWrite); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	if err := identity.RequireTenant(tenantID); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	var req updateTenantPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	tenant, err := h.tenants.UpdateTenantPlan(r.Context(), tenantID, req.PlanID)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, tenant)
}
