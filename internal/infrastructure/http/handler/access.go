package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/agentplane/internal/application/auth"
	"github.com/rezkam/agentplane/internal/domain"
	"github.com/rezkam/agentplane/internal/infrastructure/http/middleware"
	"github.com/rezkam/agentplane/internal/infrastructure/http/response"
)

type upsertAgentRequest struct {
	AgentID     string `json:"agent_id"`
	DisplayName string `json:"display_name"`
	Active      bool   `json:"active"`
}

// UpsertAgent handles PUT /v1/admin/tenants/{id}/agents.
func (h *Handler) UpsertAgent(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")

	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopeAgentsWrite); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	if err := identity.RequireTenant(tenantID); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	var req upsertAgentRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	agent, err := h.access.UpsertAgent(r.Context(), domain.TenantAgent{
		TenantID:    tenantID,
		AgentID:     req.AgentID,
		DisplayName: req.DisplayName,
		Active:      req.Active,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, agent)
}

// ListAgents handles GET /v1/admin/tenants/{id}/agents.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")

	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopeAgentsRead); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	if err := identity.RequireTenant(tenantID); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	agents, err := h.access.ListAgents(r.Context(), tenantID)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, agents)
}

type entitlementRequest struct {
	CustomerID string `json:"customer_id"`
	AgentID    string `json:"agent_id"`
}

// GrantEntitlement handles POST /v1/admin/tenants/{id}/entitlements.
func (h *Handler) GrantEntitlement(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")

	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopeAgentsWrite); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	if err := identity.RequireTenant(tenantID); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	var req entitlementRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	grant, err := h.access.Grant(r.Context(), domain.CustomerAgentEntitlement{
		TenantID:   tenantID,
		CustomerID: req.CustomerID,
		AgentID:    req.AgentID,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.Created(w, grant)
}

// RevokeEntitlement handles DELETE /v1/admin/tenants/{id}/entitlements.
func (h *Handler) RevokeEntitlement(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")

	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopeAgentsWrite); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	if err := identity.RequireTenant(tenantID); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	var req entitlementRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	if err := h.access.Revoke(r.Context(), tenantID, req.CustomerID, req.AgentID); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.NoContent(w)
}

// ListEntitlements handles GET /v1/admin/tenants/{id}/entitlements.
func (h *Handler) ListEntitlements(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")

	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopeAgentsRead); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	if err := identity.RequireTenant(tenantID); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	grants, err := h.access.ListEntitlements(r.Context(), tenantID)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, grants)
}

type debugIdentityResponse struct {
	Identity    *auth.AdminIdentity `json:"identity"`
	GatewayMode string              `json:"gateway_mode"`
}

// DebugIdentity handles GET /v1/admin/debug/identity, an operator aid for
// inspecting what the platform sees in an admin token.
func (h *Handler) DebugIdentity(w http.ResponseWriter, r *http.Request) {
	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopeIdentityRead); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, debugIdentityResponse{
		Identity:    identity,
		GatewayMode: h.gatewayMode,
	})
}
