package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/agentplane/internal/application/auth"
	"github.com/rezkam/agentplane/internal/infrastructure/http/middleware"
	"github.com/rezkam/agentplane/internal/infrastructure/http/response"
)

// TenantUsage handles GET /v1/admin/tenants/{id}/usage?month=YYYY-MM.
func (h *Handler) TenantUsage(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")

	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopeTenantUsageRead); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	if err := identity.RequireTenant(tenantID); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	summary, err := h.usage.TenantMonthSummary(r.Context(), tenantID, r.URL.Query().Get("month"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, summary)
}

// TenantBilling handles GET /v1/admin/tenants/{id}/billing?month=YYYY-MM,
// the usage summary joined with the tenant's plan limits.
func (h *Handler) TenantBilling(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "id")

	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopeBillingRead); err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	if err := identity.RequireTenant(tenantID); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	record, err := h.usage.BillingRecord(r.Context(), tenantID, r.URL.Query().Get("month"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, record)
}

// ExportUsage handles GET /v1/admin/usage/export?month=YYYY-MM[&archive=true].
// With archive=true the snapshot is also written to the configured archive
// store.
func (h *Handler) ExportUsage(w http.ResponseWriter, r *http.Request) {
	identity := middleware.AdminIdentityFrom(r.Context())
	if err := identity.RequireScope(auth.ScopeUsageExport); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	archive := r.URL.Query().Get("archive") == "true"
	export, err := h.usage.MonthExport(r.Context(), r.URL.Query().Get("month"), archive)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, export)
}
