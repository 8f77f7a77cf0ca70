// Package http wires the handler set into the chi router.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rezkam/agentplane/internal/infrastructure/http/handler"
	mw "github.com/rezkam/agentplane/internal/infrastructure/http/middleware"
)

// maxBodyBytes bounds request bodies. Run messages are the largest
// payload and stay well under this.
const maxBodyBytes = 1 << 20 // 1 MiB

// NewRouter creates and configures the chi router with all middleware and
// routes. tenantAuth guards the data plane, adminAuth the /v1/admin tree.
func NewRouter(h *handler.Handler, tenantAuth *mw.TenantAuth, adminAuth *mw.AdminAuth) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(mw.MaxBodyBytes(maxBodyBytes))

	// Health check endpoint (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			slog.ErrorContext(r.Context(), "failed to write health check response", "error", err)
		}
	})

	r.Route("/v1", func(r chi.Router) {
		// Control plane: tenant signup and provisioning status.
		r.Post("/tenants", h.CreateTenant)
		r.Get("/tenants/{id}", h.GetTenant)
		r.Get("/provisioning/jobs/{id}", h.GetJob)
		r.Post("/provisioning/jobs/run-next", h.RunNextJob)

		// Data plane: authenticated agent runs.
		r.Group(func(r chi.Router) {
			r.Use(tenantAuth.Validate)
			r.Post("/tenants/{id}/runs", h.ExecuteRun)
		})

		// Admin plane: RBAC-gated catalog, usage and access management.
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth.Validate)

			r.Get("/plans", h.ListPlans)
			r.Post("/plans", h.CreatePlan)
			r.Get("/plans/{id}", h.GetPlan)

			r.Patch("/tenants/{id}/plan", h.UpdateTenantPlan)
			r.Get("/tenants/{id}/usage", h.TenantUsage)
			r.Get("/tenants/{id}/billing", h.TenantBilling)

			r.Put("/tenants/{id}/agents", h.UpsertAgent)
			r.Get("/tenants/{id}/agents", h.ListAgents)
			r.Post("/tenants/{id}/entitlements", h.GrantEntitlement)
			r.Delete("/tenants/{id}/entitlements", h.RevokeEntitlement)
			r.Get("/tenants/{id}/entitlements", h.ListEntitlements)

			r.Get("/usage/export", h.ExportUsage)
			r.Get("/debug/identity", h.DebugIdentity)
		})
	})

	return r
}
