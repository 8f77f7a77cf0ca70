package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/agentplane/internal/infrastructure/http/response"
)

type createTenantRequest struct {
	Name string `json:"name"`
	Plan string `json:"plan"`
}

type createTenantResponse struct {
	TenantID          string `json:"tenant_id"`
	Status            string `json:"status"`
	ProvisioningJobID string `json:"provisioning_job_id"`
}

// CreateTenant handles POST /v1/tenants.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	result, err := h.tenants.CreateTenant(r.Context(), req.Name, req.Plan)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.Created(w, createTenantResponse{
		TenantID:          result.Tenant.TenantID,
		Status:            result.Tenant.Status,
		ProvisioningJobID: result.Job.JobID,
	})
}

// GetTenant handles GET /v1/tenants/{id}.
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenants.GetTenant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, tenant)
}

// GetJob handles GET /v1/provisioning/jobs/{id}, for status polling.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.tenants.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, job)
}

// RunNextJob handles POST /v1/provisioning/jobs/run-next, the manual
// worker tick.
func (h *Handler) RunNextJob(w http.ResponseWriter, r *http.Request) {
	processed, err := h.worker.ProcessNextJob(r.Context())
	if err != nil {
		response.InternalError(w, r, err)
		return
	}
	response.OK(w, map[string]bool{"processed": processed})
}
