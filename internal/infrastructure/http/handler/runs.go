package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/agentplane/internal/application/admission"
	"github.com/rezkam/agentplane/internal/infrastructure/http/middleware"
	"github.com/rezkam/agentplane/internal/infrastructure/http/response"
)

type executeRunRequest struct {
	AgentID   string `json:"agent_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type executeRunResponse struct {
	TenantID   string `json:"tenant_id"`
	RequestID  string `json:"request_id"`
	OutputText string `json:"output_text"`
	Model      string `json:"model"`
	LatencyMS  int    `json:"latency_ms"`
}

// ExecuteRun handles POST /v1/tenants/{id}/runs. Authentication and
// header checks happen in the tenant auth middleware; the customer id on
// the context is the verified X-Customer-User-Id.
func (h *Handler) ExecuteRun(w http.ResponseWriter, r *http.Request) {
	var req executeRunRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	result, err := h.runs.Run(r.Context(), admission.RunParams{
		TenantID:   chi.URLParam(r, "id"),
		AgentID:    req.AgentID,
		CustomerID: middleware.CustomerIDFrom(r.Context()),
		RequestID:  req.RequestID,
		Message:    req.Message,
	})
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, executeRunResponse{
		TenantID:   result.TenantID,
		RequestID:  result.RequestID,
		OutputText: result.Output,
		Model:      result.Model,
		LatencyMS:  result.LatencyMS,
	})
}
