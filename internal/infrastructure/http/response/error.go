package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rezkam/agentplane/internal/domain"
)

// ErrorResponse is the standard error body: {"detail": "..."}.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Error sends an error response with the given status code.
func Error(w http.ResponseWriter, detail string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Detail: detail}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// BadRequest sends a 400 Bad Request error.
func BadRequest(w http.ResponseWriter, detail string) {
	Error(w, detail, http.StatusBadRequest)
}

// Unauthorized sends a 401 Unauthorized error.
func Unauthorized(w http.ResponseWriter, detail string) {
	Error(w, detail, http.StatusUnauthorized)
}

// Forbidden sends a 403 Forbidden error.
func Forbidden(w http.ResponseWriter, detail string) {
	Error(w, detail, http.StatusForbidden)
}

// NotFound sends a 404 Not Found error.
func NotFound(w http.ResponseWriter, detail string) {
	Error(w, detail, http.StatusNotFound)
}

// Conflict sends a 409 Conflict error.
func Conflict(w http.ResponseWriter, detail string) {
	Error(w, detail, http.StatusConflict)
}

// TooManyRequests sends a 429 error. The detail string distinguishes the
// rate-limit case from the monthly-quota case.
func TooManyRequests(w http.ResponseWriter, detail string) {
	Error(w, detail, http.StatusTooManyRequests)
}

// InternalError sends a 500 with a generic detail. The underlying error is
// logged server-side and never leaks to the client.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		slog.ErrorContext(r.Context(), "internal server error", "error", err)
	}
	Error(w, "an internal error occurred", http.StatusInternalServerError)
}

// FromDomainError maps domain sentinel errors to HTTP responses.
func FromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		Unauthorized(w, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		Forbidden(w, err.Error())
	case errors.Is(err, domain.ErrTenantNotFound),
		errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrAgentNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, domain.ErrTenantNotActive),
		errors.Is(err, domain.ErrPlanNotUsable):
		Conflict(w, err.Error())
	case errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrQuotaExceeded):
		TooManyRequests(w, err.Error())
	case errors.Is(err, domain.ErrMisconfigured):
		InternalError(w, r, err)
	default:
		InternalError(w, r, err)
	}
}
