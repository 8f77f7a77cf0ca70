package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/agentplane/internal/application/auth"
	"github.com/rezkam/agentplane/internal/infrastructure/http/response"
)

type contextKey string

const customerIDKey contextKey = "customer_id"

// CustomerIDFrom returns the customer user id extracted by TenantAuth.
func CustomerIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(customerIDKey).(string)
	return id
}

// TenantAuth authenticates data-plane requests against the tenant named in
// the URL path. The X-Tenant-Id header must agree with the path, and the
// X-Customer-User-Id header identifies the acting customer.
type TenantAuth struct {
	authenticator *auth.TenantAuthenticator
}

// NewTenantAuth creates the tenant auth middleware.
func NewTenantAuth(authenticator *auth.TenantAuthenticator) *TenantAuth {
	return &TenantAuth{authenticator: authenticator}
}

// Validate is a chi middleware for routes with an {id} tenant parameter.
func (a *TenantAuth) Validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "id")

		headerTenant := r.Header.Get("X-Tenant-Id")
		if headerTenant == "" {
			response.BadRequest(w, "missing X-Tenant-Id header")
			return
		}
		if headerTenant != tenantID {
			response.Forbidden(w, "X-Tenant-Id header does not match path tenant")
			return
		}

		customerID := r.Header.Get("X-Customer-User-Id")
		if customerID == "" {
			response.BadRequest(w, "missing X-Customer-User-Id header")
			return
		}

		apiKey := r.Header.Get("X-Api-Key")
		bearer := bearerToken(r)

		if err := a.authenticator.Authenticate(r.Context(), tenantID, customerID, apiKey, bearer); err != nil {
			slog.WarnContext(r.Context(), "tenant authentication failed",
				"tenant_id", tenantID,
				"path", r.URL.Path)
			response.FromDomainError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), customerIDKey, customerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from an Authorization: Bearer header.
// The scheme match is case-insensitive.
func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
