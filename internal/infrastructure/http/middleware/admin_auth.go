package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rezkam/agentplane/internal/application/auth"
	"github.com/rezkam/agentplane/internal/infrastructure/http/response"
)

const adminIdentityKey contextKey = "admin_identity"

// AdminIdentityFrom returns the verified admin identity, or nil when the
// request did not pass AdminAuth.
func AdminIdentityFrom(ctx context.Context) *auth.AdminIdentity {
	id, _ := ctx.Value(adminIdentityKey).(*auth.AdminIdentity)
	return id
}

// AdminAuth verifies the admin bearer token and stores the identity on the
// request context. Scope and tenant checks happen in the handlers, where
// the required scope is known.
type AdminAuth struct {
	authenticator *auth.AdminAuthenticator
}

// NewAdminAuth creates the admin auth middleware.
func NewAdminAuth(authenticator *auth.AdminAuthenticator) *AdminAuth {
	return &AdminAuth{authenticator: authenticator}
}

// Validate is a chi middleware for /v1/admin routes.
func (a *AdminAuth) Validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.authenticator.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			slog.WarnContext(r.Context(), "admin authentication failed",
				"path", r.URL.Path,
				"method", r.Method)
			response.FromDomainError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), adminIdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
