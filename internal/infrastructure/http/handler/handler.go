// Package handler binds the control-plane and data-plane services to the
// HTTP surface.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rezkam/agentplane/internal/application/access"
	"github.com/rezkam/agentplane/internal/application/admission"
	"github.com/rezkam/agentplane/internal/application/provisioning"
	"github.com/rezkam/agentplane/internal/application/tenancy"
	"github.com/rezkam/agentplane/internal/application/usage"
	"github.com/rezkam/agentplane/internal/config"
	"github.com/rezkam/agentplane/internal/domain"
)

// Handler holds the services behind the HTTP endpoints.
type Handler struct {
	tenants     *tenancy.Service
	runs        *admission.Service
	usage       *usage.Service
	access      *access.Service
	worker      *provisioning.Worker
	gatewayMode string
	gatewayCfg  config.Gateway
}

// New creates the handler set.
func New(
	tenants *tenancy.Service,
	runs *admission.Service,
	usageSvc *usage.Service,
	accessSvc *access.Service,
	worker *provisioning.Worker,
	gatewayMode string,
	gatewayCfg config.Gateway,
) *Handler {
	return &Handler{
		tenants:     tenants,
		runs:        runs,
		usage:       usageSvc,
		access:      accessSvc,
		worker:      worker,
		gatewayMode: gatewayMode,
		gatewayCfg:  gatewayCfg,
	}
}

// decodeJSON parses the request body into dst, mapping failures to
// ErrInvalidInput so they surface as 400.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body", domain.ErrInvalidInput)
	}
	return nil
}
