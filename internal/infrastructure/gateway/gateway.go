package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rezkam/agentplane/internal/application/admission"
	"github.com/rezkam/agentplane/internal/config"
	"github.com/rezkam/agentplane/internal/domain"
)

// Credential modes for provider calls.
const (
	ModeManagedIdentity = "managed_identity"
	ModeAPIKey          = "api_key"
)

// DefaultModel is reported until per-agent model routing lands.
const DefaultModel = "provider-default"

// AgentGateway executes admitted runs against the hosted agent provider.
// Credential resolution is strict: managed identity is the default, and
// the API-key fallback must be explicitly allowed and is never accepted
// in production.
type AgentGateway struct {
	mode     string
	clientID string
	apiKey   string
}

// New resolves the credential mode from configuration. It fails rather
// than starting with an ambiguous or production-unsafe credential setup.
func New(cfg config.Gateway, production bool) (*AgentGateway, error) {
	switch {
	case cfg.UseManagedIdentity:
		return &AgentGateway{mode: ModeManagedIdentity, clientID: cfg.ManagedIdentityClientID}, nil
	case production:
		return nil, fmt.Errorf("%w: production requires managed identity for provider calls", domain.ErrMisconfigured)
	case cfg.AllowAPIKeyFallback && cfg.ProviderAPIKey != "":
		return &AgentGateway{mode: ModeAPIKey, apiKey: cfg.ProviderAPIKey}, nil
	case cfg.AllowAPIKeyFallback:
		return nil, fmt.Errorf("%w: API key fallback allowed but AGENT_PROVIDER_API_KEY is not set", domain.ErrMisconfigured)
	default:
		return nil, fmt.Errorf("%w: managed identity disabled and API key fallback not allowed", domain.ErrMisconfigured)
	}
}

// Mode reports the resolved credential mode.
func (g *AgentGateway) Mode() string {
	return g.mode
}

// Execute runs the request against the provider. Provider transport is
// not wired yet; the call is acknowledged with a deterministic response
// so the admission pipeline and metering behave end to end.
func (g *AgentGateway) Execute(ctx context.Context, req admission.GatewayRequest) (*admission.GatewayResponse, error) {
	slog.InfoContext(ctx, "executing agent run",
		"tenant_id", req.TenantID,
		"agent_id", req.AgentID,
		"credential_mode", g.mode,
	)
	return &admission.GatewayResponse{
		Output: fmt.Sprintf("agent %s acknowledged: %s", req.AgentID, req.Message),
		Model:  DefaultModel,
	}, nil
}
