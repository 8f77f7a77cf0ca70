package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/agentplane/internal/application/admission"
	"github.com/rezkam/agentplane/internal/config"
	"github.com/rezkam/agentplane/internal/domain"
)

func TestNewResolvesManagedIdentity(t *testing.T) {
	g, err := New(config.Gateway{UseManagedIdentity: true}, true)
	require.NoError(t, err)
	assert.Equal(t, ModeManagedIdentity, g.Mode())
}

func TestNewRejectsProductionWithoutManagedIdentity(t *testing.T) {
	_, err := New(config.Gateway{
		UseManagedIdentity:  false,
		AllowAPIKeyFallback: true,
		ProviderAPIKey:      "sk-test",
	}, true)
	require.ErrorIs(t, err, domain.ErrMisconfigured)
}

func TestNewAllowsAPIKeyFallbackOutsideProduction(t *testing.T) {
	g, err := New(config.Gateway{
		UseManagedIdentity:  false,
		AllowAPIKeyFallback: true,
		ProviderAPIKey:      "sk-test",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, ModeAPIKey, g.Mode())
}

func TestNewRejectsFallbackWithoutKey(t *testing.T) {
	_, err := New(config.Gateway{UseManagedIdentity: false, AllowAPIKeyFallback: true}, false)
	require.ErrorIs(t, err, domain.ErrMisconfigured)
}

func TestNewRejectsNoCredentialPath(t *testing.T) {
	_, err := New(config.Gateway{}, false)
	require.ErrorIs(t, err, domain.ErrMisconfigured)
}

func TestExecuteReportsDefaultModel(t *testing.T) {
	g, err := New(config.Gateway{UseManagedIdentity: true}, false)
	require.NoError(t, err)

	resp, err := g.Execute(context.Background(), admission.GatewayRequest{
		TenantID: "t-1",
		AgentID:  "support-bot",
		Message:  "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "provider-default", resp.Model)
	assert.Contains(t, resp.Output, "support-bot")
	assert.Contains(t, resp.Output, "hello")
}
