package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/agentplane/internal/domain"
)

func TestAccessCatalog_Agents(t *testing.T) {
	ctx := context.Background()
	c := NewAccessCatalog()

	require.NoError(t, c.UpsertTenantAgent(ctx, domain.TenantAgent{TenantID: "t-1", AgentID: "agent-a", DisplayName: "A", Active: true}))
	require.NoError(t, c.UpsertTenantAgent(ctx, domain.TenantAgent{TenantID: "t-1", AgentID: "agent-b", DisplayName: "B", Active: true}))

	// Upsert replaces.
	require.NoError(t, c.UpsertTenantAgent(ctx, domain.TenantAgent{TenantID: "t-1", AgentID: "agent-a", DisplayName: "A2", Active: false}))

	agent, err := c.GetTenantAgent(ctx, "t-1", "agent-a")
	require.NoError(t, err)
	assert.Equal(t, "A2", agent.DisplayName)
	assert.False(t, agent.Active)

	agents, err := c.ListTenantAgents(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "agent-a", agents[0].AgentID)

	_, err = c.GetTenantAgent(ctx, "t-1", "missing")
	assert.ErrorIs(t, err, domain.ErrAgentNotFound)
}

func TestAccessCatalog_Entitlements(t *testing.T) {
	ctx := context.Background()
	c := NewAccessCatalog()

	grant := domain.CustomerAgentEntitlement{TenantID: "t-1", CustomerID: "cust-1", AgentID: "agent-a"}
	require.NoError(t, c.GrantEntitlement(ctx, grant))
	// Granting twice is a no-op.
	require.NoError(t, c.GrantEntitlement(ctx, grant))

	require.NoError(t, c.GrantEntitlement(ctx, domain.CustomerAgentEntitlement{
		TenantID: "t-1", CustomerID: domain.WildcardCustomer, AgentID: "agent-b",
	}))

	all, err := c.ListEntitlements(ctx, "t-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	forAgent, err := c.ListEntitlementsForAgent(ctx, "t-1", "agent-a")
	require.NoError(t, err)
	require.Len(t, forAgent, 1)
	assert.Equal(t, "cust-1", forAgent[0].CustomerID)

	wildcards, err := c.ListWildcardEntitlements(ctx)
	require.NoError(t, err)
	require.Len(t, wildcards, 1)
	assert.Equal(t, "agent-b", wildcards[0].AgentID)

	require.NoError(t, c.RevokeEntitlement(ctx, "t-1", "cust-1", "agent-a"))
	forAgent, err = c.ListEntitlementsForAgent(ctx, "t-1", "agent-a")
	require.NoError(t, err)
	assert.Empty(t, forAgent)

	// Revoking a missing grant is not an error.
	require.NoError(t, c.RevokeEntitlement(ctx, "t-1", "cust-1", "agent-a"))
}
