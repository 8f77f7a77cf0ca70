package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/agentplane/internal/domain"
)

func event(requestID, tenantID string, createdAt time.Time, tokensIn, tokensOut int) domain.UsageEvent {
	return domain.UsageEvent{
		RequestID: requestID,
		TenantID:  tenantID,
		AgentID:   "agent-a",
		Model:     "provider-default",
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		CreatedAt: createdAt,
	}
}

func TestMeter_RecordIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMeter()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	recorded, err := m.RecordUsage(ctx, event("req-1", "t-1", now, 10, 5))
	require.NoError(t, err)
	assert.True(t, recorded)

	// Same request_id again: ignored.
	recorded, err = m.RecordUsage(ctx, event("req-1", "t-1", now, 99, 99))
	require.NoError(t, err)
	assert.False(t, recorded)

	summary, err := m.TenantMonthSummary(ctx, "t-1", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MessagesUsed)
	assert.Equal(t, 15, summary.TokensUsed)
}

func TestMeter_MonthBoundaries(t *testing.T) {
	ctx := context.Background()
	m := NewMeter()

	// Last instant of February and first of March.
	_, err := m.RecordUsage(ctx, event("req-feb", "t-1", time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC), 1, 1))
	require.NoError(t, err)
	_, err = m.RecordUsage(ctx, event("req-mar", "t-1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 2, 2))
	require.NoError(t, err)

	feb, err := m.TenantMonthSummary(ctx, "t-1", "2026-02")
	require.NoError(t, err)
	assert.Equal(t, 1, feb.MessagesUsed)
	assert.Equal(t, 2, feb.TokensUsed)

	mar, err := m.TenantMonthSummary(ctx, "t-1", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, 1, mar.MessagesUsed)
	assert.Equal(t, 4, mar.TokensUsed)
}

func TestMeter_ZeroSummaryForIdleTenant(t *testing.T) {
	m := NewMeter()
	summary, err := m.TenantMonthSummary(context.Background(), "t-quiet", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, "t-quiet", summary.TenantID)
	assert.Equal(t, "2026-03", summary.Month)
	assert.Zero(t, summary.MessagesUsed)
	assert.Zero(t, summary.TokensUsed)
}

func TestMeter_AllTenantsMonthSummary(t *testing.T) {
	ctx := context.Background()
	m := NewMeter()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	_, err := m.RecordUsage(ctx, event("req-1", "t-1", now, 10, 10))
	require.NoError(t, err)
	_, err = m.RecordUsage(ctx, event("req-2", "t-2", now, 5, 5))
	require.NoError(t, err)
	_, err = m.RecordUsage(ctx, event("req-3", "t-2", now, 5, 5))
	require.NoError(t, err)
	// Outside the month: excluded.
	_, err = m.RecordUsage(ctx, event("req-4", "t-3", now.AddDate(0, 1, 0), 1, 1))
	require.NoError(t, err)

	summaries, err := m.AllTenantsMonthSummary(ctx, "2026-03")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "t-1", summaries[0].TenantID)
	assert.Equal(t, 1, summaries[0].MessagesUsed)
	assert.Equal(t, "t-2", summaries[1].TenantID)
	assert.Equal(t, 2, summaries[1].MessagesUsed)
	assert.Equal(t, 20, summaries[1].TokensUsed)
}
