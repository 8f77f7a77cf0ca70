package usage_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/agentplane/internal/application/usage"
	"github.com/rezkam/agentplane/internal/domain"
	"github.com/rezkam/agentplane/internal/infrastructure/persistence/memory"
)

type fakeArchive struct {
	saved map[string][]byte
}

func (f *fakeArchive) Save(_ context.Context, name string, data []byte) error {
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	f.saved[name] = data
	return nil
}

type usageEnv struct {
	svc     *usage.Service
	meter   *memory.Meter
	archive *fakeArchive
}

func newUsageEnv(t *testing.T) *usageEnv {
	t.Helper()
	ctx := t.Context()

	tenants := memory.NewTenantCatalog()
	plans := memory.NewPlanCatalog()
	require.NoError(t, plans.UpsertPlan(ctx, domain.Plan{
		PlanID:      "starter",
		DisplayName: "Starter",
		Limits:      domain.PlanLimits{MonthlyMessages: 5000, MonthlyTokenCap: 2_000_000, MaxAgents: 3},
		Active:      true,
	}))
	require.NoError(t, tenants.CreateTenant(ctx, domain.Tenant{
		TenantID:  "t-1",
		Name:      "Acme",
		Plan:      "starter",
		Status:    domain.TenantStatusActive,
		CreatedAt: time.Now().UTC(),
	}))

	meter := memory.NewMeter()
	archive := &fakeArchive{}
	return &usageEnv{
		svc:     usage.NewService(meter, tenants, plans, archive),
		meter:   meter,
		archive: archive,
	}
}

func (e *usageEnv) record(t *testing.T, requestID, tenantID string, at time.Time, tokensIn, tokensOut int) {
	t.Helper()
	recorded, err := e.meter.RecordUsage(t.Context(), domain.UsageEvent{
		RequestID: requestID,
		TenantID:  tenantID,
		AgentID:   "support-bot",
		Model:     "sim-small",
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		CreatedAt: at,
	})
	require.NoError(t, err)
	require.True(t, recorded)
}

func TestTenantMonthSummary(t *testing.T) {
	ctx := t.Context()
	env := newUsageEnv(t)

	march := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	env.record(t, "r-1", "t-1", march, 10, 20)
	env.record(t, "r-2", "t-1", march.Add(time.Hour), 5, 5)
	// Events outside the month must not count.
	env.record(t, "r-3", "t-1", march.AddDate(0, 1, 0), 100, 100)

	summary, err := env.svc.TenantMonthSummary(ctx, "t-1", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.MessagesUsed)
	assert.Equal(t, 40, summary.TokensUsed)

	_, err = env.svc.TenantMonthSummary(ctx, "t-1", "march")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.svc.TenantMonthSummary(ctx, "no-such-tenant", "2026-03")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestBillingRecord(t *testing.T) {
	ctx := t.Context()
	env := newUsageEnv(t)

	march := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	env.record(t, "r-1", "t-1", march, 10, 20)

	record, err := env.svc.BillingRecord(ctx, "t-1", "2026-03")
	require.NoError(t, err)
	assert.Equal(t, "starter", record.Plan)
	assert.Equal(t, 1, record.MessagesUsed)
	assert.Equal(t, 30, record.TokensUsed)
	assert.Equal(t, 5000, record.Limits.MonthlyMessages)
}

func TestMonthExport_Archive(t *testing.T) {
	ctx := t.Context()
	env := newUsageEnv(t)

	march := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	env.record(t, "r-1", "t-1", march, 10, 20)

	export, err := env.svc.MonthExport(ctx, "2026-03", true)
	require.NoError(t, err)
	require.Len(t, export.Tenants, 1)
	assert.Equal(t, "t-1", export.Tenants[0].TenantID)

	data, ok := env.archive.saved["usage-export-2026-03.json"]
	require.True(t, ok, "export object should be archived")

	var stored usage.Export
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "2026-03", stored.Month)
	assert.Len(t, stored.Tenants, 1)
}

func TestMonthExport_NoArchiveConfigured(t *testing.T) {
	ctx := t.Context()
	env := newUsageEnv(t)
	env.svc = usage.NewService(env.meter, memory.NewTenantCatalog(), memory.NewPlanCatalog(), nil)

	_, err := env.svc.MonthExport(ctx, "2026-03", true)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Without archiving the export still works with no store configured.
	export, err := env.svc.MonthExport(ctx, "2026-03", false)
	require.NoError(t, err)
	assert.Equal(t, "2026-03", export.Month)
}
