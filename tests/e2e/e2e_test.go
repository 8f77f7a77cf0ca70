// Package e2e exercises the full HTTP surface against the in-memory
// adapters: tenant signup, provisioning, authenticated runs, rate and
// quota gates, and the admin reporting endpoints.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/agentplane/internal/application/access"
	"github.com/rezkam/agentplane/internal/application/admission"
	"github.com/rezkam/agentplane/internal/application/auth"
	"github.com/rezkam/agentplane/internal/application/provisioning"
	"github.com/rezkam/agentplane/internal/application/ratelimit"
	"github.com/rezkam/agentplane/internal/application/tenancy"
	"github.com/rezkam/agentplane/internal/application/usage"
	"github.com/rezkam/agentplane/internal/config"
	"github.com/rezkam/agentplane/internal/infrastructure/gateway"
	apihttp "github.com/rezkam/agentplane/internal/infrastructure/http"
	"github.com/rezkam/agentplane/internal/infrastructure/http/handler"
	mw "github.com/rezkam/agentplane/internal/infrastructure/http/middleware"
	"github.com/rezkam/agentplane/internal/infrastructure/persistence/memory"
)

const adminSecret = "e2e-admin-secret"

// fixedNow keeps every admission decision inside one minute window and
// one calendar month.
var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type env struct {
	router http.Handler
	queue  *memory.Queue
}

type envOpts struct {
	rpm     int
	apiKeys map[string]string
}

func newEnv(t *testing.T, opts envOpts) *env {
	t.Helper()

	if opts.rpm == 0 {
		opts.rpm = 60
	}

	tenants := memory.NewTenantCatalog()
	plans := memory.NewPlanCatalog()
	queue := memory.NewQueue()
	meter := memory.NewMeter()
	accessCatalog := memory.NewAccessCatalog()

	tenancySvc := tenancy.NewService(tenants, plans, queue, 3)
	require.NoError(t, tenancySvc.SeedPlans(t.Context()))

	verifier := auth.NewTokenVerifier(auth.TokenVerifierConfig{SharedSecret: adminSecret})
	// Tenant credentials are exercised only when the test supplies a key
	// map; the other scenarios run the data plane in pass-through so each
	// can focus on its own admission gate.
	var tenantVerifier *auth.TokenVerifier
	if opts.apiKeys != nil {
		tenantVerifier = verifier
	}
	tenantAuth := auth.NewTenantAuthenticator(opts.apiKeys, tenantVerifier, false)
	adminAuth := auth.NewAdminAuthenticator(verifier)

	gw, err := gateway.New(config.Gateway{UseManagedIdentity: true}, false)
	require.NoError(t, err)

	accessSvc := access.NewService(accessCatalog, tenants)
	usageSvc := usage.NewService(meter, tenants, plans, nil)
	admissionSvc := admission.NewService(
		tenants, plans, accessSvc, ratelimit.NewMemoryLimiter(), meter, gw, opts.rpm,
		admission.WithClock(func() time.Time { return fixedNow }),
	)
	worker := provisioning.NewWorker(queue, tenants)

	h := handler.New(tenancySvc, admissionSvc, usageSvc, accessSvc, worker, gw.Mode(), config.Gateway{})
	router := apihttp.NewRouter(h, mw.NewTenantAuth(tenantAuth), mw.NewAdminAuth(adminAuth))

	return &env{router: router, queue: queue}
}

// do issues one request against the router and decodes the JSON reply
// into out when it is non-nil.
func (e *env) do(t *testing.T, method, path string, body any, headers map[string]string, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out),
			"body: %s", rec.Body.String())
	}
	return rec.Code
}

func adminToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(adminSecret))
	require.NoError(t, err)
	return token
}

func platformAdminHeaders(t *testing.T) map[string]string {
	t.Helper()
	return map[string]string{
		"Authorization": "Bearer " + adminToken(t, jwt.MapClaims{
			"sub":   "ops@example.com",
			"roles": []string{"platform_admin"},
		}),
	}
}

func runHeaders(tenantID, apiKey string) map[string]string {
	h := map[string]string{
		"X-Tenant-Id":        tenantID,
		"X-Customer-User-Id": "user-1",
	}
	if apiKey != "" {
		h["X-Api-Key"] = apiKey
	}
	return h
}

type createdTenant struct {
	TenantID          string `json:"tenant_id"`
	Status            string `json:"status"`
	ProvisioningJobID string `json:"provisioning_job_id"`
}

// createActiveTenant signs a tenant up and runs the provisioning tick so
// it is ready for the data plane.
func (e *env) createActiveTenant(t *testing.T, name, plan string) createdTenant {
	t.Helper()

	var created createdTenant
	code := e.do(t, http.MethodPost, "/v1/tenants",
		map[string]string{"name": name, "plan": plan}, nil, &created)
	require.Equal(t, http.StatusCreated, code)

	var tick struct {
		Processed bool `json:"processed"`
	}
	code = e.do(t, http.MethodPost, "/v1/provisioning/jobs/run-next", nil, nil, &tick)
	require.Equal(t, http.StatusOK, code)
	require.True(t, tick.Processed)

	return created
}

func TestHealth(t *testing.T) {
	e := newEnv(t, envOpts{})
	var body map[string]string
	code := e.do(t, http.MethodGet, "/health", nil, nil, &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestTenantLifecycle(t *testing.T) {
	e := newEnv(t, envOpts{})

	var created createdTenant
	code := e.do(t, http.MethodPost, "/v1/tenants",
		map[string]string{"name": "Acme", "plan": "starter"}, nil, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "pending", created.Status)
	assert.NotEmpty(t, created.TenantID)
	assert.NotEmpty(t, created.ProvisioningJobID)

	var tenant struct {
		Status string `json:"status"`
	}
	code = e.do(t, http.MethodGet, "/v1/tenants/"+created.TenantID, nil, nil, &tenant)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pending", tenant.Status)

	var tick struct {
		Processed bool `json:"processed"`
	}
	code = e.do(t, http.MethodPost, "/v1/provisioning/jobs/run-next", nil, nil, &tick)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, tick.Processed)

	code = e.do(t, http.MethodGet, "/v1/tenants/"+created.TenantID, nil, nil, &tenant)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "active", tenant.Status)

	// The bootstrap job is idempotent per tenant: nothing is left to do.
	code = e.do(t, http.MethodPost, "/v1/provisioning/jobs/run-next", nil, nil, &tick)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, tick.Processed)

	var job struct {
		State   string `json:"state"`
		Retries int    `json:"retries"`
	}
	code = e.do(t, http.MethodGet, "/v1/provisioning/jobs/"+created.ProvisioningJobID, nil, nil, &job)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "done", job.State)

	code = e.do(t, http.MethodGet, "/v1/tenants/does-not-exist", nil, nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code = e.do(t, http.MethodPost, "/v1/tenants",
		map[string]string{"name": "NoPlan", "plan": "nonexistent"}, nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRunAuthentication(t *testing.T) {
	// The authenticator reads the key map live, so the key can be bound
	// once the tenant id is known.
	keys := map[string]string{}
	e := newEnv(t, envOpts{apiKeys: keys})
	created := e.createActiveTenant(t, "Acme", "starter")
	keys[created.TenantID] = "secret-key"

	runBody := map[string]string{"agent_id": "support", "user_id": "user-1", "message": "hello"}
	runPath := "/v1/tenants/" + created.TenantID + "/runs"

	// Missing identity headers.
	code := e.do(t, http.MethodPost, runPath, runBody, nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	// Path and header tenant disagree.
	headers := runHeaders("some-other-tenant", "secret-key")
	code = e.do(t, http.MethodPost, runPath, runBody, headers, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// No credentials at all.
	code = e.do(t, http.MethodPost, runPath, runBody, runHeaders(created.TenantID, ""), nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// Wrong key.
	code = e.do(t, http.MethodPost, runPath, runBody, runHeaders(created.TenantID, "wrong"), nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// Correct key.
	var result struct {
		TenantID   string `json:"tenant_id"`
		RequestID  string `json:"request_id"`
		OutputText string `json:"output_text"`
	}
	code = e.do(t, http.MethodPost, runPath, runBody, runHeaders(created.TenantID, "secret-key"), &result)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created.TenantID, result.TenantID)
	assert.NotEmpty(t, result.RequestID)
	assert.Contains(t, result.OutputText, "hello")

	// A wrong key is not terminal when the bearer token vouches for the
	// tenant and the acting customer.
	token := adminToken(t, jwt.MapClaims{"tenant_id": created.TenantID, "sub": "user-1"})
	headers = runHeaders(created.TenantID, "wrong")
	headers["Authorization"] = "Bearer " + token
	code = e.do(t, http.MethodPost, runPath, runBody, headers, nil)
	assert.Equal(t, http.StatusOK, code)

	// The Authorization scheme is matched case-insensitively.
	headers = runHeaders(created.TenantID, "")
	headers["Authorization"] = "bearer " + token
	code = e.do(t, http.MethodPost, runPath, runBody, headers, nil)
	assert.Equal(t, http.StatusOK, code)

	// A token for the right tenant but a different subject than the
	// header customer is rejected.
	other := adminToken(t, jwt.MapClaims{"tenant_id": created.TenantID, "sub": "user-2"})
	headers = runHeaders(created.TenantID, "")
	headers["Authorization"] = "Bearer " + other
	code = e.do(t, http.MethodPost, runPath, runBody, headers, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRunRejectedWhileTenantPending(t *testing.T) {
	e := newEnv(t, envOpts{})

	var created createdTenant
	code := e.do(t, http.MethodPost, "/v1/tenants",
		map[string]string{"name": "Acme", "plan": "starter"}, nil, &created)
	require.Equal(t, http.StatusCreated, code)

	runBody := map[string]string{"agent_id": "support", "user_id": "user-1", "message": "hi"}
	code = e.do(t, http.MethodPost, "/v1/tenants/"+created.TenantID+"/runs",
		runBody, runHeaders(created.TenantID, ""), nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestRunRateLimit(t *testing.T) {
	e := newEnv(t, envOpts{rpm: 2})
	created := e.createActiveTenant(t, "Acme", "starter")

	runBody := map[string]string{"agent_id": "support", "user_id": "user-1", "message": "hi"}
	runPath := "/v1/tenants/" + created.TenantID + "/runs"
	headers := runHeaders(created.TenantID, "")

	for i := 0; i < 2; i++ {
		code := e.do(t, http.MethodPost, runPath, runBody, headers, nil)
		require.Equal(t, http.StatusOK, code, "call %d", i+1)
	}

	req := httptest.NewRequest(http.MethodPost, runPath, jsonBody(t, runBody))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit")
}

func TestRunMonthlyQuota(t *testing.T) {
	e := newEnv(t, envOpts{})

	code := e.do(t, http.MethodPost, "/v1/admin/plans", map[string]any{
		"plan_id":           "tiny",
		"display_name":      "Tiny",
		"monthly_messages":  1,
		"monthly_token_cap": 1_000_000,
		"max_agents":        1,
		"active":            true,
	}, platformAdminHeaders(t), nil)
	require.Equal(t, http.StatusCreated, code)

	created := e.createActiveTenant(t, "Acme", "tiny")

	runBody := map[string]string{"agent_id": "support", "user_id": "user-1", "message": "hi"}
	runPath := "/v1/tenants/" + created.TenantID + "/runs"
	headers := runHeaders(created.TenantID, "")

	code = e.do(t, http.MethodPost, runPath, runBody, headers, nil)
	require.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodPost, runPath, jsonBody(t, runBody))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "quota")
}

func TestDeadLetterOnMissingTenant(t *testing.T) {
	e := newEnv(t, envOpts{})

	job, err := e.queue.Enqueue(t.Context(), provisioning.EnqueueParams{
		TenantID:       "ghost-tenant",
		Step:           "bootstrap",
		IdempotencyKey: "ghost-tenant:bootstrap",
		MaxAttempts:    3,
	})
	require.NoError(t, err)

	var tick struct {
		Processed bool `json:"processed"`
	}
	// The job was claimed but dead-lettered, so the tick reports no
	// completed work.
	code := e.do(t, http.MethodPost, "/v1/provisioning/jobs/run-next", nil, nil, &tick)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, tick.Processed)

	var got struct {
		State   string `json:"state"`
		Retries int    `json:"retries"`
		Error   string `json:"error"`
	}
	code = e.do(t, http.MethodGet, "/v1/provisioning/jobs/"+job.JobID, nil, nil, &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dead_letter", got.State)
	assert.Equal(t, 1, got.Retries)
	assert.Equal(t, "tenant not found", got.Error)
}

func TestEntitlementGating(t *testing.T) {
	e := newEnv(t, envOpts{})
	created := e.createActiveTenant(t, "Acme", "starter")
	admin := platformAdminHeaders(t)
	base := "/v1/admin/tenants/" + created.TenantID

	code := e.do(t, http.MethodPut, base+"/agents", map[string]any{
		"agent_id":     "support",
		"display_name": "Support Agent",
		"active":       true,
	}, admin, nil)
	require.Equal(t, http.StatusOK, code)

	// Grant access only to customer user-2.
	code = e.do(t, http.MethodPost, base+"/entitlements", map[string]string{
		"customer_id": "user-2",
		"agent_id":    "support",
	}, admin, nil)
	require.Equal(t, http.StatusCreated, code)

	runBody := map[string]string{"agent_id": "support", "user_id": "user-1", "message": "hi"}
	runPath := "/v1/tenants/" + created.TenantID + "/runs"

	// user-1 holds no grant once grants exist for the agent.
	code = e.do(t, http.MethodPost, runPath, runBody, runHeaders(created.TenantID, ""), nil)
	assert.Equal(t, http.StatusForbidden, code)

	// The wildcard grant opens the agent to everyone again.
	code = e.do(t, http.MethodPost, base+"/entitlements", map[string]string{
		"customer_id": "*",
		"agent_id":    "support",
	}, admin, nil)
	require.Equal(t, http.StatusCreated, code)

	code = e.do(t, http.MethodPost, runPath, runBody, runHeaders(created.TenantID, ""), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAdminUsageReporting(t *testing.T) {
	e := newEnv(t, envOpts{})
	created := e.createActiveTenant(t, "Acme", "starter")
	admin := platformAdminHeaders(t)

	runBody := map[string]string{"agent_id": "support", "user_id": "user-1", "message": "hello there"}
	code := e.do(t, http.MethodPost, "/v1/tenants/"+created.TenantID+"/runs",
		runBody, runHeaders(created.TenantID, ""), nil)
	require.Equal(t, http.StatusOK, code)

	month := fixedNow.Format("2006-01")

	var summary struct {
		TenantID     string `json:"tenant_id"`
		MessagesUsed int    `json:"messages_used"`
		TokensUsed   int    `json:"tokens_used"`
	}
	code = e.do(t, http.MethodGet,
		fmt.Sprintf("/v1/admin/tenants/%s/usage?month=%s", created.TenantID, month), nil, admin, &summary)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created.TenantID, summary.TenantID)
	assert.Equal(t, 1, summary.MessagesUsed)
	assert.Positive(t, summary.TokensUsed)

	var export struct {
		Month   string `json:"month"`
		Tenants []struct {
			TenantID string `json:"tenant_id"`
		} `json:"tenants"`
	}
	code = e.do(t, http.MethodGet, "/v1/admin/usage/export?month="+month, nil, admin, &export)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, month, export.Month)
	require.Len(t, export.Tenants, 1)
	assert.Equal(t, created.TenantID, export.Tenants[0].TenantID)

	// Malformed month strings are rejected before any aggregation runs.
	code = e.do(t, http.MethodGet,
		fmt.Sprintf("/v1/admin/tenants/%s/usage?month=2026-3", created.TenantID), nil, admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAdminRBAC(t *testing.T) {
	e := newEnv(t, envOpts{})

	// No token.
	code := e.do(t, http.MethodGet, "/v1/admin/plans", nil, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	// Token without the needed scope.
	limited := map[string]string{
		"Authorization": "Bearer " + adminToken(t, jwt.MapClaims{
			"sub":    "viewer@example.com",
			"scopes": []string{"tenant.usage.read"},
		}),
	}
	code = e.do(t, http.MethodGet, "/v1/admin/plans", nil, limited, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// Scoped token.
	scoped := map[string]string{
		"Authorization": "Bearer " + adminToken(t, jwt.MapClaims{
			"sub":    "viewer@example.com",
			"scopes": []string{"plans.read"},
		}),
	}
	var plans []struct {
		PlanID string `json:"plan_id"`
	}
	code = e.do(t, http.MethodGet, "/v1/admin/plans", nil, scoped, &plans)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, plans, 3)

	// Tenant containment on a tenant-scoped route.
	outsider := map[string]string{
		"Authorization": "Bearer " + adminToken(t, jwt.MapClaims{
			"sub":     "other@example.com",
			"scopes":  []string{"tenant.usage.read"},
			"tenants": []string{"some-other-tenant"},
		}),
	}
	created := e.createActiveTenant(t, "Acme", "starter")
	code = e.do(t, http.MethodGet, "/v1/admin/tenants/"+created.TenantID+"/usage", nil, outsider, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func jsonBody(t *testing.T, body any) io.Reader {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(data)
}
