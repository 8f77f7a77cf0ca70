package domain

import "time"

// Tenant status values. A tenant is created pending and is activated
// exactly once by the provisioning worker.
const (
	TenantStatusPending = "pending"
	TenantStatusActive  = "active"
)

// Provisioning job states. Done and dead_letter are absorbing.
const (
	JobStateQueued     = "queued"
	JobStateRunning    = "running"
	JobStateDone       = "done"
	JobStateDeadLetter = "dead_letter"
)

// StepBootstrap is the only provisioning step currently defined.
const StepBootstrap = "bootstrap"

// WildcardCustomer grants an entitlement to every customer of a tenant.
const WildcardCustomer = "*"

// MaxJobErrorLen bounds the error text persisted on a provisioning job.
const MaxJobErrorLen = 500

// Tenant is a customer account, the unit of isolation and quota.
type Tenant struct {
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Plan      string    `json:"plan"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// PlanLimits are the monthly caps attached to a plan.
type PlanLimits struct {
	MonthlyMessages int `json:"monthly_messages"`
	MonthlyTokenCap int `json:"monthly_token_cap"`
	MaxAgents       int `json:"max_agents"`
}

// Plan is a named bundle of limits referenced by tenants.
type Plan struct {
	PlanID      string     `json:"plan_id"`
	DisplayName string     `json:"display_name"`
	Limits      PlanLimits `json:"limits"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProvisioningJob is one unit of deferred tenant-preparation work.
// IdempotencyKey collapses duplicate enqueues into a single row.
type ProvisioningJob struct {
	JobID          string    `json:"job_id"`
	TenantID       string    `json:"tenant_id"`
	Step           string    `json:"step"`
	IdempotencyKey string    `json:"idempotency_key"`
	State          string    `json:"state"`
	Retries        int       `json:"retries"`
	MaxAttempts    int       `json:"max_attempts"`
	Error          string    `json:"error,omitempty"`
	AvailableAt    time.Time `json:"available_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UsageEvent is one metered agent run. Events are append-only and
// idempotent by RequestID.
type UsageEvent struct {
	RequestID    string    `json:"request_id"`
	TenantID     string    `json:"tenant_id"`
	AgentID      string    `json:"agent_id"`
	Model        string    `json:"model"`
	LatencyMS    int       `json:"latency_ms"`
	TokensIn     int       `json:"tokens_in"`
	TokensOut    int       `json:"tokens_out"`
	CostEstimate float64   `json:"cost_estimate"`
	CreatedAt    time.Time `json:"created_at"`
}

// TenantUsageSummary aggregates one tenant's events over one calendar month.
type TenantUsageSummary struct {
	TenantID     string  `json:"tenant_id"`
	Month        string  `json:"month"`
	MessagesUsed int     `json:"messages_used"`
	TokensUsed   int     `json:"tokens_used"`
	CostEstimate float64 `json:"cost_estimate"`
}

// TenantAgent is an agent deployed for a tenant.
type TenantAgent struct {
	TenantID    string    `json:"tenant_id"`
	AgentID     string    `json:"agent_id"`
	DisplayName string    `json:"display_name"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// CustomerAgentEntitlement grants one customer (or the wildcard customer)
// access to one of the tenant's agents.
type CustomerAgentEntitlement struct {
	TenantID   string    `json:"tenant_id"`
	CustomerID string    `json:"customer_id"`
	AgentID    string    `json:"agent_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// BootstrapIdempotencyKey is the idempotency key used for a tenant's
// bootstrap provisioning job.
func BootstrapIdempotencyKey(tenantID string) string {
	return tenantID + ":bootstrap"
}

// TruncateJobError bounds error text before it is persisted on a job row.
func TruncateJobError(s string) string {
	if len(s) > MaxJobErrorLen {
		return s[:MaxJobErrorLen]
	}
	return s
}
