package provisioning

import (
	"context"
	"time"

	"github.com/rezkam/agentplane/internal/domain"
)

// EnqueueParams describes a job to enqueue. An empty IdempotencyKey
// disables deduplication.
type EnqueueParams struct {
	TenantID       string
	Step           string
	IdempotencyKey string
	MaxAttempts    int
}

// Queue is the durable at-least-once provisioning job store.
//
// Enqueue is idempotent: a second call with the same idempotency key
// returns the existing job. ClaimNext returns nil when no job is due;
// a claimed job is invisible to other workers until released by one of
// the Mark methods.
type Queue interface {
	Enqueue(ctx context.Context, params EnqueueParams) (*domain.ProvisioningJob, error)
	ClaimNext(ctx context.Context) (*domain.ProvisioningJob, error)
	MarkDone(ctx context.Context, jobID string) error
	MarkRetry(ctx context.Context, jobID, errMsg string, retryIn time.Duration) error
	MarkDeadLetter(ctx context.Context, jobID, errMsg string) error
	GetJob(ctx context.Context, jobID string) (*domain.ProvisioningJob, error)
}

// TenantStore is the slice of the tenant catalog the worker needs.
type TenantStore interface {
	GetTenant(ctx context.Context, tenantID string) (*domain.Tenant, error)
	SetTenantStatus(ctx context.Context, tenantID, status string) error
}
