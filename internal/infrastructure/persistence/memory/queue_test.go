package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/agentplane/internal/application/provisioning"
	"github.com/rezkam/agentplane/internal/domain"
)

func enqueueBootstrap(t *testing.T, q *Queue, tenantID string) *domain.ProvisioningJob {
	t.Helper()
	job, err := q.Enqueue(context.Background(), provisioning.EnqueueParams{
		TenantID:       tenantID,
		Step:           domain.StepBootstrap,
		IdempotencyKey: domain.BootstrapIdempotencyKey(tenantID),
		MaxAttempts:    3,
	})
	require.NoError(t, err)
	return job
}

func TestQueue_EnqueueIdempotent(t *testing.T) {
	q := NewQueue()

	first := enqueueBootstrap(t, q, "t-1")
	second := enqueueBootstrap(t, q, "t-1")
	assert.Equal(t, first.JobID, second.JobID)

	// A different tenant gets its own job.
	other := enqueueBootstrap(t, q, "t-2")
	assert.NotEqual(t, first.JobID, other.JobID)
}

func TestQueue_EnqueueWithoutKeyAlwaysCreates(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	a, err := q.Enqueue(ctx, provisioning.EnqueueParams{TenantID: "t-1", Step: domain.StepBootstrap})
	require.NoError(t, err)
	b, err := q.Enqueue(ctx, provisioning.EnqueueParams{TenantID: "t-1", Step: domain.StepBootstrap})
	require.NoError(t, err)
	assert.NotEqual(t, a.JobID, b.JobID)
}

func TestQueue_ClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	job := enqueueBootstrap(t, q, "t-1")

	claimed, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.JobID, claimed.JobID)
	assert.Equal(t, domain.JobStateRunning, claimed.State)

	// A running job is invisible to other claimers.
	second, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, second)

	require.NoError(t, q.MarkDone(ctx, job.JobID))
	done, err := q.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateDone, done.State)
}

func TestQueue_ClaimOrdering(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	q.SetClock(func() time.Time { return current })

	first := enqueueBootstrap(t, q, "t-1")
	current = base.Add(time.Second)
	second := enqueueBootstrap(t, q, "t-2")

	// Retry pushes the first job behind the second.
	claimed, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	require.Equal(t, first.JobID, claimed.JobID)
	require.NoError(t, q.MarkRetry(ctx, first.JobID, "transient", 30*time.Second))

	claimed, err = q.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, second.JobID, claimed.JobID)
}

func TestQueue_MarkRetrySchedulesBackoff(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	q.SetClock(func() time.Time { return current })

	job := enqueueBootstrap(t, q, "t-1")
	_, err := q.ClaimNext(ctx)
	require.NoError(t, err)

	require.NoError(t, q.MarkRetry(ctx, job.JobID, "boom", 10*time.Second))

	stored, err := q.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateQueued, stored.State)
	assert.Equal(t, 1, stored.Retries)
	assert.Equal(t, "boom", stored.Error)
	assert.Equal(t, base.Add(10*time.Second), stored.AvailableAt)

	// Not due yet.
	claimed, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	// Due after the delay passes.
	current = base.Add(11 * time.Second)
	claimed, err = q.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.JobID, claimed.JobID)
}

func TestQueue_MarkRetryNegativeDelayIsImmediate(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	job := enqueueBootstrap(t, q, "t-1")
	_, err := q.ClaimNext(ctx)
	require.NoError(t, err)

	require.NoError(t, q.MarkRetry(ctx, job.JobID, "boom", -5*time.Second))
	claimed, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
}

func TestQueue_DeadLetterIsTerminal(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	job := enqueueBootstrap(t, q, "t-1")
	_, err := q.ClaimNext(ctx)
	require.NoError(t, err)

	require.NoError(t, q.MarkDeadLetter(ctx, job.JobID, "gave up"))

	stored, err := q.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateDeadLetter, stored.State)
	assert.Equal(t, 1, stored.Retries)
	assert.Equal(t, "gave up", stored.Error)

	// Dead-lettered jobs are never claimed again.
	claimed, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)

	// And cannot be completed.
	assert.Error(t, q.MarkDone(ctx, job.JobID))
}

func TestQueue_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	q := NewQueue()
	job := enqueueBootstrap(t, q, "t-1")

	// Queued, not running: mark operations refuse.
	assert.Error(t, q.MarkDone(ctx, job.JobID))
	assert.Error(t, q.MarkRetry(ctx, job.JobID, "x", time.Second))

	assert.ErrorIs(t, q.MarkDone(ctx, "missing"), domain.ErrJobNotFound)

	_, err := q.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}
