package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/agentplane/internal/application/provisioning"
	"github.com/rezkam/agentplane/internal/domain"
	"github.com/rezkam/agentplane/internal/infrastructure/persistence/memory"
)

func TestNotifyingQueueEnqueuePublishesSignal(t *testing.T) {
	store := memory.NewQueue()
	b := NewMemoryBus()
	q := NewNotifyingQueue(store, b)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, provisioning.EnqueueParams{
		TenantID:       "t-1",
		Step:           domain.StepBootstrap,
		IdempotencyKey: domain.BootstrapIdempotencyKey("t-1"),
		MaxAttempts:    3,
	})
	require.NoError(t, err)

	jobID, ok, err := b.Receive(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, job.JobID, jobID)
}

func TestNotifyingQueueDuplicateEnqueueSignalsOnce(t *testing.T) {
	store := memory.NewQueue()
	b := NewMemoryBus()
	q := NewNotifyingQueue(store, b)
	ctx := context.Background()

	params := provisioning.EnqueueParams{
		TenantID:       "t-1",
		Step:           domain.StepBootstrap,
		IdempotencyKey: domain.BootstrapIdempotencyKey("t-1"),
		MaxAttempts:    3,
	}
	first, err := q.Enqueue(ctx, params)
	require.NoError(t, err)

	// Claim so the stored job is no longer queued; the duplicate enqueue
	// returns the existing job and must not re-signal.
	claimed, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, first.JobID, claimed.JobID)

	dup, err := q.Enqueue(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, first.JobID, dup.JobID)

	_, ok, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNotifyingQueueStoreStaysAuthoritative(t *testing.T) {
	store := memory.NewQueue()
	b := NewMemoryBus()
	q := NewNotifyingQueue(store, b)
	ctx := context.Background()

	// A stray signal with no backing job must not produce a claim.
	require.NoError(t, b.Publish(ctx, "ghost"))

	job, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestNotifyingQueueRetrySchedulesDelayedSignal(t *testing.T) {
	store := memory.NewQueue()
	b := NewMemoryBus()
	q := NewNotifyingQueue(store, b)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, provisioning.EnqueueParams{TenantID: "t-1", Step: domain.StepBootstrap, MaxAttempts: 3})
	require.NoError(t, err)

	claimed, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, q.MarkRetry(ctx, job.JobID, "transient", 10*time.Second))

	stored, err := q.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateQueued, stored.State)
	assert.Equal(t, 1, stored.Retries)

	// Not due yet: no ready signal.
	_, ok, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	b.SetClock(func() time.Time { return time.Now().Add(11 * time.Second) })
	jobID, ok, err := b.Receive(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, job.JobID, jobID)
}

func TestNotifyingQueueDeadLetterRecordsSignal(t *testing.T) {
	store := memory.NewQueue()
	b := NewMemoryBus()
	q := NewNotifyingQueue(store, b)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, provisioning.EnqueueParams{TenantID: "t-1", Step: domain.StepBootstrap, MaxAttempts: 1})
	require.NoError(t, err)

	claimed, err := q.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, q.MarkDeadLetter(ctx, job.JobID, "tenant not found"))
	assert.Equal(t, []string{job.JobID}, b.DeadLetters())
}
