package bus

import (
	"context"
	"log/slog"
	"time"

	"github.com/rezkam/agentplane/internal/application/provisioning"
	"github.com/rezkam/agentplane/internal/domain"
)

// NotifyingQueue wraps a durable job store with a Bus so workers learn
// about new and retried jobs without waiting for the next poll. The store
// stays authoritative for every state transition; bus failures are logged
// and never fail the operation.
type NotifyingQueue struct {
	store provisioning.Queue
	bus   Bus
}

// NewNotifyingQueue wraps the store with the bus.
func NewNotifyingQueue(store provisioning.Queue, bus Bus) *NotifyingQueue {
	return &NotifyingQueue{store: store, bus: bus}
}

func (q *NotifyingQueue) Enqueue(ctx context.Context, params provisioning.EnqueueParams) (*domain.ProvisioningJob, error) {
	job, err := q.store.Enqueue(ctx, params)
	if err != nil {
		return nil, err
	}
	if job.State == domain.JobStateQueued {
		if err := q.bus.Publish(ctx, job.JobID); err != nil {
			slog.WarnContext(ctx, "failed to publish job signal", "job_id", job.JobID, "error", err)
		}
	}
	return job, nil
}

// ClaimNext drains any pending signal first, then claims from the store.
// The signal only names a candidate; the store decides which job (if any)
// is actually handed out.
func (q *NotifyingQueue) ClaimNext(ctx context.Context) (*domain.ProvisioningJob, error) {
	jobID, ok, err := q.bus.Receive(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to receive job signal, falling back to store", "error", err)
	} else if ok {
		if err := q.bus.Ack(ctx, jobID); err != nil {
			slog.WarnContext(ctx, "failed to ack job signal", "job_id", jobID, "error", err)
		}
	}
	return q.store.ClaimNext(ctx)
}

func (q *NotifyingQueue) MarkDone(ctx context.Context, jobID string) error {
	return q.store.MarkDone(ctx, jobID)
}

func (q *NotifyingQueue) MarkRetry(ctx context.Context, jobID, errMsg string, retryIn time.Duration) error {
	if err := q.store.MarkRetry(ctx, jobID, errMsg, retryIn); err != nil {
		return err
	}
	if err := q.bus.PublishDelayed(ctx, jobID, time.Now().Add(retryIn)); err != nil {
		slog.WarnContext(ctx, "failed to publish delayed job signal", "job_id", jobID, "error", err)
	}
	return nil
}

func (q *NotifyingQueue) MarkDeadLetter(ctx context.Context, jobID, errMsg string) error {
	if err := q.store.MarkDeadLetter(ctx, jobID, errMsg); err != nil {
		return err
	}
	if err := q.bus.PublishDeadLetter(ctx, jobID); err != nil {
		slog.WarnContext(ctx, "failed to record dead letter signal", "job_id", jobID, "error", err)
	}
	return nil
}

func (q *NotifyingQueue) GetJob(ctx context.Context, jobID string) (*domain.ProvisioningJob, error) {
	return q.store.GetJob(ctx, jobID)
}
