package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rezkam/agentplane/internal/domain"
)

// Worker claims provisioning jobs and executes their steps. Steps must be
// idempotent: the queue is at-least-once and a crash between execution and
// MarkDone re-runs the job.
type Worker struct {
	queue              Queue
	tenants            TenantStore
	defaultMaxAttempts int
	retryBase          time.Duration
	pollInterval       time.Duration
}

// Option is a functional option for configuring Worker.
type Option func(*Worker)

// WithDefaultMaxAttempts sets the attempt budget for jobs that carry none.
func WithDefaultMaxAttempts(n int) Option {
	return func(w *Worker) {
		w.defaultMaxAttempts = n
	}
}

// WithRetryBase sets the base of the exponential retry delay.
func WithRetryBase(d time.Duration) Option {
	return func(w *Worker) {
		w.retryBase = d
	}
}

// WithPollInterval sets the idle sleep between claim attempts in Run.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		w.pollInterval = d
	}
}

// NewWorker creates a worker with the given queue and tenant store.
func NewWorker(queue Queue, tenants TenantStore, opts ...Option) *Worker {
	w := &Worker{
		queue:              queue,
		tenants:            tenants,
		defaultMaxAttempts: 3,
		retryBase:          5 * time.Second,
		pollInterval:       2 * time.Second,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ProcessNextJob claims and executes a single job. It returns true only
// when a job ran to completion; an empty queue, a retry, and a
// dead-letter all report false. A step failure is not an error from the
// worker's point of view: the job is retried or dead-lettered and
// processing continues.
func (w *Worker) ProcessNextJob(ctx context.Context) (bool, error) {
	_, done, err := w.processNext(ctx)
	return done, err
}

// processNext is the single-tick algorithm. claimed reports whether a
// job was handed out at all; done reports whether it was marked done.
func (w *Worker) processNext(ctx context.Context) (claimed, done bool, err error) {
	job, err := w.queue.ClaimNext(ctx)
	if err != nil {
		return false, false, fmt.Errorf("failed to claim job: %w", err)
	}
	if job == nil {
		return false, false, nil
	}

	slog.InfoContext(ctx, "claimed provisioning job",
		"job_id", job.JobID,
		"tenant_id", job.TenantID,
		"step", job.Step,
		"retries", job.Retries)

	if err := w.runStep(ctx, job); err != nil {
		return true, false, w.handleFailure(ctx, job, err)
	}

	if err := w.queue.MarkDone(ctx, job.JobID); err != nil {
		return true, false, fmt.Errorf("failed to mark job done: %w", err)
	}

	slog.InfoContext(ctx, "provisioning job done", "job_id", job.JobID, "tenant_id", job.TenantID)
	return true, true, nil
}

// runStep dispatches on the job's step.
func (w *Worker) runStep(ctx context.Context, job *domain.ProvisioningJob) error {
	switch job.Step {
	case domain.StepBootstrap:
		return w.bootstrap(ctx, job)
	default:
		return Permanent(fmt.Errorf("unknown provisioning step %q", job.Step))
	}
}

// bootstrap activates the tenant. Re-activating an already active tenant
// is a no-op, which keeps the step safe to re-run.
func (w *Worker) bootstrap(ctx context.Context, job *domain.ProvisioningJob) error {
	tenant, err := w.tenants.GetTenant(ctx, job.TenantID)
	if errors.Is(err, domain.ErrTenantNotFound) {
		return Permanent(fmt.Errorf("tenant not found"))
	}
	if err != nil {
		return fmt.Errorf("failed to load tenant: %w", err)
	}

	if tenant.Status == domain.TenantStatusActive {
		return nil
	}

	if err := w.tenants.SetTenantStatus(ctx, job.TenantID, domain.TenantStatusActive); err != nil {
		return fmt.Errorf("failed to activate tenant: %w", err)
	}
	return nil
}

// handleFailure retries with exponential backoff or dead-letters the job.
// The delay for the nth failure is retryBase * 2^retries with no jitter.
func (w *Worker) handleFailure(ctx context.Context, job *domain.ProvisioningJob, stepErr error) error {
	errMsg := domain.TruncateJobError(stepErr.Error())

	if IsPermanent(stepErr) {
		slog.WarnContext(ctx, "provisioning job failed permanently",
			"job_id", job.JobID,
			"tenant_id", job.TenantID,
			"error", errMsg)
		if err := w.queue.MarkDeadLetter(ctx, job.JobID, errMsg); err != nil {
			return fmt.Errorf("failed to dead-letter job: %w", err)
		}
		return nil
	}

	budget := job.MaxAttempts
	if w.defaultMaxAttempts > budget {
		budget = w.defaultMaxAttempts
	}
	if budget < 1 {
		budget = 1
	}

	if job.Retries+1 >= budget {
		slog.WarnContext(ctx, "provisioning job exhausted attempts",
			"job_id", job.JobID,
			"tenant_id", job.TenantID,
			"retries", job.Retries,
			"budget", budget,
			"error", errMsg)
		if err := w.queue.MarkDeadLetter(ctx, job.JobID, errMsg); err != nil {
			return fmt.Errorf("failed to dead-letter job: %w", err)
		}
		return nil
	}

	delay := w.retryBase * (1 << job.Retries)
	slog.InfoContext(ctx, "provisioning job scheduled for retry",
		"job_id", job.JobID,
		"tenant_id", job.TenantID,
		"retries", job.Retries+1,
		"delay", delay,
		"error", errMsg)
	if err := w.queue.MarkRetry(ctx, job.JobID, errMsg, delay); err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}
	return nil
}

// Drain processes jobs until none is due. Used by the worker's one-shot
// mode. The count includes jobs that were retried or dead-lettered.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	handled := 0
	for {
		claimed, _, err := w.processNext(ctx)
		if err != nil {
			return handled, err
		}
		if !claimed {
			return handled, nil
		}
		handled++
	}
}

// Run polls for jobs until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "provisioning worker started", "poll_interval", w.pollInterval)

	for {
		claimed, _, err := w.processNext(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to process provisioning job", "error", err)
		}
		if claimed {
			continue
		}

		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "provisioning worker stopped")
			return nil
		case <-time.After(w.pollInterval):
		}
	}
}
