package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/agentplane/internal/application/provisioning"
	"github.com/rezkam/agentplane/internal/domain"
)

const jobColumns = `job_id, tenant_id, step, COALESCE(idempotency_key, ''), state,
	retries, max_attempts, COALESCE(error, ''), available_at, created_at, updated_at`

// Queue is the Postgres provisioning job store. Claims use FOR UPDATE
// SKIP LOCKED so concurrent workers never hand out the same job twice.
type Queue struct {
	pool *pgxpool.Pool
}

// NewQueue creates a queue on an existing pool.
func NewQueue(pool *pgxpool.Pool) *Queue {
	return &Queue{pool: pool}
}

// Enqueue inserts a queued job. With an idempotency key, a conflicting
// insert returns the existing job instead of creating a second one.
func (q *Queue) Enqueue(ctx context.Context, params provisioning.EnqueueParams) (*domain.ProvisioningJob, error) {
	if params.TenantID == "" || params.Step == "" {
		return nil, fmt.Errorf("%w: tenant_id and step are required", domain.ErrInvalidInput)
	}

	jobID := uuid.NewString()
	var idemKey any
	if params.IdempotencyKey != "" {
		idemKey = params.IdempotencyKey
	}

	row := q.pool.QueryRow(ctx, `
		INSERT INTO provisioning_jobs (job_id, tenant_id, step, idempotency_key, state, max_attempts, available_at)
		VALUES ($1, $2, $3, $4, 'queued', $5, now())
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING `+jobColumns,
		jobID, params.TenantID, params.Step, idemKey, params.MaxAttempts)

	job, err := scanJob(row)
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	// Conflict: hand back the job already holding the key.
	row = q.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM provisioning_jobs WHERE idempotency_key = $1`,
		params.IdempotencyKey)
	job, err = scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing job: %w", err)
	}
	return job, nil
}

// ClaimNext atomically picks the oldest due queued job and marks it
// running. Returns nil when no job is due.
func (q *Queue) ClaimNext(ctx context.Context) (*domain.ProvisioningJob, error) {
	row := q.pool.QueryRow(ctx, `
		WITH next_job AS (
			SELECT job_id FROM provisioning_jobs
			WHERE state = 'queued' AND available_at <= now()
			ORDER BY available_at, created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE provisioning_jobs j
		SET state = 'running', updated_at = now()
		FROM next_job
		WHERE j.job_id = next_job.job_id
		RETURNING `+prefixedJobColumns("j"))

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	return job, nil
}

func (q *Queue) MarkDone(ctx context.Context, jobID string) error {
	tag, err := q.pool.Exec(ctx, `
		UPDATE provisioning_jobs
		SET state = 'done', error = NULL, updated_at = now()
		WHERE job_id = $1 AND state = 'running'`, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job done: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return q.transitionError(ctx, jobID, "done")
	}
	return nil
}

func (q *Queue) MarkRetry(ctx context.Context, jobID, errMsg string, retryIn time.Duration) error {
	if retryIn < 0 {
		retryIn = 0
	}
	tag, err := q.pool.Exec(ctx, `
		UPDATE provisioning_jobs
		SET state = 'queued',
		    retries = retries + 1,
		    error = $2,
		    available_at = now() + $3 * interval '1 second',
		    updated_at = now()
		WHERE job_id = $1 AND state = 'running'`,
		jobID, domain.TruncateJobError(errMsg), retryIn.Seconds())
	if err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return q.transitionError(ctx, jobID, "retry")
	}
	return nil
}

func (q *Queue) MarkDeadLetter(ctx context.Context, jobID, errMsg string) error {
	tag, err := q.pool.Exec(ctx, `
		UPDATE provisioning_jobs
		SET state = 'dead_letter', retries = retries + 1, error = $2, updated_at = now()
		WHERE job_id = $1 AND state IN ('queued', 'running')`,
		jobID, domain.TruncateJobError(errMsg))
	if err != nil {
		return fmt.Errorf("failed to dead-letter job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return q.transitionError(ctx, jobID, "dead_letter")
	}
	return nil
}

func (q *Queue) GetJob(ctx context.Context, jobID string) (*domain.ProvisioningJob, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM provisioning_jobs WHERE job_id = $1`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return job, nil
}

// transitionError distinguishes a missing job from one in the wrong state.
func (q *Queue) transitionError(ctx context.Context, jobID, op string) error {
	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("cannot mark job %s as %s: state is %s", jobID, op, job.State)
}

func scanJob(row pgx.Row) (*domain.ProvisioningJob, error) {
	var job domain.ProvisioningJob
	err := row.Scan(&job.JobID, &job.TenantID, &job.Step, &job.IdempotencyKey, &job.State,
		&job.Retries, &job.MaxAttempts, &job.Error, &job.AvailableAt, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func prefixedJobColumns(alias string) string {
	return alias + `.job_id, ` + alias + `.tenant_id, ` + alias + `.step, COALESCE(` + alias + `.idempotency_key, ''), ` +
		alias + `.state, ` + alias + `.retries, ` + alias + `.max_attempts, COALESCE(` + alias + `.error, ''), ` +
		alias + `.available_at, ` + alias + `.created_at, ` + alias + `.updated_at`
}
