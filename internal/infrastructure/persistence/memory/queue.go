package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rezkam/agentplane/internal/application/provisioning"
	"github.com/rezkam/agentplane/internal/domain"
)

// Queue is an in-memory provisioning job store implementing the same
// state machine as the Postgres queue.
type Queue struct {
	mu     sync.Mutex
	jobs   map[string]domain.ProvisioningJob
	byIdem map[string]string // idempotency_key -> job_id
	now    func() time.Time
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		jobs:   make(map[string]domain.ProvisioningJob),
		byIdem: make(map[string]string),
		now:    time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (q *Queue) SetClock(now func() time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.now = now
}

func (q *Queue) Enqueue(_ context.Context, params provisioning.EnqueueParams) (*domain.ProvisioningJob, error) {
	if params.TenantID == "" || params.Step == "" {
		return nil, fmt.Errorf("%w: tenant_id and step are required", domain.ErrInvalidInput)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if params.IdempotencyKey != "" {
		if jobID, ok := q.byIdem[params.IdempotencyKey]; ok {
			job := q.jobs[jobID]
			return &job, nil
		}
	}

	now := q.now().UTC()
	job := domain.ProvisioningJob{
		JobID:          uuid.NewString(),
		TenantID:       params.TenantID,
		Step:           params.Step,
		IdempotencyKey: params.IdempotencyKey,
		State:          domain.JobStateQueued,
		MaxAttempts:    params.MaxAttempts,
		AvailableAt:    now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	q.jobs[job.JobID] = job
	if job.IdempotencyKey != "" {
		q.byIdem[job.IdempotencyKey] = job.JobID
	}
	return &job, nil
}

// ClaimNext picks the due queued job with the earliest available_at
// (created_at breaking ties) and marks it running.
func (q *Queue) ClaimNext(_ context.Context) (*domain.ProvisioningJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now().UTC()
	var due []domain.ProvisioningJob
	for _, job := range q.jobs {
		if job.State == domain.JobStateQueued && !job.AvailableAt.After(now) {
			due = append(due, job)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].AvailableAt.Equal(due[j].AvailableAt) {
			return due[i].AvailableAt.Before(due[j].AvailableAt)
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})

	job := due[0]
	job.State = domain.JobStateRunning
	job.UpdatedAt = now
	q.jobs[job.JobID] = job
	return &job, nil
}

func (q *Queue) MarkDone(_ context.Context, jobID string) error {
	return q.transition(jobID, func(job *domain.ProvisioningJob) error {
		if job.State != domain.JobStateRunning {
			return fmt.Errorf("job %s is %s, not running", jobID, job.State)
		}
		job.State = domain.JobStateDone
		job.Error = ""
		return nil
	})
}

func (q *Queue) MarkRetry(_ context.Context, jobID, errMsg string, retryIn time.Duration) error {
	return q.transition(jobID, func(job *domain.ProvisioningJob) error {
		if job.State != domain.JobStateRunning {
			return fmt.Errorf("job %s is %s, not running", jobID, job.State)
		}
		if retryIn < 0 {
			retryIn = 0
		}
		job.State = domain.JobStateQueued
		job.Retries++
		job.Error = domain.TruncateJobError(errMsg)
		job.AvailableAt = q.now().UTC().Add(retryIn)
		return nil
	})
}

func (q *Queue) MarkDeadLetter(_ context.Context, jobID, errMsg string) error {
	return q.transition(jobID, func(job *domain.ProvisioningJob) error {
		if job.State == domain.JobStateDone || job.State == domain.JobStateDeadLetter {
			return fmt.Errorf("job %s is already %s", jobID, job.State)
		}
		job.State = domain.JobStateDeadLetter
		job.Retries++
		job.Error = domain.TruncateJobError(errMsg)
		return nil
	})
}

func (q *Queue) GetJob(_ context.Context, jobID string) (*domain.ProvisioningJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return &job, nil
}

func (q *Queue) transition(jobID string, mutate func(*domain.ProvisioningJob) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if err := mutate(&job); err != nil {
		return err
	}
	job.UpdatedAt = q.now().UTC()
	q.jobs[jobID] = job
	return nil
}
