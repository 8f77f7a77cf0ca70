package config

import (
	"fmt"
	"time"
)

// Queue backend selectors.
const (
	QueueBackendDatabase = "database"
	QueueBackendRedis    = "redis"
)

// Provisioning configures the job queue and worker.
type Provisioning struct {
	// QueueBackend selects the queue transport: database (the durable
	// store polled directly) or redis (a Redis bus in front of the
	// durable store).
	QueueBackend  string `env:"PROVISIONING_QUEUE_BACKEND" default:"database"`
	QueueRedisURL string `env:"PROVISIONING_QUEUE_REDIS_URL"`
	QueueName     string `env:"PROVISIONING_QUEUE_NAME" default:"provisioning-jobs"`

	// JobMaxAttempts is the default attempt budget for new jobs.
	JobMaxAttempts int `env:"PROVISIONING_JOB_MAX_ATTEMPTS" default:"3"`

	// RetryBaseSeconds is the base of the exponential retry delay.
	RetryBaseSeconds int `env:"PROVISIONING_RETRY_BASE_SECONDS" default:"5"`

	// WorkerPollSeconds is the idle sleep between claim attempts.
	WorkerPollSeconds int `env:"PROVISIONING_WORKER_POLL_SECONDS" default:"2"`
}

// Validate checks backend-specific requirements.
func (p *Provisioning) Validate() error {
	switch p.QueueBackend {
	case QueueBackendDatabase:
	case QueueBackendRedis:
		if p.QueueRedisURL == "" {
			return fmt.Errorf("PROVISIONING_QUEUE_REDIS_URL is required when PROVISIONING_QUEUE_BACKEND is 'redis'")
		}
	default:
		return fmt.Errorf("unknown PROVISIONING_QUEUE_BACKEND: %s", p.QueueBackend)
	}
	if p.JobMaxAttempts < 1 {
		return fmt.Errorf("PROVISIONING_JOB_MAX_ATTEMPTS must be at least 1")
	}
	if p.RetryBaseSeconds < 0 {
		return fmt.Errorf("PROVISIONING_RETRY_BASE_SECONDS must not be negative")
	}
	return nil
}

// RetryBase returns the retry base as a duration.
func (p *Provisioning) RetryBase() time.Duration {
	return time.Duration(p.RetryBaseSeconds) * time.Second
}

// PollInterval returns the worker poll interval as a duration.
func (p *Provisioning) PollInterval() time.Duration {
	return time.Duration(p.WorkerPollSeconds) * time.Second
}
