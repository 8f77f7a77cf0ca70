package bus

import (
	"context"
	"time"
)

// Bus carries job-ready signals between the API and the workers so that
// workers wake up promptly instead of relying on the database poll alone.
// The job store stays authoritative: a lost or duplicated signal is
// harmless because every claim is re-checked against the store.
type Bus interface {
	// Publish signals that a job is ready to claim.
	Publish(ctx context.Context, jobID string) error
	// PublishDelayed signals that a job becomes ready at the given time.
	PublishDelayed(ctx context.Context, jobID string, at time.Time) error
	// Receive pops the next ready signal. ok is false when none is pending.
	Receive(ctx context.Context) (jobID string, ok bool, err error)
	// Ack removes a received signal from the in-flight set.
	Ack(ctx context.Context, jobID string) error
	// PublishDeadLetter records a job that was moved to the dead letter
	// state, for operational inspection.
	PublishDeadLetter(ctx context.Context, jobID string) error
}
