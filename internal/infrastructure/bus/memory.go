package bus

import (
	"context"
	"sync"
	"time"
)

// MemoryBus is an in-process Bus for single-binary deployments and tests.
type MemoryBus struct {
	mu         sync.Mutex
	ready      []string
	delayed    map[string]time.Time
	inFlight   map[string]struct{}
	deadLetter []string
	now        func() time.Time
}

// NewMemoryBus creates an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		delayed:  make(map[string]time.Time),
		inFlight: make(map[string]struct{}),
		now:      time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (b *MemoryBus) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

func (b *MemoryBus) Publish(_ context.Context, jobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ready = append(b.ready, jobID)
	return nil
}

func (b *MemoryBus) PublishDelayed(_ context.Context, jobID string, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delayed[jobID] = at
	return nil
}

func (b *MemoryBus) Receive(_ context.Context) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.promoteDue()
	if len(b.ready) == 0 {
		return "", false, nil
	}
	jobID := b.ready[0]
	b.ready = b.ready[1:]
	b.inFlight[jobID] = struct{}{}
	return jobID, true, nil
}

func (b *MemoryBus) Ack(_ context.Context, jobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inFlight, jobID)
	return nil
}

func (b *MemoryBus) PublishDeadLetter(_ context.Context, jobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deadLetter = append(b.deadLetter, jobID)
	return nil
}

// DeadLetters returns the dead-lettered job IDs seen so far.
func (b *MemoryBus) DeadLetters() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.deadLetter))
	copy(out, b.deadLetter)
	return out
}

// promoteDue moves delayed signals whose time has come onto the ready
// list. Caller holds the lock.
func (b *MemoryBus) promoteDue() {
	now := b.now()
	for jobID, at := range b.delayed {
		if !at.After(now) {
			b.ready = append(b.ready, jobID)
			delete(b.delayed, jobID)
		}
	}
}
