package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowKey struct {
	key    string
	window int64
}

// MemoryLimiter is a process-local fixed-window limiter. Suitable for a
// single instance; use the Redis limiter when running more than one.
type MemoryLimiter struct {
	mu     sync.Mutex
	counts map[windowKey]int
}

// NewMemoryLimiter creates an empty in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{counts: make(map[windowKey]int)}
}

// Allow admits the request if fewer than limit requests were counted for
// the key in the current minute window. Stale windows are dropped as a
// side effect to keep the map bounded.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (bool, error) {
	w := window(now)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k := range l.counts {
		if k.window < w {
			delete(l.counts, k)
		}
	}

	wk := windowKey{key: key, window: w}
	if l.counts[wk] >= limit {
		return false, nil
	}
	l.counts[wk]++
	return true, nil
}
