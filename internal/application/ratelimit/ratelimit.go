// Package ratelimit implements a fixed-window per-minute request limiter.
// Windows are aligned to wall-clock minutes, so a burst at a window edge
// can admit up to twice the limit across two adjacent minutes.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether one more request is admitted for a key within
// the current minute window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, now time.Time) (bool, error)
}

// Key builds the limiter key for a tenant/agent pair.
func Key(tenantID, agentID string) string {
	return tenantID + ":" + agentID
}

// window returns the minute bucket for a point in time.
func window(now time.Time) int64 {
	return now.UTC().Unix() / 60
}
