package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()
	now := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)

	// First two requests admitted, third denied within the same window.
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "t-1:agent-a", 2, now)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}
	ok, err := l.Allow(ctx, "t-1:agent-a", 2, now)
	require.NoError(t, err)
	assert.False(t, ok)

	// The next minute opens a fresh window.
	later := now.Add(time.Minute)
	ok, err = l.Allow(ctx, "t-1:agent-a", 2, later)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter()
	now := time.Now().UTC()

	ok, err := l.Allow(ctx, "t-1:agent-a", 1, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(ctx, "t-1:agent-a", 1, now)
	require.NoError(t, err)
	assert.False(t, ok)

	// Different agent, same tenant: separate counter.
	ok, err = l.Allow(ctx, "t-1:agent-b", 1, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "t-1:agent-a", Key("t-1", "agent-a"))
}
