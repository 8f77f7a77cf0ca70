package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter shared across instances. Each
// key/window pair is a Redis counter expiring at the end of its minute.
type RedisLimiter struct {
	client    redis.Cmdable
	keyPrefix string
	failOpen  bool
}

// NewRedisLimiter creates a limiter on an existing Redis client. With
// failOpen set, Redis errors admit the request instead of failing it.
func NewRedisLimiter(client redis.Cmdable, keyPrefix string, failOpen bool) *RedisLimiter {
	return &RedisLimiter{client: client, keyPrefix: keyPrefix, failOpen: failOpen}
}

// Allow increments the window counter and admits the request while the
// count is at or under the limit. The first increment sets the key to
// expire at the end of the current minute.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (bool, error) {
	w := window(now)
	fullKey := fmt.Sprintf("%s:%s:%d", l.keyPrefix, key, w)

	count, err := l.client.Incr(ctx, fullKey).Result()
	if err != nil {
		if l.failOpen {
			slog.WarnContext(ctx, "rate limiter backend unavailable, failing open", "key", key, "error", err)
			return true, nil
		}
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	if count == 1 {
		ttl := 60 - now.UTC().Unix()%60
		if ttl <= 0 {
			ttl = 60
		}
		if err := l.client.Expire(ctx, fullKey, time.Duration(ttl)*time.Second).Err(); err != nil {
			slog.WarnContext(ctx, "failed to set rate limit window expiry", "key", key, "error", err)
		}
	}

	return count <= int64(limit), nil
}
