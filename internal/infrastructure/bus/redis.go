package bus

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus is a Bus backed by Redis lists and a sorted set for delayed
// signals. Ready signals live on a list, received signals are moved to a
// processing list until acked, and dead-lettered job IDs accumulate on
// their own list.
type RedisBus struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisBus creates a bus on an existing Redis client. The prefix
// namespaces the bus keys, for example "agentplane:provisioning".
func NewRedisBus(client redis.Cmdable, prefix string) *RedisBus {
	if prefix == "" {
		prefix = "agentplane:provisioning"
	}
	return &RedisBus{client: client, prefix: prefix, now: time.Now}
}

// SetClock overrides the time source, for tests.
func (b *RedisBus) SetClock(now func() time.Time) {
	b.now = now
}

func (b *RedisBus) readyKey() string      { return b.prefix + ":ready" }
func (b *RedisBus) delayedKey() string    { return b.prefix + ":delayed" }
func (b *RedisBus) processingKey() string { return b.prefix + ":processing" }
func (b *RedisBus) deadLetterKey() string { return b.prefix + ":dead" }

func (b *RedisBus) Publish(ctx context.Context, jobID string) error {
	if err := b.client.LPush(ctx, b.readyKey(), jobID).Err(); err != nil {
		return fmt.Errorf("failed to publish job signal: %w", err)
	}
	return nil
}

func (b *RedisBus) PublishDelayed(ctx context.Context, jobID string, at time.Time) error {
	member := redis.Z{Score: float64(at.Unix()), Member: jobID}
	if err := b.client.ZAdd(ctx, b.delayedKey(), member).Err(); err != nil {
		return fmt.Errorf("failed to publish delayed job signal: %w", err)
	}
	return nil
}

func (b *RedisBus) Receive(ctx context.Context) (string, bool, error) {
	if err := b.promoteDue(ctx); err != nil {
		return "", false, err
	}

	jobID, err := b.client.RPopLPush(ctx, b.readyKey(), b.processingKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to receive job signal: %w", err)
	}
	return jobID, true, nil
}

func (b *RedisBus) Ack(ctx context.Context, jobID string) error {
	if err := b.client.LRem(ctx, b.processingKey(), 1, jobID).Err(); err != nil {
		return fmt.Errorf("failed to ack job signal: %w", err)
	}
	return nil
}

func (b *RedisBus) PublishDeadLetter(ctx context.Context, jobID string) error {
	if err := b.client.LPush(ctx, b.deadLetterKey(), jobID).Err(); err != nil {
		return fmt.Errorf("failed to record dead letter: %w", err)
	}
	return nil
}

// promoteDue moves delayed signals whose time has come onto the ready list.
func (b *RedisBus) promoteDue(ctx context.Context) error {
	max := strconv.FormatInt(b.now().Unix(), 10)
	due, err := b.client.ZRangeByScore(ctx, b.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: max,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read delayed signals: %w", err)
	}

	for _, jobID := range due {
		removed, err := b.client.ZRem(ctx, b.delayedKey(), jobID).Result()
		if err != nil {
			return fmt.Errorf("failed to promote delayed signal: %w", err)
		}
		// Another worker may have promoted it between the range and the
		// remove; only the remover pushes.
		if removed == 0 {
			continue
		}
		if err := b.client.LPush(ctx, b.readyKey(), jobID).Err(); err != nil {
			return fmt.Errorf("failed to promote delayed signal: %w", err)
		}
	}
	return nil
}
