package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const usageKeyPrefix = "tutor:usage:"

// UsageCounter keeps per-subject token counters in Redis so they survive
// restarts and are shared between replicas. It satisfies ai.UsageRecorder.
type UsageCounter struct {
	client *redis.Client
}

// NewUsageCounter creates a usage counter on the cache client.
func (c *Cache) NewUsageCounter() *UsageCounter {
	return &UsageCounter{client: c.Client}
}

func (u *UsageCounter) Record(ctx context.Context, subject string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	if tokens == 0 {
		return nil
	}
	if err := u.client.IncrBy(ctx, usageKeyPrefix+subject, int64(tokens)).Err(); err != nil {
		return fmt.Errorf("incrementing usage: %w", err)
	}
	return nil
}

func (u *UsageCounter) Usage(ctx context.Context, subject string) (int64, error) {
	n, err := u.client.Get(ctx, usageKeyPrefix+subject).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading usage: %w", err)
	}
	return n, nil
}
