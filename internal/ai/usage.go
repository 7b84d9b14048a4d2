package ai

import (
	"context"
	"fmt"
	"sync"
)

// UsageRecorder accumulates token usage per subject. It only observes;
// nothing is ever refused because of recorded usage.
type UsageRecorder interface {
	Record(ctx context.Context, subject string, tokens int) error
	Usage(ctx context.Context, subject string) (int64, error)
}

// InMemoryUsage keeps usage counters in process memory. Used when no cache
// is configured and in tests.
type InMemoryUsage struct {
	mu    sync.RWMutex
	usage map[string]int64 // subject -> tokens used
}

// NewInMemoryUsage creates an empty in-memory usage recorder.
func NewInMemoryUsage() *InMemoryUsage {
	return &InMemoryUsage{
		usage: make(map[string]int64),
	}
}

func (u *InMemoryUsage) Record(_ context.Context, subject string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage[subject] += int64(tokens)
	return nil
}

func (u *InMemoryUsage) Usage(_ context.Context, subject string) (int64, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.usage[subject], nil
}
