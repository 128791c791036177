package pool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// concurrencyTracker records how many instrumented tasks overlap.
type concurrencyTracker struct {
	active atomic.Int32
	peak   atomic.Int32
	ran    atomic.Int32
}

func (c *concurrencyTracker) enter() {
	c.ran.Add(1)
	n := c.active.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func (c *concurrencyTracker) leave() {
	c.active.Add(-1)
}

// sleepTask returns a task that holds a slot for d while tracked.
func (c *concurrencyTracker) sleepTask(d time.Duration) Task {
	return func(ctx context.Context) error {
		c.enter()
		defer c.leave()
		time.Sleep(d)
		return nil
	}
}

// delayed returns a ValueTask yielding v after d.
func delayed[R any](v R, d time.Duration) ValueTask[R] {
	return func(ctx context.Context) (R, error) {
		time.Sleep(d)
		return v, nil
	}
}

// waitOrCancel blocks for d or until ctx is done.
func waitOrCancel(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func mustNew(t testing.TB, concurrency int, opts ...Option) *TaskPool {
	t.Helper()
	p, err := New(concurrency, opts...)
	if err != nil {
		t.Fatalf("New(%d): %v", concurrency, err)
	}
	return p
}
