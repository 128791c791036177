package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimit_ThrottlesStarts(t *testing.T) {
	// 10 tasks at 20/sec with a burst of 1: nine 50ms gaps after the first.
	p := mustNew(t, 10, WithRateLimit(20, 1))
	var tr concurrencyTracker
	for range 10 {
		_ = p.AddTask(tr.sleepTask(0))
	}

	start := time.Now()
	if err := p.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 400*time.Millisecond {
		t.Errorf("elapsed %v, rate limit not applied", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("elapsed %v, far slower than the configured rate", elapsed)
	}
	if tr.ran.Load() != 10 {
		t.Errorf("ran %d tasks, want 10", tr.ran.Load())
	}
}

func TestRateLimit_InvalidArgumentsIgnored(t *testing.T) {
	for _, tc := range []struct {
		rate  float64
		burst int
	}{{0, 5}, {-1, 5}, {10, 0}} {
		if cfg := createConfig(WithRateLimit(tc.rate, tc.burst)); cfg.rateLimiter != nil {
			t.Errorf("WithRateLimit(%v, %d) should not install a limiter", tc.rate, tc.burst)
		}
	}
}

func TestRateLimit_ContextCancelledWhileWaiting(t *testing.T) {
	p := mustNew(t, 4, WithRateLimit(1, 1))
	for range 4 {
		_ = p.AddTask(func(ctx context.Context) error { return nil })
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// The limiter refuses up front when the wait would outlive the deadline.
	if err := p.RunAll(ctx); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
	st := p.Stats()
	if st.Started == 4 {
		t.Error("expected some tasks to be cut off by the deadline")
	}
	if st.Started+st.Abandoned != st.Submitted {
		t.Errorf("tasks unaccounted for: %+v", st)
	}
}

func TestRateLimit_DeadlineAbandonsQueuedTasks(t *testing.T) {
	for _, fp := range []FailurePolicy{FirstErrorWins, CancelOnError, CollectAll} {
		t.Run(fp.String(), func(t *testing.T) {
			var ended atomic.Int32
			p := mustNew(t, 3,
				WithRateLimit(1, 1),
				WithFailurePolicy(fp),
				WithOnTaskEnd(func(int, error, time.Duration) { ended.Add(1) }),
			)
			for range 3 {
				_ = p.AddTask(func(ctx context.Context) error { return nil })
			}

			// The limiter's 1s interval outlives the deadline.
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()

			err := p.RunAll(ctx)
			if !errors.Is(err, ErrRateLimitExceeded) {
				t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
			}

			st := p.Stats()
			if st.Started+st.Abandoned != 3 {
				t.Errorf("started %d + abandoned %d != 3 submitted", st.Started, st.Abandoned)
			}
			if st.Abandoned < 2 {
				t.Errorf("Abandoned = %d, want at least 2", st.Abandoned)
			}
			if st.Failed != 0 {
				t.Errorf("Failed = %d; limiter refusals are not task failures", st.Failed)
			}
			if int(ended.Load()) != st.Started {
				t.Errorf("OnTaskEnd fired %d times for %d started tasks", ended.Load(), st.Started)
			}
			if p.State() != StateFailed {
				t.Errorf("State = %v, want failed", p.State())
			}
		})
	}
}
