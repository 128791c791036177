package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/utkarsh5026/taskpool/internal/backoff"
)

// The pool never retries or times out a task itself. The helpers in this
// file wrap a task so it carries that behaviour with it.

// BackoffType selects the delay algorithm between retries.
type BackoffType = backoff.Type

const (
	BackoffExponential  = backoff.Exponential
	BackoffJittered     = backoff.Jittered
	BackoffDecorrelated = backoff.Decorrelated
)

// RetryPolicy describes how Retry re-runs a failing task.
type RetryPolicy struct {
	// MaxAttempts is the total number of runs, including the first.
	// Values below 1 mean a single run.
	MaxAttempts int

	// InitialDelay is the wait before the first retry (default 100ms).
	InitialDelay time.Duration

	// MaxDelay caps any single wait (default 5s).
	MaxDelay time.Duration

	Backoff BackoffType

	// JitterFactor is used by BackoffJittered, in [0, 1]. Zero means the
	// default of 0.1; a negative value disables jitter.
	JitterFactor float64

	// ShouldRetry filters which errors are worth another attempt.
	// nil retries every error.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry with the attempt about to run
	// (2 for the first retry) and the error that caused it.
	OnRetry func(attempt int, err error)
}

func (p RetryPolicy) strategy() backoff.Strategy {
	initial := p.InitialDelay
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	limit := p.MaxDelay
	if limit <= 0 {
		limit = 5 * time.Second
	}
	jitter := p.JitterFactor
	switch {
	case jitter == 0:
		jitter = 0.1
	case jitter < 0:
		jitter = 0
	}
	return backoff.New(p.Backoff, initial, limit, jitter)
}

// Retry wraps task so that it is re-run on failure according to policy.
// Waits between attempts honour ctx.
func Retry[R any](task ValueTask[R], policy RetryPolicy) ValueTask[R] {
	attempts := max(policy.MaxAttempts, 1)

	return func(ctx context.Context) (R, error) {
		delays := policy.strategy()

		var (
			result R
			err    error
		)
		for attempt := range attempts {
			if attempt > 0 {
				if policy.OnRetry != nil {
					policy.OnRetry(attempt+1, err)
				}
				if err := sleep(ctx, delays.Next(attempt-1)); err != nil {
					return result, err
				}
			}

			result, err = task(ctx)
			if err == nil {
				return result, nil
			}
			if policy.ShouldRetry != nil && !policy.ShouldRetry(err) {
				return result, err
			}
		}
		return result, err
	}
}

// Timeout bounds task to d. When d elapses first the wrapper returns
// ErrTaskTimeout without waiting for task, whose context is cancelled so it
// can wind down on its own. A non-positive d returns task unchanged.
func Timeout[R any](task ValueTask[R], d time.Duration) ValueTask[R] {
	if d <= 0 {
		return task
	}

	return func(ctx context.Context) (R, error) {
		ctx, cancel := context.WithTimeoutCause(ctx, d, ErrTaskTimeout)
		defer cancel()

		type outcome struct {
			value R
			err   error
		}
		done := make(chan outcome, 1)
		go func() {
			v, err := callSafely(ctx, task)
			done <- outcome{v, err}
		}()

		select {
		case o := <-done:
			if o.err != nil && errors.Is(context.Cause(ctx), ErrTaskTimeout) {
				return o.value, fmt.Errorf("%w: %w", ErrTaskTimeout, o.err)
			}
			return o.value, o.err
		case <-ctx.Done():
			var zero R
			return zero, context.Cause(ctx)
		}
	}
}

// Discard adapts a ValueTask to a Task, dropping its result.
func Discard[R any](task ValueTask[R]) Task {
	return func(ctx context.Context) error {
		_, err := task(ctx)
		return err
	}
}

// FromCallback adapts an operation that reports completion through a
// callback into a ValueTask. Only the first call to done counts. If ctx ends
// before done is called, ctx's error is returned.
func FromCallback[R any](start func(ctx context.Context, done func(R, error))) ValueTask[R] {
	return func(ctx context.Context) (R, error) {
		type outcome struct {
			value R
			err   error
		}
		ch := make(chan outcome, 1)
		var once sync.Once

		start(ctx, func(v R, err error) {
			once.Do(func() { ch <- outcome{v, err} })
		})

		select {
		case o := <-ch:
			return o.value, o.err
		case <-ctx.Done():
			var zero R
			return zero, ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
