package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/utkarsh5026/taskpool/internal/cpu"
)

// worker pulls tasks until the queue is empty or ctx is done.
//
// With a nil sink (FirstErrorWins) a failing task ends this worker and its
// error is returned. With a sink, failures are recorded there; under
// CancelOnError the worker then returns so the errgroup cancels its siblings,
// under CollectAll it keeps going.
func (p *TaskPool) worker(ctx context.Context, workerID int, sink *errorSink) error {
	if p.conf.pinWorkers {
		release, err := cpu.Pin(workerID)
		if err != nil {
			p.conf.logger.WarnContext(ctx, "cpu pinning failed", "worker", workerID, "error", err)
		} else {
			defer release()
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if p.pending.len() == 0 {
			return nil
		}
		// A refused wait ends the run like a cancelled context; the task
		// stays queued and is counted as abandoned.
		if err := p.waitForStart(ctx); err != nil {
			return err
		}

		t, ok := p.pending.pop()
		if !ok {
			return nil
		}

		err := p.execute(ctx, t)
		if err == nil {
			continue
		}

		p.conf.logger.DebugContext(ctx, "task failed", "worker", workerID, "task", t.index, "error", err)

		if sink == nil {
			return err
		}
		sink.add(err)
		if p.conf.failurePolicy == CancelOnError {
			return err
		}
	}
}

// waitForStart blocks until the rate limiter admits another task start.
func (p *TaskPool) waitForStart(ctx context.Context) error {
	lim := p.conf.rateLimiter
	if lim == nil {
		return nil
	}
	if err := lim.Wait(ctx); err != nil {
		// The limiter's error does not wrap the context's.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrRateLimitExceeded, err)
	}
	return nil
}

// execute runs one task with hooks and panic recovery.
func (p *TaskPool) execute(ctx context.Context, t queuedTask) error {
	if p.conf.beforeTaskStart != nil {
		p.conf.beforeTaskStart(t.index)
	}

	p.stats.begin()
	start := time.Now()
	_, err := callSafely(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.fn(ctx)
	})
	elapsed := time.Since(start)
	p.stats.end(err)

	if p.conf.onTaskEnd != nil {
		p.conf.onTaskEnd(t.index, err, elapsed)
	}
	return err
}

// callSafely runs fn, turning a panic into an error wrapping ErrTaskPanicked.
func callSafely[R any](ctx context.Context, fn ValueTask[R]) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("%w: %v\nstack trace:\n%s", ErrTaskPanicked, r, buf[:n])
		}
	}()

	return fn(ctx)
}

// errorSink collects task failures in the order they were observed.
type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) add(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

// err returns nil, the single failure unchanged, or all failures joined.
func (s *errorSink) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch len(s.errs) {
	case 0:
		return nil
	case 1:
		return s.errs[0]
	default:
		return errors.Join(s.errs...)
	}
}
