package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// TaskPool runs a batch of independent tasks with at most a fixed number of
// them in flight. Tasks are queued with AddTask and executed by RunAll; a
// pool runs once.
//
// Example:
//
//	p, _ := pool.New(pool.DefaultConcurrency)
//	for _, name := range accounts {
//	    _ = p.AddTask(func(ctx context.Context) error {
//	        return refresh(ctx, name)
//	    })
//	}
//	if err := p.RunAll(ctx); err != nil {
//	    return err
//	}
type TaskPool struct {
	conf        *poolConfig
	concurrency int
	pending     *taskQueue
	stats       runStats

	mu    sync.Mutex
	state State
}

// New creates an empty pool that runs at most concurrency tasks at a time.
func New(concurrency int, opts ...Option) (*TaskPool, error) {
	if concurrency <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, concurrency)
	}

	return &TaskPool{
		conf:        createConfig(opts...),
		concurrency: concurrency,
		pending:     newTaskQueue(),
	}, nil
}

// AddTask queues task. Tasks are handed to workers in the order they were
// added. Adding once RunAll has been called is a misuse and yields ErrPoolStarted.
func (p *TaskPool) AddTask(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return ErrPoolStarted
	}

	p.pending.push(task)
	p.stats.submitted.Add(1)
	return nil
}

// RunAll executes every queued task and blocks until all worker loops have
// exited. It starts min(concurrency, queued) workers, each of which pulls the
// next task off the queue until it is empty.
//
// The returned error depends on the FailurePolicy. Under the default
// FirstErrorWins it is the first task error, unchanged. Tasks already in
// flight when a failure happens are never interrupted by the pool.
//
// If ctx is cancelled, workers stop taking new tasks and ctx.Err() is
// returned unless a task failure is reported instead.
func (p *TaskPool) RunAll(ctx context.Context) error {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return ErrPoolStarted
	}
	p.state = StateRunning
	p.mu.Unlock()

	queued := p.pending.len()
	workers := min(p.concurrency, queued)
	log := p.conf.logger.With("workers", workers, "tasks", queued, "policy", p.conf.failurePolicy.String())
	log.DebugContext(ctx, "pool run started")

	start := time.Now()
	err := p.run(ctx, workers)

	p.stats.abandoned.Store(int64(p.pending.len()))
	p.finish(err)

	st := p.stats.snapshot()
	log = log.With(
		"elapsed", time.Since(start),
		"succeeded", st.Succeeded,
		"failed", st.Failed,
		"abandoned", st.Abandoned,
		"peak", st.PeakConcurrency,
	)
	if err != nil {
		log.DebugContext(ctx, "pool run failed", "error", err)
	} else {
		log.DebugContext(ctx, "pool run finished")
	}

	return err
}

// State reports where the pool is in its lifecycle.
func (p *TaskPool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Len returns the number of queued tasks that have not started yet.
func (p *TaskPool) Len() int {
	return p.pending.len()
}

// Concurrency returns the pool's in-flight limit.
func (p *TaskPool) Concurrency() int {
	return p.concurrency
}

// Stats returns a snapshot of the pool's counters. It is safe to call while
// the pool is running.
func (p *TaskPool) Stats() Stats {
	return p.stats.snapshot()
}

func (p *TaskPool) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.state = StateFailed
		return
	}
	p.state = StateSucceeded
}

func (p *TaskPool) run(ctx context.Context, workers int) error {
	if workers == 0 {
		return nil
	}

	if p.conf.failurePolicy == FirstErrorWins {
		var g errgroup.Group
		for i := range workers {
			g.Go(func() error {
				return p.worker(ctx, i, nil)
			})
		}
		return g.Wait()
	}

	sink := &errorSink{}
	g, gctx := errgroup.WithContext(ctx)
	for i := range workers {
		g.Go(func() error {
			return p.worker(gctx, i, sink)
		})
	}

	werr := g.Wait()
	serr := sink.err()
	switch {
	case serr == nil:
		return werr
	case errors.Is(werr, ErrRateLimitExceeded):
		return errors.Join(serr, werr)
	default:
		return serr
	}
}
