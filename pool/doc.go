// Package pool runs batches of independent tasks with a cap on how many are
// in flight at once.
//
// The typical caller fans a remote call out over many resources, for example
// reading the properties of every storage account in a subscription. Running
// those calls one by one is slow; running them all at once invites the
// service to throttle. A TaskPool sits in between.
//
// # Basic Usage
//
//	p, err := pool.New(pool.DefaultConcurrency)
//	if err != nil {
//	    return err
//	}
//	for _, acct := range accounts {
//	    _ = p.AddTask(func(ctx context.Context) error {
//	        return refresh(ctx, acct)
//	    })
//	}
//	err = p.RunAll(ctx)
//
// Tasks are handed to workers first-in first-out, but they complete in
// whatever order their own I/O allows. When results matter, use RunIndexed,
// which keeps results[i] aligned with tasks[i]:
//
//	statuses, err := pool.RunIndexed(ctx, 8, probes)
//
// RunKeyed does the same for a map of tasks.
//
// # Failures
//
// By default (FirstErrorWins) a failing task stops only the worker that ran
// it; the other workers drain the queue and RunAll returns the first error
// unchanged, so errors.Is against a sentinel works. Later errors are dropped.
// WithFailurePolicy selects CancelOnError, which cancels the run context and
// stops handing out work, or CollectAll, which runs everything. Both report
// every failure through errors.Join.
//
// A task that panics is reported as an error wrapping ErrTaskPanicked.
//
// # Retries, Timeouts and Throttling
//
// The pool never retries a task or interrupts one already running. Wrap the
// task instead:
//
//	task := pool.Timeout(pool.Retry(fetch, pool.RetryPolicy{
//	    MaxAttempts: 3,
//	    Backoff:     pool.BackoffJittered,
//	}), 10*time.Second)
//
// WithRateLimit additionally bounds how fast tasks start.
//
// # Configuration Options
//
//   - WithFailurePolicy(fp): FirstErrorWins (default), CancelOnError, CollectAll
//   - WithRateLimit(tasksPerSecond, burst): throttle task starts
//   - WithLogger(logger): slog logger for run lifecycle events (default: discard)
//   - WithBeforeTaskStart(fn), WithOnTaskEnd(fn): per-task hooks
//   - WithCPUPinning(): pin each worker to a CPU core (Linux)
package pool
