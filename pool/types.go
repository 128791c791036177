package pool

import (
	"context"
	"errors"
	"fmt"
)

// DefaultConcurrency is the concurrency limit used when callers have no
// better number.
const DefaultConcurrency = 8

var (
	// ErrInvalidConcurrency is returned by New for a non-positive limit.
	ErrInvalidConcurrency = errors.New("concurrency limit must be positive")

	// ErrPoolStarted is returned when tasks are added to, or RunAll is called
	// on, a pool whose run has already begun. A pool runs once.
	ErrPoolStarted = errors.New("pool already started")

	// ErrNilTask is returned when a nil task is submitted.
	ErrNilTask = errors.New("nil task")

	// ErrTaskPanicked wraps the value recovered from a panicking task.
	ErrTaskPanicked = errors.New("task panicked")

	// ErrRateLimitExceeded is returned when the rate limiter cannot admit the
	// next task start before the run context's deadline.
	ErrRateLimitExceeded = errors.New("rate limit wait exceeds deadline")

	// ErrTaskTimeout is the cause reported by tasks wrapped with Timeout.
	ErrTaskTimeout = errors.New("task timed out")
)

// Task is an independent unit of work. It receives the run context, which is
// cancelled when the caller cancels or, under CancelOnError, when a sibling fails.
type Task func(ctx context.Context) error

// ValueTask is a Task that produces a result.
type ValueTask[R any] func(ctx context.Context) (R, error)

// FailurePolicy decides what a run does once a task has failed.
type FailurePolicy int

const (
	// FirstErrorWins stops only the worker whose task failed. The remaining
	// workers keep draining the queue and RunAll reports the first failure;
	// later failures are dropped.
	FirstErrorWins FailurePolicy = iota

	// CancelOnError cancels the run context on the first failure, stops
	// handing out queued tasks and reports every failure observed, joined.
	CancelOnError

	// CollectAll runs every queued task regardless of failures and reports
	// every failure, joined.
	CollectAll
)

func (fp FailurePolicy) String() string {
	switch fp {
	case FirstErrorWins:
		return "first-error"
	case CancelOnError:
		return "cancel"
	case CollectAll:
		return "collect"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(fp))
	}
}

// ParseFailurePolicy is the inverse of FailurePolicy.String.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	for _, fp := range []FailurePolicy{FirstErrorWins, CancelOnError, CollectAll} {
		if fp.String() == s {
			return fp, nil
		}
	}
	return FirstErrorWins, fmt.Errorf("unknown failure policy %q", s)
}

// State is the lifecycle position of a TaskPool.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stats is a snapshot of a pool's counters.
type Stats struct {
	Submitted int
	Started   int
	Succeeded int
	Failed    int
	// Abandoned counts queued tasks that were never started because the run
	// was cut short.
	Abandoned int
	// PeakConcurrency is the largest number of tasks seen in flight at once.
	PeakConcurrency int
}

type queuedTask struct {
	index int
	fn    Task
}
