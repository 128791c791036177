package pool

import (
	"context"
	"fmt"
)

// RunIndexed runs tasks with at most concurrency in flight and returns their
// results in submission order: results[i] is what tasks[i] produced, however
// the tasks finished relative to each other.
//
// On failure the error follows the pool's FailurePolicy and results holds the
// values of the tasks that did succeed; the other slots are zero.
//
// Example:
//
//	sizes, err := pool.RunIndexed(ctx, pool.DefaultConcurrency, []pool.ValueTask[int64]{
//	    func(ctx context.Context) (int64, error) { return blobSize(ctx, "a") },
//	    func(ctx context.Context) (int64, error) { return blobSize(ctx, "b") },
//	})
func RunIndexed[R any](ctx context.Context, concurrency int, tasks []ValueTask[R], opts ...Option) ([]R, error) {
	p, err := New(concurrency, opts...)
	if err != nil {
		return nil, err
	}

	results := make([]R, len(tasks))
	for i, task := range tasks {
		if task == nil {
			return nil, fmt.Errorf("%w at index %d", ErrNilTask, i)
		}
		// Each slot is written by exactly one task and read only after RunAll
		// has waited for every worker.
		if err := p.AddTask(func(ctx context.Context) error {
			v, err := task(ctx)
			if err != nil {
				return err
			}
			results[i] = v
			return nil
		}); err != nil {
			return nil, err
		}
	}

	return results, p.RunAll(ctx)
}

// RunKeyed is RunIndexed for tasks identified by key rather than position.
// Keys whose task failed or never ran are absent from the result map.
func RunKeyed[K comparable, R any](ctx context.Context, concurrency int, tasks map[K]ValueTask[R], opts ...Option) (map[K]R, error) {
	keys := make([]K, 0, len(tasks))
	ordered := make([]ValueTask[R], 0, len(tasks))
	done := make([]bool, len(tasks))

	for k, task := range tasks {
		if task == nil {
			return nil, fmt.Errorf("%w for key %v", ErrNilTask, k)
		}
		i := len(keys)
		keys = append(keys, k)
		ordered = append(ordered, func(ctx context.Context) (R, error) {
			v, err := task(ctx)
			if err == nil {
				done[i] = true
			}
			return v, err
		})
	}

	values, err := RunIndexed(ctx, concurrency, ordered, opts...)
	if values == nil {
		return nil, err
	}

	results := make(map[K]R, len(keys))
	for i, k := range keys {
		if done[i] {
			results[k] = values[i]
		}
	}
	return results, err
}
