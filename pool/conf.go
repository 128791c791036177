package pool

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Option configures a TaskPool.
type Option func(*poolConfig)

type poolConfig struct {
	failurePolicy   FailurePolicy
	rateLimiter     *rate.Limiter
	logger          *slog.Logger
	beforeTaskStart func(index int)
	onTaskEnd       func(index int, err error, elapsed time.Duration)
	pinWorkers      bool
}

func createConfig(opts ...Option) *poolConfig {
	cfg := &poolConfig{
		failurePolicy: FirstErrorWins,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithFailurePolicy selects how a run reacts to a failing task.
// The default is FirstErrorWins.
func WithFailurePolicy(fp FailurePolicy) Option {
	return func(cfg *poolConfig) {
		cfg.failurePolicy = fp
	}
}

// WithRateLimit caps how fast tasks are started, independently of how many
// may run at once. Non-positive arguments leave the pool unthrottled.
//
// Example:
//
//	WithRateLimit(20, 5) // at most 20 task starts/sec, bursts of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *poolConfig) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithLogger sets the logger used for run lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *poolConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithBeforeTaskStart registers a hook called right before a task runs.
// index is the task's submission position.
func WithBeforeTaskStart(fn func(index int)) Option {
	return func(cfg *poolConfig) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd registers a hook called after every task that ran, with its
// error (nil on success) and how long it took. Hooks are called from worker
// goroutines and must be safe for concurrent use.
func WithOnTaskEnd(fn func(index int, err error, elapsed time.Duration)) Option {
	return func(cfg *poolConfig) {
		cfg.onTaskEnd = fn
	}
}

// WithCPUPinning locks each worker to its own OS thread and, on Linux, pins
// that thread to one CPU. It only pays off for CPU-bound tasks.
func WithCPUPinning() Option {
	return func(cfg *poolConfig) {
		cfg.pinWorkers = true
	}
}
