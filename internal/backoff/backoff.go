// Package backoff computes the waits between attempts of a retried task.
//
// Strategies are cheap to build and are meant to be created once per task
// invocation: the decorrelated strategy remembers its previous delay.
package backoff

import (
	"math/rand/v2"
	"time"
)

// maxShift caps the exponent so 1<<attempt never overflows an int64.
const maxShift = 62

// Type selects a backoff algorithm.
type Type int

const (
	// Exponential doubles the delay on every attempt (default).
	Exponential Type = iota
	// Jittered is Exponential with a random +/- factor applied.
	Jittered
	// Decorrelated picks a random delay between the initial delay and
	// three times the previous one.
	Decorrelated
)

func (t Type) String() string {
	switch t {
	case Exponential:
		return "exponential"
	case Jittered:
		return "jittered"
	case Decorrelated:
		return "decorrelated"
	default:
		return "unknown"
	}
}

// Strategy yields the wait before retry number attempt (0 = first retry).
type Strategy interface {
	Next(attempt int) time.Duration
}

// New builds a strategy. jitter only applies to Jittered and is clamped to [0, 1].
func New(t Type, initial, limit time.Duration, jitter float64) Strategy {
	if limit < initial {
		limit = initial
	}

	switch t {
	case Jittered:
		return &jittered{initial: initial, limit: limit, factor: clamp(jitter, 0, 1)}
	case Decorrelated:
		return &decorrelated{initial: initial, limit: limit, prev: initial}
	default:
		return exponential{initial: initial, limit: limit}
	}
}

type exponential struct {
	initial, limit time.Duration
}

func (e exponential) Next(attempt int) time.Duration {
	return exponentialDelay(attempt, e.initial, e.limit)
}

// jittered spreads retries of tasks that failed together so they do not
// hit the remote service in lockstep.
type jittered struct {
	initial, limit time.Duration
	factor         float64
}

func (j *jittered) Next(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	base := exponentialDelay(attempt, j.initial, j.limit)
	multiplier := 1 + (rand.Float64()*2-1)*j.factor // #nosec G404 -- jitter does not need crypto rand
	return clamp(time.Duration(float64(base)*multiplier), 0, j.limit)
}

// decorrelated implements sleep = min(limit, random(initial, prev*3)).
// See "Exponential Backoff And Jitter", AWS Architecture Blog, 2015.
type decorrelated struct {
	initial, limit time.Duration
	prev           time.Duration
}

func (d *decorrelated) Next(attempt int) time.Duration {
	if attempt <= 0 {
		d.prev = d.initial
		return d.initial
	}

	upper := min(d.prev*3, d.limit)
	span := upper - d.initial
	if span <= 0 {
		d.prev = d.initial
		return d.initial
	}

	d.prev = d.initial + time.Duration(rand.Int64N(int64(span))) // #nosec G404
	return d.prev
}

func exponentialDelay(attempt int, initial, limit time.Duration) time.Duration {
	if attempt < 0 {
		return 0
	}
	if attempt >= maxShift {
		return limit
	}

	delay := time.Duration(int64(1)<<uint(attempt)) * initial
	if delay > limit || delay < 0 {
		return limit
	}
	return delay
}

func clamp[N int64 | float64 | time.Duration](v, lo, hi N) N {
	return max(lo, min(v, hi))
}
