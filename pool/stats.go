package pool

import "sync/atomic"

type runStats struct {
	submitted atomic.Int64
	started   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	active    atomic.Int64
	peak      atomic.Int64
	abandoned atomic.Int64
}

func (s *runStats) begin() {
	s.started.Add(1)
	n := s.active.Add(1)
	for {
		cur := s.peak.Load()
		if n <= cur || s.peak.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (s *runStats) end(err error) {
	s.active.Add(-1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	s.succeeded.Add(1)
}

func (s *runStats) snapshot() Stats {
	return Stats{
		Submitted:       int(s.submitted.Load()),
		Started:         int(s.started.Load()),
		Succeeded:       int(s.succeeded.Load()),
		Failed:          int(s.failed.Load()),
		Abandoned:       int(s.abandoned.Load()),
		PeakConcurrency: int(s.peak.Load()),
	}
}
