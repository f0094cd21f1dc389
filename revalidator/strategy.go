// Package revalidator implements the background revalidation scheduler
// (spec.md component J): coalescing per-entry-key revalidation requests
// onto a bounded worker pool, grounded on the teacher's wrapper/prewarmer
// worker-pool shape (a job channel drained by N goroutines, sync.WaitGroup
// for shutdown) generalized from one-shot prewarm jobs to a long-lived,
// coalescing revalidation queue.
package revalidator

import "time"

// SchedulingStrategy decides the delay before a revalidation attempt,
// keyed by attempt number (0 for the first attempt). Implements spec.md
// §4.J's "pluggable SchedulingStrategy (input: attempt number; output:
// delay)". This is a dedicated interface rather than reuse of failsafe-go's
// retrypolicy: that policy governs retrying a single HTTP call for
// transient transport failures (see resilience.go), while this governs the
// cadence of separate background revalidation attempts for a stale entry.
type SchedulingStrategy interface {
	Schedule(attempt int) time.Duration
}

// ConstantStrategy schedules every attempt after the same fixed delay.
type ConstantStrategy struct {
	Delay time.Duration
}

func (s ConstantStrategy) Schedule(int) time.Duration {
	return s.Delay
}

// ExponentialStrategy doubles the delay on each successive attempt,
// starting at Base and never exceeding Max, mirroring the backoff shape
// resilience.go's RetryPolicyBuilder configures via failsafe-go
// (100ms..10s exponential) but expressed against the spec's own interface.
type ExponentialStrategy struct {
	Base time.Duration
	Max  time.Duration
}

func (s ExponentialStrategy) Schedule(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := s.Base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if s.Max > 0 && delay >= s.Max {
			return s.Max
		}
	}
	if s.Max > 0 && delay > s.Max {
		delay = s.Max
	}
	return delay
}
