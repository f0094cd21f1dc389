package revalidator

import (
	"log/slog"
	"sync"
	"time"
)

// Thunk performs one revalidation attempt for the entry it was built for,
// reporting whether it succeeded. The caller (the decision engine) closes
// over whatever context, forked Runtime and HTTP exchange the attempt
// needs; the revalidator itself is oblivious to HTTP.
type Thunk func() error

type job struct {
	entryKey string
	attempt  int
	thunk    Thunk
}

// Revalidator implements spec.md §4.J: at most one in-flight revalidation
// per entry key, scheduled onto a bounded worker pool with a pluggable
// backoff between retry attempts. Grounded on the teacher's
// wrapper/prewarmer worker-pool shape (job channel + N goroutine workers +
// sync.WaitGroup), generalized to a long-lived, coalescing queue instead of
// prewarmer's one-shot batch.
type Revalidator struct {
	strategy SchedulingStrategy
	jobs     chan job
	inFlight sync.Map // entryKey string -> struct{}
	wg       sync.WaitGroup

	mu     sync.Mutex
	closed bool

	log *slog.Logger
}

// New starts a Revalidator with workers goroutines draining its job queue,
// scheduling retries per strategy. workers <= 0 is invalid; callers gate
// construction on Config.AsynchronousWorkers > 0 (spec.md §6).
func New(workers int, strategy SchedulingStrategy, log *slog.Logger) *Revalidator {
	if log == nil {
		log = slog.Default()
	}
	r := &Revalidator{
		strategy: strategy,
		jobs:     make(chan job, workers*4),
		log:      log,
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// RevalidateCacheEntry schedules thunk for entryKey unless a revalidation
// for that key is already in flight, in which case the call is a no-op
// (spec.md §4.J: "additional calls while one is pending are dropped").
// Returns immediately; the foreground caller never blocks on revalidation.
func (r *Revalidator) RevalidateCacheEntry(entryKey string, thunk Thunk) {
	if _, alreadyInFlight := r.inFlight.LoadOrStore(entryKey, struct{}{}); alreadyInFlight {
		return
	}
	j := job{entryKey: entryKey, thunk: thunk}
	if delay := r.strategy.Schedule(0); delay > 0 {
		time.AfterFunc(delay, func() {
			if !r.submit(j) {
				r.inFlight.Delete(entryKey)
			}
		})
		return
	}
	if !r.submit(j) {
		r.inFlight.Delete(entryKey)
	}
}

// submit enqueues j, reporting whether it was accepted. Holding r.mu across
// the closed check and the channel send prevents a send on a channel that
// Shutdown has concurrently closed.
func (r *Revalidator) submit(j job) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	select {
	case r.jobs <- j:
		return true
	default:
		r.log.Warn("revalidator queue saturated, dropping background revalidation",
			"entry_key", j.entryKey, "attempt", j.attempt)
		return false
	}
}

func (r *Revalidator) worker() {
	defer r.wg.Done()
	for j := range r.jobs {
		r.run(j)
	}
}

// run executes j.thunk, rescheduling through r.strategy on failure until it
// succeeds or the revalidator is shut down. Failures are logged but never
// surfaced to any caller (spec.md §4.J: "in-flight failures are logged but
// never surface to any caller").
func (r *Revalidator) run(j job) {
	if err := j.thunk(); err != nil {
		r.log.Warn("background revalidation attempt failed",
			"entry_key", j.entryKey, "attempt", j.attempt, "error", err)

		delay := r.strategy.Schedule(j.attempt + 1)
		next := job{entryKey: j.entryKey, attempt: j.attempt + 1, thunk: j.thunk}
		time.AfterFunc(delay, func() {
			if !r.submit(next) {
				r.inFlight.Delete(next.entryKey)
			}
		})
		return
	}
	r.inFlight.Delete(j.entryKey)
}

// Shutdown stops accepting new revalidations and waits for already-queued
// and in-flight jobs to drain, without interrupting work in progress
// (spec.md §4.J: "shutdown drains pending tasks without interrupting
// in-flight").
func (r *Revalidator) Shutdown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	close(r.jobs)
	r.wg.Wait()
}
