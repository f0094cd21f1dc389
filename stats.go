package httpcache

import "sync/atomic"

// Stats holds the engine's hit/miss/update counters (spec.md §5: "Statistics
// counters (hits, misses, updates) are atomic; no ordering guaranteed
// across counters"). Bound to a single Engine rather than process-global,
// unlike the teacher, which had no equivalent counter at all — this is a
// SPEC_FULL addition required by the spec's concurrency model.
type Stats struct {
	hits    atomic.Uint64
	misses  atomic.Uint64
	updates atomic.Uint64
}

func (s *Stats) recordHit()    { s.hits.Add(1) }
func (s *Stats) recordMiss()   { s.misses.Add(1) }
func (s *Stats) recordUpdate() { s.updates.Add(1) }

// Hits returns the number of requests served as Fresh/FreshEnough without
// revalidation.
func (s *Stats) Hits() uint64 { return s.hits.Load() }

// Misses returns the number of requests with no usable cache entry.
func (s *Stats) Misses() uint64 { return s.misses.Load() }

// Updates returns the number of entries updated via a 304 merge.
func (s *Stats) Updates() uint64 { return s.updates.Load() }
