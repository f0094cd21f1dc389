// Package freecachestore provides a zero-GC-overhead store.Backend using
// github.com/coocood/freecache, grounded on the teacher's freecache package
// (freecache/freecache.go).
package freecachestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/coocood/freecache"
)

// Backend is a store.Backend backed by an in-process freecache.Cache, which
// evicts the least-recently-used entry once full rather than growing
// unbounded (unlike memstore.Backend).
type Backend struct {
	cache *freecache.Cache
}

// New creates a Backend with the given size in bytes (freecache enforces a
// 512KB floor).
func New(size int) *Backend {
	return &Backend{cache: freecache.NewCache(size)}
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := b.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("freecachestore: get %q: %w", key, err)
	}
	return value, true, nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	if err := b.cache.Set([]byte(key), value, 0); err != nil {
		return fmt.Errorf("freecachestore: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	b.cache.Del([]byte(key))
	return nil
}

// EntryCount returns the number of entries currently cached.
func (b *Backend) EntryCount() int64 {
	return b.cache.EntryCount()
}

// HitRate returns the ratio of hits to total lookups since the backend was
// created or last cleared.
func (b *Backend) HitRate() float64 {
	return b.cache.HitRate()
}

// EvacuateCount returns the number of entries evicted to make room for new
// ones.
func (b *Backend) EvacuateCount() int64 {
	return b.cache.EvacuateCount()
}

// ExpiredCount returns the number of entries removed for having expired.
func (b *Backend) ExpiredCount() int64 {
	return b.cache.ExpiredCount()
}

// Clear removes every entry from the backend.
func (b *Backend) Clear() {
	b.cache.Clear()
}
