// Package multistore provides a multi-tiered store.Backend implementation
// that cascades through multiple backends with automatic fallback and
// promotion. Grounded on the teacher's wrapper/multicache package,
// generalized from httpcache.Cache to store.Backend.
package multistore

import (
	"context"

	"github.com/relaycache/httpcache/store"
)

// Backend implements a multi-tiered store.Backend where tiers are ordered
// from fastest/smallest (first) to slowest/largest (last). On reads, it
// searches each tier in order and promotes found values to faster tiers.
// On writes, it stores to all tiers. This lets hot entries migrate to
// faster tiers while persistence stays with the slower ones.
//
// Example use case:
//   - Tier 1: in-memory (store/memstore) - fast, small, volatile
//   - Tier 2: Redis (store/rediststore) - medium speed, larger, persistent
//   - Tier 3: PostgreSQL (store/postgresstore) - slower, largest, durable
type Backend struct {
	tiers []store.Backend
}

// New creates a Backend with the given tiers, ordered from
// fastest/smallest to slowest/largest. At least one tier is required, and
// all tiers must be non-nil and unique.
//
// Returns nil if no tiers are given, any tier is nil, or a tier is
// duplicated.
func New(tiers ...store.Backend) *Backend {
	if len(tiers) == 0 {
		return nil
	}

	seen := make(map[store.Backend]bool)
	for _, tier := range tiers {
		if tier == nil {
			return nil
		}
		if seen[tier] {
			return nil
		}
		seen[tier] = true
	}

	return &Backend{tiers: tiers}
}

// Get returns the value for key, searching each tier in order starting
// with the fastest. When found in a slower tier, the value is promoted
// (written) to all faster tiers for subsequent quick access.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	for i, tier := range b.tiers {
		value, ok, err := tier.Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			_ = b.promoteToFasterTiers(ctx, key, value, i) //nolint:errcheck // promotion is best-effort
			return value, true, nil
		}
	}

	return nil, false, nil
}

// Set stores value in every tier.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	for _, tier := range b.tiers {
		if err := tier.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes key from every tier.
func (b *Backend) Delete(ctx context.Context, key string) error {
	for _, tier := range b.tiers {
		if err := tier.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// promoteToFasterTiers writes value to every tier faster than the one it
// was found in.
func (b *Backend) promoteToFasterTiers(ctx context.Context, key string, value []byte, foundAtTier int) error {
	for i := 0; i < foundAtTier; i++ {
		if err := b.tiers[i].Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

var _ store.Backend = (*Backend)(nil)
