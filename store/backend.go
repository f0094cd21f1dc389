package store

import "context"

// Backend is the minimal byte-oriented storage primitive a concrete cache
// package implements — the same shape as the teacher's httpcache.Cache
// interface. KeyedStore turns any Backend into a full Store, so adding a
// new storage technology only requires implementing these three methods.
type Backend interface {
	// Get returns the stored bytes for key. Returns (nil, false, nil) if
	// the key doesn't exist, and (nil, false, err) on a backend failure.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value against key, overwriting any existing value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
