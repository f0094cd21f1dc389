// Package memcachestore provides a store.Backend backed by
// github.com/bradfitz/gomemcache, grounded on the teacher's memcache
// package (memcache/memcache.go).
package memcachestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
)

// Backend is a store.Backend over one or more memcache servers.
type Backend struct {
	client *memcache.Client
}

// New returns a Backend using the given memcache server(s) with equal
// weight, mirroring the teacher's New(server...).
func New(server ...string) *Backend {
	return NewWithClient(memcache.New(server...))
}

// NewWithClient wraps an already-configured *memcache.Client.
func NewWithClient(client *memcache.Client) *Backend {
	return &Backend{client: client}
}

// memcacheKey hashes key into memcache's 250-byte, space-free key space;
// store fingerprint keys routinely contain spaces and URLs far longer than
// that limit.
func memcacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "httpcache:" + hex.EncodeToString(sum[:])
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, err := b.client.Get(memcacheKey(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("memcachestore: get %q: %w", key, err)
	}
	return item.Value, true, nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	item := &memcache.Item{Key: memcacheKey(key), Value: value}
	if err := b.client.Set(item); err != nil {
		return fmt.Errorf("memcachestore: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	if err := b.client.Delete(memcacheKey(key)); err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil
		}
		return fmt.Errorf("memcachestore: delete %q: %w", key, err)
	}
	return nil
}
