// Package diskstore provides a store.Backend backed by github.com/peterbourgon/diskv,
// grounded on the teacher's diskcache package (diskcache/diskcache.go).
package diskstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/peterbourgon/diskv"
)

// Backend is a store.Backend that persists entries as files under a base
// path, via diskv's in-memory-map-plus-disk caching.
type Backend struct {
	d *diskv.Diskv
}

// New returns a Backend that stores files under basePath, with a 100MB
// in-memory cache of recently touched entries (the teacher's default).
func New(basePath string) *Backend {
	return &Backend{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 100 * 1024 * 1024,
		}),
	}
}

// NewWithDiskv wraps an already-configured *diskv.Diskv.
func NewWithDiskv(d *diskv.Diskv) *Backend {
	return &Backend{d: d}
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	resp, err := b.d.Read(keyToFilename(key))
	if err != nil {
		return nil, false, nil
	}
	return resp, true, nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	if err := b.d.WriteStream(keyToFilename(key), bytes.NewReader(value), true); err != nil {
		return fmt.Errorf("diskstore: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	_ = b.d.Erase(keyToFilename(key))
	return nil
}

// keyToFilename hashes key into a filesystem-safe name, since store keys
// may contain characters (e.g. "|", "://") unsuitable for a path segment.
func keyToFilename(key string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}
