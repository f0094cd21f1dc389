// Package leveldbstore provides a store.Backend backed by
// github.com/syndtr/goleveldb/leveldb, grounded on the teacher's
// leveldbcache package (leveldbcache/leveldbcache.go).
package leveldbstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// Backend is a store.Backend over an embedded LevelDB database.
type Backend struct {
	db *leveldb.DB
}

// New opens (creating if absent) a LevelDB database at path.
func New(path string) (*Backend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbstore: open %q: %w", path, err)
	}
	return &Backend{db: db}, nil
}

// NewWithDB wraps an already-open *leveldb.DB.
func NewWithDB(db *leveldb.DB) *Backend {
	return &Backend{db: db}
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	resp, err := b.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldbstore: get %q: %w", key, err)
	}
	return resp, true, nil
}

func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	if err := b.db.Put([]byte(key), value, nil); err != nil {
		return fmt.Errorf("leveldbstore: set %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	if err := b.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("leveldbstore: delete %q: %w", key, err)
	}
	return nil
}

// Close releases the database's file handles.
func (b *Backend) Close() error {
	return b.db.Close()
}
