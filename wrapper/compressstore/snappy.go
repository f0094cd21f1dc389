package compressstore

import (
	"fmt"

	"github.com/golang/snappy"

	"github.com/relaycache/httpcache/store"
)

// NewSnappy wraps inner, compressing values with Snappy.
func NewSnappy(inner store.Backend) *Backend {
	return newBackend(inner, Snappy, func(data []byte) ([]byte, error) {
		return snappy.Encode(nil, data), nil
	})
}

func decompressSnappy(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}
	return decompressed, nil
}
