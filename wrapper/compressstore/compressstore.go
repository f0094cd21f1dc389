// Package compressstore wraps a store.Backend with transparent payload
// compression, grounded on the teacher's wrapper/compresscache package
// (compresscache.go/gzip.go/brotli.go/snappy.go), generalized from
// httpcache.Cache to store.Backend and with the per-entry stale-marker
// methods dropped, per the same decision applied to every other backend
// wrapper: freshness/staleness is computed by the engine from Entry
// metadata on every read, never by a backend-side flag.
package compressstore

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/relaycache/httpcache/store"
)

// Algorithm identifies a compression codec. A one-byte marker prefixed to
// every stored value records which Algorithm produced it, so Get can
// decompress correctly even after Set is reconfigured to a different
// algorithm.
type Algorithm int

const (
	Gzip Algorithm = iota
	Brotli
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Stats holds compression statistics accumulated since the Backend was
// created.
type Stats struct {
	CompressedBytes   int64
	UncompressedBytes int64
	CompressedCount   int64
	UncompressedCount int64
	CompressionRatio  float64
	SavingsPercent    float64
}

type compressFunc func([]byte) ([]byte, error)

// Backend wraps an inner store.Backend, compressing values on Set with the
// configured algorithm and transparently decompressing on Get regardless
// of which algorithm produced the stored bytes.
type Backend struct {
	inner     store.Backend
	algorithm Algorithm
	compress  compressFunc

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	uncompressedCount atomic.Int64
}

func newBackend(inner store.Backend, algorithm Algorithm, compress compressFunc) *Backend {
	return &Backend{inner: inner, algorithm: algorithm, compress: compress}
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := b.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(data) < 1 {
		return data, true, nil
	}

	marker := data[0]
	if marker == 0 {
		return data[1:], true, nil
	}

	storedAlgo := Algorithm(marker - 1)
	decompressed, err := decompressByAlgorithm(data[1:], storedAlgo)
	if err != nil {
		return nil, false, fmt.Errorf("compressstore: decompress %s: %w", storedAlgo, err)
	}
	return decompressed, true, nil
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	compressed, err := b.compress(value)
	if err != nil {
		data := make([]byte, len(value)+1)
		data[0] = 0
		copy(data[1:], value)
		b.uncompressedCount.Add(1)
		b.uncompressedBytes.Add(int64(len(value)))
		return b.inner.Set(ctx, key, data)
	}

	data := make([]byte, len(compressed)+1)
	data[0] = byte(b.algorithm + 1)
	copy(data[1:], compressed)

	if err := b.inner.Set(ctx, key, data); err != nil {
		return err
	}
	b.compressedCount.Add(1)
	b.compressedBytes.Add(int64(len(compressed)))
	b.uncompressedBytes.Add(int64(len(value)))
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.inner.Delete(ctx, key)
}

// Stats returns compression statistics accumulated so far.
func (b *Backend) Stats() Stats {
	compressed := b.compressedBytes.Load()
	uncompressed := b.uncompressedBytes.Load()

	var ratio, savings float64
	if uncompressed > 0 {
		ratio = float64(compressed) / float64(uncompressed)
		savings = (1.0 - ratio) * 100
	}

	return Stats{
		CompressedBytes:   compressed,
		UncompressedBytes: uncompressed,
		CompressedCount:   b.compressedCount.Load(),
		UncompressedCount: b.uncompressedCount.Load(),
		CompressionRatio:  ratio,
		SavingsPercent:    savings,
	}
}

func decompressByAlgorithm(data []byte, algorithm Algorithm) ([]byte, error) {
	switch algorithm {
	case Gzip:
		return decompressGzip(data)
	case Brotli:
		return decompressBrotli(data)
	case Snappy:
		return decompressSnappy(data)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm marker: %d", algorithm)
	}
}

var _ store.Backend = (*Backend)(nil)
