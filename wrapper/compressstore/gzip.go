package compressstore

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/relaycache/httpcache/store"
)

// NewGzip wraps inner, compressing values with gzip at level (gzip.
// DefaultCompression if zero).
func NewGzip(inner store.Backend, level int) (*Backend, error) {
	if level == 0 {
		level = gzip.DefaultCompression
	}
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("compressstore: invalid gzip level %d", level)
	}

	return newBackend(inner, Gzip, func(data []byte) ([]byte, error) {
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, level)
		if err != nil {
			return nil, fmt.Errorf("gzip writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("gzip write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip close: %w", err)
		}
		return buf.Bytes(), nil
	}), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()

	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return decompressed, nil
}
