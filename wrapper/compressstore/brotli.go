package compressstore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	"github.com/relaycache/httpcache/store"
)

// NewBrotli wraps inner, compressing values with Brotli at level (0-11,
// defaulting to 6 when zero).
func NewBrotli(inner store.Backend, level int) (*Backend, error) {
	if level == 0 {
		level = 6
	}
	if level < 0 || level > 11 {
		return nil, fmt.Errorf("compressstore: invalid brotli level %d", level)
	}

	return newBackend(inner, Brotli, func(data []byte) ([]byte, error) {
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, level)
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("brotli write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("brotli close: %w", err)
		}
		return buf.Bytes(), nil
	}), nil
}

func decompressBrotli(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("brotli read: %w", err)
	}
	return decompressed, nil
}
