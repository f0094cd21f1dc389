// Package metricsstore wraps a store.Backend with metrics.Collector
// instrumentation, grounded on the teacher's wrapper/metrics/prometheus
// InstrumentedCache, generalized from httpcache.Cache to store.Backend so
// any concrete backend (memstore, rediststore, diskstore, ...) can be
// instrumented the same way.
package metricsstore

import (
	"context"
	"time"

	"github.com/relaycache/httpcache/metrics"
	"github.com/relaycache/httpcache/store"
)

const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultSuccess = "success"
	resultError   = "error"
)

// Backend wraps an inner store.Backend, recording a RecordStoreOperation
// call per Get/Set/Delete against collector, labeled with name.
type Backend struct {
	inner     store.Backend
	collector metrics.Collector
	name      string
}

// New wraps inner, labeling every recorded metric with name (e.g. "redis",
// "disk", "postgres"). If collector is nil, metrics.DefaultCollector is
// used, making this a zero-overhead no-op wrapper.
func New(inner store.Backend, name string, collector metrics.Collector) *Backend {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &Backend{inner: inner, collector: collector, name: name}
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := b.inner.Get(ctx, key)
	duration := time.Since(start)

	result := resultMiss
	switch {
	case err != nil:
		result = resultError
	case ok:
		result = resultHit
	}
	b.collector.RecordStoreOperation("get", b.name, result, duration)

	return value, ok, err
}

func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := b.inner.Set(ctx, key, value)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	b.collector.RecordStoreOperation("set", b.name, result, duration)

	return err
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := b.inner.Delete(ctx, key)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	b.collector.RecordStoreOperation("delete", b.name, result, duration)

	return err
}

var _ store.Backend = (*Backend)(nil)
