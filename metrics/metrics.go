// Package metrics defines a backend-agnostic interface for observing the
// decision engine: store operations and the cache_response_status the
// engine attaches to an exchange's Scope. Concrete collectors (Prometheus,
// OpenTelemetry, ...) live in their own subpackage so the core engine never
// imports a metrics backend directly.
package metrics

import "time"

// Collector records store-level operations and engine-level exchange
// outcomes. RecordExchange's status parameter carries one of the
// httpcache.ResponseStatus string values (cache_hit, cache_miss,
// validated, cache_module_response, failure) so a collector can distinguish
// them without importing the engine package.
type Collector interface {
	// RecordStoreOperation records a store.Backend call.
	//   operation: "get", "set", or "delete"
	//   backend: backend name (e.g. "memory", "redis", "leveldb")
	//   result: "hit", "miss", "success", or "error"
	RecordStoreOperation(operation, backend, result string, duration time.Duration)

	// RecordStoreSize records the current size of a backend in bytes.
	RecordStoreSize(backend string, sizeBytes int64)

	// RecordStoreEntries records the current number of entries in a backend.
	RecordStoreEntries(backend string, count int64)

	// RecordExchange records one engine.Execute outcome.
	//   method: HTTP method
	//   status: the exchange's cache_response_status attribute
	//   statusCode: the HTTP status code returned to the caller
	RecordExchange(method, status string, statusCode int, duration time.Duration)

	// RecordResponseSize records the size of a response body returned to
	// the caller, keyed by cache_response_status.
	RecordResponseSize(status string, sizeBytes int64)

	// RecordStaleServed records when a stale entry is served in place of a
	// failed revalidation (stale-if-error) or while one runs in the
	// background (stale-while-revalidate).
	//   reason: "stale_if_error" or "stale_while_revalidate"
	RecordStaleServed(reason string)
}

// NoOpCollector implements Collector with no-op operations. It is the
// default collector so callers that never wire metrics pay no overhead.
type NoOpCollector struct{}

func (NoOpCollector) RecordStoreOperation(operation, backend, result string, duration time.Duration) {
}

func (NoOpCollector) RecordStoreSize(backend string, sizeBytes int64)    {}
func (NoOpCollector) RecordStoreEntries(backend string, count int64)    {}
func (NoOpCollector) RecordExchange(method, status string, statusCode int, duration time.Duration) {
}
func (NoOpCollector) RecordResponseSize(status string, sizeBytes int64) {}
func (NoOpCollector) RecordStaleServed(reason string)                   {}

// DefaultCollector is the no-op collector used when nothing else is wired.
var DefaultCollector Collector = NoOpCollector{}

var _ Collector = NoOpCollector{}
