// Package prometheus implements metrics.Collector on top of
// client_golang, grounded on the teacher's wrapper/metrics/prometheus
// package. It is an optional import: nothing in the engine or store
// packages depends on it.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/relaycache/httpcache/metrics"
)

// Collector implements metrics.Collector with Prometheus counters,
// histograms and gauges.
type Collector struct {
	storeOps        *prometheus.CounterVec
	storeOpDuration *prometheus.HistogramVec
	storeSize       *prometheus.GaugeVec
	storeEntries    *prometheus.GaugeVec
	exchanges       *prometheus.CounterVec
	exchangeLatency *prometheus.HistogramVec
	responseSize    *prometheus.CounterVec
	staleServed     *prometheus.CounterVec
}

// CollectorConfig configures a Collector's registry and metric naming.
type CollectorConfig struct {
	// Registry is the registerer to use. Defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
	// Namespace prefixes every metric name. Defaults to "httpcache".
	Namespace string
	// Subsystem optionally further scopes every metric name.
	Subsystem string
	// ConstLabels are attached to every metric.
	ConstLabels prometheus.Labels
}

// NewCollector returns a Collector registered against the default registry.
func NewCollector() *Collector {
	return NewCollectorWithConfig(CollectorConfig{})
}

// NewCollectorWithRegistry returns a Collector registered against reg.
func NewCollectorWithRegistry(reg prometheus.Registerer) *Collector {
	return NewCollectorWithConfig(CollectorConfig{Registry: reg})
}

// NewCollectorWithConfig returns a Collector built from config, applying
// defaults for any zero-valued field.
func NewCollectorWithConfig(config CollectorConfig) *Collector {
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if config.Namespace == "" {
		config.Namespace = "httpcache"
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		storeOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "store_operations_total",
				Help:        "Total number of store.Backend operations",
				ConstLabels: config.ConstLabels,
			},
			[]string{"operation", "store_backend", "result"},
		),
		storeOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "store_operation_duration_seconds",
				Help:        "Duration of store.Backend operations in seconds",
				Buckets:     []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
				ConstLabels: config.ConstLabels,
			},
			[]string{"operation", "store_backend"},
		),
		storeSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "store_size_bytes",
				Help:        "Current size of a store backend in bytes",
				ConstLabels: config.ConstLabels,
			},
			[]string{"store_backend"},
		),
		storeEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "store_entries_total",
				Help:        "Current number of entries in a store backend",
				ConstLabels: config.ConstLabels,
			},
			[]string{"store_backend"},
		),
		exchanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "exchanges_total",
				Help:        "Total number of engine.Execute exchanges",
				ConstLabels: config.ConstLabels,
			},
			[]string{"method", "cache_response_status", "status_code"},
		),
		exchangeLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "exchange_duration_seconds",
				Help:        "Duration of engine.Execute exchanges in seconds",
				Buckets:     []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30},
				ConstLabels: config.ConstLabels,
			},
			[]string{"method", "cache_response_status"},
		),
		responseSize: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "response_size_bytes_total",
				Help:        "Total size of responses returned to callers",
				ConstLabels: config.ConstLabels,
			},
			[]string{"cache_response_status"},
		),
		staleServed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "stale_served_total",
				Help:        "Total number of stale entries served via stale-if-error or stale-while-revalidate",
				ConstLabels: config.ConstLabels,
			},
			[]string{"reason"},
		),
	}
}

func (c *Collector) RecordStoreOperation(operation, backend, result string, duration time.Duration) {
	c.storeOps.WithLabelValues(operation, backend, result).Inc()
	c.storeOpDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

func (c *Collector) RecordStoreSize(backend string, sizeBytes int64) {
	c.storeSize.WithLabelValues(backend).Set(float64(sizeBytes))
}

func (c *Collector) RecordStoreEntries(backend string, count int64) {
	c.storeEntries.WithLabelValues(backend).Set(float64(count))
}

func (c *Collector) RecordExchange(method, status string, statusCode int, duration time.Duration) {
	c.exchanges.WithLabelValues(method, status, strconv.Itoa(statusCode)).Inc()
	c.exchangeLatency.WithLabelValues(method, status).Observe(duration.Seconds())
}

func (c *Collector) RecordResponseSize(status string, sizeBytes int64) {
	c.responseSize.WithLabelValues(status).Add(float64(sizeBytes))
}

func (c *Collector) RecordStaleServed(reason string) {
	c.staleServed.WithLabelValues(reason).Inc()
}

var _ metrics.Collector = (*Collector)(nil)
