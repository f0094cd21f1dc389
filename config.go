package httpcache

import (
	"net/http"
	"time"
)

// Config holds every tunable of the decision engine. NewEngine applies
// sensible RFC-conformant defaults; Options mutate a Config in place, mirroring
// the teacher's TransportOption pattern but targeting Config instead of a
// Transport struct, since storage, transport and policy are no longer bundled
// into one type.
type Config struct {
	// SharedCache enables shared-cache semantics: s-maxage and the
	// Authorization/private restrictions of RFC 9111 §3.5 and §4.2.1 apply.
	// When false the engine behaves as a private cache. Default: false.
	SharedCache bool

	// MaxObjectSize caps the stored body size in bytes. Zero disables the
	// cap. Oversized responses are still returned to the caller in full,
	// they are simply never written to the store. Default: 0 (unbounded).
	MaxObjectSize int64

	// Heuristic controls the RFC 9111 §4.2.2 heuristic freshness fallback
	// used when a response carries no explicit freshness directive.
	Heuristic HeuristicConfig

	// NeverCacheHTTP10ResponsesWithQuery / NeverCacheHTTP11ResponsesWithQuery
	// block caching of query-string URLs served over the given protocol
	// version, matching legacy shared-cache conservatism some origins rely
	// on. Default: false for both.
	NeverCacheHTTP10ResponsesWithQuery bool
	NeverCacheHTTP11ResponsesWithQuery bool

	// FreshnessCheckEnabled disables the whole freshness computation when
	// false, causing every stored entry to be treated as requiring
	// revalidation. Default: true.
	FreshnessCheckEnabled bool

	// AsynchronousWorkers, when greater than zero, enables the background
	// revalidator (component J) with this many worker goroutines draining
	// its job queue. Zero disables async revalidation: an entry within its
	// stale-while-revalidate window is then revalidated synchronously, with
	// the stale-if-error fallback. Default: 0.
	AsynchronousWorkers int

	// StaleIfErrorEnabled / StaleWhileRevalidateEnabled gate the two
	// extension directives independently of whether the response actually
	// carries them, so an operator can disable the behavior cache-wide.
	// Default: true for both.
	StaleIfErrorEnabled        bool
	StaleWhileRevalidateEnabled bool

	// DefaultStaleIfError is a cache-wide stale-if-error window: on a
	// revalidation error, an entry stale by no more than this may be served
	// even when neither request nor response carries the directive (a bare
	// stale-if-error directive accepts any staleness). DefaultStaleWhileRevalidate
	// is recorded but not consulted; the stale-while-revalidate window comes
	// only from the response's own directive. Default: 0 (no implicit grace
	// window).
	DefaultStaleIfError        time.Duration
	DefaultStaleWhileRevalidate time.Duration

	// CacheKeyHeaders records additional request headers for the cache-key
	// fingerprint (e.g. "Authorization" for per-principal caching),
	// preserved from the teacher's CacheKeyHeaders option. NewEngine does
	// not apply it: the fingerprint is computed by the store, and a
	// store.KeyedStore folds in the headers passed to store.NewKeyedStore.
	CacheKeyHeaders []string

	// DisableWarningHeader suppresses the RFC 7234 §5.5 Warning header
	// (110/111) that would otherwise be attached to stale and
	// revalidation-failed responses, preserved from the teacher.
	DisableWarningHeader bool

	// ShouldCache extends status-code cacheability beyond the RFC 7231
	// §6.1 default-cacheable table, preserved from the teacher's
	// Transport.ShouldCache hook.
	ShouldCache ShouldCacheFunc

	// Resilience configures retry and circuit-breaker policies around
	// downstream Chain calls. Nil disables both.
	Resilience *ResilienceConfig

	// Transport is the downstream round-tripper wrapped by the engine. If
	// nil, http.DefaultTransport is used.
	Transport http.RoundTripper

	// Clock is the time source used throughout the engine. If nil, a
	// real-time Clock is used.
	Clock Clock
}

// defaultConfig returns the RFC-conformant defaults NewEngine starts from.
func defaultConfig() Config {
	return Config{
		SharedCache:                 false,
		Heuristic:                   defaultHeuristicConfig(),
		FreshnessCheckEnabled:       true,
		StaleIfErrorEnabled:         true,
		StaleWhileRevalidateEnabled: true,
	}
}

// Option configures a Config. Use the With* functions to build one.
type Option func(*Config)

// WithSharedCache toggles shared-cache semantics (s-maxage, the
// Authorization/private restrictions of RFC 9111 §3.5/§4.2.1). Default: false.
func WithSharedCache(shared bool) Option {
	return func(c *Config) { c.SharedCache = shared }
}

// WithMaxObjectSize caps the stored body size in bytes; zero disables the
// cap. Default: 0 (unbounded).
func WithMaxObjectSize(bytes int64) Option {
	return func(c *Config) { c.MaxObjectSize = bytes }
}

// WithHeuristicCaching configures the RFC 9111 §4.2.2 heuristic freshness
// fallback. Default: enabled, 0.1 coefficient, 24h cap.
func WithHeuristicCaching(enabled bool, coefficient float64, maxLifetime time.Duration) Option {
	return func(c *Config) {
		c.Heuristic = HeuristicConfig{Enabled: enabled, Coefficient: coefficient, MaxLifetime: maxLifetime}
	}
}

// WithNeverCacheHTTP10ResponsesWithQuery blocks caching of query-string URLs
// served over HTTP/1.0. Default: false.
func WithNeverCacheHTTP10ResponsesWithQuery(never bool) Option {
	return func(c *Config) { c.NeverCacheHTTP10ResponsesWithQuery = never }
}

// WithNeverCacheHTTP11ResponsesWithQuery blocks caching of query-string URLs
// served over HTTP/1.1. Default: false.
func WithNeverCacheHTTP11ResponsesWithQuery(never bool) Option {
	return func(c *Config) { c.NeverCacheHTTP11ResponsesWithQuery = never }
}

// WithFreshnessCheckEnabled toggles the freshness computation. When
// disabled, every stored entry requires revalidation. Default: true.
func WithFreshnessCheckEnabled(enabled bool) Option {
	return func(c *Config) { c.FreshnessCheckEnabled = enabled }
}

// WithAsynchronousWorkers enables the background revalidator with the given
// number of worker goroutines. Zero disables it. Default: 0.
func WithAsynchronousWorkers(n int) Option {
	return func(c *Config) { c.AsynchronousWorkers = n }
}

// WithStaleIfError toggles stale-if-error handling and its cache-wide
// default grace window. Default: enabled, 0 window.
func WithStaleIfError(enabled bool, defaultWindow time.Duration) Option {
	return func(c *Config) {
		c.StaleIfErrorEnabled = enabled
		c.DefaultStaleIfError = defaultWindow
	}
}

// WithStaleWhileRevalidate toggles stale-while-revalidate handling and
// records a cache-wide default grace window in
// Config.DefaultStaleWhileRevalidate, which the engine does not consult.
// Default: enabled, 0 window.
func WithStaleWhileRevalidate(enabled bool, defaultWindow time.Duration) Option {
	return func(c *Config) {
		c.StaleWhileRevalidateEnabled = enabled
		c.DefaultStaleWhileRevalidate = defaultWindow
	}
}

// WithCacheKeyHeaders records additional request headers for the cache key
// fingerprint in Config.CacheKeyHeaders, for example "Authorization" to
// separate caches per principal. NewEngine does not apply the list; the
// headers that take effect are those passed to store.NewKeyedStore.
func WithCacheKeyHeaders(headers []string) Option {
	return func(c *Config) { c.CacheKeyHeaders = headers }
}

// WithDisableWarningHeader suppresses the deprecated RFC 7234 §5.5 Warning
// header on stale and revalidation-failed responses. Default: false.
func WithDisableWarningHeader(disable bool) Option {
	return func(c *Config) { c.DisableWarningHeader = disable }
}

// WithShouldCache extends status-code cacheability beyond the RFC 7231
// §6.1 default-cacheable table for responses the table doesn't cover.
func WithShouldCache(fn ShouldCacheFunc) Option {
	return func(c *Config) { c.ShouldCache = fn }
}

// WithResilience attaches retry and circuit-breaker policies around
// downstream Chain calls.
func WithResilience(rc *ResilienceConfig) Option {
	return func(c *Config) { c.Resilience = rc }
}

// WithTransport sets the downstream round-tripper. If nil,
// http.DefaultTransport is used.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Config) { c.Transport = rt }
}

// WithClock overrides the engine's time source. Intended for tests.
func WithClock(clk Clock) Option {
	return func(c *Config) { c.Clock = clk }
}
