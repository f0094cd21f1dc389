package httpcache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/relaycache/httpcache/revalidator"
	"github.com/relaycache/httpcache/store"
)

// Engine is the decision engine (spec.md component K): the top-level state
// machine that, for every request, decides among serving from cache,
// revalidating (synchronously or in the background), negotiating stored
// variants, or forwarding to the origin. Grounded on the teacher's
// Transport.RoundTrip, generalized from one monolithic method into the
// branches spec.md §4.K enumerates explicitly, with storage delegated to a
// store.Store rather than embedded in the same type.
type Engine struct {
	config      Config
	store       store.Store
	stats       Stats
	revalidator *revalidator.Revalidator
}

// NewEngine builds an Engine over store, applying opts on top of the
// RFC-conformant defaults.
func NewEngine(st store.Store, opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}

	e := &Engine{config: cfg, store: st}
	if cfg.AsynchronousWorkers > 0 {
		strategy := revalidator.ExponentialStrategy{Base: 500 * time.Millisecond, Max: 30 * time.Second}
		e.revalidator = revalidator.New(cfg.AsynchronousWorkers, strategy, GetLogger())
	}
	return e
}

// Stats returns the engine's hit/miss/update counters.
func (e *Engine) Stats() *Stats { return &e.stats }

// Shutdown drains the background revalidator, if one is configured.
func (e *Engine) Shutdown() {
	if e.revalidator != nil {
		e.revalidator.Shutdown()
	}
}

// RoundTrip adapts Engine to http.RoundTripper, wiring the configured
// downstream Transport as the Chain. Use Execute directly for callers that
// need to supply their own Scope (e.g. to thread a route name through).
func (e *Engine) RoundTrip(req *http.Request) (*http.Response, error) {
	scope := NewScope(req.URL.Path, req, NewRuntime())
	return e.Execute(req, scope, RoundTripperChain(e.config.Transport))
}

func (e *Engine) now() time.Time { return e.config.Clock.Now() }

func (e *Engine) proceed(req *http.Request, scope Scope, chain Chain) (*http.Response, error) {
	return executeWithResilience(e.config.Resilience, func() (*http.Response, error) {
		return chain.Proceed(req, scope)
	})
}

// Execute is the engine's public contract (spec.md §4.K): execute(request,
// scope, chain) -> response. Side effects: sets scope's cache_response_status
// attribute and the HTTP_REQUEST/HTTP_RESPONSE attributes, and increments
// hits/misses/updates.
//
// Two deliberate departures from the literal numbered procedure in spec.md
// §4.K, recorded in DESIGN.md: (1) unsafe methods (POST/PUT/PATCH/DELETE)
// are routed to a dedicated forward-and-invalidate branch before any cache
// lookup, rather than falling through the same eligibility check as
// GET/HEAD, so they satisfy both "no cache read occurs" (§8 property 1) and
// "evictInvalidatedEntries exactly once regardless of response" (§8
// property 8) simultaneously; (2) the eligibility check (§4.K step 4) runs
// before, not after, the store lookup (§4.K step 2), so an ineligible
// GET/HEAD request never performs a cache read either.
func (e *Engine) Execute(req *http.Request, scope Scope, chain Chain) (*http.Response, error) {
	if isOptionsStarZero(req) {
		resp := notImplementedResponse(req)
		scope.Attributes.setResponseStatus(StatusModuleResponse)
		scope.Attributes.setHTTPRequest(req)
		scope.Attributes.setHTTPResponse(resp)
		return resp, nil
	}

	ctx := req.Context()
	host := req.URL.Host

	if !supportedCacheMethods[req.Method] {
		return e.forwardUnsafeMethod(ctx, req, scope, chain, host)
	}

	reqCC := ParseRequestDirectives(req.Header)
	if !isServableFromCache(req, reqCC, e.config.SharedCache) {
		resp, err := e.proceed(req, scope, chain)
		if err != nil {
			scope.Attributes.setResponseStatus(StatusFailure)
			return nil, err
		}
		scope.Attributes.setResponseStatus(StatusMiss)
		scope.Attributes.setHTTPRequest(req)
		scope.Attributes.setHTTPResponse(resp)
		return resp, nil
	}

	root, hit, err := e.store.Match(ctx, host, req)
	if err != nil {
		GetLogger().Warn("cache lookup failed, falling back to origin", "error", err)
		root, hit = nil, nil
	}

	if hit == nil {
		return e.cacheMiss(ctx, req, scope, chain, host, root, reqCC)
	}
	return e.cacheHit(ctx, req, scope, chain, host, hit, reqCC)
}

// forwardUnsafeMethod implements the unsafe-method half of request policy:
// always forwarded, never looked up or served from cache, but always
// triggers invalidation regardless of the response (spec.md §8 property 8).
func (e *Engine) forwardUnsafeMethod(ctx context.Context, req *http.Request, scope Scope, chain Chain, host string) (*http.Response, error) {
	resp, err := e.proceed(req, scope, chain)
	if err != nil {
		scope.Attributes.setResponseStatus(StatusFailure)
		return nil, err
	}
	if evictErr := e.store.EvictInvalidatedEntries(ctx, host, req, resp); evictErr != nil {
		GetLogger().Warn("invalidation failed", "error", evictErr)
	}
	scope.Attributes.setResponseStatus(StatusMiss)
	scope.Attributes.setHTTPRequest(req)
	scope.Attributes.setHTTPResponse(resp)
	return resp, nil
}

// cacheMiss implements spec.md §4.K.1.
func (e *Engine) cacheMiss(ctx context.Context, req *http.Request, scope Scope, chain Chain, host string, root *store.Entry, reqCC RequestDirectives) (*http.Response, error) {
	e.stats.recordMiss()

	if reqCC.OnlyIfCached {
		resp := fiveOhFourResponse(req)
		scope.Attributes.setResponseStatus(StatusModuleResponse)
		scope.Attributes.setHTTPRequest(req)
		scope.Attributes.setHTTPResponse(resp)
		return resp, nil
	}

	if root != nil && root.IsVariantRoot() && req.Body == nil {
		variants, err := e.store.GetVariants(ctx, root)
		if err == nil && len(variants) > 0 {
			return e.negotiateVariants(ctx, req, scope, chain, host, variants)
		}
	}

	return e.callBackend(ctx, req, scope, chain, host)
}

// cacheHit implements spec.md §4.K.2's classification/action table.
func (e *Engine) cacheHit(ctx context.Context, req *http.Request, scope Scope, chain Chain, host string, hit *store.Entry, reqCC RequestDirectives) (*http.Response, error) {
	respCC := ParseResponseDirectives(hit.Header)
	age := currentAge(hit, e.config.Clock, GetLogger())

	var class Suitability
	if e.config.FreshnessCheckEnabled {
		lifetime := freshnessLifetime(hit, respCC, e.config.SharedCache, e.config.Heuristic)
		class = classify(req, hit, reqCC, respCC, age, lifetime, e.config.SharedCache)
	} else if hit.Method != req.Method {
		class = Mismatch
	} else {
		class = RevalidationRequired
	}

	switch class {
	case Fresh, FreshEnough:
		if resp, ok := e.serveFromEntry(req, hit, age, class == FreshEnough); ok {
			e.stats.recordHit()
			scope.Attributes.setResponseStatus(StatusHit)
			scope.Attributes.setHTTPRequest(req)
			scope.Attributes.setHTTPResponse(resp)
			return resp, nil
		}
		if reqCC.OnlyIfCached {
			resp := fiveOhFourResponse(req)
			scope.Attributes.setResponseStatus(StatusModuleResponse)
			return resp, nil
		}
		scope.Attributes.setResponseStatus(StatusFailure)
		return e.callBackend(ctx, req, scope, chain, host)
	case Mismatch:
		if reqCC.OnlyIfCached {
			resp := fiveOhFourResponse(req)
			scope.Attributes.setResponseStatus(StatusModuleResponse)
			scope.Attributes.setHTTPRequest(req)
			scope.Attributes.setHTTPResponse(resp)
			return resp, nil
		}
		return e.callBackend(ctx, req, scope, chain, host)
	}

	// No fresh entry and none of Fresh/FreshEnough applied: any remaining
	// class (RevalidationRequired, Stale, StaleWhileRevalidated) needs the
	// origin to resolve, which only-if-cached forbids (spec.md invariant
	// "∀ request R with only-if-cached and no suitable fresh entry: 504").
	if reqCC.OnlyIfCached {
		resp := fiveOhFourResponse(req)
		scope.Attributes.setResponseStatus(StatusModuleResponse)
		scope.Attributes.setHTTPRequest(req)
		scope.Attributes.setHTTPResponse(resp)
		return resp, nil
	}

	if hasNonRepeatableBody(req) {
		return e.callBackend(ctx, req, scope, chain, host)
	}
	if hit.StatusCode == http.StatusNotModified && !isRequestConditional(req) {
		return e.callBackend(ctx, req, scope, chain, host)
	}

	switch class {
	case RevalidationRequired:
		return e.synchronousRevalidate(ctx, req, scope, chain, host, hit, respCC, reqCC, false)
	case StaleWhileRevalidated:
		if e.revalidator != nil && e.config.StaleWhileRevalidateEnabled {
			e.scheduleBackgroundRevalidation(req, scope, chain, host, hit, respCC)
			resp := synthesizeResponse(req, hit, age, true, e.config.DisableWarningHeader)
			scope.Attributes.setResponseStatus(StatusModuleResponse)
			scope.Attributes.setHTTPRequest(req)
			scope.Attributes.setHTTPResponse(resp)
			return resp, nil
		}
		return e.synchronousRevalidate(ctx, req, scope, chain, host, hit, respCC, reqCC, true)
	case Stale:
		return e.synchronousRevalidate(ctx, req, scope, chain, host, hit, respCC, reqCC, true)
	default:
		return e.callBackend(ctx, req, scope, chain, host)
	}
}

func (e *Engine) serveFromEntry(req *http.Request, hit *store.Entry, age time.Duration, stale bool) (*http.Response, bool) {
	if hit.Body == nil {
		return nil, false
	}
	return synthesizeResponse(req, hit, age, stale, e.config.DisableWarningHeader), true
}

// scheduleBackgroundRevalidation implements the StaleWhileRevalidated +
// async-revalidator-configured branch of spec.md §4.K.2, forking scope's
// Runtime per spec.md §4.J so the background thunk never touches the
// foreground caller's context.
func (e *Engine) scheduleBackgroundRevalidation(req *http.Request, scope Scope, chain Chain, host string, hit *store.Entry, respCC ResponseDirectives) {
	forkedRuntime := scope.Runtime.Fork()
	condReq := buildConditionalRequest(respCC, req, hit)
	condReq = condReq.Clone(context.Background())
	bgScope := NewScope(scope.Route, req, forkedRuntime)

	e.revalidator.RevalidateCacheEntry(hit.Key, func() error {
		ctx := context.Background()
		t0 := e.now()
		resp, err := e.proceed(condReq, bgScope, chain)
		t1 := e.now()
		if err != nil {
			return err
		}
		if isNewer(hit, resp) {
			drainAndClose(resp)
			return nil
		}
		if resp.StatusCode == http.StatusNotModified {
			drainAndClose(resp)
			if _, err := e.store.Update(ctx, hit, host, req, resp, t0, t1); err != nil {
				return err
			}
			e.stats.recordUpdate()
			return nil
		}
		_, err = e.handleBackendResponse(ctx, req, bgScope, host, resp, t0, t1)
		return err
	})
}

// synchronousRevalidate implements spec.md §4.K.5, including the "isNewer"
// stale-backend retry and the stale-if-error fallback wrapper.
func (e *Engine) synchronousRevalidate(ctx context.Context, req *http.Request, scope Scope, chain Chain, host string, hit *store.Entry, respCC ResponseDirectives, reqCC RequestDirectives, allowStaleIfError bool) (*http.Response, error) {
	condReq := buildConditionalRequest(respCC, req, hit)
	t0 := e.now()
	resp, err := e.proceed(condReq, scope, chain)
	t1 := e.now()

	if err != nil {
		if allowStaleIfError {
			if fallback, ok := e.staleIfErrorFallback(hit, respCC, reqCC, req); ok {
				scope.Attributes.setResponseStatus(StatusModuleResponse)
				scope.Attributes.setHTTPRequest(req)
				scope.Attributes.setHTTPResponse(fallback)
				return fallback, nil
			}
		}
		scope.Attributes.setResponseStatus(StatusFailure)
		resp := fiveOhFourResponse(req)
		scope.Attributes.setHTTPResponse(resp)
		return resp, nil
	}

	if isNewer(hit, resp) {
		drainAndClose(resp)
		return e.callBackendUnconditional(ctx, req, scope, chain, host)
	}

	if resp.StatusCode == http.StatusNotModified {
		drainAndClose(resp)
		updated, uerr := e.store.Update(ctx, hit, host, req, resp, t0, t1)
		if uerr != nil {
			GetLogger().Warn("store update failed", "error", uerr)
			scope.Attributes.setResponseStatus(StatusFailure)
			fallback := synthesizeResponse(req, hit, currentAge(hit, e.config.Clock, GetLogger()), false, e.config.DisableWarningHeader)
			return fallback, nil
		}
		e.stats.recordUpdate()
		scope.Attributes.setResponseStatus(StatusValidated)
		result := synthesizeResponse(req, updated, currentAge(updated, e.config.Clock, GetLogger()), false, e.config.DisableWarningHeader)
		scope.Attributes.setHTTPRequest(req)
		scope.Attributes.setHTTPResponse(result)
		return result, nil
	}

	if allowStaleIfError && isRetryableServerError(resp.StatusCode) {
		if fallback, ok := e.staleIfErrorFallback(hit, respCC, reqCC, req); ok {
			drainAndClose(resp)
			scope.Attributes.setResponseStatus(StatusModuleResponse)
			scope.Attributes.setHTTPResponse(fallback)
			return fallback, nil
		}
	}

	result, herr := e.handleBackendResponse(ctx, req, scope, host, resp, t0, t1)
	if herr != nil {
		scope.Attributes.setResponseStatus(StatusFailure)
		return nil, herr
	}
	if _, set := scope.Attributes.ResponseStatus(); !set {
		scope.Attributes.setResponseStatus(StatusMiss)
	}
	scope.Attributes.setHTTPRequest(req)
	scope.Attributes.setHTTPResponse(result)
	return result, nil
}

// staleIfErrorFallback implements the "WithFallback" wrapper of spec.md
// §4.K.5: whether hit may be served stale because the revalidation attempt
// failed (IO error or retryable 5xx) and stale-if-error applies.
func (e *Engine) staleIfErrorFallback(hit *store.Entry, respCC ResponseDirectives, reqCC RequestDirectives, req *http.Request) (*http.Response, bool) {
	if !e.config.StaleIfErrorEnabled {
		return nil, false
	}
	age := currentAge(hit, e.config.Clock, GetLogger())
	lifetime := freshnessLifetime(hit, respCC, e.config.SharedCache, e.config.Heuristic)
	if !isSuitableIfError(reqCC, respCC, age, lifetime, e.config.DefaultStaleIfError, respCC.MustRevalidate) {
		return nil, false
	}
	resp := synthesizeResponse(req, hit, age, true, e.config.DisableWarningHeader)
	markRevalidationFailed(resp, e.config.DisableWarningHeader)
	return resp, true
}

// callBackend dispatches req to chain unconditionally and post-processes
// the result via handleBackendResponse (spec.md §4.K.4).
func (e *Engine) callBackend(ctx context.Context, req *http.Request, scope Scope, chain Chain, host string) (*http.Response, error) {
	t0 := e.now()
	resp, err := e.proceed(req, scope, chain)
	t1 := e.now()
	if err != nil {
		scope.Attributes.setResponseStatus(StatusFailure)
		return nil, err
	}

	result, herr := e.handleBackendResponse(ctx, req, scope, host, resp, t0, t1)
	if herr != nil {
		scope.Attributes.setResponseStatus(StatusFailure)
		return nil, herr
	}
	if _, set := scope.Attributes.ResponseStatus(); !set {
		scope.Attributes.setResponseStatus(StatusMiss)
	}
	scope.Attributes.setHTTPRequest(req)
	scope.Attributes.setHTTPResponse(result)
	return result, nil
}

// callBackendUnconditional re-issues req with every conditional header
// stripped (spec.md §4.G.3), used whenever a 304 can't be trusted or
// resolved: a stale-backend race (isNewer) or an unresolved variant
// negotiation 304.
func (e *Engine) callBackendUnconditional(ctx context.Context, req *http.Request, scope Scope, chain Chain, host string) (*http.Response, error) {
	unconditional := buildUnconditionalRequest(req)
	t0 := e.now()
	resp, err := e.proceed(unconditional, scope, chain)
	t1 := e.now()
	if err != nil {
		scope.Attributes.setResponseStatus(StatusFailure)
		return nil, err
	}

	result, herr := e.handleBackendResponse(ctx, req, scope, host, resp, t0, t1)
	if herr != nil {
		scope.Attributes.setResponseStatus(StatusFailure)
		return nil, herr
	}
	if _, set := scope.Attributes.ResponseStatus(); !set {
		scope.Attributes.setResponseStatus(StatusMiss)
	}
	scope.Attributes.setHTTPRequest(req)
	scope.Attributes.setHTTPResponse(result)
	return result, nil
}

// negotiateVariants implements spec.md §4.K.3.
func (e *Engine) negotiateVariants(ctx context.Context, req *http.Request, scope Scope, chain Chain, host string, variants []*store.Entry) (*http.Response, error) {
	etagToVariant := map[string]*store.Entry{}
	var etags []string
	for _, v := range variants {
		if etag := v.Header.Get(headerETag); etag != "" {
			etagToVariant[trimETag(etag)] = v
			etags = append(etags, etag)
		}
	}
	if len(etags) == 0 {
		return e.callBackend(ctx, req, scope, chain, host)
	}

	condReq := buildConditionalRequestFromVariants(req, etags)
	t0 := e.now()
	resp, err := e.proceed(condReq, scope, chain)
	t1 := e.now()
	if err != nil {
		scope.Attributes.setResponseStatus(StatusFailure)
		return nil, err
	}

	if resp.StatusCode != http.StatusNotModified {
		result, herr := e.handleBackendResponse(ctx, req, scope, host, resp, t0, t1)
		if herr != nil {
			scope.Attributes.setResponseStatus(StatusFailure)
			return nil, herr
		}
		if _, set := scope.Attributes.ResponseStatus(); !set {
			scope.Attributes.setResponseStatus(StatusMiss)
		}
		return result, nil
	}

	etag := trimETag(resp.Header.Get(headerETag))
	variant, ok := etagToVariant[etag]
	if etag == "" || !ok {
		drainAndClose(resp)
		GetLogger().Warn("variant negotiation 304 unresolved, retrying unconditionally", "etag", etag)
		return e.callBackendUnconditional(ctx, req, scope, chain, host)
	}
	if isNewer(variant, resp) {
		drainAndClose(resp)
		return e.callBackendUnconditional(ctx, req, scope, chain, host)
	}

	updated, err := e.store.StoreFromNegotiated(ctx, variant, host, req, resp, t0, t1)
	drainAndClose(resp)
	if err != nil {
		scope.Attributes.setResponseStatus(StatusFailure)
		return nil, err
	}
	e.stats.recordUpdate()
	scope.Attributes.setResponseStatus(StatusValidated)

	age := currentAge(updated, e.config.Clock, GetLogger())
	var result *http.Response
	if isRequestConditional(req) && allConditionalsMatch(req, updated) {
		result = synthesizeNotModified(req, updated, age)
	} else {
		result = synthesizeResponse(req, updated, age, false, e.config.DisableWarningHeader)
	}
	scope.Attributes.setHTTPRequest(req)
	scope.Attributes.setHTTPResponse(result)
	return result, nil
}

// handleBackendResponse implements spec.md §4.K.4.
func (e *Engine) handleBackendResponse(ctx context.Context, req *http.Request, scope Scope, host string, resp *http.Response, reqDate, respDate time.Time) (*http.Response, error) {
	if evictErr := e.store.EvictInvalidatedEntries(ctx, host, req, resp); evictErr != nil {
		GetLogger().Warn("invalidation failed", "error", evictErr)
	}

	if resp.StatusCode == http.StatusNotModified {
		return e.mergeUnexpectedNotModified(ctx, req, scope, host, resp, reqDate, respDate)
	}

	if maxObjectSizeExceeded(int(resp.ContentLength), e.config.MaxObjectSize) {
		return resp, nil
	}
	if blocksHTTPVersionQueryCaching(req, resp.Proto, e.config.NeverCacheHTTP10ResponsesWithQuery, e.config.NeverCacheHTTP11ResponsesWithQuery) {
		return resp, nil
	}

	respCC := ParseResponseDirectives(resp.Header)
	reqCC := ParseRequestDirectives(req.Header)
	if !isCacheableStatus(resp.StatusCode, respCC, e.config.ShouldCache, resp) {
		return resp, nil
	}
	if !canStore(req, reqCC, respCC, e.config.SharedCache, resp.StatusCode) {
		return resp, nil
	}

	body, oversizedRest, err := drainBounded(resp.Body, e.config.MaxObjectSize)
	if err != nil {
		return nil, fmt.Errorf("httpcache: read backend response body: %w", err)
	}
	if oversizedRest != nil {
		resp.Body = newPrefixReader(body, oversizedRest)
		return resp, nil
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	if e.config.FreshnessCheckEnabled {
		if _, existing, matchErr := e.store.Match(ctx, host, req); matchErr == nil && existing != nil && isNewer(existing, resp) {
			return resp, nil
		}
	}

	if _, storeErr := e.store.Store(ctx, host, req, resp, body, reqDate, respDate); storeErr != nil {
		GetLogger().Warn("cache store failed", "error", storeErr)
	}
	return resp, nil
}

// mergeUnexpectedNotModified handles a 304 reaching handleBackendResponse
// outside the synchronous-revalidation path — e.g. the client's own request
// carried conditional headers and the cache had no entry, or a concurrent
// request already revalidated it. See DESIGN.md for the resolution of
// spec.md's open question on this behavior: when no entry exists to merge
// into, the 304 is forwarded to the caller untouched rather than fabricated
// from nothing, since a body-less non-root entry has no place in this
// module's entry model.
func (e *Engine) mergeUnexpectedNotModified(ctx context.Context, req *http.Request, scope Scope, host string, resp *http.Response, reqDate, respDate time.Time) (*http.Response, error) {
	_, hit, err := e.store.Match(ctx, host, req)
	if err != nil || hit == nil {
		return resp, nil
	}

	// The cache's own revalidation always carries either an ETag-derived
	// If-None-Match or a Last-Modified-derived If-Modified-Since; reaching
	// this branch with neither on the stored entry means the 304 arrived
	// on the client's own conditional request. Record its validator so a
	// future cache-initiated revalidation has one to use; it is removed
	// from the response returned below, so it never reaches the client.
	syntheticLastModified := false
	if hit.Header.Get(headerETag) == "" && hit.Header.Get(headerLastModified) == "" && resp.Header.Get(headerLastModified) == "" {
		if ims := req.Header.Get("If-Modified-Since"); ims != "" {
			resp.Header.Set(headerLastModified, ims)
			syntheticLastModified = true
		}
	}

	updated, err := e.store.Update(ctx, hit, host, req, resp, reqDate, respDate)
	drainAndClose(resp)
	if err != nil {
		GetLogger().Warn("store update failed", "error", err)
		return resp, nil
	}
	e.stats.recordUpdate()
	scope.Attributes.setResponseStatus(StatusValidated)

	age := currentAge(updated, e.config.Clock, GetLogger())
	var result *http.Response
	if isRequestConditional(req) && allConditionalsMatch(req, updated) {
		result = synthesizeNotModified(req, updated, age)
	} else {
		result = synthesizeResponse(req, updated, age, false, e.config.DisableWarningHeader)
	}
	if syntheticLastModified {
		result.Header.Del(headerLastModified)
	}
	return result, nil
}

// isNewer implements spec.md §4.K.6: the stored entry is strictly newer
// than the backend's response when its Date header is later. Missing
// dates never compare as newer.
func isNewer(entry *store.Entry, resp *http.Response) bool {
	entryDate, err1 := Date(entry.Header)
	respDate, err2 := Date(resp.Header)
	if err1 != nil || err2 != nil {
		return false
	}
	return entryDate.After(respDate)
}

func isRetryableServerError(status int) bool {
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func isOptionsStarZero(req *http.Request) bool {
	return req.Method == http.MethodOptions && req.URL.Path == "*" && req.Header.Get("Max-Forwards") == "0"
}

func notImplementedResponse(req *http.Request) *http.Response {
	return &http.Response{
		Status:     "501 Not Implemented",
		StatusCode: http.StatusNotImplemented,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
		Body:       http.NoBody,
		Request:    req,
	}
}

func fiveOhFourResponse(req *http.Request) *http.Response {
	return &http.Response{
		Status:     "504 Gateway Timeout",
		StatusCode: http.StatusGatewayTimeout,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
		Body:       http.NoBody,
		Request:    req,
	}
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// drainBounded reads body fully if it fits within max bytes (max <= 0 means
// unbounded). When it doesn't fit, it returns the bytes read so far plus
// the still-open body so the caller can stitch together a composite reader
// that still delivers every byte to the client, without ever buffering more
// than max+1 bytes in memory (spec.md §4.K.4, §4.I).
func drainBounded(body io.ReadCloser, max int64) (data []byte, oversizedRest io.ReadCloser, err error) {
	if max <= 0 {
		data, err = io.ReadAll(body)
		if cerr := body.Close(); err == nil {
			err = cerr
		}
		return data, nil, err
	}

	data, err = io.ReadAll(io.LimitReader(body, max+1))
	if err != nil {
		body.Close()
		return nil, nil, err
	}
	if int64(len(data)) <= max {
		err = body.Close()
		return data, nil, err
	}
	return data, body, nil
}

// prefixReader stitches already-read bytes back in front of the
// not-yet-read remainder of an oversized body.
type prefixReader struct {
	io.Reader
	body io.Closer
}

func (p *prefixReader) Close() error { return p.body.Close() }

func newPrefixReader(prefix []byte, rest io.ReadCloser) io.ReadCloser {
	return &prefixReader{Reader: io.MultiReader(bytes.NewReader(prefix), rest), body: rest}
}
