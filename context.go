package httpcache

import "net/http"

// ResponseStatus is the observable cache_response_status context attribute
// (spec.md §6 "Observable context attributes").
type ResponseStatus string

const (
	StatusMiss           ResponseStatus = "cache_miss"
	StatusHit            ResponseStatus = "cache_hit"
	StatusValidated      ResponseStatus = "validated"
	StatusModuleResponse ResponseStatus = "cache_module_response"
	StatusFailure        ResponseStatus = "failure"
)

// attrKey namespaces AttributeBag entries so unrelated packages pushing
// values into the bag can't collide, replacing the teacher's approach of
// smuggling state through ad-hoc request headers (X-Request-Time and
// friends in httpcache.go).
type attrKey string

const (
	attrResponseStatus attrKey = "cache_response_status"
	attrHTTPRequest    attrKey = "http_request"
	attrHTTPResponse   attrKey = "http_response"
)

// AttributeBag is the per-exchange key-value bag spec.md's Scope carries,
// used to publish the engine's observable attributes without reaching for
// package-level globals or custom headers.
type AttributeBag struct {
	values map[attrKey]any
}

// NewAttributeBag returns an empty bag.
func NewAttributeBag() *AttributeBag {
	return &AttributeBag{values: map[attrKey]any{}}
}

func (b *AttributeBag) set(key attrKey, value any) {
	if b == nil {
		return
	}
	if b.values == nil {
		b.values = map[attrKey]any{}
	}
	b.values[key] = value
}

func (b *AttributeBag) get(key attrKey) (any, bool) {
	if b == nil || b.values == nil {
		return nil, false
	}
	v, ok := b.values[key]
	return v, ok
}

// ResponseStatus returns the cache_response_status attribute, if the engine
// has run against this bag.
func (b *AttributeBag) ResponseStatus() (ResponseStatus, bool) {
	v, ok := b.get(attrResponseStatus)
	if !ok {
		return "", false
	}
	status, ok := v.(ResponseStatus)
	return status, ok
}

func (b *AttributeBag) setResponseStatus(status ResponseStatus) {
	b.set(attrResponseStatus, status)
}

func (b *AttributeBag) setHTTPRequest(req *http.Request) {
	b.set(attrHTTPRequest, req)
}

func (b *AttributeBag) setHTTPResponse(resp *http.Response) {
	b.set(attrHTTPResponse, resp)
}

// Scope is the per-exchange context spec.md's execute(request, scope, chain)
// threads through the engine: the route being served, the caller's
// original (pre-modification) request, a Runtime handle background work can
// fork from, and the observable AttributeBag.
type Scope struct {
	Route           string
	OriginalRequest *http.Request
	Runtime         Runtime
	Attributes      *AttributeBag
}

// NewScope returns a Scope with a fresh AttributeBag.
func NewScope(route string, originalRequest *http.Request, runtime Runtime) Scope {
	return Scope{
		Route:           route,
		OriginalRequest: originalRequest,
		Runtime:         runtime,
		Attributes:      NewAttributeBag(),
	}
}

// Runtime is the forkable execution-context handle spec.md §4.J requires:
// each background revalidation thunk runs against a Fork()ed Runtime with a
// new exchange id, so the foreground caller's context is never mutated by
// background work.
type Runtime interface {
	// ExchangeID is an opaque correlator for the current request/response
	// round-trip (spec.md Glossary: "Exchange id").
	ExchangeID() string
	// Fork returns a new Runtime carrying a fresh exchange id, for a
	// background thunk to run against.
	Fork() Runtime
}
