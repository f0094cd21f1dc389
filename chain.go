package httpcache

import "net/http"

// Chain is the downstream round-tripper the engine calls on a cache miss or
// revalidation (spec.md §6 "Downstream chain"). Grounded on the teacher's
// use of an embedded http.RoundTripper (Transport.Transport in
// httpcache.go), generalized to the scope-carrying signature spec.md names.
type Chain interface {
	// Proceed dispatches req downstream and returns its response. May
	// return an IO error; on success the caller owns resp.Body and must
	// close it.
	Proceed(req *http.Request, scope Scope) (*http.Response, error)
}

// ChainFunc adapts a plain function to Chain.
type ChainFunc func(req *http.Request, scope Scope) (*http.Response, error)

func (f ChainFunc) Proceed(req *http.Request, scope Scope) (*http.Response, error) {
	return f(req, scope)
}

// RoundTripperChain adapts an http.RoundTripper to Chain, ignoring scope —
// the common case for wiring the engine under http.Client.
func RoundTripperChain(rt http.RoundTripper) Chain {
	return ChainFunc(func(req *http.Request, _ Scope) (*http.Response, error) {
		return rt.RoundTrip(req)
	})
}
