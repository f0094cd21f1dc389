package store

import (
	"context"
	"net/http"
	"time"
)

// Store is the cache store facade (spec.md component I) the decision
// engine depends on. KeyedStore is the only implementation in this module;
// the interface exists so the engine can be tested against an in-memory
// fake without a concrete Backend.
type Store interface {
	// Match looks up the fingerprint-indexed root entry for req and, if it
	// carries variants, the leaf matching req's Vary-selected headers.
	// Returns (nil, nil, nil) on a cache miss.
	Match(ctx context.Context, host string, req *http.Request) (root, hit *Entry, err error)

	// Store persists a fresh, cacheable backend response.
	Store(ctx context.Context, host string, req *http.Request, resp *http.Response, body []byte, reqDate, respDate time.Time) (*Entry, error)

	// Update merges a 304 revalidation response into hit (RFC 7234 §4.3.4).
	Update(ctx context.Context, hit *Entry, host string, req *http.Request, resp *http.Response, reqDate, respDate time.Time) (*Entry, error)

	// StoreFromNegotiated merges a 304 arriving from variant negotiation
	// into match.
	StoreFromNegotiated(ctx context.Context, match *Entry, host string, req *http.Request, resp *http.Response, reqDate, respDate time.Time) (*Entry, error)

	// EvictInvalidatedEntries removes entries invalidated by an unsafe
	// method or an invalidating response, per RFC 7234 §4.4.
	EvictInvalidatedEntries(ctx context.Context, host string, req *http.Request, resp *http.Response) error

	// GetVariants returns every variant leaf referenced by root.
	GetVariants(ctx context.Context, root *Entry) ([]*Entry, error)
}

var _ Store = (*KeyedStore)(nil)
