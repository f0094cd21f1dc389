package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// hopByHopHeaders lists the headers RFC 7230 §6.1 designates connection-
// specific; these are never end-to-end and are excluded from both storage
// and the 304-merge union (spec.md invariant 3). The teacher's
// handleNotModifiedResponse calls an (unexported, not present in this
// snapshot) getEndToEndHeaders helper to the same effect; this list
// reproduces the standard hop-by-hop set from RFC 7230 §6.1.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// endToEndHeaders returns the header names of h that are safe to copy
// end-to-end, excluding hop-by-hop headers and those named in h's own
// Connection header.
func endToEndHeaders(h http.Header) []string {
	excluded := map[string]bool{}
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			excluded[http.CanonicalHeaderKey(strings.TrimSpace(name))] = true
		}
	}
	var out []string
	for name := range h {
		canon := http.CanonicalHeaderKey(name)
		if hopByHopHeaders[canon] || excluded[canon] {
			continue
		}
		out = append(out, canon)
	}
	return out
}

// mergeHeaders implements RFC 7234 §4.3.4: the stored entry's headers are
// kept except where the new (304) response's end-to-end headers override
// them — response headers win for listed fields (invariant 3).
func mergeHeaders(stored, fresh http.Header) http.Header {
	merged := stored.Clone()
	if merged == nil {
		merged = http.Header{}
	}
	for _, name := range endToEndHeaders(fresh) {
		merged[name] = append([]string(nil), fresh[name]...)
	}
	return merged
}

// wireEntry is the on-disk/on-wire JSON shape for an Entry. encoding/json
// is used rather than a third-party codec because no library in the
// reference corpus targets "serialize this package's own struct" — see
// DESIGN.md.
type wireEntry struct {
	FingerprintKey string              `json:"fingerprint_key"`
	VariantKey     string              `json:"variant_key,omitempty"`
	Variants       map[string]string   `json:"variants,omitempty"`
	Method         string              `json:"method"`
	URI            string              `json:"uri"`
	Host           string              `json:"host"`
	StatusCode     int                 `json:"status_code"`
	Reason         string              `json:"reason"`
	Proto          string              `json:"proto"`
	Header         map[string][]string `json:"header"`
	Body           []byte              `json:"body,omitempty"`
	RequestDate    string              `json:"request_date"`
	ResponseDate   string              `json:"response_date"`
}

const rfc3339Nano = "2006-01-02T15:04:05.999999999Z07:00"

func encodeEntry(key string, e *Entry) ([]byte, error) {
	w := wireEntry{
		FingerprintKey: e.FingerprintKey,
		VariantKey:     e.VariantKey,
		Variants:       e.Variants,
		Method:         e.Method,
		URI:            e.URI,
		Host:           e.Host,
		StatusCode:     e.StatusCode,
		Reason:         e.Reason,
		Proto:          e.Proto,
		Header:         map[string][]string(e.Header),
		Body:           e.Body,
		RequestDate:    e.RequestDate.Format(rfc3339Nano),
		ResponseDate:   e.ResponseDate.Format(rfc3339Nano),
	}
	_ = key
	return json.Marshal(w)
}

func decodeEntry(key string, raw []byte) (*Entry, error) {
	var w wireEntry
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("store: decode entry %q: %w", key, err)
	}
	reqDate, _ := parseTime(w.RequestDate)
	respDate, _ := parseTime(w.ResponseDate)
	return &Entry{
		Key:            key,
		FingerprintKey: w.FingerprintKey,
		VariantKey:     w.VariantKey,
		Variants:       w.Variants,
		Method:         w.Method,
		URI:            w.URI,
		Host:           w.Host,
		StatusCode:     w.StatusCode,
		Reason:         w.Reason,
		Proto:          w.Proto,
		Header:         http.Header(w.Header),
		Body:           w.Body,
		RequestDate:    reqDate,
		ResponseDate:   respDate,
	}, nil
}

// KeyedStore implements the full Store facade (spec.md component I) on top
// of any Backend, handling the root/variant indirection, the 304-merge, the
// negotiated-store path, and URI-based invalidation once, generically.
type KeyedStore struct {
	backend         Backend
	cacheKeyHeaders []string
}

// NewKeyedStore wraps backend into a Store. cacheKeyHeaders, if non-empty,
// folds the named request headers into the fingerprint key (the teacher's
// CacheKeyHeaders option), separating cache entries per header value.
func NewKeyedStore(backend Backend, cacheKeyHeaders ...string) *KeyedStore {
	return &KeyedStore{backend: backend, cacheKeyHeaders: cacheKeyHeaders}
}

func (s *KeyedStore) fingerprint(host string, req *http.Request) string {
	return FingerprintWithHeaders(host, req, s.cacheKeyHeaders)
}

func (s *KeyedStore) get(ctx context.Context, key string) (*Entry, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return decodeEntry(key, raw)
}

func (s *KeyedStore) put(ctx context.Context, e *Entry) error {
	raw, err := encodeEntry(e.Key, e)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, e.Key, raw)
}

// Match looks up the fingerprint-indexed root entry for req and, if the
// root carries variants, selects the one matching req's Vary-selected
// headers (spec.md "Cache lookup result").
func (s *KeyedStore) Match(ctx context.Context, host string, req *http.Request) (*Entry, *Entry, error) {
	fp := s.fingerprint(host, req)
	root, err := s.get(ctx, fp)
	if err != nil || root == nil {
		return nil, nil, err
	}
	if !root.IsVariantRoot() {
		if root.Method != req.Method {
			return root, nil, nil
		}
		return root, root, nil
	}

	vk := VariantKey(req, VaryHeaderNames(root.Header))
	leafKey, ok := root.Variants[vk]
	if !ok {
		return root, nil, nil
	}
	leaf, err := s.get(ctx, leafKey)
	if err != nil {
		return root, nil, err
	}
	if leaf == nil || leaf.Method != req.Method {
		return root, nil, nil
	}
	return root, leaf, nil
}

// Store persists a fresh backend response. If the response carries a Vary
// header (and not "Vary: *"), it is stored as a variant leaf and the root
// entry's Variants map is updated to point at it (invariant 4); otherwise
// it is stored directly as the root entry.
func (s *KeyedStore) Store(ctx context.Context, host string, req *http.Request, resp *http.Response, body []byte, reqDate, respDate time.Time) (*Entry, error) {
	fp := s.fingerprint(host, req)
	varyNames := VaryHeaderNames(resp.Header)

	leaf := &Entry{
		FingerprintKey: fp,
		Method:         req.Method,
		URI:            req.URL.RequestURI(),
		Host:           host,
		StatusCode:     resp.StatusCode,
		Reason:         http.StatusText(resp.StatusCode),
		Proto:          resp.Proto,
		Header:         resp.Header.Clone(),
		Body:           body,
		RequestDate:    reqDate,
		ResponseDate:   respDate,
	}
	if resp.Status != "" {
		leaf.Reason = resp.Status
	}

	if len(varyNames) == 0 || HasVaryStar(resp.Header) {
		leaf.Key = fp
		if err := s.put(ctx, leaf); err != nil {
			return nil, err
		}
		return leaf, nil
	}

	vk := VariantKey(req, varyNames)
	leaf.VariantKey = vk
	leaf.Key = fp + "|variant:" + vk
	if err := s.put(ctx, leaf); err != nil {
		return nil, err
	}

	root, err := s.get(ctx, fp)
	if err != nil {
		return nil, err
	}
	if root == nil || !root.IsVariantRoot() {
		root = &Entry{
			Key:            fp,
			FingerprintKey: fp,
			Method:         req.Method,
			Host:           host,
			URI:            req.URL.RequestURI(),
			StatusCode:     resp.StatusCode,
			Header:         http.Header{"Vary": resp.Header.Values("Vary")},
			Variants:       map[string]string{},
		}
	}
	root.Variants[vk] = leaf.Key
	if err := s.put(ctx, root); err != nil {
		return nil, err
	}
	return leaf, nil
}

// Update merges a 304 response into an existing entry (invariant 3): the
// body is preserved, headers are unioned with the new response's end-to-end
// headers winning.
func (s *KeyedStore) Update(ctx context.Context, hit *Entry, host string, req *http.Request, resp *http.Response, reqDate, respDate time.Time) (*Entry, error) {
	updated := hit.Clone()
	updated.Header = mergeHeaders(hit.Header, resp.Header)
	updated.RequestDate = reqDate
	updated.ResponseDate = respDate
	if err := s.put(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// StoreFromNegotiated merges a 304 arriving from variant negotiation
// (spec.md §4.K.3) into the matched variant, identical in shape to Update
// but named distinctly per the spec's external-interface contract.
func (s *KeyedStore) StoreFromNegotiated(ctx context.Context, match *Entry, host string, req *http.Request, resp *http.Response, reqDate, respDate time.Time) (*Entry, error) {
	return s.Update(ctx, match, host, req, resp, reqDate, respDate)
}

// GetVariants returns every variant leaf referenced by root's Variants map.
// A variant pointer whose target has been evicted out from under the root
// (possible with TTL/LRU backends) is skipped rather than surfaced as an
// error — the map is a superset hint, not an exact index (SPEC_FULL.md §3).
func (s *KeyedStore) GetVariants(ctx context.Context, root *Entry) ([]*Entry, error) {
	if root == nil {
		return nil, nil
	}
	var out []*Entry
	for _, key := range root.Variants {
		e, err := s.get(ctx, key)
		if err != nil {
			return nil, err
		}
		if e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// EvictInvalidatedEntries removes cache entries related to the target URI
// per RFC 7234 §4.4: the effective Request-URI plus any same-origin
// Location / Content-Location header, for both GET and HEAD fingerprints.
// Grounded on the teacher's invalidation.go. The engine calls this
// unconditionally on unsafe methods; this store does not itself filter by
// response status — which status codes warrant invalidation is a store
// policy decision left unspecified by the caller.
func (s *KeyedStore) EvictInvalidatedEntries(ctx context.Context, host string, req *http.Request, resp *http.Response) error {
	if err := s.evictURI(ctx, host, req.URL); err != nil {
		return err
	}
	if resp == nil {
		return nil
	}
	for _, hdr := range []string{"Location", "Content-Location"} {
		loc := resp.Header.Get(hdr)
		if loc == "" {
			continue
		}
		target, err := req.URL.Parse(loc)
		if err != nil {
			continue
		}
		if target.Scheme != req.URL.Scheme || target.Host != req.URL.Host {
			continue
		}
		if err := s.evictURI(ctx, host, target); err != nil {
			return err
		}
	}
	return nil
}

func (s *KeyedStore) evictURI(ctx context.Context, host string, u *url.URL) error {
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		fakeReq := &http.Request{Method: method, URL: u, Header: http.Header{}}
		key := s.fingerprint(host, fakeReq)
		root, err := s.get(ctx, key)
		if err != nil {
			return err
		}
		if root != nil {
			for _, variantKey := range root.Variants {
				if err := s.backend.Delete(ctx, variantKey); err != nil {
					return err
				}
			}
		}
		if err := s.backend.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func parseTime(s string) (t time.Time, err error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(rfc3339Nano, s)
}
