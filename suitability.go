package httpcache

import (
	"net/http"
	"strings"
	"time"

	"github.com/relaycache/httpcache/store"
)

// Suitability is the classification returned by the suitability checker
// (spec.md component F / §3 "Suitability classification").
type Suitability int

const (
	// Fresh: entry may be served as-is, no revalidation needed.
	Fresh Suitability = iota
	// FreshEnough: stale, but within the request's max-stale tolerance.
	FreshEnough
	// Stale: stale, revalidate synchronously (stale-if-error may still apply).
	Stale
	// StaleWhileRevalidated: stale, within the response's stale-while-revalidate
	// window, shared cache only.
	StaleWhileRevalidated
	// RevalidationRequired: stale and must-revalidate/no-cache forbids serving it.
	RevalidationRequired
	// Mismatch: the entry's Vary-selected headers or method do not match.
	Mismatch
)

func (s Suitability) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case FreshEnough:
		return "fresh_enough"
	case Stale:
		return "stale"
	case StaleWhileRevalidated:
		return "stale_while_revalidated"
	case RevalidationRequired:
		return "revalidation_required"
	case Mismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// classify implements spec.md §4.F: the suitability checker. age and
// lifetime are the already-computed current age and freshness lifetime for
// entry.
func classify(req *http.Request, entry *store.Entry, reqCC RequestDirectives, respCC ResponseDirectives, age, lifetime time.Duration, sharedCache bool) Suitability {
	if entry.Method != req.Method {
		return Mismatch
	}
	if entry.VariantKey != "" {
		vary := store.VaryHeaderNames(entry.Header)
		if store.VariantKey(req, vary) != entry.VariantKey {
			return Mismatch
		}
	}

	mustRevalidateNow := respCC.MustRevalidate || (sharedCache && respCC.ProxyRevalidate)
	stale := isStale(age, lifetime)

	if !stale {
		minFresh := time.Duration(0)
		if reqCC.HasMinFresh {
			minFresh = reqCC.MinFresh
		}
		if age+minFresh <= lifetime && !checkCacheControlBlocksFreshness(req.Header, reqCC, respCC) {
			return Fresh
		}
		return RevalidationRequired
	}

	if mustRevalidateNow || respCC.NoCache {
		return RevalidationRequired
	}

	if reqCC.MaxStaleAny || (reqCC.HasMaxStale && age-lifetime <= reqCC.MaxStale) {
		return FreshEnough
	}

	if sharedCache && respCC.HasSWR {
		if age-lifetime <= respCC.StaleWhileRevalidate {
			return StaleWhileRevalidated
		}
	}

	return Stale
}

// isSuitableIfError implements spec.md §4.F's isSuitableIfError: whether a
// stale entry may be served when the origin errors or returns a 5xx,
// honoring stale-if-error from either the request or the response, or a
// configured default window, and never overriding must-revalidate.
func isSuitableIfError(reqCC RequestDirectives, respCC ResponseDirectives, age, lifetime, defaultWindow time.Duration, mustRevalidateBlocks bool) bool {
	if mustRevalidateBlocks {
		return false
	}
	overstale := age - lifetime
	if overstale < 0 {
		overstale = 0
	}
	if reqCC.StaleIfErrAny {
		return true
	}
	if reqCC.HasStaleIfErr && overstale <= reqCC.StaleIfError {
		return true
	}
	if respCC.StaleIfErrAny {
		return true
	}
	if respCC.HasStaleIfErr && overstale <= respCC.StaleIfError {
		return true
	}
	if defaultWindow > 0 && overstale <= defaultWindow {
		return true
	}
	return false
}

// allConditionalsMatch implements RFC 7232 semantics for If-None-Match /
// If-Modified-Since against entry, used by the response generator when
// deciding whether an incoming request (not the cache's own revalidation)
// is itself conditional against what's stored.
func allConditionalsMatch(req *http.Request, entry *store.Entry) bool {
	if inm := req.Header.Get("If-None-Match"); inm != "" {
		etag := entry.Header.Get(headerETag)
		if etag == "" {
			return false
		}
		return etagSetMatches(inm, etag)
	}
	if ims := req.Header.Get("If-Modified-Since"); ims != "" {
		imsTime, err := http.ParseTime(ims)
		if err != nil {
			return false
		}
		lastModified := entry.Header.Get(headerLastModified)
		if lastModified == "" {
			return false
		}
		lmTime, err := http.ParseTime(lastModified)
		if err != nil {
			return false
		}
		return !lmTime.After(imsTime)
	}
	return false
}

// etagSetMatches reports whether etag appears in the comma-joined
// If-None-Match value, honoring the weak-comparison prefix "W/" and the
// wildcard "*".
func etagSetMatches(ifNoneMatch, etag string) bool {
	for _, candidate := range splitDirectives(ifNoneMatch) {
		candidate = trimETag(candidate)
		if candidate == "*" || candidate == trimETag(etag) {
			return true
		}
	}
	return false
}

func trimETag(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "W/")
}
