package httpcache

import (
	"net/http"
	"strings"
	"time"

	"github.com/relaycache/httpcache/store"
)

// HeuristicConfig bounds the heuristic freshness-lifetime fallback used when
// a response carries no explicit freshness directive, grounded on the
// teacher's calculateLifetime default-lifetime path.
type HeuristicConfig struct {
	Enabled     bool
	Coefficient float64 // RFC 7234 §4.2.2 recommends 0.1
	MaxLifetime time.Duration
}

// defaultHeuristicConfig matches RFC 7234 §4.2.2's suggested 10% coefficient.
func defaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{Enabled: true, Coefficient: 0.1, MaxLifetime: 24 * time.Hour}
}

// heuristicEligibleStatus lists the status codes RFC 7234 §4.2.2 permits a
// heuristic lifetime for, grounded on the teacher's understoodStatusCodes
// cacheability table.
var heuristicEligibleStatus = map[int]bool{
	200: true, 203: true, 300: true, 301: true, 410: true,
}

// freshnessLifetime implements spec.md component C / §4.C: the first
// applicable of s-maxage (shared cache only), max-age, Expires-Date, or a
// heuristic lifetime.
func freshnessLifetime(e *store.Entry, respCC ResponseDirectives, sharedCache bool, heuristic HeuristicConfig) time.Duration {
	if sharedCache && respCC.HasSMaxAge {
		return respCC.SMaxAge
	}
	if respCC.HasMaxAge {
		return respCC.MaxAge
	}
	if expires := e.Header.Get("Expires"); expires != "" {
		if expiresTime, err := http.ParseTime(expires); err == nil {
			if dateValue, dErr := Date(e.Header); dErr == nil {
				if d := expiresTime.Sub(dateValue); d > 0 {
					return d
				}
				return 0
			}
		}
	}
	if !heuristic.Enabled {
		return 0
	}
	if !heuristicEligibleStatus[e.StatusCode] {
		return 0
	}
	lastModified := e.Header.Get(headerLastModified)
	if lastModified == "" {
		return 0
	}
	lastModifiedTime, err := http.ParseTime(lastModified)
	if err != nil {
		return 0
	}
	dateValue, err := Date(e.Header)
	if err != nil {
		return 0
	}
	age := dateValue.Sub(lastModifiedTime)
	if age <= 0 {
		return 0
	}
	lifetime := time.Duration(float64(age) * heuristic.Coefficient)
	if heuristic.MaxLifetime > 0 && lifetime > heuristic.MaxLifetime {
		lifetime = heuristic.MaxLifetime
	}
	return lifetime
}

// isStale reports whether age exceeds lifetime (spec.md §4.C: "Stale = age >
// freshness_lifetime").
func isStale(age, lifetime time.Duration) bool {
	return age > lifetime
}

// checkCacheControlBlocksFreshness reports whether no-cache / Pragma:
// no-cache semantics on the request or response force a cache-skip
// regardless of computed freshness (mirrors the teacher's
// checkCacheControl dispatch order).
func checkCacheControlBlocksFreshness(reqHeaders http.Header, reqCC RequestDirectives, respCC ResponseDirectives) bool {
	if reqCC.NoCache {
		return true
	}
	if strings.EqualFold(reqHeaders.Get(headerPragma), pragmaNoCache) {
		return true
	}
	if respCC.NoCache {
		return true
	}
	return false
}
