package httpcache

import (
	"net/http"
	"strings"
)

// understoodStatusCodes lists the status codes this cache fully understands
// the caching semantics of, for the must-understand override (RFC 9111
// §5.2.2.3), grounded verbatim on the teacher's understoodStatusCodes map.
var understoodStatusCodes = map[int]bool{
	200: true, 203: true, 204: true, 206: true,
	300: true, 301: true, 404: true, 405: true,
	410: true, 414: true, 501: true,
}

// cacheableByDefaultStatus lists the status codes RFC 7231 §6.1 designates
// cacheable by default, grounded on the teacher's storeResponseInCache
// shouldCache boolean expression.
var cacheableByDefaultStatus = map[int]bool{
	http.StatusOK:                   true,
	http.StatusNonAuthoritativeInfo: true,
	http.StatusNoContent:            true,
	http.StatusPartialContent:       true,
	http.StatusMultipleChoices:      true,
	http.StatusMovedPermanently:     true,
	http.StatusNotFound:             true,
	http.StatusMethodNotAllowed:     true,
	http.StatusGone:                 true,
	http.StatusRequestURITooLong:    true,
	http.StatusNotImplemented:       true,
}

// ShouldCacheFunc lets a caller override status-code cacheability for
// responses the default table doesn't cover, mirroring the teacher's
// Transport.ShouldCache hook.
type ShouldCacheFunc func(resp *http.Response) bool

// isCacheableStatus implements the status-code half of spec.md component E,
// honoring must-understand's override and an optional ShouldCacheFunc hook.
func isCacheableStatus(statusCode int, respCC ResponseDirectives, shouldCache ShouldCacheFunc, resp *http.Response) bool {
	if respCC.MustUnderstand {
		return understoodStatusCodes[statusCode]
	}
	if cacheableByDefaultStatus[statusCode] {
		return true
	}
	if shouldCache != nil {
		return shouldCache(resp)
	}
	return false
}

// canStore implements spec.md component E's storability check: no-store,
// the must-understand override, and RFC 9111 §3.5's Authorization-plus-
// shared-cache rule, grounded verbatim on the teacher's canStore.
func canStore(req *http.Request, reqCC RequestDirectives, respCC ResponseDirectives, sharedCache bool, statusCode int) bool {
	if respCC.MustUnderstand {
		if !understoodStatusCodes[statusCode] {
			return false
		}
		// understood + must-understand overrides no-store below.
	} else {
		if respCC.NoStore {
			return false
		}
		if reqCC.NoStore {
			return false
		}
	}

	if sharedCache && req.Header.Get("Authorization") != "" {
		allowed := respCC.Public || respCC.MustRevalidate || respCC.HasSMaxAge
		if !allowed {
			return false
		}
	}

	if respCC.Private && sharedCache {
		return false
	}

	return true
}

// maxObjectSizeExceeded reports whether bodyLen exceeds the configured cap
// (spec.md invariant 2: "Body length never exceeds the configured maximum
// object size; entries exceeding this are never stored").
func maxObjectSizeExceeded(bodyLen int, maxObjectSize int64) bool {
	return maxObjectSize > 0 && int64(bodyLen) > maxObjectSize
}

// blocksHTTPVersionQueryCaching implements the
// neverCacheHTTP10ResponsesWithQuery / neverCacheHTTP11ResponsesWithQuery
// configuration knobs (SPEC_FULL.md §6's enumerated configuration,
// spec.md's verbatim external-interface list).
func blocksHTTPVersionQueryCaching(req *http.Request, proto string, never10, never11 bool) bool {
	if req.URL.RawQuery == "" {
		return false
	}
	switch {
	case strings.HasPrefix(proto, "HTTP/1.0") && never10:
		return true
	case strings.HasPrefix(proto, "HTTP/1.1") && never11:
		return true
	default:
		return false
	}
}
