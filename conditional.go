package httpcache

import (
	"net/http"
	"strings"

	"github.com/relaycache/httpcache/store"
)

// cloneRequestForRevalidation copies req the way the teacher's
// addValidatorsToRequest does: same method/URL/body-getter, independent
// header map so callers can mutate the clone freely.
func cloneRequestForRevalidation(req *http.Request) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header = req.Header.Clone()
	return clone
}

// buildConditionalRequest implements spec.md §4.G.1: adds If-None-Match
// from entry's ETag and If-Modified-Since from its Last-Modified (falling
// back to its Date), and strips body-conditional headers the response's
// no-cache field list bans from being forwarded on revalidation.
func buildConditionalRequest(respCC ResponseDirectives, originalRequest *http.Request, entry *store.Entry) *http.Request {
	req := cloneRequestForRevalidation(originalRequest)

	if etag := entry.Header.Get(headerETag); etag != "" {
		req.Header.Set("If-None-Match", etag)
	} else if lastModified := entry.Header.Get(headerLastModified); lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	} else if dateValue, err := Date(entry.Header); err == nil {
		req.Header.Set("If-Modified-Since", dateValue.Format(http.TimeFormat))
	}

	for _, banned := range respCC.NoCacheFields {
		if strings.EqualFold(banned, "If-None-Match") || strings.EqualFold(banned, "If-Modified-Since") {
			req.Header.Del(banned)
		}
	}

	return req
}

// buildConditionalRequestFromVariants implements spec.md §4.G.2: used for
// variant negotiation (§4.K.3), setting If-None-Match to the comma-joined
// set of every collected variant ETag.
func buildConditionalRequestFromVariants(request *http.Request, etagSet []string) *http.Request {
	req := cloneRequestForRevalidation(request)
	if len(etagSet) > 0 {
		req.Header.Set("If-None-Match", strings.Join(etagSet, ", "))
	}
	return req
}

// buildUnconditionalRequest implements spec.md §4.G.3: strips every
// conditional header and forces a fresh response with Cache-Control/Pragma:
// no-cache, used to retry when a 304 arrives without enough information to
// resolve (e.g. variant negotiation's ETag-less 304 case, §4.K.3).
func buildUnconditionalRequest(originalRequest *http.Request) *http.Request {
	req := cloneRequestForRevalidation(originalRequest)
	req.Header.Del("If-None-Match")
	req.Header.Del("If-Modified-Since")
	req.Header.Del("If-Match")
	req.Header.Del("If-Unmodified-Since")
	req.Header.Del("If-Range")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(headerPragma, pragmaNoCache)
	return req
}
