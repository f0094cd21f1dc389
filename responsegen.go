package httpcache

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/relaycache/httpcache/store"
)

// synthesizeResponse builds the client-visible *http.Response for entry
// (spec.md component H), setting the Age header from the recomputed
// current age and, unless disabled, a stale Warning per RFC 7234 §5.5.
// Grounded on the teacher's cachedResponseWithKeySecure / handleCachedResponse
// response-assembly path.
func synthesizeResponse(req *http.Request, entry *store.Entry, age time.Duration, stale bool, disableWarningHeader bool) *http.Response {
	header := entry.Header.Clone()
	header.Set(headerAge, formatAge(age))

	resp := &http.Response{
		Status:     entry.Reason,
		StatusCode: entry.StatusCode,
		Proto:      entry.Proto,
		Header:     header,
		Request:    req,
		Body:       io.NopCloser(bytes.NewReader(entry.Body)),
	}
	if resp.Proto == "" {
		resp.Proto = "HTTP/1.1"
	}
	if resp.Status == "" {
		resp.Status = http.StatusText(resp.StatusCode)
	}

	if stale && !disableWarningHeader {
		addWarningHeader(resp, warningResponseIsStale)
	}
	return resp
}

// markRevalidationFailed adds the "111 Revalidation Failed" Warning to a
// stale entry's response when the cache decides to serve it anyway after a
// failed revalidation attempt (stale-if-error path, spec.md §4.K.5).
func markRevalidationFailed(resp *http.Response, disableWarningHeader bool) {
	if !disableWarningHeader {
		addWarningHeader(resp, warningRevalidationFailed)
	}
}

// synthesizeNotModified builds a body-less 304 response from entry, used
// when the client's own request is itself conditional and its conditionals
// are satisfied by entry (RFC 7232 §4.1: a 304 carries the validators and
// representation metadata it would have sent with a 200, but no payload).
func synthesizeNotModified(req *http.Request, entry *store.Entry, age time.Duration) *http.Response {
	header := entry.Header.Clone()
	header.Set(headerAge, formatAge(age))

	resp := &http.Response{
		Status:     "304 Not Modified",
		StatusCode: http.StatusNotModified,
		Proto:      entry.Proto,
		Header:     header,
		Request:    req,
		Body:       http.NoBody,
	}
	if resp.Proto == "" {
		resp.Proto = "HTTP/1.1"
	}
	return resp
}
