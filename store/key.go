package store

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
)

// Fingerprint returns the request-fingerprint key for req against host:
// the tuple (target host, effective method, effective URI), grounded on
// the teacher's cacheKey helper (cachekey.go).
func Fingerprint(host string, req *http.Request) string {
	if req.Method == http.MethodGet {
		return host + " " + req.URL.RequestURI()
	}
	return host + " " + req.Method + " " + req.URL.RequestURI()
}

// FingerprintWithHeaders extends Fingerprint with additional request header
// values folded in; KeyedStore uses it with the cacheKeyHeaders passed to
// NewKeyedStore to separate cache entries by (e.g.) Authorization. Mirrors the teacher's
// cacheKeyWithHeaders.
func FingerprintWithHeaders(host string, req *http.Request, headers []string) string {
	key := Fingerprint(host, req)
	if len(headers) == 0 {
		return key
	}
	var parts []string
	for _, h := range headers {
		canon := http.CanonicalHeaderKey(h)
		if v := req.Header.Get(canon); v != "" {
			parts = append(parts, canon+":"+v)
		}
	}
	if len(parts) == 0 {
		return key
	}
	sort.Strings(parts)
	return key + "|" + strings.Join(parts, "|")
}

// NormalizeHeaderValue collapses whitespace and comma-space variance in a
// header value so that semantically identical Vary-selected values hash
// identically (RFC 9111 §4.1), grounded on the teacher's vary.go.
func NormalizeHeaderValue(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	prevSpace := false
	for _, r := range value {
		switch r {
		case ' ', '\t', '\n', '\r':
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.ReplaceAll(b.String(), ", ", ",")
}

// VariantKey hashes the request header values selected by varyHeaders into
// a stable variant-key string (spec.md §3 "Cache entry": variant map).
func VariantKey(req *http.Request, varyHeaders []string) string {
	if len(varyHeaders) == 0 {
		return ""
	}
	parts := make([]string, 0, len(varyHeaders))
	for _, h := range varyHeaders {
		canon := http.CanonicalHeaderKey(strings.TrimSpace(h))
		if canon == "" || canon == "*" {
			continue
		}
		parts = append(parts, canon+"="+NormalizeHeaderValue(req.Header.Get(canon)))
	}
	sort.Strings(parts)
	sum := sha256.Sum256([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(sum[:])
}

// VaryHeaderNames extracts the list of header names named by a Vary
// response header, expanding comma-separated values and skipping "*".
func VaryHeaderNames(h http.Header) []string {
	var out []string
	for _, raw := range h.Values("Vary") {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" || name == "*" {
				continue
			}
			out = append(out, http.CanonicalHeaderKey(name))
		}
	}
	return out
}

// HasVaryStar reports whether the response's Vary header contains "*",
// which per RFC 9111 §4.1 means the stored response never matches a later
// request and must not be treated as cacheable-with-variants.
func HasVaryStar(h http.Header) bool {
	for _, raw := range h.Values("Vary") {
		for _, name := range strings.Split(raw, ",") {
			if strings.TrimSpace(name) == "*" {
				return true
			}
		}
	}
	return false
}
