package httpcache

import "net/http"

// supportedCacheMethods lists the request methods this cache ever looks up
// or stores against, grounded on the teacher's RoundTrip cacheable check
// (`req.Method == methodGET || req.Method == methodHEAD`).
var supportedCacheMethods = map[string]bool{
	methodGET:  true,
	methodHEAD: true,
}

// isServableFromCache implements spec.md component D / §4.K step 4: whether
// req is even eligible to be served from cache, independent of whether any
// entry happens to match. A request failing this check always goes
// straight to origin, bypassing lookup/store entirely.
func isServableFromCache(req *http.Request, reqCC RequestDirectives, sharedCache bool) bool {
	if !supportedCacheMethods[req.Method] {
		return false
	}
	if req.Header.Get("Range") != "" {
		return false
	}
	if reqCC.NoStore {
		return false
	}
	if sharedCache && req.Header.Get("Authorization") != "" {
		// RFC 9111 §3.5: a shared cache may still serve an authenticated
		// request from cache if the *stored response* explicitly permits
		// it (public/must-revalidate/s-maxage) — that response-side check
		// happens in policy_response.go's canStore. Here we only reject
		// the request outright when it additionally demands no-store or
		// uses an unsupported method; Authorization alone does not bar
		// lookup, since a previously stored explicitly-shareable response
		// may still satisfy it.
		return true
	}
	return true
}

// isRequestConditional reports whether req itself carries a validator
// (If-None-Match / If-Modified-Since), used by the engine's "entry is
// stored 304 and request is non-conditional -> go to origin" rule
// (spec.md §4.K.2).
func isRequestConditional(req *http.Request) bool {
	return req.Header.Get("If-None-Match") != "" || req.Header.Get("If-Modified-Since") != ""
}

// hasNonRepeatableBody reports whether req carries a body the engine cannot
// safely replay for a conditional revalidation request (spec.md §4.K.2:
// "Request has non-repeatable body -> Go to origin").
func hasNonRepeatableBody(req *http.Request) bool {
	return req.Body != nil && req.GetBody == nil
}
