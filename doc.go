// Package httpcache implements a client-side HTTP response cache decision
// engine, conditionally conformant with the caching rules of RFC 7234 and the
// conditional-request/variant machinery of RFC 7232/7231.
//
// The engine sits between an http.Client and a downstream round-tripper
// (the Chain). It decides, for every request, whether to serve a stored
// response, revalidate it against the origin (synchronously or in the
// background), negotiate among stored Vary variants, or simply forward to
// the origin and opportunistically store the result. Storage itself is
// delegated to a pluggable store.Store implementation; see the store
// subpackage for the facade and its concrete backends.
package httpcache
