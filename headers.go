package httpcache

// Canonical header and directive-name constants shared across the engine,
// grounded on the const block in the teacher's httpcache.go.
const (
	headerAge             = "Age"
	headerETag            = "ETag"
	headerLastModified    = "Last-Modified"
	headerWarning         = "Warning"
	headerLocation        = "Location"
	headerContentLocation = "Content-Location"
	headerPragma          = "Pragma"
	headerVary            = "Vary"
	headerXVariedPrefix   = "X-Varied-"

	pragmaNoCache = "no-cache"

	methodGET    = "GET"
	methodHEAD   = "HEAD"
	methodPOST   = "POST"
	methodPUT    = "PUT"
	methodPATCH  = "PATCH"
	methodDELETE = "DELETE"

	warningResponseIsStale    = `110 - "Response is Stale"`
	warningRevalidationFailed = `111 - "Revalidation Failed"`
)
