package policy

// Freshness states, mirroring RFC 9111's classification of a stored
// response against an incoming request.
const (
	stale = iota
	fresh
	transparent
	staleWhileRevalidate
)

const (
	headerXVariedPrefix   = "X-Varied-"
	headerLastModified    = "last-modified"
	headerETag            = "etag"
	headerAge             = "Age"
	headerWarning         = "Warning"
	headerLocation        = "Location"
	headerContentLocation = "Content-Location"

	cacheControlOnlyIfCached         = "only-if-cached"
	cacheControlNoCache              = "no-cache"
	cacheControlStaleWhileRevalidate = "stale-while-revalidate"
	cacheControlMaxAge               = "max-age"
	cacheControlNoStore              = "no-store"
	cacheControlPrivate              = "private"
	cacheControlMustUnderstand       = "must-understand"
	cacheControlPublic               = "public"
	cacheControlMustRevalidate       = "must-revalidate"
	cacheControlSMaxAge              = "s-maxage"

	headerPragma  = "Pragma"
	pragmaNoCache = "no-cache"

	logConflictingDirectives = "conflicting Cache-Control directives detected"

	// RFC 7234 Section 5.5: Warning header codes.
	warningResponseIsStale    = `110 - "Response is Stale"`
	warningRevalidationFailed = `111 - "Revalidation Failed"`

	freshnessStringFresh                = "fresh"
	freshnessStringStale                = "stale"
	freshnessStringStaleWhileRevalidate = "stale-while-revalidate"
	freshnessStringTransparent          = "transparent"
	freshnessStringUnknown              = "unknown"
)

// understoodStatusCodes lists the status codes a must-understand
// directive permits caching, per RFC 9111 Section 5.2.2.3.
var understoodStatusCodes = map[int]bool{
	200: true,
	203: true,
	204: true,
	206: true,
	300: true,
	301: true,
	404: true,
	405: true,
	410: true,
	414: true,
	501: true,
}
