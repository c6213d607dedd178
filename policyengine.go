package cachekit

// PolicyEngine computes RFC 7234 cacheability, freshness, and
// revalidation decisions. The engine treats it as an opaque
// collaborator: CachePolicyBlob values it produces are never
// interpreted by the decision engine, only stored and handed back.
//
// The default implementation lives in package policy
// (policy.RFC7234Engine); it is grounded on this repository's own
// cachecontrol/freshness/age/vary/warning logic.
type PolicyEngine interface {
	// BuildPolicy computes a CachePolicyBlob for a response observed
	// in answer to req, under opts.
	BuildPolicy(req RequestHead, resp ResponseHead, opts PolicyOptions) (CachePolicyBlob, error)

	// Classify judges a stored entry against an incoming request and
	// returns the verdict the engine should act on.
	Classify(req RequestHead, entry CacheEntry, opts PolicyOptions) (PolicyVerdict, error)

	// BuildConditional populates the header map with the conditional
	// revalidation headers (If-None-Match, If-Modified-Since) implied
	// by the stored entry's validators (ETag, Last-Modified).
	BuildConditional(entry CacheEntry, h Header)

	// MergeNotModified merges a 304 response's headers into the
	// stored entry, returning the updated entry and its recomputed
	// policy blob.
	MergeNotModified(entry CacheEntry, notModified ResponseHead) (CacheEntry, error)

	// AnnotateServedFromCache adds a Warning header (RFC 7234 §5.5) to
	// headers when a response is being served straight from cache
	// without revalidation but is, by its own lifetime, actually stale
	// (VerdictFresh reached only via the request's max-stale, or
	// VerdictStale served as-is under ForceCache/IgnoreRules).
	AnnotateServedFromCache(headers Header)

	// AnnotateRevalidationFailed adds Warning: 111 (Revalidation
	// Failed) to headers when a stale entry is served because
	// revalidation could not be completed (stale-if-error).
	AnnotateRevalidationFailed(headers Header)
}

// PolicyVerdict is the outcome of PolicyEngine.Classify.
type PolicyVerdict int

const (
	// VerdictFresh: the entry may be served as-is.
	VerdictFresh PolicyVerdict = iota
	// VerdictStale: the entry has expired and, depending on
	// CacheMode, may need revalidation or may still be serveable.
	VerdictStale
	// VerdictMustRevalidate: the entry is stale and must not be
	// served without successful revalidation, even under
	// stale-while-revalidate-permitting modes.
	VerdictMustRevalidate
	// VerdictUncacheable: the stored entry (or the response that
	// would replace it) must not be served from or written to cache.
	VerdictUncacheable
)
