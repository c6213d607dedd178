package cachekit

import "errors"

// Error kinds per spec §7. CacheMiss is an internal signal and is
// never returned to a caller; it is listed here only for
// documentation symmetry with the spec.
var (
	// ErrCacheMiss is never surfaced by the engine; lookups report a
	// miss by returning (CacheEntry{}, false, nil).
	ErrCacheMiss = errors.New("cachekit: cache miss")

	// ErrBadRequestHead is returned when a MiddlewareAdapter cannot
	// assemble a request head.
	ErrBadRequestHead = errors.New("cachekit: adapter could not assemble request head")

	// ErrBadResponse is returned when a MiddlewareAdapter's
	// RemoteFetch returns an uninterpretable response.
	ErrBadResponse = errors.New("cachekit: adapter returned uninterpretable response")

	// ErrBackendUnavailable names a backend I/O failure. The engine
	// does not return or wrap it: on a read path it degrades to a
	// miss; on a write path it returns the response unchanged and
	// skips the store.
	ErrBackendUnavailable = errors.New("cachekit: backend unavailable")

	// ErrRateLimitCancelled is returned when the caller's context is
	// cancelled while waiting on a RateLimiter.
	ErrRateLimitCancelled = errors.New("cachekit: rate limit wait cancelled")

	// ErrPolicyBlobCorrupt indicates a stored CachePolicyBlob could
	// not be decoded by the PolicyEngine. The engine treats the entry
	// as absent and best-effort deletes it.
	ErrPolicyBlobCorrupt = errors.New("cachekit: stored policy blob is corrupt")
)
