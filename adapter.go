package cachekit

import "context"

// PolicyOptions carries engine configuration a PolicyEngine needs to
// know about when classifying a response, e.g. whether the cache is
// acting as a shared (public) or private cache.
type PolicyOptions struct {
	// Public, when true, instructs the policy engine to refuse to
	// cache responses carrying Cache-Control: private, matching RFC
	// 9111's shared-cache rules.
	Public bool
}

// MiddlewareAdapter is the thin interface a client integration
// implements so the CacheDecisionEngine can introspect and forward a
// request without depending on any concrete HTTP client library.
// Implementations must be safe for concurrent use from multiple
// goroutines in multi-threaded runtimes.
type MiddlewareAdapter interface {
	// IsMethodCacheable reports whether the held request's method is
	// GET or HEAD.
	IsMethodCacheable() bool
	// RequestHead returns the method, effective URL, version, and
	// header map of the held request.
	RequestHead() (RequestHead, error)
	// URL returns the held request's effective URL.
	URL() string
	// Method returns the held request's method.
	Method() string

	// BuildPolicy asks the configured PolicyEngine to compute a
	// CachePolicyBlob for the given response head, using the held
	// request as context.
	BuildPolicy(resp ResponseHead) (CachePolicyBlob, error)
	// BuildPolicyWithOptions is BuildPolicy with explicit
	// PolicyOptions (e.g. shared vs private cache semantics).
	BuildPolicyWithOptions(resp ResponseHead, opts PolicyOptions) (CachePolicyBlob, error)

	// InjectHeaders mutates the outgoing request's headers, used to
	// attach conditional-revalidation headers (If-None-Match,
	// If-Modified-Since) before a forwarded request is sent.
	InjectHeaders(h Header)
	// ForceNoCacheDirective sets the outgoing request's
	// Cache-Control header to no-cache.
	ForceNoCacheDirective()

	// OverriddenCacheMode returns a client-middleware hard override
	// for this request, if any. The second return value is false when
	// no override applies.
	OverriddenCacheMode() (CacheMode, bool)

	// RemoteFetch forwards the held request to the origin and
	// returns the resulting response. It may suspend on network I/O
	// and must respect ctx cancellation.
	RemoteFetch(ctx context.Context) (CachedResponse, error)
}
