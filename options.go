package cachekit

import "time"

// CacheModeFunc overrides the initial CacheMode for a request,
// evaluated before the cache lookup.
type CacheModeFunc func(req RequestHead) (CacheMode, bool)

// ResponseCacheModeFunc overrides the effective CacheMode after the
// origin response head is known, e.g. refusing to store text/html.
type ResponseCacheModeFunc func(req RequestHead, resp ResponseHead) (CacheMode, bool)

// ModifyResponseFunc mutates response headers before the response is
// handed to the PolicyEngine and stored, e.g. injecting a reduced
// max-age to implement MaxTTL.
type ModifyResponseFunc func(resp *ResponseHead)

// MetadataProviderFunc computes the opaque metadata blob stored
// alongside a response.
type MetadataProviderFunc func(req RequestHead, resp ResponseHead) []byte

// CacheOptions configures a CacheDecisionEngine. The zero value is a
// usable Default-mode, no-rate-limit, no-status-header configuration.
type CacheOptions struct {
	// Mode is the static CacheMode used when no override applies.
	Mode CacheMode

	// CacheModeFn, when set, overrides Mode per request before the
	// cache lookup (precedence: below the adapter's
	// OverriddenCacheMode, above ResponseCacheModeFn and Mode).
	CacheModeFn CacheModeFunc
	// ResponseCacheModeFn, when set, overrides the effective mode
	// after the origin response head is known.
	ResponseCacheModeFn ResponseCacheModeFunc

	// ModifyResponse, when set, is called on the response head before
	// it is handed to the PolicyEngine for storage.
	ModifyResponse ModifyResponseFunc
	// MetadataProvider, when set, computes the metadata blob passed
	// to the backend's put/put_stream. Not called when the fetched
	// response already carries Metadata; that value is stored as is.
	MetadataProvider MetadataProviderFunc

	// MaxTTL, if nonzero, clamps the effective freshness lifetime of
	// stored responses to at most this duration; if the origin
	// specified no freshness, MaxTTL supplies it. Shorter
	// server-specified freshness is respected unchanged.
	MaxTTL time.Duration

	// Public configures the cache as a shared (RFC 9111 "public")
	// cache, which refuses to store Cache-Control: private responses.
	// Default false (private cache).
	Public bool

	// CacheStatusHeaders, when true, attaches the X-Cache diagnostic
	// header to every returned response.
	CacheStatusHeaders bool

	// KeyBuilder computes cache keys and invalidation sets. The zero
	// value uses the default key format and performs no invalidation.
	KeyBuilder KeyBuilder

	// RateLimiter gates cache-miss forwarding. Defaults to an
	// unthrottled no-op limiter.
	RateLimiter RateLimiter

	// Policy computes RFC 7234 cacheability and freshness. Required;
	// NewEngine returns an error if nil.
	Policy PolicyEngine
}

// Option configures a CacheOptions value via NewEngine.
type Option func(*CacheOptions)

// WithMode sets the static CacheMode.
func WithMode(m CacheMode) Option {
	return func(o *CacheOptions) { o.Mode = m }
}

// WithCacheModeFn sets a per-request mode override evaluated before
// the cache lookup.
func WithCacheModeFn(fn CacheModeFunc) Option {
	return func(o *CacheOptions) { o.CacheModeFn = fn }
}

// WithResponseCacheModeFn sets a mode override evaluated after the
// origin response head is known.
func WithResponseCacheModeFn(fn ResponseCacheModeFunc) Option {
	return func(o *CacheOptions) { o.ResponseCacheModeFn = fn }
}

// WithModifyResponse sets a hook to mutate response headers before
// storage.
func WithModifyResponse(fn ModifyResponseFunc) Option {
	return func(o *CacheOptions) { o.ModifyResponse = fn }
}

// WithMetadataProvider sets a hook computing the stored metadata blob.
func WithMetadataProvider(fn MetadataProviderFunc) Option {
	return func(o *CacheOptions) { o.MetadataProvider = fn }
}

// WithMaxTTL sets a ceiling on stored responses' freshness lifetime.
func WithMaxTTL(d time.Duration) Option {
	return func(o *CacheOptions) { o.MaxTTL = d }
}

// WithPublicCache configures shared- vs private-cache RFC 9111
// semantics.
func WithPublicCache(public bool) Option {
	return func(o *CacheOptions) { o.Public = public }
}

// WithCacheStatusHeaders enables the X-Cache diagnostic header.
func WithCacheStatusHeaders(enabled bool) Option {
	return func(o *CacheOptions) { o.CacheStatusHeaders = enabled }
}

// WithKeyBuilder sets the KeyBuilder.
func WithKeyBuilder(kb KeyBuilder) Option {
	return func(o *CacheOptions) { o.KeyBuilder = kb }
}

// WithRateLimiter sets the RateLimiter.
func WithRateLimiter(rl RateLimiter) Option {
	return func(o *CacheOptions) { o.RateLimiter = rl }
}

// WithPolicyEngine sets the PolicyEngine.
func WithPolicyEngine(p PolicyEngine) Option {
	return func(o *CacheOptions) { o.Policy = p }
}
