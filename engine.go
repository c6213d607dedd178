package cachekit

import (
	"context"
	"errors"
	"fmt"

	"github.com/htcacheio/cachekit/internal/logging"
)

// Backend is the minimal storage contract the engine depends on. Any
// type satisfying backend.Buffered (package backend) satisfies this
// interface structurally; the engine never imports package backend,
// keeping the dependency direction backend -> cachekit.
type Backend interface {
	Get(ctx context.Context, key string) (CacheEntry, bool, error)
	Put(ctx context.Context, key string, entry CacheEntry) error
	Delete(ctx context.Context, key string) error
	UpdateHeaders(ctx context.Context, key string, headers Header, policy CachePolicyBlob) (bool, error)
}

// StreamingBackend is the streaming extension of Backend, satisfied
// structurally by backend.Streaming implementations. The engine
// type-asserts a configured Backend against this interface to decide
// whether to exercise the streaming get/put path.
type StreamingBackend interface {
	Backend
	GetStream(ctx context.Context, key string) (CacheEntry, bool, error)
	PutStream(ctx context.Context, key string, entry CacheEntry, requestURL string, metadata []byte) (CacheEntry, error)
	EmptyBody() Body
}

// Engine is the CacheDecisionEngine: the HTTP caching state machine
// that combines a PolicyEngine, KeyBuilder, RateLimiter, and backend
// with a MiddlewareAdapter to decide, for each request, whether to
// serve from cache, revalidate, fetch, fail, or bypass.
type Engine struct {
	store  Backend
	stream StreamingBackend // non-nil iff store also implements StreamingBackend
	opts   CacheOptions
}

// NewEngine constructs an Engine over store, applying opts. Returns an
// error if no PolicyEngine is configured.
func NewEngine(store Backend, opts ...Option) (*Engine, error) {
	cfg := CacheOptions{
		RateLimiter: noopLimiter{},
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Policy == nil {
		return nil, fmt.Errorf("cachekit: NewEngine requires a PolicyEngine (WithPolicyEngine)")
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = noopLimiter{}
	}

	e := &Engine{store: store, opts: cfg}
	if sb, ok := store.(StreamingBackend); ok {
		e.stream = sb
	}
	return e, nil
}

// Handle drives the decision algorithm for a single request held by
// adapter, returning the response to give back to the caller.
func (e *Engine) Handle(ctx context.Context, adapter MiddlewareAdapter) (CachedResponse, error) {
	req, err := adapter.RequestHead()
	if err != nil {
		return CachedResponse{}, fmt.Errorf("%w: %w", ErrBadRequestHead, err)
	}

	// Step 1: non-idempotent methods bust related entries and always
	// forward; the core never caches their responses.
	if !adapter.IsMethodCacheable() {
		key := e.opts.KeyBuilder.Key(req)
		for _, busted := range e.opts.KeyBuilder.InvalidationSet(req, key) {
			if derr := e.store.Delete(ctx, busted); derr != nil {
				logging.Get().WarnContext(ctx, "cachekit: invalidation delete failed", "key", busted, "error", derr)
			}
		}
		return adapter.RemoteFetch(ctx)
	}

	key := e.opts.KeyBuilder.Key(req)
	mode := e.initialMode(adapter, req)

	// Step 3.
	if mode == NoStore {
		return adapter.RemoteFetch(ctx)
	}

	policyOpts := PolicyOptions{Public: e.opts.Public}

	// Step 4: Reload skips the lookup entirely.
	if mode == Reload {
		return e.forwardAndStore(ctx, adapter, req, key, mode, StatusMiss)
	}

	entry, hit, err := e.store.Get(ctx, key)
	if err != nil {
		logging.Get().WarnContext(ctx, "cachekit: backend get failed, treating as miss", "key", key, "error", err)
		hit = false
	}

	if !hit {
		if mode == OnlyIfCached {
			return e.syntheticTimeout(), nil
		}
		return e.forwardAndStore(ctx, adapter, req, key, mode, StatusMiss)
	}

	verdict, err := e.opts.Policy.Classify(req, entry, policyOpts)
	if err != nil {
		logging.Get().WarnContext(ctx, "cachekit: policy classify failed, treating entry as absent", "key", key, "error", err)
		if errors.Is(err, ErrPolicyBlobCorrupt) {
			if derr := e.store.Delete(ctx, key); derr != nil {
				logging.Get().WarnContext(ctx, "cachekit: deleting corrupt entry failed", "key", key, "error", derr)
			}
		}
		if mode == OnlyIfCached {
			return e.syntheticTimeout(), nil
		}
		return e.forwardAndStore(ctx, adapter, req, key, mode, StatusMiss)
	}

	switch verdict {
	case VerdictFresh:
		if mode == Default || mode == ForceCache || mode == IgnoreRules || mode == OnlyIfCached {
			return e.withStatus(e.annotateServed(entry.Response), StatusHit), nil
		}
		// NoCache always revalidates even a fresh entry.
		return e.revalidate(ctx, adapter, req, key, mode, entry, policyOpts)

	case VerdictStale:
		if mode == ForceCache || mode == IgnoreRules || mode == OnlyIfCached {
			// OnlyIfCached serves whatever is cached regardless of
			// freshness and never forwards to the origin.
			return e.withStatus(e.annotateServed(entry.Response), StatusStale), nil
		}
		// Default and NoCache attempt revalidation; Default falls
		// back to the stale entry on fetch failure.
		return e.revalidate(ctx, adapter, req, key, mode, entry, policyOpts)

	case VerdictMustRevalidate:
		if mode == OnlyIfCached {
			// OnlyIfCached overrides must-revalidate too: serve
			// regardless of freshness, never forward.
			return e.withStatus(e.annotateServed(entry.Response), StatusStale), nil
		}
		return e.revalidate(ctx, adapter, req, key, mode, entry, policyOpts)

	default: // VerdictUncacheable
		if mode == OnlyIfCached {
			return e.syntheticTimeout(), nil
		}
		return e.forwardAndStore(ctx, adapter, req, key, mode, StatusMiss)
	}
}

// initialMode resolves the pre-lookup CacheMode per the precedence in
// spec §4.5: adapter override, then CacheModeFn, then the static Mode.
func (e *Engine) initialMode(adapter MiddlewareAdapter, req RequestHead) CacheMode {
	if m, ok := adapter.OverriddenCacheMode(); ok {
		return m
	}
	if e.opts.CacheModeFn != nil {
		if m, ok := e.opts.CacheModeFn(req); ok {
			return m
		}
	}
	return e.opts.Mode
}

// revalidate builds a conditional request from the stored entry's
// policy, forwards it, and handles the 304 / fresh-origin / error
// outcomes.
func (e *Engine) revalidate(ctx context.Context, adapter MiddlewareAdapter, req RequestHead, key string, mode CacheMode, entry CacheEntry, policyOpts PolicyOptions) (CachedResponse, error) {
	h := NewHeader()
	e.opts.Policy.BuildConditional(entry, h)
	adapter.InjectHeaders(h)

	if err := e.opts.RateLimiter.UntilKeyReady(ctx, key); err != nil {
		return CachedResponse{}, ErrRateLimitCancelled
	}

	resp, err := adapter.RemoteFetch(ctx)
	if err != nil {
		if mode == Default {
			permitted, perr := e.staleOnErrorPermitted(entry, policyOpts)
			if perr == nil && permitted {
				return e.withStatus(e.annotateRevalidationFailed(entry.Response), StatusStale), nil
			}
		}
		return CachedResponse{}, err
	}

	if resp.Status == 304 {
		merged, err := e.opts.Policy.MergeNotModified(entry, ResponseHead{
			Status:  resp.Status,
			Version: resp.Version,
			Headers: resp.Headers,
		})
		if err != nil {
			return CachedResponse{}, fmt.Errorf("cachekit: merging 304 response: %w", err)
		}
		if ok, err := e.store.UpdateHeaders(ctx, key, merged.Response.Headers, merged.Policy); err != nil || !ok {
			if err := e.store.Put(ctx, key, merged); err != nil {
				logging.Get().WarnContext(ctx, "cachekit: persisting revalidated entry failed", "key", key, "error", err)
			}
		}
		return e.withStatus(merged.Response, StatusRevalidated), nil
	}

	if resp.Status >= 500 {
		if mode == Default {
			permitted, perr := e.staleOnErrorPermitted(entry, policyOpts)
			if perr == nil && permitted {
				return e.withStatus(e.annotateRevalidationFailed(entry.Response), StatusStale), nil
			}
		}
	}

	// Any other success: treat as a fresh origin response and fall
	// through to the storage steps (8-12 collapse since we already
	// have the response).
	return e.storeResponse(ctx, adapter, req, key, resp, StatusMiss)
}

func (e *Engine) staleOnErrorPermitted(entry CacheEntry, policyOpts PolicyOptions) (bool, error) {
	verdict, err := e.opts.Policy.Classify(RequestHead{}, entry, policyOpts)
	if err != nil {
		return false, err
	}
	return verdict == VerdictStale, nil
}

// forwardAndStore rate-limits, fetches from the origin, and stores
// the result (steps 8-12).
func (e *Engine) forwardAndStore(ctx context.Context, adapter MiddlewareAdapter, req RequestHead, key string, mode CacheMode, missStatus CacheStatus) (CachedResponse, error) {
	if err := e.opts.RateLimiter.UntilKeyReady(ctx, key); err != nil {
		return CachedResponse{}, ErrRateLimitCancelled
	}
	resp, err := adapter.RemoteFetch(ctx)
	if err != nil {
		return CachedResponse{}, err
	}
	return e.storeResponse(ctx, adapter, req, key, resp, missStatus)
}

// storeResponse implements steps 9-12: decide whether to store,
// apply max_ttl and modify_response, compute the policy blob and
// metadata, and persist.
func (e *Engine) storeResponse(ctx context.Context, adapter MiddlewareAdapter, req RequestHead, key string, resp CachedResponse, status CacheStatus) (CachedResponse, error) {
	mode := e.initialMode(adapter, req)
	// The adapter's hard override, once in effect, also wins over
	// response_cache_mode_fn; only consult the latter when no adapter
	// override applies (see DESIGN.md Open Question decision 2).
	if _, overridden := adapter.OverriddenCacheMode(); !overridden && e.opts.ResponseCacheModeFn != nil {
		if m, ok := e.opts.ResponseCacheModeFn(req, ResponseHead{Status: resp.Status, Version: resp.Version, Headers: resp.Headers}); ok {
			mode = m
		}
	}

	if mode == NoStore {
		return e.withStatus(resp, StatusBypass), nil
	}

	respHead := ResponseHead{Status: resp.Status, Version: resp.Version, Headers: resp.Headers}
	if mode == IgnoreRules && resp.Status != 200 {
		// IgnoreRules only overrides rule evaluation for 200s.
		return e.withStatus(resp, StatusBypass), nil
	}

	if e.opts.ModifyResponse != nil {
		e.opts.ModifyResponse(&respHead)
		resp.Headers = respHead.Headers
	}

	if maxTTL := int64(e.opts.MaxTTL.Seconds()); maxTTL > 0 {
		clampMaxAge(respHead.Headers, maxTTL)
	}

	policyOpts := PolicyOptions{Public: e.opts.Public}
	blob, err := adapter.BuildPolicyWithOptions(respHead, policyOpts)
	if err != nil {
		if mode != IgnoreRules {
			// Response is not storeable per policy (e.g. no-store).
			return e.withStatus(resp, StatusUncacheable), nil
		}
		// IgnoreRules stores regardless of what the policy engine
		// says; fall back to an empty blob when it refuses to compute
		// one at all.
		blob = CachePolicyBlob{}
	}

	if e.opts.MetadataProvider != nil && resp.Metadata == nil {
		resp.Metadata = e.opts.MetadataProvider(req, respHead)
	}

	entry := CacheEntry{Response: resp, Policy: blob}

	if e.stream != nil && resp.Stream != nil {
		stored, err := e.stream.PutStream(ctx, key, entry, req.URL, resp.Metadata)
		if err != nil {
			logging.Get().WarnContext(ctx, "cachekit: put_stream failed, serving response uncached", "key", key, "error", err)
			return e.withStatus(resp, status), nil
		}
		return e.withStatus(stored.Response, status), nil
	}

	if err := e.store.Put(ctx, key, entry); err != nil {
		logging.Get().WarnContext(ctx, "cachekit: put failed, serving response uncached", "key", key, "error", err)
		return e.withStatus(resp, status), nil
	}
	return e.withStatus(resp, status), nil
}

// annotateServed lets the policy engine add a Warning header before a
// cached response is returned without revalidation.
func (e *Engine) annotateServed(resp CachedResponse) CachedResponse {
	if resp.Headers != nil {
		e.opts.Policy.AnnotateServedFromCache(resp.Headers)
	}
	return resp
}

// annotateRevalidationFailed lets the policy engine add Warning: 111
// before a stale entry is served because revalidation failed.
func (e *Engine) annotateRevalidationFailed(resp CachedResponse) CachedResponse {
	if resp.Headers != nil {
		e.opts.Policy.AnnotateRevalidationFailed(resp.Headers)
	}
	return resp
}

func (e *Engine) withStatus(resp CachedResponse, status CacheStatus) CachedResponse {
	if e.opts.CacheStatusHeaders {
		if resp.Headers == nil {
			resp.Headers = NewHeader()
		}
		resp.Headers.Set(CacheStatusHeader, string(status))
	}
	return resp
}

func (e *Engine) syntheticTimeout() CachedResponse {
	h := NewHeader()
	if e.opts.CacheStatusHeaders {
		h.Set(CacheStatusHeader, string(StatusMiss))
	}
	return CachedResponse{Status: 504, Version: "1.1", Headers: h}
}
