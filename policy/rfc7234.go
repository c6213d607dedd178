// Package policy computes RFC 9111 (obsoleting RFC 7234) cacheability,
// freshness, and revalidation decisions for cachekit. It is consumed
// through the cachekit.PolicyEngine interface and never reaches back
// into the engine or any backend.
package policy

import (
	"encoding/json"
	"fmt"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/internal/logging"
)

// blob is the JSON encoding of a cachekit.CachePolicyBlob produced by
// RFC7234Engine. It freezes the storeability verdict computed at
// response time; freshness itself is recomputed against the stored
// response's own headers (Date, Cache-Control, Age) each time
// Classify is called, since freshness also depends on the new
// incoming request's directives (max-age, max-stale, only-if-cached).
type blob struct {
	Storeable bool `json:"storeable"`
	Status    int  `json:"status"`
}

// RFC7234Engine is the default cachekit.PolicyEngine implementation.
type RFC7234Engine struct{}

// New returns an RFC7234Engine. It is stateless and safe to share.
func New() *RFC7234Engine {
	return &RFC7234Engine{}
}

func (e *RFC7234Engine) BuildPolicy(req cachekit.RequestHead, resp cachekit.ResponseHead, opts cachekit.PolicyOptions) (cachekit.CachePolicyBlob, error) {
	log := logging.Get()
	reqCC := parseCacheControl(req.Headers, log)
	respCC := parseCacheControl(resp.Headers, log)

	if resp.Headers != nil {
		storeVaryHeaders(resp.Headers, req.Headers)
	}

	if !canStore(req, reqCC, respCC, opts.Public, resp.Status, log) {
		return nil, fmt.Errorf("policy: response is not storeable per Cache-Control")
	}

	data, err := json.Marshal(blob{Storeable: true, Status: resp.Status})
	if err != nil {
		return nil, fmt.Errorf("policy: encoding policy blob: %w", err)
	}
	return data, nil
}

func (e *RFC7234Engine) Classify(req cachekit.RequestHead, entry cachekit.CacheEntry, opts cachekit.PolicyOptions) (cachekit.PolicyVerdict, error) {
	var b blob
	if len(entry.Policy) > 0 {
		if err := json.Unmarshal(entry.Policy, &b); err != nil {
			return cachekit.VerdictUncacheable, fmt.Errorf("%w: %w", cachekit.ErrPolicyBlobCorrupt, err)
		}
	}
	if !b.Storeable {
		return cachekit.VerdictUncacheable, nil
	}

	if !varyMatches(entry.Response.Headers, req.Headers) {
		// The stored variant does not match this request's Vary
		// dimensions; treat it as if nothing usable were cached.
		return cachekit.VerdictUncacheable, nil
	}

	log := logging.Get()
	freshness := getFreshness(entry.Response.Headers, req.Headers, log)
	switch freshness {
	case fresh:
		return cachekit.VerdictFresh, nil
	case transparent:
		return cachekit.VerdictMustRevalidate, nil
	default: // stale, staleWhileRevalidate
		return cachekit.VerdictStale, nil
	}
}

func (e *RFC7234Engine) BuildConditional(entry cachekit.CacheEntry, h cachekit.Header) {
	if etag := entry.Response.Headers.Get(headerETag); etag != "" {
		h.Set("If-None-Match", etag)
	}
	if lastModified := entry.Response.Headers.Get(headerLastModified); lastModified != "" {
		h.Set("If-Modified-Since", lastModified)
	}
}

func (e *RFC7234Engine) MergeNotModified(entry cachekit.CacheEntry, notModified cachekit.ResponseHead) (cachekit.CacheEntry, error) {
	merged := entry
	merged.Response.Headers = entry.Response.Headers.Clone()

	for _, name := range getEndToEndHeaders(notModified.Headers) {
		merged.Response.Headers[name] = notModified.Headers.Values(name)
	}
	merged.Response.Headers.Set("X-Revalidated", "1")

	if age, err := calculateAge(merged.Response.Headers, logging.Get()); err == nil {
		merged.Response.Headers.Set(headerAge, formatAge(age))
	}

	data, err := json.Marshal(blob{Storeable: true, Status: merged.Response.Status})
	if err != nil {
		return cachekit.CacheEntry{}, fmt.Errorf("policy: encoding merged policy blob: %w", err)
	}
	merged.Policy = data
	return merged, nil
}

func (e *RFC7234Engine) AnnotateServedFromCache(headers cachekit.Header) {
	if headers == nil {
		return
	}
	if isActuallyStale(headers, logging.Get()) {
		addStaleWarning(headers)
	}
}

func (e *RFC7234Engine) AnnotateRevalidationFailed(headers cachekit.Header) {
	if headers == nil {
		return
	}
	addRevalidationFailedWarning(headers)
}
