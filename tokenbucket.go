package cachekit

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// GlobalLimiter is a RateLimiter backed by a single shared
// golang.org/x/time/rate.Limiter, applied uniformly regardless of key.
type GlobalLimiter struct {
	limiter *rate.Limiter
}

// NewGlobalLimiter returns a GlobalLimiter allowing burst immediate
// permits and refilling at r permits per second thereafter.
func NewGlobalLimiter(r rate.Limit, burst int) *GlobalLimiter {
	return &GlobalLimiter{limiter: rate.NewLimiter(r, burst)}
}

func (g *GlobalLimiter) CheckKey(string) bool {
	return g.limiter.Allow()
}

func (g *GlobalLimiter) UntilKeyReady(ctx context.Context, key string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return ErrRateLimitCancelled
	}
	return nil
}

// PerHostLimiter maintains one rate.Limiter per request host, created
// lazily on first use, mirroring the per-tier-map pattern used by
// wrapper/multicache for its cache tiers.
type PerHostLimiter struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewPerHostLimiter returns a PerHostLimiter where each distinct host
// gets its own bucket with the given rate and burst.
func NewPerHostLimiter(r rate.Limit, burst int) *PerHostLimiter {
	return &PerHostLimiter{
		rate:     r,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (p *PerHostLimiter) limiterFor(key string) *rate.Limiter {
	host := hostOf(key)

	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[host]
	if !ok {
		l = rate.NewLimiter(p.rate, p.burst)
		p.limiters[host] = l
	}
	return l
}

func (p *PerHostLimiter) CheckKey(key string) bool {
	return p.limiterFor(key).Allow()
}

func (p *PerHostLimiter) UntilKeyReady(ctx context.Context, key string) error {
	if err := p.limiterFor(key).Wait(ctx); err != nil {
		return ErrRateLimitCancelled
	}
	return nil
}

// hostOf extracts the host portion of a cache key produced by the
// default KeyBuilder ("{METHOD} {effective-URL}"), falling back to the
// whole key when it cannot be parsed as a URL.
func hostOf(key string) string {
	_, rest, found := cutSpace(key)
	target := key
	if found {
		target = rest
	}
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return key
	}
	return u.Host
}

func cutSpace(s string) (before, after string, found bool) {
	for i, c := range s {
		if c == ' ' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}
