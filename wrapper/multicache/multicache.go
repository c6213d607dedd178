// Package multicache provides a multi-tiered backend.Buffered that
// cascades through several tiers with automatic fallback and
// promotion, e.g. an in-process tier in front of a shared Redis tier
// in front of a Postgres tier.
package multicache

import (
	"context"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend"
)

// MultiCache implements a multi-tiered backend.Buffered. Tiers are
// ordered from fastest/smallest (first) to slowest/largest (last). On
// reads, it searches each tier in order and promotes a found entry to
// every faster tier. On writes, it stores to all tiers, so hot data
// naturally migrates to faster tiers while persistence is maintained
// in slower ones.
type MultiCache struct {
	tiers []backend.Buffered
}

// New creates a MultiCache over tiers, ordered fastest to slowest. At
// least one tier must be provided, and all tiers must be non-nil and
// unique; New returns nil otherwise.
func New(tiers ...backend.Buffered) *MultiCache {
	if len(tiers) == 0 {
		return nil
	}

	seen := make(map[backend.Buffered]bool)
	for _, tier := range tiers {
		if tier == nil {
			return nil
		}
		if seen[tier] {
			return nil
		}
		seen[tier] = true
	}

	return &MultiCache{tiers: tiers}
}

// Get searches each tier in order, starting with the fastest. A value
// found in a slower tier is promoted (written) to every faster tier
// for subsequent quick access, best-effort: a promotion failure does
// not fail the read.
func (c *MultiCache) Get(ctx context.Context, key string) (cachekit.CacheEntry, bool, error) {
	for i, tier := range c.tiers {
		entry, ok, err := tier.Get(ctx, key)
		if err != nil {
			return cachekit.CacheEntry{}, false, err
		}
		if ok {
			_ = c.promoteToFasterTiers(ctx, key, entry, i)
			return entry, true, nil
		}
	}
	return cachekit.CacheEntry{}, false, nil
}

// Put stores entry in every tier, returning the first error
// encountered.
func (c *MultiCache) Put(ctx context.Context, key string, entry cachekit.CacheEntry) error {
	for _, tier := range c.tiers {
		if err := tier.Put(ctx, key, entry); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes key from every tier, returning the first error
// encountered.
func (c *MultiCache) Delete(ctx context.Context, key string) error {
	for _, tier := range c.tiers {
		if err := tier.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// UpdateHeaders applies the header/policy update to every tier that
// has the key, returning ok=true if at least one tier had it.
func (c *MultiCache) UpdateHeaders(ctx context.Context, key string, headers cachekit.Header, policy cachekit.CachePolicyBlob) (bool, error) {
	var anyOK bool
	for _, tier := range c.tiers {
		ok, err := tier.UpdateHeaders(ctx, key, headers, policy)
		if err != nil {
			return false, err
		}
		anyOK = anyOK || ok
	}
	return anyOK, nil
}

// promoteToFasterTiers writes entry to every tier faster than
// foundAtTier.
func (c *MultiCache) promoteToFasterTiers(ctx context.Context, key string, entry cachekit.CacheEntry, foundAtTier int) error {
	for i := 0; i < foundAtTier; i++ {
		if err := c.tiers[i].Put(ctx, key, entry); err != nil {
			return err
		}
	}
	return nil
}

var _ backend.Buffered = (*MultiCache)(nil)
