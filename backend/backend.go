// Package backend defines the storage contracts a CacheDecisionEngine
// is generic over. Every concrete store implements exactly one of
// Buffered or Streaming; the engine never depends on a concrete
// backend package directly.
package backend

import (
	"context"

	cachekit "github.com/htcacheio/cachekit"
)

// Buffered is the contract for a storage backend whose bodies are
// held as a full byte buffer in memory. Implementations' operations
// must be safe for concurrent use, and concurrent operations on the
// same key must be linearizable: a reader observes either the
// previous or the new full entry, never a torn mix.
type Buffered interface {
	// Get returns the stored entry for key, or ok=false if absent.
	// Body is delivered as a byte buffer (CachedResponse.Buffered).
	Get(ctx context.Context, key string) (entry cachekit.CacheEntry, ok bool, err error)
	// Put stores or overwrites the entry for key.
	Put(ctx context.Context, key string, entry cachekit.CacheEntry) error
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
	// UpdateHeaders merges response headers into the entry already
	// stored at key (used after a successful 304 revalidation),
	// persisting the supplied CachePolicyBlob alongside them. Returns
	// ok=false if key is absent.
	UpdateHeaders(ctx context.Context, key string, headers cachekit.Header, policy cachekit.CachePolicyBlob) (ok bool, err error)
}

// Streaming extends Buffered with true streaming reads and writes,
// backed by content-addressed, deduplicated storage.
type Streaming interface {
	Buffered

	// GetStream returns the stored entry for key with its body
	// delivered as a lazy cachekit.Body, or ok=false if absent. The
	// returned body is finite and not restartable.
	GetStream(ctx context.Context, key string) (entry cachekit.CacheEntry, ok bool, err error)
	// PutStream consumes entry.Response.Stream fully, stores it under
	// key, and returns the same entry with Response.Buffered populated
	// (the caller may need to replay the bytes it just wrote).
	PutStream(ctx context.Context, key string, entry cachekit.CacheEntry, requestURL string, metadata []byte) (cachekit.CacheEntry, error)
	// EmptyBody returns a cachekit.Body with zero frames, used for
	// responses with no body (e.g. 304, HEAD).
	EmptyBody() cachekit.Body
}
