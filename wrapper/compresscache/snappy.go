package compresscache

import (
	"context"
	"fmt"

	"github.com/golang/snappy"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend"
)

// SnappyCache wraps a backend.Buffered with automatic snappy compression.
type SnappyCache struct {
	*baseCompressCache
}

// SnappyConfig configures a SnappyCache.
type SnappyConfig struct {
	// Backend is the underlying store (required).
	Backend backend.Buffered
}

// NewSnappy returns a backend.Buffered that transparently
// snappy-compresses stored response bodies.
func NewSnappy(config SnappyConfig) (backend.Buffered, error) {
	if config.Backend == nil {
		return nil, fmt.Errorf("compresscache: backend cannot be nil")
	}
	return &SnappyCache{baseCompressCache: newBaseCompressCache(config.Backend, Snappy)}, nil
}

func (c *SnappyCache) compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func snappyDecompress(data []byte) ([]byte, error) {
	decompressed, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("compresscache: snappy decode: %w", err)
	}
	return decompressed, nil
}

func (c *SnappyCache) Get(ctx context.Context, key string) (cachekit.CacheEntry, bool, error) {
	return c.baseCompressCache.Get(ctx, key, snappyDecompress)
}

func (c *SnappyCache) Put(ctx context.Context, key string, entry cachekit.CacheEntry) error {
	return c.baseCompressCache.Put(ctx, key, entry, c.compress)
}

// Stats returns running compression statistics.
func (c *SnappyCache) Stats() Stats {
	return c.stats()
}

var _ backend.Buffered = (*SnappyCache)(nil)
