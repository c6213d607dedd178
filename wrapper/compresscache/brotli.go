package compresscache

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend"
)

// BrotliCache wraps a backend.Buffered with automatic brotli compression.
type BrotliCache struct {
	*baseCompressCache
	level int
}

// BrotliConfig configures a BrotliCache.
type BrotliConfig struct {
	// Backend is the underlying store (required).
	Backend backend.Buffered
	// Level is the brotli compression level (0-11). Zero defaults to 6.
	Level int
}

// NewBrotli returns a backend.Buffered that transparently
// brotli-compresses stored response bodies.
func NewBrotli(config BrotliConfig) (backend.Buffered, error) {
	if config.Backend == nil {
		return nil, fmt.Errorf("compresscache: backend cannot be nil")
	}
	if config.Level == 0 {
		config.Level = 6
	}
	if config.Level < 0 || config.Level > 11 {
		return nil, fmt.Errorf("compresscache: invalid brotli compression level: %d", config.Level)
	}

	return &BrotliCache{
		baseCompressCache: newBaseCompressCache(config.Backend, Brotli),
		level:             config.Level,
	}, nil
}

func (c *BrotliCache) compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.level)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("compresscache: brotli write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compresscache: brotli close: %w", err)
	}
	return buf.Bytes(), nil
}

func brotliDecompress(data []byte) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(data))
	decompressed, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compresscache: brotli read: %w", err)
	}
	return decompressed, nil
}

func (c *BrotliCache) Get(ctx context.Context, key string) (cachekit.CacheEntry, bool, error) {
	return c.baseCompressCache.Get(ctx, key, brotliDecompress)
}

func (c *BrotliCache) Put(ctx context.Context, key string, entry cachekit.CacheEntry) error {
	return c.baseCompressCache.Put(ctx, key, entry, c.compress)
}

// Stats returns running compression statistics.
func (c *BrotliCache) Stats() Stats {
	return c.stats()
}

var _ backend.Buffered = (*BrotliCache)(nil)
