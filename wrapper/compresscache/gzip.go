package compresscache

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend"
)

// GzipCache wraps a backend.Buffered with automatic gzip compression.
type GzipCache struct {
	*baseCompressCache
	level int
}

// GzipConfig configures a GzipCache.
type GzipConfig struct {
	// Backend is the underlying store (required).
	Backend backend.Buffered
	// Level is the gzip compression level. Zero defaults to
	// gzip.DefaultCompression.
	Level int
}

// NewGzip returns a backend.Buffered that transparently gzip-compresses
// stored response bodies.
func NewGzip(config GzipConfig) (backend.Buffered, error) {
	if config.Backend == nil {
		return nil, fmt.Errorf("compresscache: backend cannot be nil")
	}
	if config.Level == 0 {
		config.Level = gzip.DefaultCompression
	}
	if config.Level < gzip.HuffmanOnly || config.Level > gzip.BestCompression {
		return nil, fmt.Errorf("compresscache: invalid gzip compression level: %d", config.Level)
	}

	return &GzipCache{
		baseCompressCache: newBaseCompressCache(config.Backend, Gzip),
		level:             config.Level,
	}, nil
}

func (c *GzipCache) compress(data []byte) ([]byte, error) {
	return gzipCompressLevel(data, c.level)
}

func gzipCompressLevel(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("compresscache: gzip writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("compresscache: gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compresscache: gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("compresscache: gzip reader: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (c *GzipCache) Get(ctx context.Context, key string) (cachekit.CacheEntry, bool, error) {
	return c.baseCompressCache.Get(ctx, key, gzipDecompress)
}

func (c *GzipCache) Put(ctx context.Context, key string, entry cachekit.CacheEntry) error {
	return c.baseCompressCache.Put(ctx, key, entry, c.compress)
}

// Stats returns running compression statistics.
func (c *GzipCache) Stats() Stats {
	return c.stats()
}

var _ backend.Buffered = (*GzipCache)(nil)
