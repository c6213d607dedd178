// Package compresscache wraps a backend.Buffered, compressing the
// stored response body to cut storage and network cost. Supports
// gzip, brotli, and snappy; the chosen algorithm is recorded as a
// one-byte marker ahead of the stored payload so a GzipCache can
// transparently read back an entry a BrotliCache wrote, as long as
// both decompressors are linked into the binary.
package compresscache

import (
	"context"
	"fmt"
	"sync/atomic"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend"
	"github.com/htcacheio/cachekit/internal/logging"
)

// Algorithm identifies a compression algorithm.
type Algorithm int

const (
	Gzip Algorithm = iota
	Brotli
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Stats holds running compression statistics for a wrapped backend.
type Stats struct {
	CompressedBytes   int64
	UncompressedBytes int64
	CompressedCount   int64
	UncompressedCount int64
	CompressionRatio  float64
	SavingsPercent    float64
}

type compressFunc func([]byte) ([]byte, error)
type decompressFunc func([]byte) ([]byte, error)

// baseCompressCache implements backend.Buffered, compressing
// Response.Buffered on Put and decompressing it on Get. Everything
// else about the entry (headers, policy, metadata) passes through
// unchanged.
type baseCompressCache struct {
	backend   backend.Buffered
	algorithm Algorithm

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	uncompressedCount atomic.Int64
}

func newBaseCompressCache(b backend.Buffered, algorithm Algorithm) *baseCompressCache {
	return &baseCompressCache{backend: b, algorithm: algorithm}
}

func (c *baseCompressCache) Get(ctx context.Context, key string, decompressFn decompressFunc) (cachekit.CacheEntry, bool, error) {
	entry, ok, err := c.backend.Get(ctx, key)
	if err != nil || !ok {
		return entry, ok, err
	}

	body, err := c.decodeBody(key, entry.Response.Buffered, decompressFn)
	if err != nil {
		return cachekit.CacheEntry{}, false, nil
	}
	entry.Response.Buffered = body
	return entry, true, nil
}

func (c *baseCompressCache) decodeBody(key string, data []byte, decompressFn decompressFunc) ([]byte, error) {
	if len(data) < 1 {
		return data, nil
	}

	marker := data[0]
	if marker == 0 {
		return data[1:], nil
	}

	storedAlgo := Algorithm(marker - 1)
	decompressed, err := c.decompressWithAlgorithm(data[1:], storedAlgo, decompressFn)
	if err != nil {
		logging.Get().Warn("compresscache: decompression failed",
			"key", key, "algorithm", storedAlgo.String(), "error", err)
		return nil, err
	}
	return decompressed, nil
}

// decompressWithAlgorithm uses decompressFn if the stored algorithm
// matches this cache's own, otherwise falls back to the matching
// decoder directly so a reader isn't limited to the algorithm it was
// constructed with.
func (c *baseCompressCache) decompressWithAlgorithm(data []byte, algorithm Algorithm, decompressFn decompressFunc) ([]byte, error) {
	if algorithm == c.algorithm {
		return decompressFn(data)
	}
	switch algorithm {
	case Gzip:
		return gzipDecompress(data)
	case Brotli:
		return brotliDecompress(data)
	case Snappy:
		return snappyDecompress(data)
	default:
		return nil, fmt.Errorf("compresscache: unsupported algorithm %v", algorithm)
	}
}

func (c *baseCompressCache) Put(ctx context.Context, key string, entry cachekit.CacheEntry, compressFn compressFunc) error {
	value := entry.Response.Buffered

	compressed, err := compressFn(value)
	if err != nil {
		logging.Get().Warn("compresscache: compression failed, storing uncompressed",
			"key", key, "algorithm", c.algorithm.String(), "error", err)
		data := make([]byte, len(value)+1)
		data[0] = 0
		copy(data[1:], value)
		entry.Response.Buffered = data
		c.uncompressedCount.Add(1)
		c.uncompressedBytes.Add(int64(len(value)))
		return c.backend.Put(ctx, key, entry)
	}

	data := make([]byte, len(compressed)+1)
	data[0] = byte(c.algorithm + 1)
	copy(data[1:], compressed)
	entry.Response.Buffered = data

	c.compressedCount.Add(1)
	c.compressedBytes.Add(int64(len(compressed)))
	c.uncompressedBytes.Add(int64(len(value)))
	return c.backend.Put(ctx, key, entry)
}

func (c *baseCompressCache) Delete(ctx context.Context, key string) error {
	return c.backend.Delete(ctx, key)
}

func (c *baseCompressCache) UpdateHeaders(ctx context.Context, key string, headers cachekit.Header, policy cachekit.CachePolicyBlob) (bool, error) {
	return c.backend.UpdateHeaders(ctx, key, headers, policy)
}

func (c *baseCompressCache) stats() Stats {
	compressed := c.compressedBytes.Load()
	uncompressed := c.uncompressedBytes.Load()

	var ratio, savings float64
	if uncompressed > 0 {
		ratio = float64(compressed) / float64(uncompressed)
		savings = (1.0 - ratio) * 100
	}

	return Stats{
		CompressedBytes:   compressed,
		UncompressedBytes: uncompressed,
		CompressedCount:   c.compressedCount.Load(),
		UncompressedCount: c.uncompressedCount.Load(),
		CompressionRatio:  ratio,
		SavingsPercent:    savings,
	}
}
