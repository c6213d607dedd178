package blobbackend

import (
	"context"
	"fmt"
	"testing"
	"time"

	_ "gocloud.dev/blob/memblob"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend"
)

func benchEntry(value []byte) cachekit.CacheEntry {
	return cachekit.CacheEntry{Response: cachekit.CachedResponse{Buffered: value}}
}

func setupBenchmarkCache(b *testing.B) backend.Buffered {
	b.Helper()

	ctx := context.Background()
	store, err := New(ctx, Config{
		BucketURL: "mem://",
		KeyPrefix: "bench/",
		Timeout:   10 * time.Second,
	})
	if err != nil {
		b.Fatalf("New: %v", err)
	}
	return store
}

func BenchmarkBlobCacheSet(b *testing.B) {
	c := setupBenchmarkCache(b)
	ctx := context.Background()
	entry := benchEntry([]byte("benchmark data for set operation"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Put(ctx, fmt.Sprintf("bench-set-%d", i), entry)
	}
}

func BenchmarkBlobCacheGet(b *testing.B) {
	c := setupBenchmarkCache(b)
	ctx := context.Background()
	entry := benchEntry([]byte("benchmark data for get operation"))
	for i := 0; i < 100; i++ {
		_ = c.Put(ctx, fmt.Sprintf("bench-get-%d", i), entry)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(ctx, fmt.Sprintf("bench-get-%d", i%100))
	}
}

func BenchmarkBlobCacheGetMiss(b *testing.B) {
	c := setupBenchmarkCache(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(ctx, fmt.Sprintf("bench-miss-%d", i))
	}
}

func BenchmarkBlobCacheDelete(b *testing.B) {
	c := setupBenchmarkCache(b)
	ctx := context.Background()
	entry := benchEntry([]byte("benchmark data for delete operation"))
	for i := 0; i < b.N; i++ {
		_ = c.Put(ctx, fmt.Sprintf("bench-delete-%d", i), entry)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Delete(ctx, fmt.Sprintf("bench-delete-%d", i))
	}
}

func BenchmarkBlobCacheSetGet(b *testing.B) {
	c := setupBenchmarkCache(b)
	ctx := context.Background()
	entry := benchEntry([]byte("benchmark data for set-get operation"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("bench-setget-%d", i)
		_ = c.Put(ctx, key, entry)
		_, _, _ = c.Get(ctx, key)
	}
}

func BenchmarkBlobCacheLargeData(b *testing.B) {
	c := setupBenchmarkCache(b)
	ctx := context.Background()
	data := make([]byte, 10*1024)
	for i := range data {
		data[i] = byte(i % 256)
	}
	entry := benchEntry(data)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Put(ctx, fmt.Sprintf("bench-large-%d", i), entry)
	}
}
