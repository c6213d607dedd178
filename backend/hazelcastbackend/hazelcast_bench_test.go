package hazelcastbackend

import (
	"context"
	"testing"

	"github.com/hazelcast/hazelcast-go-client"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend"
)

const (
	benchmarkKey   = "bench-key"
	benchmarkValue = "bench-value"
)

func benchEntry(value []byte) cachekit.CacheEntry {
	return cachekit.CacheEntry{Response: cachekit.CachedResponse{Buffered: value}}
}

func setupBenchmarkCache(b *testing.B) (backend.Buffered, func()) {
	b.Helper()

	ctx := context.Background()

	config := hazelcast.Config{}
	config.Cluster.Network.SetAddresses("localhost:5701")
	config.Cluster.Unisocket = true

	client, err := hazelcast.StartNewClientWithConfig(ctx, config)
	if err != nil {
		b.Skipf("skipping benchmark; no Hazelcast server running at localhost:5701: %v", err)
	}

	m, err := client.GetMap(ctx, "cachekit-bench")
	if err != nil {
		client.Shutdown(ctx)
		b.Fatalf("failed to get Hazelcast map: %v", err)
	}
	if err := m.Clear(ctx); err != nil {
		client.Shutdown(ctx)
		b.Fatalf("failed to clear Hazelcast map: %v", err)
	}

	cleanup := func() {
		_ = m.Clear(ctx)
		_ = client.Shutdown(ctx)
	}

	return NewWithMap(m), cleanup
}

func BenchmarkHazelcastGet(b *testing.B) {
	c, cleanup := setupBenchmarkCache(b)
	defer cleanup()

	ctx := context.Background()
	_ = c.Put(ctx, benchmarkKey, benchEntry([]byte(benchmarkValue)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(ctx, benchmarkKey)
	}
}

func BenchmarkHazelcastSet(b *testing.B) {
	c, cleanup := setupBenchmarkCache(b)
	defer cleanup()

	ctx := context.Background()
	entry := benchEntry([]byte(benchmarkValue))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Put(ctx, benchmarkKey, entry)
	}
}

func BenchmarkHazelcastDelete(b *testing.B) {
	c, cleanup := setupBenchmarkCache(b)
	defer cleanup()

	ctx := context.Background()
	entry := benchEntry([]byte(benchmarkValue))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		_ = c.Put(ctx, benchmarkKey, entry)
		b.StartTimer()
		_ = c.Delete(ctx, benchmarkKey)
	}
}

func BenchmarkHazelcastSetGet(b *testing.B) {
	c, cleanup := setupBenchmarkCache(b)
	defer cleanup()

	ctx := context.Background()
	entry := benchEntry([]byte(benchmarkValue))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Put(ctx, benchmarkKey, entry)
		_, _, _ = c.Get(ctx, benchmarkKey)
	}
}

func BenchmarkHazelcastParallelGet(b *testing.B) {
	c, cleanup := setupBenchmarkCache(b)
	defer cleanup()

	ctx := context.Background()
	_ = c.Put(ctx, benchmarkKey, benchEntry([]byte(benchmarkValue)))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _, _ = c.Get(ctx, benchmarkKey)
		}
	})
}

func BenchmarkHazelcastParallelSet(b *testing.B) {
	c, cleanup := setupBenchmarkCache(b)
	defer cleanup()

	ctx := context.Background()
	entry := benchEntry([]byte(benchmarkValue))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = c.Put(ctx, benchmarkKey, entry)
		}
	})
}

func BenchmarkHazelcastLargeValue(b *testing.B) {
	c, cleanup := setupBenchmarkCache(b)
	defer cleanup()

	ctx := context.Background()
	value := make([]byte, 1024*1024)
	for i := range value {
		value[i] = byte(i % 256)
	}
	entry := benchEntry(value)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Put(ctx, "large-key", entry)
		_, _, _ = c.Get(ctx, "large-key")
	}
}
