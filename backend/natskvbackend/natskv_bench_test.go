package natskvbackend

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend"
)

const (
	benchmarkKey   = "bench-key"
	benchmarkValue = "bench-value"
)

func setupBenchmarkCache(b *testing.B) (backend.Buffered, func()) {
	b.Helper()

	opts := &server.Options{JetStream: true, Port: -1, Host: "127.0.0.1"}
	ns, err := server.NewServer(opts)
	if err != nil {
		b.Fatalf("failed to create NATS server: %v", err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(4e9) {
		b.Fatal("NATS server did not start in time")
	}

	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		ns.Shutdown()
		b.Fatalf("failed to connect to NATS: %v", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		ns.Shutdown()
		b.Fatalf("failed to create JetStream context: %v", err)
	}

	kv, err := js.CreateKeyValue(context.Background(), jetstream.KeyValueConfig{Bucket: "cachekit-bench"})
	if err != nil {
		nc.Close()
		ns.Shutdown()
		b.Fatalf("failed to create K/V bucket: %v", err)
	}

	cleanup := func() {
		nc.Close()
		ns.Shutdown()
	}

	return NewWithKeyValue(kv), cleanup
}

func benchEntry(value []byte) cachekit.CacheEntry {
	return cachekit.CacheEntry{Response: cachekit.CachedResponse{Buffered: value}}
}

func BenchmarkNATSKVGet(b *testing.B) {
	c, cleanup := setupBenchmarkCache(b)
	defer cleanup()
	ctx := context.Background()

	_ = c.Put(ctx, benchmarkKey, benchEntry([]byte(benchmarkValue)))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = c.Get(ctx, benchmarkKey)
	}
}

func BenchmarkNATSKVSet(b *testing.B) {
	c, cleanup := setupBenchmarkCache(b)
	defer cleanup()
	ctx := context.Background()
	entry := benchEntry([]byte(benchmarkValue))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Put(ctx, benchmarkKey, entry)
	}
}

func BenchmarkNATSKVDelete(b *testing.B) {
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

func BenchmarkNATSKVSetGet(b *testing.B) {
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

func BenchmarkNATSKVLargeValue(b *testing.B) {
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
