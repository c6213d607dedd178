package natskvbackend

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/htcacheio/cachekit/backend"
	"github.com/htcacheio/cachekit/backend/backendtest"
)

func startNATSServer(t *testing.T) *server.Server {
	t.Helper()

	opts := &server.Options{JetStream: true, Port: -1, Host: "127.0.0.1"}
	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("failed to create NATS server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(4 * time.Second) {
		t.Fatal("NATS server did not start in time")
	}
	return ns
}

func setupNATSCache(t *testing.T) (backend.Buffered, func()) {
	t.Helper()

	ns := startNATSServer(t)

	nc, err := nats.Connect(ns.ClientURL())
	if err != nil {
		ns.Shutdown()
		t.Fatalf("failed to connect to NATS: %v", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		ns.Shutdown()
		t.Fatalf("failed to create JetStream context: %v", err)
	}

	kv, err := js.CreateKeyValue(context.Background(), jetstream.KeyValueConfig{Bucket: "cachekit-test"})
	if err != nil {
		nc.Close()
		ns.Shutdown()
		t.Fatalf("failed to create K/V bucket: %v", err)
	}

	cleanup := func() {
		nc.Close()
		ns.Shutdown()
	}

	return NewWithKeyValue(kv), cleanup
}

func TestNATSKVCache(t *testing.T) {
	store, cleanup := setupNATSCache(t)
	defer cleanup()

	backendtest.Buffered(t, store)
}
