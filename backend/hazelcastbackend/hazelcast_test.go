package hazelcastbackend

import (
	"context"
	"testing"
	"time"

	"github.com/hazelcast/hazelcast-go-client"
	"github.com/hazelcast/hazelcast-go-client/types"

	"github.com/htcacheio/cachekit/backend"
	"github.com/htcacheio/cachekit/backend/backendtest"
)

func setupHazelcastCache(t *testing.T) (backend.Buffered, func()) {
	t.Helper()

	ctx := context.Background()

	config := hazelcast.Config{}
	config.Cluster.Network.SetAddresses("localhost:5701")
	config.Cluster.Unisocket = true
	config.Cluster.ConnectionStrategy.Timeout = types.Duration(5 * time.Second)

	client, err := hazelcast.StartNewClientWithConfig(ctx, config)
	if err != nil {
		t.Skipf("skipping test; no Hazelcast server running at localhost:5701: %v", err)
	}

	m, err := client.GetMap(ctx, "cachekit-test")
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = client.Shutdown(shutdownCtx)
		cancel()
		t.Fatalf("failed to get Hazelcast map: %v", err)
	}
	if err := m.Clear(ctx); err != nil {
		t.Fatalf("failed to clear Hazelcast map: %v", err)
	}

	cleanup := func() {
		clearCtx, clearCancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = m.Clear(clearCtx)
		clearCancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = client.Shutdown(shutdownCtx)
		shutdownCancel()
	}

	return NewWithMap(m), cleanup
}

func TestHazelcastCache(t *testing.T) {
	store, cleanup := setupHazelcastCache(t)
	defer cleanup()

	backendtest.Buffered(t, store)
}
