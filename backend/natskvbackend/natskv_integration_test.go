//go:build integration

package natskvbackend

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/htcacheio/cachekit/backend/backendtest"
)

const natsImage = "nats:2.10-alpine"

var sharedNATSURL string

func TestMain(m *testing.M) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        natsImage,
		ExposedPorts: []string{"4222/tcp"},
		Cmd:          []string{"-js"},
		WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		panic("failed to start NATS container: " + err.Error())
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		panic("failed to get NATS host: " + err.Error())
	}
	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		panic("failed to get NATS port: " + err.Error())
	}
	sharedNATSURL = fmt.Sprintf("nats://%s:%s", host, port.Port())

	code := m.Run()

	if err := testcontainers.TerminateContainer(container); err != nil {
		panic("failed to terminate NATS container: " + err.Error())
	}
	os.Exit(code)
}

func TestNATSKVCacheIntegration(t *testing.T) {
	store, err := New(context.Background(), Config{
		NATSUrl: sharedNATSURL,
		Bucket:  "cachekit-integration-test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	backendtest.Buffered(t, store)
}

func TestNATSKVCacheWithKeyValueIntegration(t *testing.T) {
	nc, err := nats.Connect(sharedNATSURL)
	if err != nil {
		t.Fatalf("failed to connect to NATS: %v", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("failed to create JetStream context: %v", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(context.Background(), jetstream.KeyValueConfig{
		Bucket: "cachekit-integration-test-kv",
	})
	if err != nil {
		t.Fatalf("failed to create K/V bucket: %v", err)
	}

	backendtest.Buffered(t, NewWithKeyValue(kv))
}

func TestNATSKVCacheMissingBucketIntegration(t *testing.T) {
	_, err := New(context.Background(), Config{NATSUrl: sharedNATSURL})
	if err == nil {
		t.Fatal("expected error for missing bucket name")
	}
}
