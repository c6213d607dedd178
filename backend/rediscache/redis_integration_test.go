//go:build integration

package rediscache

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	rediscontainer "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/htcacheio/cachekit/backend/backendtest"
)

const redisImage = "redis:7-alpine"

var sharedRedisEndpoint string

// TestMain starts a single Redis container shared across this
// package's integration tests.
func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := rediscontainer.Run(ctx, redisImage)
	if err != nil {
		panic("failed to start Redis container: " + err.Error())
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		panic("failed to get Redis endpoint: " + err.Error())
	}
	sharedRedisEndpoint = endpoint

	code := m.Run()

	if err := testcontainers.TerminateContainer(container); err != nil {
		panic("failed to terminate Redis container: " + err.Error())
	}
	os.Exit(code)
}

func TestRedisCacheIntegration(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: sharedRedisEndpoint})
	defer client.Close()

	if err := client.FlushAll(context.Background()).Err(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	backendtest.Buffered(t, NewWithClient(client, "integration-test:", 0))
}

func TestRedisCacheNewIntegration(t *testing.T) {
	store, err := New(context.Background(), Config{Address: sharedRedisEndpoint})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	backendtest.Buffered(t, store)
}

func TestRedisCacheNewWithEmptyAddress(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error with empty address")
	}
}

func TestRedisCacheNewWithInvalidAddress(t *testing.T) {
	if _, err := New(context.Background(), Config{Address: "localhost:99999"}); err == nil {
		t.Fatal("expected error with invalid address")
	}
}
