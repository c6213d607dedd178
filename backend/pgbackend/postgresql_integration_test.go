//go:build integration

package pgbackend

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/htcacheio/cachekit/backend/backendtest"
)

const (
	postgresImage    = "postgres:18.0-alpine3.22"
	cockroachImage   = "cockroachdb/cockroach:v25.2.7"
	postgresPassword = "testpassword"
	postgresUser     = "testuser"
	postgresDB       = "testdb"
)

func setupPostgreSQLContainer(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_DB":       postgresDB,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start PostgreSQL container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	connString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, host, port.Port(), postgresDB)

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}
	return connString, cleanup
}

func setupCockroachDBContainer(ctx context.Context, t *testing.T) (string, func()) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        cockroachImage,
		ExposedPorts: []string{"26257/tcp"},
		Cmd:          []string{"start-single-node", "--insecure"},
		WaitingFor: wait.ForLog("CockroachDB node starting").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start CockroachDB container: %v", err)
	}

	time.Sleep(2 * time.Second)

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "26257")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	connString := fmt.Sprintf("postgres://root@%s:%s/defaultdb?sslmode=disable", host, port.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate CockroachDB container: %v", err)
		}
	}
	return connString, cleanup
}

func waitForDatabase(ctx context.Context, t *testing.T, connString string, maxRetries int, retryDelay time.Duration) *pgxpool.Pool {
	t.Helper()

	var pool *pgxpool.Pool
	var err error
	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.New(ctx, connString)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool
			}
			pool.Close()
		}
		time.Sleep(retryDelay)
	}
	t.Fatalf("failed to connect to database after %d retries: %v", maxRetries, err)
	return nil
}

func TestPostgreSQLCacheIntegration(t *testing.T) {
	ctx := context.Background()

	connString, cleanup := setupPostgreSQLContainer(ctx, t)
	defer cleanup()

	config := DefaultConfig()
	config.TableName = "cachekit_integration_test"

	store, err := New(ctx, connString, config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	backendtest.Buffered(t, store)
}

func TestCockroachDBCacheIntegration(t *testing.T) {
	ctx := context.Background()

	connString, cleanup := setupCockroachDBContainer(ctx, t)
	defer cleanup()

	pool := waitForDatabase(ctx, t, connString, 15, 2*time.Second)
	defer pool.Close()

	config := DefaultConfig()
	config.TableName = "cachekit_cockroach_test"

	store, err := NewWithPool(pool, config)
	if err != nil {
		t.Fatalf("NewWithPool failed: %v", err)
	}
	if _, err := pool.Exec(ctx, "CREATE TABLE IF NOT EXISTS "+config.TableName+
		" (key TEXT PRIMARY KEY, data BYTEA NOT NULL, created_at TIMESTAMPTZ NOT NULL)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	backendtest.Buffered(t, store)
}
