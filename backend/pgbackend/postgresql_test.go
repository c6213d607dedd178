package pgbackend

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/htcacheio/cachekit/backend/backendtest"
)

func TestPostgreSQLCache(t *testing.T) {
	ctx := context.Background()
	connString := getTestConnString()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Skipf("skipping test; could not connect to PostgreSQL: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		t.Skipf("skipping test; PostgreSQL not available: %v", err)
	}

	config := DefaultConfig()
	config.TableName = "cachekit_test"

	store, err := NewWithPool(pool, config)
	if err != nil {
		t.Fatalf("NewWithPool failed: %v", err)
	}
	defer func() {
		_, _ = pool.Exec(ctx, queryDropTableIfExists+config.TableName)
	}()

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if _, err := pool.Exec(ctx, "CREATE TABLE IF NOT EXISTS "+config.TableName+" (key TEXT PRIMARY KEY, data BYTEA NOT NULL, created_at TIMESTAMPTZ NOT NULL)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM "+config.TableName); err != nil {
		t.Fatalf("failed to clean up table: %v", err)
	}

	backendtest.Buffered(t, store)
}

func TestPostgreSQLCacheWithConn(t *testing.T) {
	ctx := context.Background()
	connString := getTestConnString()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Skipf("skipping test; could not connect to PostgreSQL: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		t.Skipf("skipping test; PostgreSQL not available: %v", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("failed to acquire connection: %v", err)
	}
	defer conn.Release()

	config := DefaultConfig()
	config.TableName = "cachekit_test_conn"

	store, err := NewWithConn(conn.Conn(), config)
	if err != nil {
		t.Fatalf("NewWithConn failed: %v", err)
	}
	defer func() {
		_, _ = pool.Exec(ctx, queryDropTableIfExists+config.TableName)
	}()

	if _, err := pool.Exec(ctx, "CREATE TABLE IF NOT EXISTS "+config.TableName+" (key TEXT PRIMARY KEY, data BYTEA NOT NULL, created_at TIMESTAMPTZ NOT NULL)"); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM "+config.TableName); err != nil {
		t.Fatalf("failed to clean up table: %v", err)
	}

	backendtest.Buffered(t, store)
}

func TestPostgreSQLCacheNew(t *testing.T) {
	ctx := context.Background()
	connString := getTestConnString()

	config := DefaultConfig()
	config.TableName = "cachekit_test_new"

	store, err := New(ctx, connString, config)
	if err != nil {
		t.Skipf("skipping test; could not create cache: %v", err)
	}

	backendtest.Buffered(t, store)
}

func TestPostgreSQLCacheConfig(t *testing.T) {
	ctx := context.Background()
	connString := getTestConnString()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Skipf("skipping test; could not connect to PostgreSQL: %v", err)
	}
	defer pool.Close()

	config := &Config{
		TableName: "custom_cache_table",
		KeyPrefix: "custom:",
		Timeout:   10 * time.Second,
	}

	if _, err := NewWithPool(pool, config); err != nil {
		t.Fatalf("NewWithPool failed: %v", err)
	}

	if _, err := NewWithPool(pool, nil); err != nil {
		t.Fatalf("NewWithPool with nil config failed: %v", err)
	}

	_, _ = pool.Exec(ctx, queryDropTableIfExists+config.TableName)
}

func TestPostgreSQLCacheErrors(t *testing.T) {
	_, err := NewWithPool(nil, nil)
	if err != ErrNilPool {
		t.Errorf("expected ErrNilPool, got %v", err)
	}

	_, err = NewWithConn(nil, nil)
	if err != ErrNilConn {
		t.Errorf("expected ErrNilConn, got %v", err)
	}
}
