// Package pgbackend provides a backend.Buffered implementation backed by
// a PostgreSQL table, using pgx as the driver.
package pgbackend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/htcacheio/cachekit/backend"
)

var (
	// ErrNilPool is returned when a nil pool is provided.
	ErrNilPool = errors.New("pgbackend: pool cannot be nil")
	// ErrNilConn is returned when a nil connection is provided.
	ErrNilConn = errors.New("pgbackend: connection cannot be nil")
)

const (
	// DefaultTableName is the default table name for cache storage.
	DefaultTableName = "cachekit_entries"
	// DefaultKeyPrefix is the default prefix for cache keys.
	DefaultKeyPrefix = "cache:"
)

// Config holds the configuration for the PostgreSQL backend.
type Config struct {
	// TableName is the name of the table to store cache entries (default: "cachekit_entries").
	TableName string
	// KeyPrefix is the prefix added to all cache keys (default: "cache:").
	KeyPrefix string
	// Timeout bounds individual database operations (default: 5s).
	Timeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		TableName: DefaultTableName,
		KeyPrefix: DefaultKeyPrefix,
		Timeout:   5 * time.Second,
	}
}

type store struct {
	pool      *pgxpool.Pool
	conn      *pgx.Conn
	tableName string
	keyPrefix string
	timeout   time.Duration
}

func (s *store) cacheKey(key string) string {
	return s.keyPrefix + key
}

func (s *store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *store) exec(ctx context.Context, sql string, args ...any) error {
	var err error
	if s.pool != nil {
		_, err = s.pool.Exec(ctx, sql, args...)
	} else {
		_, err = s.conn.Exec(ctx, sql, args...)
	}
	return err
}

func (s *store) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if s.pool != nil {
		return s.pool.QueryRow(ctx, sql, args...)
	}
	return s.conn.QueryRow(ctx, sql, args...)
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var data []byte
	query := `SELECT data FROM ` + s.tableName + ` WHERE key = $1`
	err := s.queryRow(ctx, query, s.cacheKey(key)).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("pgbackend: get %q: %w", key, err)
	}
	return data, true, nil
}

func (s *store) Set(ctx context.Context, key string, data []byte) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO ` + s.tableName + ` (key, data, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET data = $2, created_at = $3
	`
	if err := s.exec(ctx, query, s.cacheKey(key), data, time.Now()); err != nil {
		return fmt.Errorf("pgbackend: set %q: %w", key, err)
	}
	return nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM ` + s.tableName + ` WHERE key = $1`
	if err := s.exec(ctx, query, s.cacheKey(key)); err != nil {
		return fmt.Errorf("pgbackend: delete %q: %w", key, err)
	}
	return nil
}

// CreateTable creates the cache table if it doesn't exist.
func (s *store) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + s.tableName + ` (
			key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`
	return s.exec(ctx, query)
}

// NewWithPool returns a backend.Buffered using the provided connection pool.
func NewWithPool(pool *pgxpool.Pool, config *Config) (backend.Buffered, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	if config == nil {
		config = DefaultConfig()
	}
	s := &store{pool: pool, tableName: config.TableName, keyPrefix: config.KeyPrefix, timeout: config.Timeout}
	return backend.Adapt(s), nil
}

// NewWithConn returns a backend.Buffered using the provided connection.
func NewWithConn(conn *pgx.Conn, config *Config) (backend.Buffered, error) {
	if conn == nil {
		return nil, ErrNilConn
	}
	if config == nil {
		config = DefaultConfig()
	}
	s := &store{conn: conn, tableName: config.TableName, keyPrefix: config.KeyPrefix, timeout: config.Timeout}
	return backend.Adapt(s), nil
}

// New creates a connection pool from connString, ensures the cache table
// exists, and returns a backend.Buffered over it.
func New(ctx context.Context, connString string, config *Config) (backend.Buffered, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = DefaultConfig()
	}

	s := &store{pool: pool, tableName: config.TableName, keyPrefix: config.KeyPrefix, timeout: config.Timeout}
	if err := s.CreateTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return backend.Adapt(s), nil
}
