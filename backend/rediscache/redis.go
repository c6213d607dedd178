// Package rediscache is a backend.Buffered implementation backed by
// Redis, using go-redis/v9 in place of the teacher's redigo pool so
// context cancellation actually reaches the wire.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/htcacheio/cachekit/backend"
)

// Config holds the configuration for creating a Redis cache.
type Config struct {
	// Address is the Redis server address (e.g., "localhost:6379").
	Address string
	// Password is the Redis password for authentication. Optional.
	Password string
	// DB is the Redis database number to use. Optional, defaults to 0.
	DB int
	// KeyPrefix is prepended to every key. Optional, defaults to "cachekit:".
	KeyPrefix string
	// TTL, if non-zero, is set as an expiry on every stored entry. The
	// engine's own freshness logic is authoritative; this is purely a
	// memory-reclamation backstop.
	TTL time.Duration
	// DialTimeout, ReadTimeout, WriteTimeout bound individual
	// operations. Optional; go-redis's own defaults apply if zero.
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "cachekit:"
	}
	return c
}

type store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func (s *store) key(key string) string {
	return s.prefix + key
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("rediscache: get %q: %w", key, err)
	}
	return data, true, nil
}

func (s *store) Set(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("rediscache: set %q: %w", key, err)
	}
	return nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("rediscache: delete %q: %w", key, err)
	}
	return nil
}

// New opens a connection to Redis and returns a backend.Buffered over it.
func New(ctx context.Context, config Config) (backend.Buffered, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("rediscache: address is required")
	}
	config = config.withDefaults()

	client := redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best effort cleanup after ping failure
		return nil, fmt.Errorf("rediscache: connect: %w", err)
	}

	return backend.Adapt(&store{client: client, prefix: config.KeyPrefix, ttl: config.TTL}), nil
}

// NewWithClient wraps an already-configured *redis.Client.
func NewWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) backend.Buffered {
	if keyPrefix == "" {
		keyPrefix = "cachekit:"
	}
	return backend.Adapt(&store{client: client, prefix: keyPrefix, ttl: ttl})
}
