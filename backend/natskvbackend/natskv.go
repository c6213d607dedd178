// Package natskvbackend is a backend.Buffered implementation backed by
// a NATS JetStream Key/Value bucket.
package natskvbackend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/htcacheio/cachekit/backend"
	"github.com/htcacheio/cachekit/internal/logging"
)

// Config holds the configuration for creating a NATS K/V cache.
type Config struct {
	// NATSUrl is the URL of the NATS server. Defaults to nats.DefaultURL.
	NATSUrl string
	// Bucket is the name of the K/V bucket to use for caching. Required.
	Bucket string
	// Description is an optional description for the K/V bucket.
	Description string
	// TTL is the time-to-live for cache entries. Zero means no expiry.
	TTL time.Duration
	// NATSOptions are additional options passed to nats.Connect.
	NATSOptions []nats.Option
}

type store struct {
	kv jetstream.KeyValue
}

// cacheKey maps an arbitrary cache key (typically "METHOD URL") onto a
// NATS K/V-legal key: only alphanumerics, '-', '_', '=', '/', '.' are
// allowed, so the key is hashed rather than sanitized piecemeal.
func cacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "cachekit." + hex.EncodeToString(sum[:])
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(ctx, cacheKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("natskvbackend: get %q: %w", key, err)
	}
	return entry.Value(), true, nil
}

func (s *store) Set(ctx context.Context, key string, data []byte) error {
	if _, err := s.kv.Put(ctx, cacheKey(key), data); err != nil {
		logging.Get().WarnContext(ctx, "natskvbackend: failed to write entry", "key", key, "error", err)
		return fmt.Errorf("natskvbackend: set %q: %w", key, err)
	}
	return nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, cacheKey(key)); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		logging.Get().WarnContext(ctx, "natskvbackend: failed to delete entry", "key", key, "error", err)
		return fmt.Errorf("natskvbackend: delete %q: %w", key, err)
	}
	return nil
}

// New connects to NATS, opens a JetStream context, and creates or
// updates the configured K/V bucket.
func New(ctx context.Context, config Config) (backend.Buffered, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("natskvbackend: bucket name is required")
	}

	url := config.NATSUrl
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url, config.NATSOptions...)
	if err != nil {
		return nil, fmt.Errorf("natskvbackend: connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskvbackend: jetstream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: config.Description,
		TTL:         config.TTL,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskvbackend: create bucket: %w", err)
	}

	return backend.Adapt(&store{kv: kv}), nil
}

// NewWithKeyValue wraps an already-opened jetstream.KeyValue bucket.
func NewWithKeyValue(kv jetstream.KeyValue) backend.Buffered {
	return backend.Adapt(&store{kv: kv})
}
