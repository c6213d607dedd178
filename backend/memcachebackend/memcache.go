//go:build !appengine

// Package memcachebackend is a backend.Buffered implementation backed
// by memcache, using bradfitz/gomemcache.
//
// Only the gomemcache client is supported; the package provides no
// App Engine memcache variant.
package memcachebackend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/htcacheio/cachekit/backend"
)

type store struct {
	client *memcache.Client
}

// cacheKey hashes key to stay under memcache's 250-byte key limit
// regardless of how long the underlying request URL is.
func cacheKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "cachekit:" + hex.EncodeToString(sum[:])
}

func (s *store) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, err := s.client.Get(cacheKey(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("memcachebackend: get %q: %w", key, err)
	}
	return item.Value, true, nil
}

func (s *store) Set(_ context.Context, key string, data []byte) error {
	item := &memcache.Item{Key: cacheKey(key), Value: data}
	if err := s.client.Set(item); err != nil {
		return fmt.Errorf("memcachebackend: set %q: %w", key, err)
	}
	return nil
}

func (s *store) Delete(_ context.Context, key string) error {
	if err := s.client.Delete(cacheKey(key)); err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil
		}
		return fmt.Errorf("memcachebackend: delete %q: %w", key, err)
	}
	return nil
}

// New returns a backend.Buffered using the provided memcache server(s)
// with equal weight. If a server is listed multiple times, it gets a
// proportional amount of weight.
func New(server ...string) backend.Buffered {
	return NewWithClient(memcache.New(server...))
}

// NewWithClient wraps an already-configured *memcache.Client.
func NewWithClient(client *memcache.Client) backend.Buffered {
	return backend.Adapt(&store{client: client})
}
