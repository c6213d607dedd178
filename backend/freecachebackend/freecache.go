// Package freecachebackend is a zero-GC-overhead backend.Buffered
// implementation using github.com/coocood/freecache, suitable for
// caches with millions of entries and automatic LRU eviction.
package freecachebackend

import (
	"context"
	"errors"
	"fmt"

	"github.com/coocood/freecache"

	"github.com/htcacheio/cachekit/backend"
)

// Store wraps a *freecache.Cache as a backend.Buffered. Exported so
// callers can reach the underlying statistics methods (EntryCount,
// HitRate, EvacuateCount) that freecache exposes.
type Store struct {
	cache *freecache.Cache
}

// New creates a Store with the specified size in bytes (512KB minimum,
// enforced by freecache itself).
func New(size int) *Store {
	return &Store{cache: freecache.NewCache(size)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := s.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("freecachebackend: get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(_ context.Context, key string, data []byte) error {
	if err := s.cache.Set([]byte(key), data, 0); err != nil {
		return fmt.Errorf("freecachebackend: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.cache.Del([]byte(key))
	return nil
}

// EntryCount returns the number of entries currently in the cache.
func (s *Store) EntryCount() int64 { return s.cache.EntryCount() }

// HitRate returns the ratio of cache hits to total lookups.
func (s *Store) HitRate() float64 { return s.cache.HitRate() }

// EvacuateCount returns the number of times entries were evicted
// because the cache was full.
func (s *Store) EvacuateCount() int64 { return s.cache.EvacuateCount() }

// Buffered adapts s to backend.Buffered.
func (s *Store) Buffered() backend.Buffered {
	return backend.Adapt(s)
}
