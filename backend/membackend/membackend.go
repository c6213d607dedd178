// Package membackend is a trivial in-memory backend.Buffered
// implementation, useful for tests and as the default when no
// persistent backend is configured.
package membackend

import (
	"context"
	"sync"

	cachekit "github.com/htcacheio/cachekit"
)

// Store is a map-backed backend.Buffered guarded by a single mutex.
type Store struct {
	mu      sync.RWMutex
	entries map[string]cachekit.CacheEntry
}

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]cachekit.CacheEntry)}
}

func (s *Store) Get(ctx context.Context, key string) (cachekit.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return cachekit.CacheEntry{}, false, nil
	}
	return cloneEntry(e), true, nil
}

func (s *Store) Put(ctx context.Context, key string, entry cachekit.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = cloneEntry(entry)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *Store) UpdateHeaders(ctx context.Context, key string, headers cachekit.Header, policy cachekit.CachePolicyBlob) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	e.Response.Headers = headers.Clone()
	e.Policy = policy
	s.entries[key] = e
	return true, nil
}

func cloneEntry(e cachekit.CacheEntry) cachekit.CacheEntry {
	body := append([]byte(nil), e.Response.Buffered...)
	e.Response.Buffered = body
	e.Response.Headers = e.Response.Headers.Clone()
	return e
}
