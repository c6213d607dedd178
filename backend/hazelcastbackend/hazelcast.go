// Package hazelcastbackend is a backend.Buffered implementation backed
// by a Hazelcast IMap, using hazelcast/hazelcast-go-client.
package hazelcastbackend

import (
	"context"
	"fmt"

	"github.com/hazelcast/hazelcast-go-client"

	"github.com/htcacheio/cachekit/backend"
)

type store struct {
	m *hazelcast.Map
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.m.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("hazelcastbackend: get %q: %w", key, err)
	}
	if val == nil {
		return nil, false, nil
	}
	data, ok := val.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

func (s *store) Set(ctx context.Context, key string, data []byte) error {
	if err := s.m.Set(ctx, key, data); err != nil {
		return fmt.Errorf("hazelcastbackend: set %q: %w", key, err)
	}
	return nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	if _, err := s.m.Remove(ctx, key); err != nil {
		return fmt.Errorf("hazelcastbackend: delete %q: %w", key, err)
	}
	return nil
}

// NewWithMap wraps an already-opened *hazelcast.Map.
func NewWithMap(m *hazelcast.Map) backend.Buffered {
	return backend.Adapt(&store{m: m})
}
