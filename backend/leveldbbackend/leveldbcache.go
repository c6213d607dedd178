// Package leveldbbackend is a backend.Buffered implementation backed
// by github.com/syndtr/goleveldb/leveldb, for single-process
// on-disk caching.
package leveldbbackend

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/htcacheio/cachekit/backend"
)

type store struct {
	db *leveldb.DB
}

func (s *store) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldbbackend: get %q: %w", key, err)
	}
	return data, true, nil
}

func (s *store) Set(_ context.Context, key string, data []byte) error {
	if err := s.db.Put([]byte(key), data, nil); err != nil {
		return fmt.Errorf("leveldbbackend: set %q: %w", key, err)
	}
	return nil
}

func (s *store) Delete(_ context.Context, key string) error {
	if err := s.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("leveldbbackend: delete %q: %w", key, err)
	}
	return nil
}

// New opens (or creates) a leveldb database at path and returns a
// backend.Buffered over it.
func New(path string) (backend.Buffered, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbbackend: open %q: %w", path, err)
	}
	return backend.Adapt(&store{db: db}), nil
}

// NewWithDB wraps an already-open *leveldb.DB.
func NewWithDB(db *leveldb.DB) backend.Buffered {
	return backend.Adapt(&store{db: db})
}
