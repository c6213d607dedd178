// Package diskvbackend is a backend.Buffered implementation backed by
// github.com/peterbourgon/diskv, layering an in-memory LRU cache over
// on-disk file storage.
package diskvbackend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/peterbourgon/diskv"

	"github.com/htcacheio/cachekit/backend"
)

type store struct {
	d *diskv.Diskv
}

func keyToFilename(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (s *store) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := s.d.Read(keyToFilename(key))
	if err != nil {
		return nil, false, nil
	}
	return data, true, nil
}

func (s *store) Set(_ context.Context, key string, data []byte) error {
	if err := s.d.WriteStream(keyToFilename(key), bytes.NewReader(data), true); err != nil {
		return fmt.Errorf("diskvbackend: set %q: %w", key, err)
	}
	return nil
}

func (s *store) Delete(_ context.Context, key string) error {
	_ = s.d.Erase(keyToFilename(key)) //nolint:errcheck // file not found is acceptable
	return nil
}

// New returns a backend.Buffered storing files under basePath.
func New(basePath string) backend.Buffered {
	return NewWithDiskv(diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 100 * 1024 * 1024,
	}))
}

// NewWithDiskv wraps an already-configured *diskv.Diskv.
func NewWithDiskv(d *diskv.Diskv) backend.Buffered {
	return backend.Adapt(&store{d: d})
}
