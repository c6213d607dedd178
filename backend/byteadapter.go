package backend

import (
	"context"
	"fmt"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/internal/entrycodec"
)

// ByteStore is the minimal byte-oriented key/value contract a remote
// cache client exposes. Every remote Buffered backend in this module
// (redis, memcache, leveldb, diskv, blob storage, hazelcast, NATS KV,
// freecache) implements this instead of backend.Buffered directly;
// Adapt wraps it with the CacheEntry encode/decode step every one of
// them would otherwise duplicate.
type ByteStore interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// byteAdapter implements Buffered on top of a ByteStore by
// gob-encoding/decoding a cachekit.CacheEntry through
// internal/entrycodec.
type byteAdapter struct {
	store ByteStore
}

// Adapt turns a ByteStore into a Buffered backend.
func Adapt(store ByteStore) Buffered {
	return &byteAdapter{store: store}
}

func (a *byteAdapter) Get(ctx context.Context, key string) (cachekit.CacheEntry, bool, error) {
	data, ok, err := a.store.Get(ctx, key)
	if err != nil {
		return cachekit.CacheEntry{}, false, err
	}
	if !ok {
		return cachekit.CacheEntry{}, false, nil
	}
	entry, err := entrycodec.Decode(data)
	if err != nil {
		return cachekit.CacheEntry{}, false, fmt.Errorf("backend: corrupt entry for key %q: %w", key, err)
	}
	return entry, true, nil
}

func (a *byteAdapter) Put(ctx context.Context, key string, entry cachekit.CacheEntry) error {
	data, err := entrycodec.Encode(entry)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, key, data)
}

func (a *byteAdapter) Delete(ctx context.Context, key string) error {
	return a.store.Delete(ctx, key)
}

func (a *byteAdapter) UpdateHeaders(ctx context.Context, key string, headers cachekit.Header, policy cachekit.CachePolicyBlob) (bool, error) {
	entry, ok, err := a.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	entry.Response.Headers = headers.Clone()
	entry.Policy = policy
	if err := a.Put(ctx, key, entry); err != nil {
		return false, err
	}
	return true, nil
}
