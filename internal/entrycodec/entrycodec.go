// Package entrycodec serializes a cachekit.CacheEntry to and from a
// byte slice for byte-oriented backends (redis, memcache, leveldb,
// diskv, blob storage, hazelcast, NATS KV). None of the example
// repos' dependencies provide a generic struct codec that fits an
// opaque CacheEntry (CachePolicyBlob is already opaque bytes, and
// gocloud.dev/mongo-driver/pgx each only cover their own store), so
// this is encoding/gob by necessity rather than preference: gob
// round-trips Header's map[string][]string and []byte fields without
// field tags or a schema, which the teacher's own byte-oriented Cache
// interface (Get/Set []byte) always assumed its caller provided
// already-serialized bytes for (httputil.DumpResponse, in its case).
package entrycodec

import (
	"bytes"
	"encoding/gob"
	"fmt"

	cachekit "github.com/htcacheio/cachekit"
)

// wireEntry mirrors cachekit.CacheEntry but drops the Stream field,
// which is never populated on a path that reaches a byte-oriented
// backend (buffered backends only ever see Response.Buffered).
type wireEntry struct {
	Status   int
	Version  string
	Headers  cachekit.Header
	Buffered []byte
	URL      string
	Metadata []byte
	Policy   cachekit.CachePolicyBlob
}

// Encode serializes entry to bytes.
func Encode(entry cachekit.CacheEntry) ([]byte, error) {
	w := wireEntry{
		Status:   entry.Response.Status,
		Version:  entry.Response.Version,
		Headers:  entry.Response.Headers,
		Buffered: entry.Response.Buffered,
		URL:      entry.Response.URL,
		Metadata: entry.Response.Metadata,
		Policy:   entry.Policy,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&w); err != nil {
		return nil, fmt.Errorf("entrycodec: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes entry from bytes produced by Encode.
func Decode(data []byte) (cachekit.CacheEntry, error) {
	var w wireEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return cachekit.CacheEntry{}, fmt.Errorf("entrycodec: decode: %w", err)
	}
	return cachekit.CacheEntry{
		Response: cachekit.CachedResponse{
			Status:   w.Status,
			Version:  w.Version,
			Headers:  w.Headers,
			Buffered: w.Buffered,
			URL:      w.URL,
			Metadata: w.Metadata,
		},
		Policy: w.Policy,
	}, nil
}
