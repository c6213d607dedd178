package streamstore

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend/backendtest"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	cfg.RootDir = t.TempDir()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreBufferedContract(t *testing.T) {
	s := newTestStore(t, Config{})
	backendtest.Buffered(t, s)
}

type sliceBody struct {
	chunks [][]byte
	i      int
}

func (b *sliceBody) Next() ([]byte, error) {
	if b.i >= len(b.chunks) {
		return nil, io.EOF
	}
	c := b.chunks[b.i]
	b.i++
	return c, nil
}

func (b *sliceBody) Close() error { return nil }

func TestStorePutStreamAndGetStream(t *testing.T) {
	s := newTestStore(t, Config{})
	ctx := context.Background()

	body := &sliceBody{chunks: [][]byte{[]byte("hello "), []byte("world")}}
	entry := cachekit.CacheEntry{
		Response: cachekit.CachedResponse{
			Status:  200,
			Headers: cachekit.NewHeader(),
			Stream:  body,
		},
		Policy: cachekit.CachePolicyBlob("p1"),
	}

	written, err := s.PutStream(ctx, "key-1", entry, "http://example.test/a", []byte("meta"))
	if err != nil {
		t.Fatalf("PutStream: %v", err)
	}
	if !bytes.Equal(written.Response.Buffered, []byte("hello world")) {
		t.Fatalf("PutStream did not return buffered bytes, got %q", written.Response.Buffered)
	}

	got, ok, err := s.GetStream(ctx, "key-1")
	if err != nil || !ok {
		t.Fatalf("GetStream: ok=%v err=%v", ok, err)
	}
	defer got.Response.Stream.Close()

	var out bytes.Buffer
	for {
		chunk, err := got.Response.Stream.Next()
		out.Write(chunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	if out.String() != "hello world" {
		t.Fatalf("got %q, want %q", out.String(), "hello world")
	}
	if got.Response.Metadata == nil || string(got.Response.Metadata) != "meta" {
		t.Fatalf("metadata not preserved: %q", got.Response.Metadata)
	}
}

func TestStoreContentDeduplication(t *testing.T) {
	s := newTestStore(t, Config{})
	ctx := context.Background()

	entry := cachekit.CacheEntry{Response: cachekit.CachedResponse{Buffered: []byte("shared body")}}
	if err := s.Put(ctx, "key-a", entry); err != nil {
		t.Fatalf("put a: %v", err)
	}
	if err := s.Put(ctx, "key-b", entry); err != nil {
		t.Fatalf("put b: %v", err)
	}

	contentDir := filepath.Join(s.root, "content")
	files, err := os.ReadDir(contentDir)
	if err != nil {
		t.Fatalf("read content dir: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected exactly one content file for identical bodies, got %d", len(files))
	}

	// Deleting one key must not remove the shared content file while
	// the other key still references it.
	if err := s.Delete(ctx, "key-a"); err != nil {
		t.Fatalf("delete a: %v", err)
	}

	got, ok, err := s.Get(ctx, "key-b")
	if err != nil || !ok {
		t.Fatalf("key-b should still resolve after key-a deleted: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got.Response.Buffered, entry.Response.Buffered) {
		t.Fatal("key-b body corrupted after sibling deletion")
	}
}

func TestStoreMaxBodySizeRejected(t *testing.T) {
	s := newTestStore(t, Config{MaxBodySize: 4})
	ctx := context.Background()

	body := &sliceBody{chunks: [][]byte{[]byte("too many bytes")}}
	entry := cachekit.CacheEntry{Response: cachekit.CachedResponse{Stream: body}}

	_, err := s.PutStream(ctx, "oversized", entry, "http://example.test/b", nil)
	if err != ErrBodyTooLarge {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}

	if _, ok, _ := s.Get(ctx, "oversized"); ok {
		t.Fatal("rejected PutStream must not leave state behind")
	}
}

func TestStoreResidentIndexBoundedByMaxEntries(t *testing.T) {
	s := newTestStore(t, Config{MaxEntries: 2})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		entry := cachekit.CacheEntry{Response: cachekit.CachedResponse{Buffered: []byte(fmt.Sprintf("body-%d", i))}}
		if err := s.Put(ctx, fmt.Sprintf("key-%d", i), entry); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	if s.index.len() > 2 {
		t.Fatalf("resident index should be bounded at 2 entries, got %d", s.index.len())
	}
}

func TestStoreUpdateHeadersPreservesBody(t *testing.T) {
	s := newTestStore(t, Config{})
	ctx := context.Background()

	entry := cachekit.CacheEntry{
		Response: cachekit.CachedResponse{Buffered: []byte("body"), Headers: cachekit.NewHeader()},
		Policy:   cachekit.CachePolicyBlob("p"),
	}
	if err := s.Put(ctx, "k", entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	h := cachekit.NewHeader()
	h.Set("ETag", `"x"`)
	if ok, err := s.UpdateHeaders(ctx, "k", h, cachekit.CachePolicyBlob("p2")); err != nil || !ok {
		t.Fatalf("update headers: ok=%v err=%v", ok, err)
	}

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Response.Headers.Get("ETag") != `"x"` {
		t.Fatal("headers not updated")
	}
	if !bytes.Equal(got.Response.Buffered, []byte("body")) {
		t.Fatal("body changed by UpdateHeaders")
	}
}

func TestStoreGetMissingKeyAfterContentLoss(t *testing.T) {
	s := newTestStore(t, Config{})
	ctx := context.Background()

	entry := cachekit.CacheEntry{Response: cachekit.CachedResponse{Buffered: []byte("x")}}
	if err := s.Put(ctx, "k", entry); err != nil {
		t.Fatalf("put: %v", err)
	}
	m, ok, err := s.readMetadata("k")
	if err != nil || !ok {
		t.Fatalf("readMetadata: ok=%v err=%v", ok, err)
	}
	if err := os.Remove(s.contentPath(m.ContentDigest)); err != nil {
		t.Fatalf("remove content: %v", err)
	}

	_, ok, err = s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get after content loss should be a clean miss, got err: %v", err)
	}
	if ok {
		t.Fatal("expected miss after content file was removed out from under metadata")
	}
}

func TestEncodeMetadataStampsSchemaVersion(t *testing.T) {
	data, err := encodeMetadata(streamingMetadata{URL: "http://example.com"})
	if err != nil {
		t.Fatalf("encodeMetadata: %v", err)
	}
	m, err := decodeMetadata(data)
	if err != nil {
		t.Fatalf("decodeMetadata: %v", err)
	}
	if m.SchemaVersion != metadataSchemaVersion {
		t.Fatalf("expected SchemaVersion %d, got %d", metadataSchemaVersion, m.SchemaVersion)
	}
}

func TestDecodeMetadataRejectsUnknownSchemaVersion(t *testing.T) {
	// encodeMetadata always stamps the current version, so a future
	// writer's record is built by hand here, bypassing that stamping.
	future := streamingMetadata{URL: "http://example.com", SchemaVersion: metadataSchemaVersion + 1}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&future); err != nil {
		t.Fatalf("gob encode: %v", err)
	}

	_, err := decodeMetadata(buf.Bytes())
	if !errors.Is(err, ErrUnknownMetadataSchema) {
		t.Fatalf("expected ErrUnknownMetadataSchema, got %v", err)
	}
}
