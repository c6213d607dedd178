// Package backendtest exercises a backend.Buffered implementation's
// Get/Put/Delete/UpdateHeaders contract generically.
package backendtest

import (
	"bytes"
	"context"
	"testing"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend"
)

// Buffered exercises store against the backend.Buffered contract.
func Buffered(t *testing.T, store backend.Buffered) {
	t.Helper()
	ctx := context.Background()
	key := "GET http://example.test/resource"

	_, ok, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get before put: %v", err)
	}
	if ok {
		t.Fatal("retrieved entry before storing it")
	}

	entry := cachekit.CacheEntry{
		Response: cachekit.CachedResponse{
			Status:   200,
			Version:  "1.1",
			Headers:  cachekit.NewHeader(),
			Buffered: []byte("some bytes"),
			URL:      "http://example.test/resource",
		},
		Policy: cachekit.CachePolicyBlob("policy-blob"),
	}
	entry.Response.Headers.Set("Content-Type", "text/plain")

	if err := store.Put(ctx, key, entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after put: %v", err)
	}
	if !ok {
		t.Fatal("could not retrieve an entry we just stored")
	}
	if !bytes.Equal(got.Response.Buffered, entry.Response.Buffered) {
		t.Fatalf("retrieved body %q, want %q", got.Response.Buffered, entry.Response.Buffered)
	}
	if got.Response.Headers.Get("Content-Type") != "text/plain" {
		t.Fatalf("retrieved headers missing Content-Type")
	}
	if !bytes.Equal(got.Policy, entry.Policy) {
		t.Fatalf("retrieved policy %q, want %q", got.Policy, entry.Policy)
	}

	newHeaders := got.Response.Headers.Clone()
	newHeaders.Set("ETag", `"v2"`)
	if ok, err := store.UpdateHeaders(ctx, key, newHeaders, cachekit.CachePolicyBlob("policy-blob-v2")); err != nil || !ok {
		t.Fatalf("update headers: ok=%v err=%v", ok, err)
	}

	got, ok, err = store.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("get after update headers: ok=%v err=%v", ok, err)
	}
	if got.Response.Headers.Get("ETag") != `"v2"` {
		t.Fatal("update headers did not persist")
	}
	if !bytes.Equal(got.Response.Buffered, entry.Response.Buffered) {
		t.Fatal("update headers must not alter the stored body")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, ok, err = store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if ok {
		t.Fatal("entry still present after delete")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete of missing key must be a no-op, got: %v", err)
	}
}
