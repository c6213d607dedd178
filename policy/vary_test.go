package policy

import (
	"testing"

	cachekit "github.com/htcacheio/cachekit"
)

func TestStoreVaryHeadersThenMatch(t *testing.T) {
	respHeaders := cachekit.NewHeader()
	respHeaders.Set("Vary", "Accept-Encoding, X-Api-Version")

	origReq := cachekit.NewHeader()
	origReq.Set("Accept-Encoding", "gzip")
	origReq.Set("X-Api-Version", "2")

	storeVaryHeaders(respHeaders, origReq)

	matching := cachekit.NewHeader()
	matching.Set("Accept-Encoding", "gzip")
	matching.Set("X-Api-Version", "2")
	if !varyMatches(respHeaders, matching) {
		t.Fatal("identical varying header values must match")
	}

	mismatching := cachekit.NewHeader()
	mismatching.Set("Accept-Encoding", "br")
	mismatching.Set("X-Api-Version", "2")
	if varyMatches(respHeaders, mismatching) {
		t.Fatal("differing varying header values must not match")
	}
}

func TestVaryStarNeverMatches(t *testing.T) {
	respHeaders := cachekit.NewHeader()
	respHeaders.Set("Vary", "*")
	if varyMatches(respHeaders, cachekit.NewHeader()) {
		t.Fatal("Vary: * must never match")
	}
}

func TestVaryMatchesNormalizesWhitespace(t *testing.T) {
	respHeaders := cachekit.NewHeader()
	respHeaders.Set("Vary", "Accept")
	respHeaders.Set("X-Varied-Accept", "text/html,  application/json")

	req := cachekit.NewHeader()
	req.Set("Accept", "text/html, application/json")
	if !varyMatches(respHeaders, req) {
		t.Fatal("whitespace-only differences must still match per RFC 9111 §4.1")
	}
}

func TestHeaderAllCommaSepValues(t *testing.T) {
	h := cachekit.NewHeader()
	h.Add("Vary", "Accept, Accept-Encoding")
	h.Add("Vary", "X-Custom")

	got := headerAllCommaSepValues(h, "vary")
	want := []string{"Accept", "Accept-Encoding", "X-Custom"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d (%v)", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("token %d: got %q, want %q", i, got[i], w)
		}
	}
}
