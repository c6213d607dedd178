package freecachebackend

import (
	"testing"

	"github.com/htcacheio/cachekit/backend/backendtest"
)

func TestFreecacheBuffered(t *testing.T) {
	backendtest.Buffered(t, New(1024*1024).Buffered())
}

func TestFreecacheEntryCount(t *testing.T) {
	s := New(1024 * 1024)
	if s.EntryCount() != 0 {
		t.Fatalf("expected empty cache, got %d entries", s.EntryCount())
	}
}
