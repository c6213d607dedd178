package leveldbbackend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/htcacheio/cachekit/backend/backendtest"
)

func TestLevelDBCache(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "cachekit")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(tempDir)

	store, err := New(filepath.Join(tempDir, "db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	backendtest.Buffered(t, store)
}
