package backendtest_test

import (
	"testing"

	"github.com/htcacheio/cachekit/backend/backendtest"
	"github.com/htcacheio/cachekit/backend/membackend"
)

func TestMemBackend(t *testing.T) {
	backendtest.Buffered(t, membackend.New())
}
