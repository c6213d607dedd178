package cachekit

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestSetLoggerGetLogger(t *testing.T) {
	var buf bytes.Buffer
	custom := slog.New(slog.NewTextHandler(&buf, nil))
	SetLogger(custom)
	defer SetLogger(nil)

	if GetLogger() != custom {
		t.Fatal("GetLogger should return the logger installed via SetLogger")
	}
}

func TestGetLoggerDefaultsWhenUnset(t *testing.T) {
	SetLogger(nil)
	if GetLogger() == nil {
		t.Fatal("GetLogger should never return nil")
	}
}
