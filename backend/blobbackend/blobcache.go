// Package blobbackend provides a backend.Buffered implementation that uses
// Go Cloud Development Kit (CDK) blob storage for cloud-agnostic cache storage.
//
// Supports multiple cloud providers:
//   - Amazon S3
//   - Google Cloud Storage
//   - Azure Blob Storage
//   - In-memory (for testing)
//   - Local filesystem
//
// Example usage with S3:
//
//	import (
//	    "context"
//	    _ "gocloud.dev/blob/s3blob"
//	    "github.com/htcacheio/cachekit/backend/blobbackend"
//	)
//
//	ctx := context.Background()
//	cache, err := blobbackend.New(ctx, blobbackend.Config{
//	    BucketURL: "s3://my-bucket?region=us-west-2",
//	    KeyPrefix: "cachekit/",
//	})
package blobbackend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/htcacheio/cachekit/backend"
)

// Config holds the configuration for the blob backend.
type Config struct {
	// BucketURL is the Go Cloud blob URL (e.g., "s3://bucket?region=us-west-2").
	BucketURL string

	// KeyPrefix is prepended to all cache keys (default: "cache/").
	KeyPrefix string

	// Timeout bounds individual blob operations (default: 30s).
	Timeout time.Duration

	// Bucket is an optional pre-opened bucket. If set, BucketURL is ignored.
	Bucket *blob.Bucket
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "cache/",
		Timeout:   30 * time.Second,
	}
}

type store struct {
	bucket    *blob.Bucket
	keyPrefix string
	timeout   time.Duration
}

// cacheKey maps a cache key onto a blob key. Hashed with SHA-256 to avoid
// issues with special characters in cloud storage key namespaces.
func (s *store) cacheKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return s.keyPrefix + hex.EncodeToString(hash[:])
}

func (s *store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	reader, err := s.bucket.NewReader(ctx, s.cacheKey(key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("blobbackend: get %q: %w", key, err)
	}
	defer reader.Close() //nolint:errcheck

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("blobbackend: read %q: %w", key, err)
	}
	return data, true, nil
}

func (s *store) Set(ctx context.Context, key string, data []byte) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	writer, err := s.bucket.NewWriter(ctx, s.cacheKey(key), nil)
	if err != nil {
		return fmt.Errorf("blobbackend: set %q: new writer: %w", key, err)
	}

	_, writeErr := writer.Write(data)
	closeErr := writer.Close()
	if writeErr != nil {
		return fmt.Errorf("blobbackend: set %q: write: %w", key, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("blobbackend: set %q: close: %w", key, closeErr)
	}
	return nil
}

func (s *store) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.bucket.Delete(ctx, s.cacheKey(key)); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("blobbackend: delete %q: %w", key, err)
	}
	return nil
}

// New opens the bucket named by config.BucketURL (unless config.Bucket is
// already set) and returns a backend.Buffered over it.
func New(ctx context.Context, config Config) (backend.Buffered, error) {
	if config.BucketURL == "" && config.Bucket == nil {
		return nil, fmt.Errorf("blobbackend: either BucketURL or Bucket must be provided")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultConfig().KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	bucket := config.Bucket
	if bucket == nil {
		var err error
		bucket, err = blob.OpenBucket(ctx, config.BucketURL)
		if err != nil {
			return nil, fmt.Errorf("blobbackend: open bucket: %w", err)
		}
	}

	return backend.Adapt(&store{bucket: bucket, keyPrefix: config.KeyPrefix, timeout: config.Timeout}), nil
}

// NewWithBucket wraps an already-opened bucket. The caller owns the
// bucket's lifecycle.
func NewWithBucket(bucket *blob.Bucket, keyPrefix string, timeout time.Duration) backend.Buffered {
	if keyPrefix == "" {
		keyPrefix = DefaultConfig().KeyPrefix
	}
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}
	return backend.Adapt(&store{bucket: bucket, keyPrefix: keyPrefix, timeout: timeout})
}
