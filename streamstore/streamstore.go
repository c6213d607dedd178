// Package streamstore implements a content-addressed, deduplicated
// backend.Streaming over the local filesystem. Distinct keys whose
// bodies are byte-identical share a single on-disk copy, reference
// counted so the backing file is only removed once nothing points at
// it anymore.
//
// Layout under Config.RootDir:
//
//	metadata/<sha256(key) hex>   gob-encoded streamingMetadata
//	content/<sha256(body) hex>   raw response body bytes
//
// Metadata and content are written independently: a crash between the
// two leaves either an orphaned content file (harmless, collected by
// nothing referencing it, subject to the same refcount-zero cleanup
// path once it is ever referenced again) or no metadata at all (the
// key is simply absent). Metadata is never written pointing at content
// that didn't already land on disk.
package streamstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/backend"
	"github.com/htcacheio/cachekit/internal/logging"
)

var _ backend.Streaming = (*Store)(nil)

// Config configures a Store.
type Config struct {
	// RootDir is the directory content and metadata subdirectories
	// are created under. Required.
	RootDir string

	// MaxBodySize bounds a single PutStream body. A body exceeding it
	// is rejected with ErrBodyTooLarge and no state is changed. Zero
	// means unbounded.
	MaxBodySize int64

	// MaxEntries bounds the number of resident keys. Zero means
	// unbounded.
	MaxEntries int

	// MaxCacheSize bounds total content bytes referenced by resident
	// keys. Zero means unbounded.
	MaxCacheSize int64
}

// Store is a backend.Streaming implementation. See the package doc for
// its on-disk layout.
type Store struct {
	root string
	cfg  Config

	refs    *refTable
	index   *residentIndex
	cleanup *cleanupWorker

	closed bool
}

// New creates a Store rooted at cfg.RootDir, creating the metadata and
// content subdirectories if absent.
func New(cfg Config) (*Store, error) {
	if cfg.RootDir == "" {
		return nil, errors.New("streamstore: RootDir is required")
	}
	for _, sub := range []string{"metadata", "content"} {
		if err := os.MkdirAll(filepath.Join(cfg.RootDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("streamstore: create %s dir: %w", sub, err)
		}
	}
	return &Store{
		root:    cfg.RootDir,
		cfg:     cfg,
		refs:    newRefTable(),
		index:   newResidentIndex(cfg.MaxEntries, cfg.MaxCacheSize),
		cleanup: newCleanupWorker(),
	}, nil
}

// Close stops the background cleanup worker, flushing any queued
// deletions first.
func (s *Store) Close() error {
	s.cleanup.close()
	s.closed = true
	return nil
}

// metadataSchemaVersion is written into every encoded streamingMetadata
// record and checked back on decode. Bump it whenever the record's
// shape changes incompatibly; decodeMetadata rejects anything that
// doesn't match rather than guessing at a migration.
const metadataSchemaVersion = 1

// streamingMetadata is the gob-encoded record kept at
// metadata/<hex(sha256(key))>. It never embeds the body: the body
// lives under content/<ContentDigest>, addressed independently of key.
type streamingMetadata struct {
	SchemaVersion int
	Status        int
	Version       string
	Headers       cachekit.Header
	ContentDigest string
	Size          int64
	Policy        cachekit.CachePolicyBlob
	Metadata      []byte
	URL           string
	CreatedAt     time.Time
}

func keyHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (s *Store) metadataPath(key string) string {
	return metadataPathFor(s.root, keyHash(key))
}

func (s *Store) contentPath(digest string) string {
	return contentPathFor(s.root, digest)
}

func encodeMetadata(m streamingMetadata) ([]byte, error) {
	m.SchemaVersion = metadataSchemaVersion
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&m); err != nil {
		return nil, fmt.Errorf("streamstore: encode metadata: %w", err)
	}
	return buf.Bytes(), nil
}

// ErrUnknownMetadataSchema is returned by decodeMetadata when a record's
// SchemaVersion doesn't match metadataSchemaVersion: an older or newer
// writer produced it, and this reader has no migration for it.
var ErrUnknownMetadataSchema = errors.New("streamstore: unknown metadata schema version")

func decodeMetadata(data []byte) (streamingMetadata, error) {
	var m streamingMetadata
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return streamingMetadata{}, fmt.Errorf("streamstore: decode metadata: %w", err)
	}
	if m.SchemaVersion != metadataSchemaVersion {
		return streamingMetadata{}, fmt.Errorf("%w: got %d, want %d", ErrUnknownMetadataSchema, m.SchemaVersion, metadataSchemaVersion)
	}
	return m, nil
}

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by a rename, so concurrent readers never observe
// a partially written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *Store) readMetadata(key string) (streamingMetadata, bool, error) {
	data, err := os.ReadFile(s.metadataPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return streamingMetadata{}, false, nil
		}
		return streamingMetadata{}, false, err
	}
	m, err := decodeMetadata(data)
	if err != nil {
		return streamingMetadata{}, false, err
	}
	return m, true, nil
}

// Get implements backend.Buffered.
func (s *Store) Get(ctx context.Context, key string) (cachekit.CacheEntry, bool, error) {
	m, ok, err := s.readMetadata(key)
	if err != nil || !ok {
		return cachekit.CacheEntry{}, false, err
	}
	s.index.touch(key)

	body, err := os.ReadFile(s.contentPath(m.ContentDigest))
	if err != nil {
		if os.IsNotExist(err) {
			// Metadata survived but content didn't: treat as a miss
			// and best-effort clean the stale metadata so a future
			// Put isn't blocked by it.
			_ = os.Remove(s.metadataPath(key))
			return cachekit.CacheEntry{}, false, nil
		}
		return cachekit.CacheEntry{}, false, err
	}
	if sum := sha256.Sum256(body); hex.EncodeToString(sum[:]) != m.ContentDigest {
		return cachekit.CacheEntry{}, false, ErrBodyIntegrity
	}

	return s.entryFromMetadata(m, body, nil), true, nil
}

// GetStream implements backend.Streaming.
func (s *Store) GetStream(ctx context.Context, key string) (cachekit.CacheEntry, bool, error) {
	m, ok, err := s.readMetadata(key)
	if err != nil || !ok {
		return cachekit.CacheEntry{}, false, err
	}
	s.index.touch(key)

	if m.Size == 0 {
		return s.entryFromMetadata(m, nil, s.EmptyBody()), true, nil
	}

	file, err := os.Open(s.contentPath(m.ContentDigest))
	if err != nil {
		if os.IsNotExist(err) {
			_ = os.Remove(s.metadataPath(key))
			return cachekit.CacheEntry{}, false, nil
		}
		return cachekit.CacheEntry{}, false, err
	}

	return s.entryFromMetadata(m, nil, newChunkedBody(file, m.ContentDigest)), true, nil
}

func (s *Store) entryFromMetadata(m streamingMetadata, buffered []byte, stream cachekit.Body) cachekit.CacheEntry {
	return cachekit.CacheEntry{
		Response: cachekit.CachedResponse{
			Status:   m.Status,
			Version:  m.Version,
			Headers:  m.Headers,
			Buffered: buffered,
			Stream:   stream,
			URL:      m.URL,
			Metadata: m.Metadata,
		},
		Policy: m.Policy,
	}
}

// EmptyBody implements backend.Streaming.
func (s *Store) EmptyBody() cachekit.Body {
	return emptyBody{}
}

type emptyBody struct{}

func (emptyBody) Next() ([]byte, error) { return nil, io.EOF }
func (emptyBody) Close() error          { return nil }

// Put implements backend.Buffered by writing entry.Response.Buffered
// as content, addressed by its own digest.
func (s *Store) Put(ctx context.Context, key string, entry cachekit.CacheEntry) error {
	digest, size, err := s.writeContent(bytes.NewReader(entry.Response.Buffered))
	if err != nil {
		return err
	}
	return s.commit(key, entry, digest, size)
}

// PutStream implements backend.Streaming. It drains entry.Response.Stream
// into memory, rejecting bodies over MaxBodySize with no state change,
// then writes and hashes the bytes into content storage, commits them,
// and returns them buffered so the caller can replay them.
func (s *Store) PutStream(ctx context.Context, key string, entry cachekit.CacheEntry, requestURL string, metadata []byte) (cachekit.CacheEntry, error) {
	stream := entry.Response.Stream
	if stream == nil {
		return s.bufferedPutStream(ctx, key, entry, requestURL, metadata)
	}
	defer stream.Close()

	var buffered bytes.Buffer
	for {
		chunk, err := stream.Next()
		if len(chunk) > 0 {
			if s.cfg.MaxBodySize > 0 && int64(buffered.Len()+len(chunk)) > s.cfg.MaxBodySize {
				return cachekit.CacheEntry{}, ErrBodyTooLarge
			}
			buffered.Write(chunk)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return cachekit.CacheEntry{}, err
		}
	}

	digest, size, err := s.writeContent(bytes.NewReader(buffered.Bytes()))
	if err != nil {
		return cachekit.CacheEntry{}, err
	}

	entry.Response.URL = requestURL
	entry.Response.Metadata = metadata
	entry.Response.Buffered = buffered.Bytes()
	entry.Response.Stream = nil

	if err := s.commit(key, entry, digest, size); err != nil {
		return cachekit.CacheEntry{}, err
	}
	return entry, nil
}

func (s *Store) bufferedPutStream(ctx context.Context, key string, entry cachekit.CacheEntry, requestURL string, metadata []byte) (cachekit.CacheEntry, error) {
	if s.cfg.MaxBodySize > 0 && int64(len(entry.Response.Buffered)) > s.cfg.MaxBodySize {
		return cachekit.CacheEntry{}, ErrBodyTooLarge
	}
	digest, size, err := s.writeContent(bytes.NewReader(entry.Response.Buffered))
	if err != nil {
		return cachekit.CacheEntry{}, err
	}
	entry.Response.URL = requestURL
	entry.Response.Metadata = metadata
	if err := s.commit(key, entry, digest, size); err != nil {
		return cachekit.CacheEntry{}, err
	}
	return entry, nil
}

// writeContent hashes r fully while copying it to a temp file, then
// renames it into place under its digest. If a file already exists at
// that digest the temp copy is discarded: identical bodies dedup onto
// one file regardless of which key wrote it first.
func (s *Store) writeContent(r io.Reader) (digest string, size int64, err error) {
	contentDir := filepath.Join(s.root, "content")
	tmp, err := os.CreateTemp(contentDir, ".tmp-*")
	if err != nil {
		return "", 0, err
	}
	tmpName := tmp.Name()
	dr := newDigestReader(r)
	n, err := io.Copy(tmp, dr)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", 0, err
	}

	digest = dr.Sum()
	finalPath := s.contentPath(digest)

	if _, statErr := os.Stat(finalPath); statErr == nil {
		// Already present under this digest: drop the duplicate copy.
		os.Remove(tmpName)
		return digest, n, nil
	}

	if err := os.Rename(tmpName, finalPath); err != nil {
		os.Remove(tmpName)
		return "", 0, err
	}
	return digest, n, nil
}

// commit writes metadata pointing at an already-written content file,
// updates the reference count and resident index, and schedules
// cleanup for anything evicted or superseded. If metadata write fails,
// it rolls back by releasing the reference it had provisionally
// acquired rather than leaving an orphaned increment.
func (s *Store) commit(key string, entry cachekit.CacheEntry, digest string, size int64) error {
	s.refs.acquire(digest)

	var prevDigest string
	if prev, ok, err := s.readMetadata(key); err == nil && ok {
		prevDigest = prev.ContentDigest
	}

	m := streamingMetadata{
		Status:        entry.Response.Status,
		Version:       entry.Response.Version,
		Headers:       entry.Response.Headers.Clone(),
		ContentDigest: digest,
		Size:          size,
		Policy:        entry.Policy,
		Metadata:      entry.Response.Metadata,
		URL:           entry.Response.URL,
		CreatedAt:     time.Now(),
	}

	data, err := encodeMetadata(m)
	if err != nil {
		s.releaseContent(digest)
		return err
	}
	if err := writeFileAtomic(s.metadataPath(key), data); err != nil {
		s.releaseContent(digest)
		return err
	}

	if prevDigest != "" && prevDigest != digest {
		s.releaseContent(prevDigest)
	}

	victims := s.index.admit(key, digest, size)
	for _, v := range victims {
		if v.digest == digest {
			continue
		}
		s.releaseContentAndMetadata(v.key, v.digest)
	}
	return nil
}

// releaseContent decrements digest's reference count, enqueueing the
// backing file for deletion if this call drives it to zero.
func (s *Store) releaseContent(digest string) {
	if s.refs.release(digest) {
		s.cleanup.enqueue(s.contentPath(digest))
	}
}

// releaseContentAndMetadata evicts a key that fell out of the resident
// index: its metadata file is removed immediately (it's small and
// synchronous removal keeps the index and filesystem in lockstep),
// while the content file, if now unreferenced, goes through the async
// cleanup path like any other release.
func (s *Store) releaseContentAndMetadata(key, digest string) {
	if err := os.Remove(s.metadataPath(key)); err != nil && !os.IsNotExist(err) {
		logging.Get().Warn("streamstore: failed to remove evicted metadata", "key", key, "error", err)
	}
	s.releaseContent(digest)
}

// Delete implements backend.Buffered. Deleting an absent key is not an
// error, and deleting the same key twice is a no-op the second time.
func (s *Store) Delete(ctx context.Context, key string) error {
	m, ok, err := s.readMetadata(key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := os.Remove(s.metadataPath(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	s.index.remove(key)
	s.releaseContent(m.ContentDigest)
	return nil
}

// UpdateHeaders implements backend.Buffered, rewriting only metadata:
// the content file backing key is untouched.
func (s *Store) UpdateHeaders(ctx context.Context, key string, headers cachekit.Header, policy cachekit.CachePolicyBlob) (bool, error) {
	m, ok, err := s.readMetadata(key)
	if err != nil || !ok {
		return false, err
	}
	m.Headers = headers.Clone()
	m.Policy = policy

	data, err := encodeMetadata(m)
	if err != nil {
		return false, err
	}
	if err := writeFileAtomic(s.metadataPath(key), data); err != nil {
		return false, err
	}
	return true, nil
}
