package streamstore

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"

	cachekit "github.com/htcacheio/cachekit"
)

// chunkSize is the fixed read unit for streaming bodies back out of
// content storage. Reads are not restartable: once a chunkedBody
// returns an error, the caller must treat the stream as done.
const chunkSize = 64 * 1024

// chunkedBody implements cachekit.Body over an open content file,
// verifying the trailing digest once the whole file has been read
// rather than paying a seek-back cost per chunk.
type chunkedBody struct {
	file   *os.File
	hasher hash.Hash
	digest string
	buf    []byte
	done   bool
}

func newChunkedBody(file *os.File, digest string) *chunkedBody {
	return &chunkedBody{
		file:   file,
		hasher: sha256.New(),
		digest: digest,
		buf:    make([]byte, chunkSize),
	}
}

func (b *chunkedBody) Next() ([]byte, error) {
	if b.done {
		return nil, io.EOF
	}

	n, err := b.file.Read(b.buf)
	if n > 0 {
		b.hasher.Write(b.buf[:n])
	}
	if err == io.EOF {
		b.done = true
		if sum := hex.EncodeToString(b.hasher.Sum(nil)); sum != b.digest {
			return nil, ErrBodyIntegrity
		}
		if n == 0 {
			return nil, io.EOF
		}
		return b.buf[:n], nil
	}
	if err != nil {
		b.done = true
		return nil, err
	}
	return b.buf[:n], nil
}

func (b *chunkedBody) Close() error {
	b.done = true
	return b.file.Close()
}

var _ cachekit.Body = (*chunkedBody)(nil)

// digestReader wraps an io.Reader and incrementally hashes every byte
// read through it, used on the write path where the body must be fully
// buffered (and hashed) before the content-addressed key is known.
type digestReader struct {
	r      io.Reader
	hasher hash.Hash
}

func newDigestReader(r io.Reader) *digestReader {
	return &digestReader{r: r, hasher: sha256.New()}
}

func (d *digestReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if n > 0 {
		d.hasher.Write(p[:n])
	}
	return n, err
}

func (d *digestReader) Sum() string {
	return hex.EncodeToString(d.hasher.Sum(nil))
}
