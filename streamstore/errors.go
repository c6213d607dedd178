package streamstore

import "errors"

var (
	// ErrBodyTooLarge is returned by PutStream when the body exceeds
	// the configured MaxBodySize. No state is altered.
	ErrBodyTooLarge = errors.New("streamstore: body exceeds max body size")

	// ErrBodyIntegrity is returned by a streaming read when the bytes
	// read from content storage don't match the digest recorded in
	// metadata. The caller must treat this as a read failure, never
	// as truncated-but-valid data.
	ErrBodyIntegrity = errors.New("streamstore: content digest mismatch")

	// ErrClosed names the closed-store condition. No Store method
	// returns it: operations after Close are not refused.
	ErrClosed = errors.New("streamstore: store is closed")
)
