package cachekit

import "context"

// RateLimiter applies cache-miss-only admission control per key,
// typically one key per request host. The engine invokes a RateLimiter
// only on the code path that forwards to the origin; cache hits and
// 304-validated responses never consult it.
type RateLimiter interface {
	// CheckKey reports whether key may proceed immediately without
	// waiting.
	CheckKey(key string) bool
	// UntilKeyReady blocks until key may proceed, or returns a non-nil
	// error if ctx is cancelled first; the engine reports any such
	// error to its caller as ErrRateLimitCancelled. Cancellation must
	// not leak or permanently consume a token.
	UntilKeyReady(ctx context.Context, key string) error
}

// noopLimiter never throttles. It is the default when no RateLimiter
// is configured.
type noopLimiter struct{}

func (noopLimiter) CheckKey(string) bool { return true }

func (noopLimiter) UntilKeyReady(ctx context.Context, key string) error {
	return ctx.Err()
}
