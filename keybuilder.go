package cachekit

import (
	"sort"
	"strings"
)

// KeyFunc overrides the default cache key for a request. It receives
// the request head and returns the key to use.
type KeyFunc func(req RequestHead) string

// InvalidationFunc computes the set of keys to delete for a request
// that is about to be forwarded (write methods only). It receives the
// request head and the key that was computed for it, and returns zero
// or more additional keys to bust, e.g. "POST /users/7" busting
// "GET /users/7".
type InvalidationFunc func(req RequestHead, key string) []string

// KeyBuilder computes canonical cache keys and invalidation sets. It
// is deterministic and stateless; the zero value is ready to use.
type KeyBuilder struct {
	KeyFn          KeyFunc
	InvalidationFn InvalidationFunc
}

// Key returns the cache key for req, using KeyFn if set, otherwise the
// default "{METHOD} {effective-URL}" format.
func (b KeyBuilder) Key(req RequestHead) string {
	if b.KeyFn != nil {
		return b.KeyFn(req)
	}
	return defaultKey(req)
}

// InvalidationSet returns the keys to delete for req, given the key
// already computed for it. Returns nil if no InvalidationFn is set.
func (b KeyBuilder) InvalidationSet(req RequestHead, key string) []string {
	if b.InvalidationFn == nil {
		return nil
	}
	return b.InvalidationFn(req, key)
}

func defaultKey(req RequestHead) string {
	return strings.ToUpper(req.Method) + " " + req.URL
}

// KeyWithHeaders builds a key that additionally varies on the given
// request header names' values, sorted for a deterministic result.
// Useful as a building block for a custom KeyFunc.
func KeyWithHeaders(req RequestHead, headerNames []string) string {
	key := defaultKey(req)
	if len(headerNames) == 0 {
		return key
	}
	var parts []string
	for _, name := range headerNames {
		v := req.Headers.Get(name)
		if v != "" {
			parts = append(parts, canonicalHeaderKey(name)+":"+v)
		}
	}
	if len(parts) == 0 {
		return key
	}
	sort.Strings(parts)
	return key + "|" + strings.Join(parts, "|")
}
