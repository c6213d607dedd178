package cachekit

import (
	"net/textproto"
	"sort"
)

// Header is an ordered, case-insensitive multimap of header values. It
// preserves duplicate values the way net/http.Header does, but is not
// tied to net/http so backends and the engine stay transport-agnostic.
type Header map[string][]string

// NewHeader returns an empty Header.
func NewHeader() Header {
	return make(Header)
}

func canonicalHeaderKey(name string) string {
	return textproto.CanonicalMIMEHeaderKey(name)
}

// Add appends value to the list of values for name.
func (h Header) Add(name, value string) {
	name = canonicalHeaderKey(name)
	h[name] = append(h[name], value)
}

// Set replaces any existing values for name with a single value.
func (h Header) Set(name, value string) {
	h[canonicalHeaderKey(name)] = []string{value}
}

// Get returns the first value associated with name, or "" if absent.
func (h Header) Get(name string) string {
	v := h[canonicalHeaderKey(name)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Values returns all values associated with name.
func (h Header) Values(name string) []string {
	return h[canonicalHeaderKey(name)]
}

// Del removes all values for name.
func (h Header) Del(name string) {
	delete(h, canonicalHeaderKey(name))
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	for k, v := range h {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// Keys returns the canonicalized header names present, sorted for
// deterministic iteration.
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Body is a lazily-produced sequence of byte chunks, used by streaming
// backends. A Body is finite and not restartable: once drained (Next
// returns io.EOF) or Close is called, a fresh Body must be obtained by
// calling the backend again.
type Body interface {
	// Next returns the next chunk of body bytes, or io.EOF when the
	// body is exhausted. Implementations MUST NOT return a non-nil
	// chunk together with io.EOF in the same call.
	Next() ([]byte, error)
	// Close releases any resources (open file handles) held by the
	// body. Safe to call multiple times.
	Close() error
}

// CachedResponse is the storage-agnostic representation of an HTTP
// response, per spec §3.
type CachedResponse struct {
	Status  int
	Version string
	Headers Header
	// Buffered holds the full response body when the response came
	// from (or is headed to) a buffered backend. Mutually exclusive
	// with Stream.
	Buffered []byte
	// Stream holds a lazy body when the response came from a
	// streaming backend's GetStream. Mutually exclusive with Buffered.
	Stream Body
	URL    string
	// Metadata is an opaque blob supplied by the caller at store time
	// (backend.Streaming.PutStream's metadata parameter, or
	// CacheOptions.MetadataProvider's return value).
	Metadata []byte
}

// CachePolicyBlob is an opaque, serializable value produced by a
// PolicyEngine representing the computed freshness rules for a
// CachedResponse. The engine never interprets its bytes; it is passed
// back to the same PolicyEngine implementation that produced it.
type CachePolicyBlob []byte

// CacheEntry pairs a response with the policy computed for it. Per
// spec §3's invariant, an entry's Policy must always have been
// computed from exactly Response.
type CacheEntry struct {
	Response CachedResponse
	Policy   CachePolicyBlob
}

// RequestHead is the portion of a request the decision engine and
// PolicyEngine need: method, effective URL, and headers. It never
// carries a body.
type RequestHead struct {
	Method  string
	URL     string
	Version string
	Headers Header
}

// ResponseHead is the header-only portion of a response, used when
// classifying a response before its body has been fully read.
type ResponseHead struct {
	Status  int
	Version string
	Headers Header
}
