// Package cachekit implements an RFC 9111 (HTTP Caching) decision engine
// that is independent of any particular HTTP client, server, or storage
// backend.
//
// The engine (CacheDecisionEngine) asks a PolicyEngine (package policy)
// to classify cached entries against incoming requests, asks a
// backend.Buffered or backend.Streaming implementation to store and
// retrieve bytes, and drives a MiddlewareAdapter to forward requests to
// the origin. Concrete backends live under backend/*; a reference
// net/http adapter lives under adapters/nethttp.
package cachekit
