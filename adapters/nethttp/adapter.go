// Package nethttp is a reference MiddlewareAdapter implementation
// wrapping net/http, the way the teacher's Transport wraps
// http.RoundTripper. It is the vehicle the engine is exercised
// through in engine_test.go.
package nethttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	cachekit "github.com/htcacheio/cachekit"
)

// Adapter adapts a single *http.Request/http.RoundTripper pair to
// cachekit.MiddlewareAdapter.
type Adapter struct {
	RT     http.RoundTripper
	Req    *http.Request
	Policy cachekit.PolicyEngine

	modeOverride *cachekit.CacheMode
}

// New returns an Adapter for req, forwarding via rt (http.DefaultTransport
// if nil) and computing policy blobs with policy.
func New(req *http.Request, rt http.RoundTripper, policy cachekit.PolicyEngine) *Adapter {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return &Adapter{RT: rt, Req: req, Policy: policy}
}

// WithOverride sets a hard CacheMode override that OverriddenCacheMode
// will report, mirroring client middleware forcing a mode for one
// request.
func (a *Adapter) WithOverride(m cachekit.CacheMode) *Adapter {
	a.modeOverride = &m
	return a
}

func (a *Adapter) IsMethodCacheable() bool {
	return a.Req.Method == http.MethodGet || a.Req.Method == http.MethodHead
}

func (a *Adapter) RequestHead() (cachekit.RequestHead, error) {
	if a.Req.URL == nil {
		return cachekit.RequestHead{}, fmt.Errorf("nethttp: request has no URL")
	}
	return cachekit.RequestHead{
		Method:  a.Req.Method,
		URL:     a.Req.URL.String(),
		Version: a.Req.Proto,
		Headers: headerFromHTTP(a.Req.Header),
	}, nil
}

func (a *Adapter) URL() string    { return a.Req.URL.String() }
func (a *Adapter) Method() string { return a.Req.Method }

func (a *Adapter) BuildPolicy(resp cachekit.ResponseHead) (cachekit.CachePolicyBlob, error) {
	return a.BuildPolicyWithOptions(resp, cachekit.PolicyOptions{})
}

func (a *Adapter) BuildPolicyWithOptions(resp cachekit.ResponseHead, opts cachekit.PolicyOptions) (cachekit.CachePolicyBlob, error) {
	req, err := a.RequestHead()
	if err != nil {
		return nil, err
	}
	return a.Policy.BuildPolicy(req, resp, opts)
}

func (a *Adapter) InjectHeaders(h cachekit.Header) {
	for _, name := range h.Keys() {
		for _, v := range h.Values(name) {
			a.Req.Header.Add(name, v)
		}
	}
}

func (a *Adapter) ForceNoCacheDirective() {
	a.Req.Header.Set("Cache-Control", "no-cache")
}

func (a *Adapter) OverriddenCacheMode() (cachekit.CacheMode, bool) {
	if a.modeOverride == nil {
		return 0, false
	}
	return *a.modeOverride, true
}

// RemoteFetch forwards the held request and buffers the full response
// body, matching the teacher's buffered-Cache Transport behavior.
func (a *Adapter) RemoteFetch(ctx context.Context) (cachekit.CachedResponse, error) {
	req := a.Req.WithContext(ctx)
	resp, err := a.RT.RoundTrip(req)
	if err != nil {
		return cachekit.CachedResponse{}, fmt.Errorf("nethttp: remote fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cachekit.CachedResponse{}, fmt.Errorf("%w: reading response body: %w", cachekit.ErrBadResponse, err)
	}

	return cachekit.CachedResponse{
		Status:   resp.StatusCode,
		Version:  resp.Proto,
		Headers:  headerFromHTTP(resp.Header),
		Buffered: body,
		URL:      a.Req.URL.String(),
	}, nil
}

func headerFromHTTP(h http.Header) cachekit.Header {
	out := cachekit.NewHeader()
	for k, vs := range h {
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	return out
}

// Transport is an implementation of http.RoundTripper that serves
// requests through a cachekit.Engine, the way the teacher's Transport
// wraps an http.RoundTripper with a Cache. Per-request state (the
// held *http.Request, any mode override) lives on the Adapter built
// for that request; Transport itself is stateless and safe for
// concurrent use.
type Transport struct {
	// Engine decides whether to serve from cache, revalidate, fetch,
	// or bypass. Required.
	Engine *cachekit.Engine

	// Policy computes CachePolicyBlob values for responses. Required.
	Policy cachekit.PolicyEngine

	// RoundTripper is the underlying transport used on cache misses.
	// If nil, http.DefaultTransport is used.
	RoundTripper http.RoundTripper
}

// NewTransport returns a Transport backed by engine and policy,
// forwarding origin requests via rt (http.DefaultTransport if nil).
func NewTransport(engine *cachekit.Engine, policy cachekit.PolicyEngine, rt http.RoundTripper) *Transport {
	return &Transport{Engine: engine, Policy: policy, RoundTripper: rt}
}

// Client returns an *http.Client that uses the Transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// RoundTrip implements http.RoundTripper by routing req through the
// Engine via a fresh Adapter.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	adapter := New(req, t.RoundTripper, t.Policy)
	resp, err := t.Engine.Handle(req.Context(), adapter)
	if err != nil {
		return nil, err
	}
	return ToHTTPResponse(req, resp), nil
}

var _ http.RoundTripper = (*Transport)(nil)

// ToHTTPResponse converts a cachekit.CachedResponse back into an
// *http.Response for callers that need one, e.g. to hand back to an
// http.Client's caller.
func ToHTTPResponse(req *http.Request, resp cachekit.CachedResponse) *http.Response {
	header := make(http.Header, len(resp.Headers))
	for _, name := range resp.Headers.Keys() {
		header[name] = append([]string(nil), resp.Headers.Values(name)...)
	}
	return &http.Response{
		Status:        http.StatusText(resp.Status),
		StatusCode:    resp.Status,
		Proto:         resp.Version,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Buffered)),
		ContentLength: int64(len(resp.Buffered)),
		Request:       req,
	}
}
