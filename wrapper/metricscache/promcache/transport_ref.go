package promcache

import (
	"net/http"
	"strconv"
	"time"

	cachekit "github.com/htcacheio/cachekit"
	"github.com/htcacheio/cachekit/wrapper/metricscache"
)

// InstrumentedTransport wraps an http.RoundTripper fronted by cachekit
// (e.g. one built from adapters/nethttp.Adapter) with Prometheus
// metrics, reading the X-Cache diagnostic header cachekit attaches
// when CacheOptions.CacheStatusHeaders is enabled.
type InstrumentedTransport struct {
	underlying http.RoundTripper
	collector  metricscache.Collector
}

// NewInstrumentedTransport creates a new instrumented transport that
// records metrics for all HTTP requests.
//
// Parameters:
//   - underlying: the round tripper to wrap (http.DefaultTransport if nil)
//   - collector: the metrics collector (if nil, uses metricscache.DefaultCollector)
//
// Example:
//
//	collector := promcache.NewCollector()
//	transport := promcache.NewInstrumentedTransport(cachedTransport, collector)
//	client := transport.Client()
func NewInstrumentedTransport(underlying http.RoundTripper, collector metricscache.Collector) *InstrumentedTransport {
	if underlying == nil {
		underlying = http.DefaultTransport
	}
	if collector == nil {
		collector = metricscache.DefaultCollector
	}

	return &InstrumentedTransport{
		underlying: underlying,
		collector:  collector,
	}
}

// RoundTrip executes an HTTP request with metrics recording.
func (t *InstrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.underlying.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		return resp, err
	}

	cacheStatus := resp.Header.Get(cachekit.CacheStatusHeader)
	if cacheStatus == "" {
		cacheStatus = string(cachekit.StatusBypass)
	}

	t.collector.RecordHTTPRequest(
		req.Method,
		cacheStatus,
		resp.StatusCode,
		duration,
	)

	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
			t.collector.RecordHTTPResponseSize(cacheStatus, size)
		}
	}

	return resp, nil
}

// Client returns an HTTP client with instrumented transport.
func (t *InstrumentedTransport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// Verify interface implementation at compile time
var _ http.RoundTripper = (*InstrumentedTransport)(nil)
