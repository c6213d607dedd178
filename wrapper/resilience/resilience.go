// Package resilience wraps a cachekit.MiddlewareAdapter's RemoteFetch
// with retry and circuit-breaker policies, so a misbehaving origin
// degrades gracefully instead of hammering it on every cache miss.
package resilience

import (
	"context"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	cachekit "github.com/htcacheio/cachekit"
)

// Config holds the resilience policies to apply to RemoteFetch.
// Both are disabled by default and must be explicitly configured.
type Config struct {
	// RetryPolicy configures retry behavior using failsafe-go. Nil
	// disables retry.
	RetryPolicy retrypolicy.RetryPolicy[cachekit.CachedResponse]

	// CircuitBreaker configures circuit breaker behavior using
	// failsafe-go. Nil disables the breaker.
	CircuitBreaker circuitbreaker.CircuitBreaker[cachekit.CachedResponse]
}

// RetryPolicyBuilder returns a pre-configured retry policy builder:
// retries on network errors and 5xx status codes, up to 3 retries
// (4 attempts in all), with exponential backoff from 100ms to 10s. Callers may further
// customize it before calling Build.
func RetryPolicyBuilder() retrypolicy.Builder[cachekit.CachedResponse] {
	return retrypolicy.NewBuilder[cachekit.CachedResponse]().
		HandleIf(func(r cachekit.CachedResponse, err error) bool {
			if err != nil {
				return true
			}
			return r.Status >= http.StatusInternalServerError
		}).
		WithMaxRetries(3).
		WithBackoff(100*time.Millisecond, 10*time.Second)
}

// CircuitBreakerBuilder returns a pre-configured circuit breaker
// builder: opens after 5 consecutive failures, closes after 2
// consecutive half-open successes, with a 60s open delay.
func CircuitBreakerBuilder() circuitbreaker.Builder[cachekit.CachedResponse] {
	return circuitbreaker.NewBuilder[cachekit.CachedResponse]().
		HandleIf(func(r cachekit.CachedResponse, err error) bool {
			if err != nil {
				return true
			}
			return r.Status >= http.StatusInternalServerError
		}).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(60 * time.Second)
}

// adapter decorates a cachekit.MiddlewareAdapter, applying cfg's
// policies around the inner adapter's RemoteFetch. Every other method
// is forwarded unchanged.
type adapter struct {
	cachekit.MiddlewareAdapter
	cfg Config
}

// Wrap returns a MiddlewareAdapter that applies cfg's retry and
// circuit-breaker policies around inner.RemoteFetch.
func Wrap(inner cachekit.MiddlewareAdapter, cfg Config) cachekit.MiddlewareAdapter {
	return &adapter{MiddlewareAdapter: inner, cfg: cfg}
}

// RemoteFetch executes the inner adapter's RemoteFetch under the
// configured policies. With neither policy set, it forwards directly.
func (a *adapter) RemoteFetch(ctx context.Context) (cachekit.CachedResponse, error) {
	var policies []failsafe.Policy[cachekit.CachedResponse]

	// failsafe.With makes its first policy the outermost, so retry
	// wraps the circuit breaker: the breaker records every individual
	// attempt, and once it is open the remaining retries are rejected
	// without calling the origin.
	if a.cfg.RetryPolicy != nil {
		policies = append(policies, a.cfg.RetryPolicy)
	}
	if a.cfg.CircuitBreaker != nil {
		policies = append(policies, a.cfg.CircuitBreaker)
	}

	if len(policies) == 0 {
		return a.MiddlewareAdapter.RemoteFetch(ctx)
	}

	return failsafe.With(policies...).Get(func() (cachekit.CachedResponse, error) {
		return a.MiddlewareAdapter.RemoteFetch(ctx)
	})
}
