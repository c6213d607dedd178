package policy

import (
	"log/slog"
	"strings"
	"time"

	cachekit "github.com/htcacheio/cachekit"
)

// timer is an interface for time-related operations, allowing for testing.
type timer interface {
	since(d time.Time) time.Duration
}

type realClock struct{}

func (c *realClock) since(d time.Time) time.Duration {
	return time.Since(d)
}

var clock timer = &realClock{}

// getFreshness returns one of fresh/stale/transparent/staleWhileRevalidate
// based on the cache-control values of the request and the response.
//
// fresh indicates the response can be returned.
// stale indicates that the response needs validating before it is returned.
// transparent indicates the response should not be used to fulfil the request.
//
// This is a private-cache computation: Cache-Control: public and
// s-maxage have no additional effect (only shared caches honor them).
func getFreshness(respHeaders, reqHeaders cachekit.Header, log *slog.Logger) (freshness int) {
	respCacheControl := parseCacheControl(respHeaders, log)
	reqCacheControl := parseCacheControl(reqHeaders, log)

	if result, done := checkCacheControl(respCacheControl, reqCacheControl, reqHeaders); done {
		return result
	}

	date, err := Date(respHeaders)
	if err != nil {
		return stale
	}
	currentAge := clock.since(date)

	lifetime := calculateLifetime(respCacheControl, respHeaders, date)

	var returnFresh bool
	currentAge, lifetime, returnFresh = adjustAgeForRequestControls(respCacheControl, reqCacheControl, currentAge, lifetime)
	if returnFresh {
		return fresh
	}

	if lifetime > currentAge {
		return fresh
	}

	if swr, ok := respCacheControl[cacheControlStaleWhileRevalidate]; ok {
		swrDuration, err := time.ParseDuration(swr + "s")
		if err == nil {
			if lifetime+swrDuration > currentAge {
				return staleWhileRevalidate
			}
		}
	}

	return stale
}

// checkCacheControl checks for no-cache directives, Pragma: no-cache,
// and only-if-cached.
// RFC 7234 Section 5.4: Pragma: no-cache is treated as Cache-Control:
// no-cache for HTTP/1.0 compatibility.
func checkCacheControl(respCacheControl, reqCacheControl cacheControl, reqHeaders cachekit.Header) (int, bool) {
	if _, ok := reqCacheControl[cacheControlNoCache]; ok {
		return transparent, true
	}
	if len(reqCacheControl) == 0 {
		if strings.EqualFold(reqHeaders.Get(headerPragma), pragmaNoCache) {
			return transparent, true
		}
	}
	if _, ok := respCacheControl[cacheControlNoCache]; ok {
		return stale, true
	}
	if _, ok := reqCacheControl[cacheControlOnlyIfCached]; ok {
		return fresh, true
	}
	return 0, false
}

// calculateLifetime calculates the response lifetime based on max-age
// or Expires header.
func calculateLifetime(respCacheControl cacheControl, respHeaders cachekit.Header, date time.Time) time.Duration {
	var lifetime time.Duration

	if maxAge, ok := respCacheControl[cacheControlMaxAge]; ok {
		parsedLifetime, err := time.ParseDuration(maxAge + "s")
		if err == nil {
			lifetime = parsedLifetime
		}
	} else {
		expiresHeader := respHeaders.Get("Expires")
		if expiresHeader != "" {
			expires, err := time.Parse(time.RFC1123, expiresHeader)
			if err == nil {
				lifetime = expires.Sub(date)
			}
		}
	}

	return lifetime
}

// adjustAgeForRequestControls adjusts the current age based on
// request cache control directives and enforces the response's
// must-revalidate directive.
func adjustAgeForRequestControls(respCacheControl, reqCacheControl cacheControl, currentAge, lifetime time.Duration) (time.Duration, time.Duration, bool) {
	if maxAge, ok := reqCacheControl[cacheControlMaxAge]; ok {
		parsedLifetime, err := time.ParseDuration(maxAge + "s")
		if err != nil {
			lifetime = 0
		} else {
			lifetime = parsedLifetime
		}
	}

	if minfresh, ok := reqCacheControl["min-fresh"]; ok {
		minfreshDuration, err := time.ParseDuration(minfresh + "s")
		if err == nil {
			currentAge = currentAge + minfreshDuration
		}
	}

	if _, mustRevalidate := respCacheControl[cacheControlMustRevalidate]; mustRevalidate {
		return currentAge, lifetime, false
	}

	if maxstale, ok := reqCacheControl["max-stale"]; ok {
		if maxstale == "" {
			return currentAge, lifetime, true
		}
		maxstaleDuration, err := time.ParseDuration(maxstale + "s")
		if err == nil {
			currentAge = currentAge - maxstaleDuration
		}
	}

	return currentAge, lifetime, false
}

// isActuallyStale reports whether a response is stale by its own
// Cache-Control/Expires/Age lifetime, ignoring any allowance the
// requesting client's max-stale gave it. Used to decide whether a
// response classified fresh only because of max-stale still deserves a
// Warning: 110 (Response is Stale).
func isActuallyStale(respHeaders cachekit.Header, log *slog.Logger) bool {
	respCacheControl := parseCacheControl(respHeaders, log)

	date, err := Date(respHeaders)
	if err != nil {
		return true
	}

	currentAge := clock.since(date)
	lifetime := calculateLifetime(respCacheControl, respHeaders, date)

	if swr, ok := respCacheControl[cacheControlStaleWhileRevalidate]; ok {
		swrDuration, err := time.ParseDuration(swr + "s")
		if err == nil && lifetime+swrDuration > currentAge {
			return false
		}
	}

	return lifetime <= currentAge
}

// freshnessString converts freshness int to string representation.
func freshnessString(freshness int) string {
	switch freshness {
	case fresh:
		return freshnessStringFresh
	case stale:
		return freshnessStringStale
	case staleWhileRevalidate:
		return freshnessStringStaleWhileRevalidate
	case transparent:
		return freshnessStringTransparent
	default:
		return freshnessStringUnknown
	}
}

// parseStaleIfError parses the stale-if-error directive from cache control.
func parseStaleIfError(cc cacheControl) (time.Duration, bool, bool) {
	staleMaxAge, ok := cc["stale-if-error"]
	if !ok {
		return 0, false, false
	}

	if staleMaxAge == "" {
		return 0, true, true
	}

	lifetime, err := time.ParseDuration(staleMaxAge + "s")
	if err != nil {
		return 0, false, true
	}

	return lifetime, false, true
}

// checkStaleIfErrorLifetime checks if the response is within the
// stale-if-error lifetime.
func checkStaleIfErrorLifetime(respHeaders cachekit.Header, lifetime time.Duration) bool {
	date, err := Date(respHeaders)
	if err != nil {
		return false
	}
	currentAge := clock.since(date)
	return lifetime > currentAge
}

// canStaleOnError determines if a stale response can be returned on
// error. Cache control extension: https://tools.ietf.org/html/rfc5861
func canStaleOnError(respHeaders, reqHeaders cachekit.Header, log *slog.Logger) bool {
	respCacheControl := parseCacheControl(respHeaders, log)
	reqCacheControl := parseCacheControl(reqHeaders, log)

	lifetime := time.Duration(-1)

	if respLifetime, acceptAny, found := parseStaleIfError(respCacheControl); found {
		if acceptAny {
			return true
		}
		lifetime = respLifetime
	}

	if reqLifetime, acceptAny, found := parseStaleIfError(reqCacheControl); found {
		if acceptAny {
			return true
		}
		lifetime = reqLifetime
	}

	if lifetime >= 0 {
		return checkStaleIfErrorLifetime(respHeaders, lifetime)
	}

	return false
}
