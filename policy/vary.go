package policy

import (
	"strings"

	cachekit "github.com/htcacheio/cachekit"
)

// headerAllCommaSepValues collects every comma-separated token across
// all occurrences of a header, e.g. repeated or comma-joined Vary
// header values.
func headerAllCommaSepValues(h cachekit.Header, name string) []string {
	var out []string
	for _, v := range h.Values(name) {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// varyMatches returns false unless all of the cached request values
// for the headers listed in Vary match the new request.
func varyMatches(cachedRespHeaders, reqHeaders cachekit.Header) bool {
	varyHeaders := headerAllCommaSepValues(cachedRespHeaders, "vary")

	// RFC 9111 Section 4.1: a stored response with "Vary: *" always
	// fails to match.
	for _, header := range varyHeaders {
		if strings.TrimSpace(header) == "*" {
			return false
		}
	}

	for _, header := range varyHeaders {
		header = strings.TrimSpace(header)
		if header == "" || header == "*" {
			continue
		}

		reqValue := reqHeaders.Get(header)
		storedValue := cachedRespHeaders.Get(headerXVariedPrefix + header)

		if !normalizedHeaderValuesMatch(reqValue, storedValue) {
			return false
		}
	}
	return true
}

// normalizedHeaderValuesMatch implements RFC 9111 Section 4.1 header
// field matching: values match if they can be made identical by
// whitespace normalization.
func normalizedHeaderValuesMatch(value1, value2 string) bool {
	if value1 == value2 {
		return true
	}
	return normalizeHeaderValue(value1) == normalizeHeaderValue(value2)
}

// normalizeHeaderValue normalizes a header value per RFC 9111 Section
// 4.1, collapsing whitespace while preserving semantics.
func normalizeHeaderValue(value string) string {
	value = strings.TrimSpace(value)

	var normalized strings.Builder
	prevSpace := false
	for _, r := range value {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !prevSpace {
				normalized.WriteRune(' ')
				prevSpace = true
			}
		} else {
			normalized.WriteRune(r)
			prevSpace = false
		}
	}

	return strings.ReplaceAll(normalized.String(), ", ", ",")
}

// storeVaryHeaders records, on respHeaders, the request header values
// named by the response's Vary header (as X-Varied-* entries) so a
// future request can be matched against them via varyMatches.
func storeVaryHeaders(respHeaders, reqHeaders cachekit.Header) {
	for _, varyKey := range headerAllCommaSepValues(respHeaders, "vary") {
		varyKey = strings.TrimSpace(varyKey)
		if varyKey == "" || varyKey == "*" {
			continue
		}

		reqValue := reqHeaders.Get(varyKey)
		normalizedValue := normalizeHeaderValue(reqValue)
		respHeaders.Set(headerXVariedPrefix+varyKey, normalizedValue)
	}
}
