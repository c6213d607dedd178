package policy

import cachekit "github.com/htcacheio/cachekit"

// addWarningHeader adds a Warning header per RFC 7234 Section 5.5.
// Warning headers can be stacked, so Add is used instead of Set.
func addWarningHeader(headers cachekit.Header, warningCode string) {
	headers.Add(headerWarning, warningCode)
}

// addStaleWarning adds "110 Response is Stale".
func addStaleWarning(headers cachekit.Header) {
	addWarningHeader(headers, warningResponseIsStale)
}

// addRevalidationFailedWarning adds "111 Revalidation Failed".
func addRevalidationFailedWarning(headers cachekit.Header) {
	addWarningHeader(headers, warningRevalidationFailed)
}
