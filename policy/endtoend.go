package policy

import cachekit "github.com/htcacheio/cachekit"

// hopByHopHeaders lists the header fields RFC 7230 Section 6.1
// designates as connection-specific; these must not be forwarded
// from a 304 response into the cached entry being revalidated.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Trailers":            true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// getEndToEndHeaders returns the header names in h that are not
// hop-by-hop, i.e. the set a 304 response merges into a stored entry.
func getEndToEndHeaders(h cachekit.Header) []string {
	var out []string
	for _, name := range h.Keys() {
		if !hopByHopHeaders[name] {
			out = append(out, name)
		}
	}
	return out
}
