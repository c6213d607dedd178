package policy

import (
	"log/slog"
	"strings"
	"time"

	cachekit "github.com/htcacheio/cachekit"
)

// cacheControl is a map of Cache-Control directive names to their values.
type cacheControl map[string]string

// parseCacheControl parses the Cache-Control header and returns a map
// of directives. Implements RFC 9111 Section 4.2.1 validation:
//   - Duplicate directives: uses the first occurrence, logs warning.
//   - Conflicting directives: applies the most restrictive, logs warning.
//   - Invalid values: logs warning but continues processing.
func parseCacheControl(headers cachekit.Header, log *slog.Logger) cacheControl {
	cc := cacheControl{}
	seen := make(map[string]bool)
	ccHeader := headers.Get("Cache-Control")

	for _, part := range strings.Split(ccHeader, ",") {
		part = strings.Trim(part, " ")
		if part == "" {
			continue
		}

		var directive, value string
		if strings.ContainsRune(part, '=') {
			keyval := strings.Split(part, "=")
			directive = strings.Trim(keyval[0], " ")
			value = strings.Trim(keyval[1], " ")
		} else {
			directive = part
			value = ""
		}

		if seen[directive] {
			log.Warn("duplicate Cache-Control directive detected, using first value",
				"directive", directive,
				"ignored_value", value)
			continue
		}

		seen[directive] = true
		cc[directive] = value
	}

	detectConflictingDirectives(cc, log)

	return cc
}

// detectConflictingDirectives checks for conflicting Cache-Control
// directives and applies the most restrictive, per RFC 9111 Section
// 4.2.1.
func detectConflictingDirectives(cc cacheControl, log *slog.Logger) {
	if _, hasNoCache := cc[cacheControlNoCache]; hasNoCache {
		if maxAge, hasMaxAge := cc[cacheControlMaxAge]; hasMaxAge && maxAge != "" {
			log.Warn(logConflictingDirectives,
				"conflict", "no-cache + max-age",
				"resolution", "no-cache takes precedence (requires revalidation)")
		}
	}

	if _, hasPrivate := cc[cacheControlPrivate]; hasPrivate {
		if _, hasPublic := cc[cacheControlPublic]; hasPublic {
			log.Warn(logConflictingDirectives,
				"conflict", "public + private",
				"resolution", "private takes precedence (more restrictive)")
			delete(cc, cacheControlPublic)
		}
	}

	if _, hasNoStore := cc[cacheControlNoStore]; hasNoStore {
		if maxAge, hasMaxAge := cc[cacheControlMaxAge]; hasMaxAge && maxAge != "" {
			log.Warn(logConflictingDirectives,
				"conflict", "no-store + max-age",
				"resolution", "no-store takes precedence (prevents caching)")
		}
	}

	if _, hasNoStore := cc[cacheControlNoStore]; hasNoStore {
		if _, hasMustRevalidate := cc[cacheControlMustRevalidate]; hasMustRevalidate {
			log.Warn(logConflictingDirectives,
				"conflict", "no-store + must-revalidate",
				"resolution", "no-store takes precedence (prevents caching)")
		}
	}

	validateMaxAgeDirective(cc, cacheControlMaxAge, "max-age", log)
	validateMaxAgeDirective(cc, cacheControlSMaxAge, "s-maxage", log)
}

// validateMaxAgeDirective validates max-age or s-maxage directive values.
func validateMaxAgeDirective(cc cacheControl, directiveKey, directiveName string, log *slog.Logger) {
	if value, hasDirective := cc[directiveKey]; hasDirective && value != "" {
		if strings.Contains(value, ".") {
			log.Warn("invalid Cache-Control value (float not allowed)",
				"directive", directiveName,
				"value", value,
				"resolution", "ignoring directive")
			delete(cc, directiveKey)
			return
		}

		if duration, err := time.ParseDuration(value + "s"); err == nil {
			if duration < 0 {
				log.Warn("invalid Cache-Control value (negative)",
					"directive", directiveName,
					"value", value,
					"resolution", "treating as 0")
				cc[directiveKey] = "0"
			}
		} else {
			log.Warn("invalid Cache-Control value (non-numeric)",
				"directive", directiveName,
				"value", value,
				"resolution", "ignoring directive")
			delete(cc, directiveKey)
		}
	}
}

// canStore determines if a response can be stored based on
// Cache-Control directives.
// RFC 9111 Section 3: Storing Responses in Caches
// RFC 9111 Section 5.2.2.3: must-understand directive
// RFC 9111 Section 3.5: Storing Responses to Authenticated Requests
func canStore(req cachekit.RequestHead, reqCacheControl, respCacheControl cacheControl, isPublicCache bool, statusCode int, log *slog.Logger) bool {
	if _, hasMustUnderstand := respCacheControl[cacheControlMustUnderstand]; hasMustUnderstand {
		if !understoodStatusCodes[statusCode] {
			return false
		}
	} else {
		if _, ok := respCacheControl[cacheControlNoStore]; ok {
			return false
		}
		if _, ok := reqCacheControl[cacheControlNoStore]; ok {
			return false
		}
	}

	if isPublicCache && req.Headers.Get("Authorization") != "" {
		_, hasPublic := respCacheControl[cacheControlPublic]
		_, hasMustRevalidate := respCacheControl[cacheControlMustRevalidate]
		_, hasSMaxAge := respCacheControl[cacheControlSMaxAge]

		if !hasPublic && !hasMustRevalidate && !hasSMaxAge {
			log.Debug("refusing to cache Authorization request in shared cache",
				"url", req.URL,
				"reason", "no public/must-revalidate/s-maxage directive")
			return false
		}
	}

	if _, hasPrivate := respCacheControl[cacheControlPrivate]; hasPrivate {
		if isPublicCache {
			return false
		}
	}

	return true
}
