package cachekit

import (
	"strconv"
	"strings"
	"time"
)

// clampMaxAge rewrites the Cache-Control max-age directive on headers so
// the freshness lifetime a PolicyEngine later computes from it never
// exceeds ceiling. Per spec, a response with no max-age/Expires-derived
// lifetime gets ceiling as its lifetime; a response with a longer one is
// clamped down to it. A response already fresher than ceiling is left
// untouched.
//
// This runs at the engine level rather than inside a PolicyEngine
// because freshness is recomputed live from these same headers on every
// Classify call (see policy.RFC7234Engine); clamping the headers once,
// before BuildPolicy runs, is the only place the limit can take effect
// for every later classification.
func clampMaxAge(headers Header, ceiling int64) {
	if headers == nil || ceiling <= 0 {
		return
	}

	cc := headers.Get("Cache-Control")
	directives := strings.Split(cc, ",")

	found := false
	var rebuilt []string
	for _, d := range directives {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		name, value, hasValue := strings.Cut(d, "=")
		if strings.EqualFold(strings.TrimSpace(name), "max-age") && hasValue {
			found = true
			age, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(value), `"`), 10, 64)
			if err != nil || age > ceiling {
				age = ceiling
			}
			rebuilt = append(rebuilt, "max-age="+strconv.FormatInt(age, 10))
			continue
		}
		rebuilt = append(rebuilt, d)
	}

	if !found {
		// An Expires-derived lifetime already shorter than ceiling is
		// kept: an added max-age would take precedence over it.
		if expires := headers.Get("Expires"); expires != "" {
			exp, expErr := time.Parse(time.RFC1123, expires)
			date, dateErr := time.Parse(time.RFC1123, headers.Get("Date"))
			if expErr != nil || dateErr != nil || exp.Sub(date) < time.Duration(ceiling)*time.Second {
				return
			}
		}
		rebuilt = append(rebuilt, "max-age="+strconv.FormatInt(ceiling, 10))
	}

	headers.Set("Cache-Control", strings.Join(rebuilt, ", "))
}
