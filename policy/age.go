package policy

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	cachekit "github.com/htcacheio/cachekit"
)

// ErrNoDateHeader indicates that the headers contained no Date header.
var ErrNoDateHeader = errors.New("policy: no Date header")

// Date parses and returns the value of the Date header.
func Date(respHeaders cachekit.Header) (time.Time, error) {
	dateHeader := respHeaders.Get("date")
	if dateHeader == "" {
		return time.Time{}, ErrNoDateHeader
	}
	return time.Parse(time.RFC1123, dateHeader)
}

// parseAgeHeader parses the Age header according to RFC 9111 Section
// 5.1. Returns the age duration and whether the header was valid.
func parseAgeHeader(headers cachekit.Header, log *slog.Logger) (time.Duration, bool) {
	ageValues := headers.Values(headerAge)
	if len(ageValues) == 0 {
		return 0, false
	}

	ageStr := strings.TrimSpace(ageValues[0])
	if len(ageValues) > 1 {
		log.Warn("multiple Age headers detected, using first value",
			"count", len(ageValues),
			"first", ageStr,
			"all", ageValues)
	}

	ageInt, err := strconv.ParseInt(ageStr, 10, 64)
	if err != nil {
		log.Warn("invalid Age header value, ignoring", "value", ageStr, "error", err)
		return 0, false
	}
	if ageInt < 0 {
		log.Warn("negative Age header value, ignoring", "value", ageInt)
		return 0, false
	}

	return time.Duration(ageInt) * time.Second, true
}

// calculateAge implements the Age calculation algorithm from RFC 9111
// Section 4.2.3.
//
//	apparent_age = max(0, response_time - date_value)
//	response_delay = response_time - request_time
//	corrected_age_value = age_value + response_delay
//	corrected_initial_age = max(apparent_age, corrected_age_value)
//	resident_time = now - response_time
//	current_age = corrected_initial_age + resident_time
func calculateAge(respHeaders cachekit.Header, log *slog.Logger) (time.Duration, error) {
	dateValue, err := Date(respHeaders)
	if err != nil {
		return 0, err
	}

	responseTimeStr := respHeaders.Get(xResponseTime)
	if responseTimeStr == "" {
		responseTimeStr = respHeaders.Get(xCachedTime)
	}

	if responseTimeStr == "" {
		age := clock.since(dateValue)
		if ageValue, valid := parseAgeHeader(respHeaders, log); valid {
			age += ageValue
		}
		return age, nil
	}

	responseTime, parseErr := time.Parse(time.RFC3339, responseTimeStr)
	if parseErr != nil {
		log.Warn("failed to parse response time header", "header", responseTimeStr, "error", parseErr)
		age := clock.since(dateValue)
		if ageValue, valid := parseAgeHeader(respHeaders, log); valid {
			age += ageValue
		}
		return age, nil
	}

	apparentAge := time.Duration(0)
	if responseTime.After(dateValue) {
		apparentAge = responseTime.Sub(dateValue)
	}

	ageValue, _ := parseAgeHeader(respHeaders, log)

	requestTimeStr := respHeaders.Get(xRequestTime)
	responseDelay := time.Duration(0)
	if requestTimeStr != "" {
		requestTime, parseErr := time.Parse(time.RFC3339, requestTimeStr)
		if parseErr == nil && responseTime.After(requestTime) {
			responseDelay = responseTime.Sub(requestTime)
		} else if parseErr != nil {
			log.Warn("failed to parse request time header", "header", requestTimeStr, "error", parseErr)
		}
	}

	correctedAgeValue := ageValue + responseDelay
	correctedInitialAge := apparentAge
	if correctedAgeValue > correctedInitialAge {
		correctedInitialAge = correctedAgeValue
	}

	residentTime := clock.since(responseTime)
	return correctedInitialAge + residentTime, nil
}

// formatAge formats a duration as an Age header value (seconds).
func formatAge(age time.Duration) string {
	seconds := int64(age.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return strconv.FormatInt(seconds, 10)
}

const (
	xCachedTime   = "X-Cached-Time"
	xRequestTime  = "X-Request-Time"
	xResponseTime = "X-Response-Time"
)
