package httpcache

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/relaycache/httpcache/store"
)

// ErrNoDateHeader indicates that the HTTP headers contained no Date header.
var ErrNoDateHeader = errors.New("no Date header")

// Date parses and returns the value of the Date header.
func Date(respHeaders http.Header) (date time.Time, err error) {
	dateHeader := respHeaders.Get("date")
	if dateHeader == "" {
		err = ErrNoDateHeader
		return
	}

	return time.Parse(time.RFC1123, dateHeader)
}

// parseAgeHeader parses the Age header according to RFC 9111 Section 5.1.
// Returns the age duration and a boolean indicating if the header is valid.
//
// RFC 9111 requirements:
// - If multiple Age headers exist, use the first value and discard others
// - If the value is invalid (negative, non-numeric), ignore it completely
// - Age header value must be a non-negative integer representing seconds
func parseAgeHeader(headers http.Header, log *slog.Logger) (age time.Duration, valid bool) {
	ageValues := headers.Values(headerAge)

	if len(ageValues) == 0 {
		return 0, false
	}

	// RFC 9111: use the first value, discard others
	ageStr := strings.TrimSpace(ageValues[0])

	if len(ageValues) > 1 {
		log.Warn("multiple Age headers detected, using first value",
			"count", len(ageValues),
			"first", ageStr,
			"all", ageValues)
	}

	// Validate that it's a non-negative integer
	ageInt, err := strconv.ParseInt(ageStr, 10, 64)
	if err != nil {
		log.Warn("invalid Age header value, ignoring",
			"value", ageStr,
			"error", err)
		return 0, false
	}

	if ageInt < 0 {
		log.Warn("negative Age header value, ignoring",
			"value", ageInt)
		return 0, false
	}

	return time.Duration(ageInt) * time.Second, true
}

// currentAge implements the Age calculation algorithm from RFC 9111 Section
// 4.2.3, operating on a store.Entry rather than synthetic request/response
// timing headers: e.RequestDate and e.ResponseDate are recorded directly at
// store time (spec.md component A), which is the generalization the
// teacher's X-Request-Time/X-Response-Time header smuggling was working
// around.
//
// RFC 9111 formula:
//
//	apparent_age = max(0, response_time - date_value)
//	response_delay = response_time - request_time
//	corrected_age_value = age_value + response_delay
//	corrected_initial_age = max(apparent_age, corrected_age_value)
//	resident_time = now - response_time
//	current_age = corrected_initial_age + resident_time
func currentAge(e *store.Entry, clk Clock, log *slog.Logger) time.Duration {
	dateValue, err := Date(e.Header)
	if err != nil {
		dateValue = e.ResponseDate
	}

	responseTime := e.ResponseDate
	if responseTime.IsZero() {
		responseTime = dateValue
	}

	apparentAge := time.Duration(0)
	if responseTime.After(dateValue) {
		apparentAge = responseTime.Sub(dateValue)
	}

	ageValue, _ := parseAgeHeader(e.Header, log)

	responseDelay := time.Duration(0)
	if !e.RequestDate.IsZero() && responseTime.After(e.RequestDate) {
		responseDelay = responseTime.Sub(e.RequestDate)
	}

	correctedAgeValue := ageValue + responseDelay

	correctedInitialAge := apparentAge
	if correctedAgeValue > correctedInitialAge {
		correctedInitialAge = correctedAgeValue
	}

	residentTime := clk.Now().Sub(responseTime)
	if residentTime < 0 {
		residentTime = 0
	}

	return correctedInitialAge + residentTime
}

// formatAge formats a duration as an Age header value (seconds)
func formatAge(age time.Duration) string {
	seconds := int64(age.Seconds())
	if seconds < 0 {
		seconds = 0
	}
	return strconv.FormatInt(seconds, 10)
}
