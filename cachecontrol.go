package httpcache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// directiveSeconds parses a Cache-Control directive value expressed in
// delta-seconds, returning (duration, ok). An empty or unparsable value is
// not ok, mirroring RFC 9111 §4.2.1's guidance to ignore malformed values.
func directiveSeconds(raw string) (time.Duration, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// RequestDirectives is the parsed, typed form of a request's Cache-Control
// header (spec.md §3 "Cache-control records: Request").
type RequestDirectives struct {
	NoCache       bool
	NoStore       bool
	OnlyIfCached  bool
	NoTransform   bool
	MaxAge        time.Duration
	HasMaxAge     bool
	MaxStale      time.Duration
	HasMaxStale   bool
	MaxStaleAny   bool // bare "max-stale" (no value): any staleness accepted
	MinFresh      time.Duration
	HasMinFresh   bool
	StaleIfError  time.Duration
	HasStaleIfErr bool
	StaleIfErrAny bool
}

// ResponseDirectives is the parsed, typed form of a response's Cache-Control
// header (spec.md §3 "Cache-control records: Response").
type ResponseDirectives struct {
	NoStore              bool
	NoCache              bool
	NoCacheFields        []string
	Private              bool
	PrivateFields        []string
	Public               bool
	MustRevalidate       bool
	ProxyRevalidate      bool
	SMaxAge              time.Duration
	HasSMaxAge           bool
	MaxAge               time.Duration
	HasMaxAge            bool
	StaleWhileRevalidate time.Duration
	HasSWR               bool
	StaleIfError         time.Duration
	HasStaleIfErr        bool
	StaleIfErrAny        bool
	MustUnderstand       bool
}

// rawDirectives splits a Cache-Control header into directive -> value pairs.
// RFC 9111 §4.2.1: duplicate directives use the first occurrence.
func rawDirectives(h http.Header) map[string]string {
	out := map[string]string{}
	header := h.Get("Cache-Control")
	if header == "" {
		return out
	}
	for _, part := range splitDirectives(header) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, hasValue := strings.Cut(part, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if hasValue {
			value = strings.Trim(strings.TrimSpace(value), `"`)
		}
		if _, seen := out[name]; seen {
			GetLogger().Warn("duplicate Cache-Control directive, using first value",
				"directive", name)
			continue
		}
		out[name] = value
	}
	return out
}

// splitDirectives splits on commas that are not inside a quoted field-name
// list (e.g. no-cache="set-cookie, x-foo").
func splitDirectives(header string) []string {
	var parts []string
	var buf strings.Builder
	inQuotes := false
	for _, r := range header {
		switch r {
		case '"':
			inQuotes = !inQuotes
			buf.WriteRune(r)
		case ',':
			if inQuotes {
				buf.WriteRune(r)
			} else {
				parts = append(parts, buf.String())
				buf.Reset()
			}
		default:
			buf.WriteRune(r)
		}
	}
	parts = append(parts, buf.String())
	return parts
}

func fieldList(raw string) []string {
	if raw == "" {
		return nil
	}
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, http.CanonicalHeaderKey(f))
		}
	}
	return out
}

// ParseRequestDirectives parses the Cache-Control header of a request.
func ParseRequestDirectives(h http.Header) RequestDirectives {
	d := rawDirectives(h)
	var rd RequestDirectives
	_, rd.NoCache = d["no-cache"]
	_, rd.NoStore = d["no-store"]
	_, rd.OnlyIfCached = d["only-if-cached"]
	_, rd.NoTransform = d["no-transform"]

	if v, present := d["max-age"]; present {
		if dur, ok := directiveSeconds(v); ok {
			rd.MaxAge, rd.HasMaxAge = dur, true
		} else {
			rd.MaxAge, rd.HasMaxAge = 0, true
		}
	}
	if v, present := d["max-stale"]; present {
		if v == "" {
			rd.MaxStaleAny = true
		} else {
			rd.MaxStale, rd.HasMaxStale = directiveSeconds(v)
		}
	}
	if v, present := d["min-fresh"]; present {
		rd.MinFresh, rd.HasMinFresh = directiveSeconds(v)
	}
	if v, present := d["stale-if-error"]; present {
		if v == "" {
			rd.StaleIfErrAny = true
		} else {
			rd.StaleIfError, rd.HasStaleIfErr = directiveSeconds(v)
		}
	}
	return rd
}

// ParseResponseDirectives parses the Cache-Control header of a response.
func ParseResponseDirectives(h http.Header) ResponseDirectives {
	d := rawDirectives(h)
	var rd ResponseDirectives
	_, rd.NoStore = d["no-store"]
	_, rd.Public = d["public"]
	_, rd.MustRevalidate = d["must-revalidate"]
	_, rd.ProxyRevalidate = d["proxy-revalidate"]
	_, rd.MustUnderstand = d["must-understand"]

	if v, present := d["no-cache"]; present {
		rd.NoCache = true
		rd.NoCacheFields = fieldList(v)
	}
	if v, present := d["private"]; present {
		rd.Private = true
		rd.PrivateFields = fieldList(v)
	}
	if v, present := d["s-maxage"]; present {
		rd.SMaxAge, rd.HasSMaxAge = directiveSeconds(v)
	}
	if v, present := d["max-age"]; present {
		rd.MaxAge, rd.HasMaxAge = directiveSeconds(v)
	}
	if v, present := d["stale-while-revalidate"]; present {
		rd.StaleWhileRevalidate, rd.HasSWR = directiveSeconds(v)
	}
	if v, present := d["stale-if-error"]; present {
		if v == "" {
			rd.StaleIfErrAny = true
		} else {
			rd.StaleIfError, rd.HasStaleIfErr = directiveSeconds(v)
		}
	}

	// RFC 9111 §4.2.1: conflicting directives resolve to the more
	// restrictive one. public+private: private wins.
	if rd.Private && rd.Public {
		GetLogger().Warn("conflicting Cache-Control directives detected",
			"conflict", "public + private", "resolution", "private takes precedence")
		rd.Public = false
	}
	return rd
}
