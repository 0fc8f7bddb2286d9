package provider

import (
	"fmt"
	"strings"
	"time"
)

// Brasilia is the fixed UTC-3 offset all calendar days are computed in.
// Brazil has not observed daylight saving time since 2019.
var Brasilia = time.FixedZone("BRT", -3*60*60)

// Day formats t as an ISO calendar day in Brasilia time.
func Day(t time.Time) string { return t.In(Brasilia).Format(time.DateOnly) }

// Midnight truncates t to the start of its Brasilia calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.In(Brasilia).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, Brasilia)
}

// ParseDay parses an ISO calendar day.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), Brasilia)
}

// ParseBRDate parses DD/MM/YYYY, the order BCB endpoints use.
func ParseBRDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("02/01/2006", strings.TrimSpace(s), Brasilia)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatBRDate renders DD/MM/YYYY.
func FormatBRDate(t time.Time) string { return t.In(Brasilia).Format("02/01/2006") }

// ParseFlexibleDay accepts YYYY-MM-DD, YYYYMMDD or DD/MM/YYYY.
func ParseFlexibleDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, "20060102", "02/01/2006"} {
		if t, err := time.ParseInLocation(layout, s, Brasilia); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// EpochMaybeMillis converts a UNIX timestamp that may be in seconds or
// milliseconds.
func EpochMaybeMillis(v int64, fallback time.Time) time.Time {
	if v <= 0 {
		return fallback
	}
	if v > 1_000_000_000_000 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}
