package util

import (
	"fmt"
	"strconv"
	"time"
)

var layouts = []string{time.RFC3339Nano, time.DateOnly}

// FromUnix converts an epoch timestamp in seconds or milliseconds to UTC.
// Values above 1e11 are taken as milliseconds.
func FromUnix(ts int64) time.Time {
	if ts > 1e11 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}

// ParseTime accepts RFC 3339, a bare date or epoch seconds/milliseconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return FromUnix(ts), true
	}
	return time.Time{}, false
}

// ParseRange resolves optional from/to strings. to defaults to now and from
// to to-window.
func ParseRange(fromStr, toStr string, window time.Duration, now time.Time) (from, to time.Time, err error) {
	to = now.UTC()
	if toStr != "" {
		var ok bool
		if to, ok = ParseTime(toStr); !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to %q", toStr)
		}
	}
	from = to.Add(-window)
	if fromStr != "" {
		var ok bool
		if from, ok = ParseTime(fromStr); !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from %q", fromStr)
		}
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from %s is after to %s",
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	return from, to, nil
}
