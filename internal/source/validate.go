package source

import (
	"strings"
	"time"
)

// ParseTimestamp parses the recorder's UTC "Z"-suffixed ISO-8601 timestamps.
// Offset forms like +02:00 never appear in the logs and are rejected.
func ParseTimestamp(s string) (time.Time, bool) {
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Valid reports whether an entry may enter the pipeline: it needs a
// non-empty identifier and a parseable timestamp. Everything downstream
// relies on both.
func Valid(e *RawEntry) bool {
	if e.UUID == "" {
		return false
	}
	_, ok := ParseTimestamp(e.Timestamp)
	return ok
}
