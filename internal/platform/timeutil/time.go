package timeutil

import (
	"time"
)

// RFC3339Micros is RFC 3339 UTC with fixed microsecond precision.
// Use this format for log timestamps where higher precision is needed.
const RFC3339Micros = "2006-01-02T15:04:05.000000Z"

// LocalDateTime is an ISO-8601 local date-time without fraction or zone offset.
// Output format is always "2024-01-15T10:30:00".
const LocalDateTime = "2006-01-02T15:04:05"

// Clock returns the current time. Handlers take a Clock so tests can pin it.
type Clock func() time.Time

// SystemClock reads the wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// FormatLocal renders t in its own location using LocalDateTime.
func FormatLocal(t time.Time) string {
	return t.Format(LocalDateTime)
}
