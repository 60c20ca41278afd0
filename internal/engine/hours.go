package engine

import (
	"math"
	"time"
)

// DateLayout is the wire format for reservation dates.
const DateLayout = "2006-01-02"

// Operating hours per day of week, in half-hour float hours.  Sunday
// is fully closed; Saturday runs shorter than weekdays.
const (
	weekdayOpen   = 9.0
	weekdayClose  = 18.0
	saturdayOpen  = 10.0
	saturdayClose = 16.0
)

// halfStep reports whether v is a multiple of 0.5.  Half-hour values
// are exactly representable in a float64 so the comparison is exact.
func halfStep(v float64) bool {
	d := v * 2
	return d == math.Trunc(d)
}

// validateWindow checks a requested (date, start, duration) against
// the facility's operating hours before any availability data is
// touched.  It returns an ErrInvalidRequest-wrapped error describing
// the first violated rule, or nil when the window is bookable.
func validateWindow(date time.Time, start, duration float64) error {
	if duration <= 0 {
		return invalidf("duration must be positive")
	}
	if !halfStep(start) || !halfStep(duration) {
		return invalidf("times must be in half-hour increments")
	}
	var open, close float64
	switch date.Weekday() {
	case time.Sunday:
		return invalidf("facility is closed on Sundays")
	case time.Saturday:
		open, close = saturdayOpen, saturdayClose
	default:
		open, close = weekdayOpen, weekdayClose
	}
	if start < open || start+duration > close {
		return invalidf("requested time %.1f-%.1f is outside operating hours %.1f-%.1f",
			start, start+duration, open, close)
	}
	return nil
}

// parseDate parses a YYYY-MM-DD date string into a midnight UTC time.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, invalidf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}
