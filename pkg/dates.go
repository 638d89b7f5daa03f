package pkg

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// layouts accepted for date cells exported as text, tried in order
var sourceDateLayouts = []string{
	"1/2/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
}

// Midnight truncates t to its calendar date (UTC midnight).
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseSourceDate parses a date written by one of the supported exports
// and returns it as a pure calendar date.
func ParseSourceDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range sourceDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Midnight(t), true
		}
	}
	// ISO prefix, e.g. 2026-02-16T07:12:33.000Z
	if len(value) > 10 {
		if t, err := time.Parse(DateLayout, value[:10]); err == nil {
			return Midnight(t), true
		}
	}
	return time.Time{}, false
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Midnight(b).Sub(Midnight(a)).Hours() / 24)
}
