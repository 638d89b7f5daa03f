package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/bhackerb/PeakForm-C/pkg"
)

const BaselineDays = 28

// Window is an inclusive calendar-date range. Analysis windows run Monday to Sunday.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type InvalidWeekError struct {
	Value string
	Err   error
}

func (e *InvalidWeekError) Error() string {
	return fmt.Sprintf("invalid week value '%s': expected ISO date format YYYY-MM-DD", e.Value)
}

func (e *InvalidWeekError) Unwrap() error {
	return e.Err
}

// ForDate returns the Monday-Sunday window containing d.
func ForDate(d time.Time) Window {
	d = pkg.Midnight(d)
	// time.Weekday starts on Sunday
	offset := (int(d.Weekday()) + 6) % 7
	monday := d.AddDate(0, 0, -offset)
	return Window{
		Start: monday,
		End:   monday.AddDate(0, 0, 6),
	}
}

// Resolve returns the window for an explicit YYYY-MM-DD date anywhere in the
// desired week, or the window containing now when explicit is blank.
func Resolve(explicit string, now time.Time) (Window, error) {
	explicit = strings.TrimSpace(explicit)
	if explicit == "" {
		return ForDate(now), nil
	}
	d, err := time.Parse(pkg.DateLayout, explicit)
	if err != nil {
		return Window{}, &InvalidWeekError{Value: explicit, Err: err}
	}
	return ForDate(d), nil
}

// Baseline returns the 28 days immediately preceding start.
func Baseline(start time.Time) Window {
	start = pkg.Midnight(start)
	return Window{
		Start: start.AddDate(0, 0, -BaselineDays),
		End:   start.AddDate(0, 0, -1),
	}
}

func (w Window) Baseline() Window {
	return Baseline(w.Start)
}

func (w Window) Contains(d time.Time) bool {
	d = pkg.Midnight(d)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Days is the number of calendar days covered, inclusive.
func (w Window) Days() int {
	return pkg.DaysBetween(w.Start, w.End) + 1
}

// Weeks is the number of 7-day weeks covered.
func (w Window) Weeks() float64 {
	return float64(w.Days()) / 7
}

func (w Window) String() string {
	return w.Start.Format(pkg.DateLayout) + " – " + w.End.Format(pkg.DateLayout)
}
