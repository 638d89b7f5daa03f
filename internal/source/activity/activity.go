package activity

import (
	"sort"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/window"
	"github.com/bhackerb/PeakForm-C/pkg"
)

type Kind string

const (
	KindRun      Kind = "run"
	KindStrength Kind = "strength"
	KindOther    Kind = "other"
)

// Activity is one logged activity. Optional metrics are nil when the export
// does not carry them.
type Activity struct {
	Date             time.Time `json:"date"`
	Kind             Kind      `json:"kind"`
	Type             string    `json:"type"`
	Title            string    `json:"title"`
	IsTrail          bool      `json:"is_trail"`
	DistanceMi       *float64  `json:"distance_mi"`
	DurationMin      *float64  `json:"duration_min"`
	AvgPaceMinPerMi  *float64  `json:"avg_pace_min_per_mi"`
	AvgHR            *float64  `json:"avg_hr"`
	AvgCadence       *float64  `json:"avg_cadence_spm"`
	ElevationGainFt  *float64  `json:"elevation_gain_ft"`
	BodyBatteryDrain *float64  `json:"body_battery_drain"`
	GroundContactMs  *float64  `json:"ground_contact_ms"`
	AerobicTE        *float64  `json:"aerobic_te"`
}

func (a Activity) IsRun() bool {
	return a.Kind == KindRun
}

// Miles returns the distance, or 0 when it was not recorded.
func (a Activity) Miles() float64 {
	if a.DistanceMi == nil {
		return 0
	}
	return *a.DistanceMi
}

// Log is the flat activity log of an export. Entries are not de-duplicated.
type Log struct {
	Activities []Activity
}

func NewLog(activities []Activity) *Log {
	l := &Log{Activities: activities}
	l.sort()
	return l
}

func (l *Log) sort() {
	sort.SliceStable(l.Activities, func(i, j int) bool {
		return l.Activities[i].Date.Before(l.Activities[j].Date)
	})
}

// Merge appends activities, keeping the log ordered by date.
func (l *Log) Merge(activities ...Activity) {
	l.Activities = append(l.Activities, activities...)
	l.sort()
}

func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Activities)
}

// InWindow returns the activities dated within w.
func (l *Log) InWindow(w window.Window) []Activity {
	if l == nil {
		return nil
	}
	var out []Activity
	for _, a := range l.Activities {
		if w.Contains(a.Date) {
			out = append(out, a)
		}
	}
	return out
}

// Runs returns the runs dated within w.
func (l *Log) Runs(w window.Window) []Activity {
	var out []Activity
	for _, a := range l.InWindow(w) {
		if a.IsRun() {
			out = append(out, a)
		}
	}
	return out
}

// RunDates returns the distinct calendar dates with at least one run in w, ascending.
func (l *Log) RunDates(w window.Window) []time.Time {
	seen := make(map[time.Time]bool)
	var dates []time.Time
	for _, r := range l.Runs(w) {
		d := pkg.Midnight(r.Date)
		if seen[d] {
			continue
		}
		seen[d] = true
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
	return dates
}
