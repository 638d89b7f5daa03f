package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/source/nutrition"
	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/internal/window"
)

const (
	MetricTotalVolume    = "total_volume"
	MetricHeaviestWeight = "heaviest_weight"
)

// StrengthPeriod is a weekly figure, like RunningPeriod.
type StrengthPeriod struct {
	Start        time.Time          `json:"start"`
	End          time.Time          `json:"end"`
	WorkoutDays  float64            `json:"workout_days"`
	TotalSets    float64            `json:"total_sets"`
	SetsByMuscle map[string]float64 `json:"sets_by_muscle"`
}

// ExerciseChange compares an exercise's best value in the window with its best
// value in all history logged before the window.
type ExerciseChange struct {
	Exercise  string  `json:"exercise"`
	Metric    string  `json:"metric"`
	Current   float64 `json:"current"`
	PriorBest float64 `json:"prior_best"`
}

func (c ExerciseChange) String() string {
	return fmt.Sprintf("%s %s: %.0f (prior best %.0f)", c.Exercise, strings.ReplaceAll(c.Metric, "_", " "), c.Current, c.PriorBest)
}

type Strength struct {
	Current  StrengthPeriod `json:"current"`
	Baseline StrengthPeriod `json:"baseline"`

	PRs                []ExerciseChange   `json:"prs"`
	Regressions        []ExerciseChange   `json:"regressions"`
	MissedMuscleGroups []string           `json:"missed_muscle_groups"`
	// VolumeDrops maps a muscle group to its fractional drop in sets vs the
	// baseline weekly average (0.3 is a 30% drop).
	VolumeDrops        map[string]float64 `json:"volume_drop_ratios"`
}

// HasPR reports whether the exercise hit a PR on any metric.
func (s Strength) HasPR(exercise string) bool {
	for _, c := range s.PRs {
		if c.Exercise == exercise {
			return true
		}
	}
	return false
}

func (s Strength) HasRegression(exercise string) bool {
	for _, c := range s.Regressions {
		if c.Exercise == exercise {
			return true
		}
	}
	return false
}

// AnalyzeStrength summarizes muscle-group sets in w against the 28-day
// baseline. PRs and regressions compare against the full history before w.
func AnalyzeStrength(src *nutrition.Source, w window.Window, p Policy) Strength {
	baseline := w.Baseline()
	s := Strength{
		Current:     summarizeSets(src.MuscleGroupSets, w),
		Baseline:    summarizeSets(src.MuscleGroupSets, baseline),
		VolumeDrops: make(map[string]float64),
	}

	for group, base := range s.Baseline.SetsByMuscle {
		if base <= 0 {
			continue
		}
		drop := (base - s.Current.SetsByMuscle[group]) / base
		if drop > p.VolumeDropRatio {
			s.VolumeDrops[group] = drop
		}
	}

	for _, priority := range p.PriorityMuscleGroups {
		if setsFor(s.Current.SetsByMuscle, priority) == 0 {
			s.MissedMuscleGroups = append(s.MissedMuscleGroups, priority)
		}
	}

	s.PRs = append(
		exerciseChanges(src.ExerciseVolume, w, MetricTotalVolume, 0, true),
		exerciseChanges(src.ExerciseHeaviest, w, MetricHeaviestWeight, 0, true)...,
	)
	regressions := append(
		exerciseChanges(src.ExerciseVolume, w, MetricTotalVolume, p.RegressionTolerance, false),
		exerciseChanges(src.ExerciseHeaviest, w, MetricHeaviestWeight, p.RegressionTolerance, false)...,
	)
	for _, r := range regressions {
		if s.HasPR(r.Exercise) {
			continue
		}
		s.Regressions = append(s.Regressions, r)
	}

	return s
}

func summarizeSets(t *table.Table, w window.Window) StrengthPeriod {
	period := StrengthPeriod{
		Start:        w.Start,
		End:          w.End,
		SetsByMuscle: make(map[string]float64),
	}
	weeks := w.Weeks()
	if t.IsEmpty() || weeks <= 0 {
		return period
	}

	workoutDays := 0
	for _, row := range t.Range(w.Start, w.End) {
		trained := false
		for _, group := range t.Columns {
			sets, ok := row.Get(group)
			if !ok || sets <= 0 {
				continue
			}
			trained = true
			period.SetsByMuscle[group] += sets
			period.TotalSets += sets
		}
		if trained {
			workoutDays++
		}
	}

	for group := range period.SetsByMuscle {
		period.SetsByMuscle[group] /= weeks
	}
	period.TotalSets /= weeks
	period.WorkoutDays = float64(workoutDays) / weeks

	return period
}

// setsFor matches a priority group against muscle-group columns, case-insensitively.
func setsFor(sets map[string]float64, priority string) float64 {
	needle := strings.ToLower(priority)
	total := 0.0
	for group, v := range sets {
		g := strings.ToLower(group)
		if g == needle || strings.Contains(g, needle) {
			total += v
		}
	}
	return total
}

// zero marks a day the exercise was not performed
func positives(values []float64) []float64 {
	var out []float64
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// exerciseChanges lists PRs (pr=true: window best strictly above prior best)
// or regressions (window best below prior best by more than tolerance).
// Exercises with no prior history are neither.
func exerciseChanges(t *table.Table, w window.Window, metric string, tolerance float64, pr bool) []ExerciseChange {
	if t.IsEmpty() {
		return nil
	}
	inWindow := t.Range(w.Start, w.End)
	history := t.Before(w.Start)

	var changes []ExerciseChange
	for _, exercise := range t.Columns {
		current := positives(table.Values(inWindow, exercise))
		prior := positives(table.Values(history, exercise))
		if len(current) == 0 || len(prior) == 0 {
			continue
		}
		best, priorBest := maxValue(current), maxValue(prior)
		change := ExerciseChange{
			Exercise:  exercise,
			Metric:    metric,
			Current:   best,
			PriorBest: priorBest,
		}
		switch {
		case pr && best > priorBest:
			changes = append(changes, change)
		case !pr && best < priorBest*(1-tolerance):
			changes = append(changes, change)
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Exercise < changes[j].Exercise
	})
	return changes
}
