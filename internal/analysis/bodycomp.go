package analysis

import (
	"math"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/source/nutrition"
	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/internal/window"
	"github.com/bhackerb/PeakForm-C/pkg"
)

type Direction string

const (
	DirectionDown    Direction = "down"
	DirectionUp      Direction = "up"
	DirectionFlat    Direction = "flat"
	DirectionUnknown Direction = "unknown"
)

type BodyCompPeriod struct {
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	TrendWeightStart  *float64  `json:"trend_weight_start"`
	TrendWeightEnd    *float64  `json:"trend_weight_end"`
	TrendNetChangeLbs *float64  `json:"trend_net_change_lbs"`
	// WeeklyChangeLbs is the signed trend change per 7 days; negative is loss.
	WeeklyChangeLbs   *float64 `json:"weekly_change_lbs"`
	ScaleWeightStart  *float64 `json:"scale_weight_start"`
	ScaleWeightEnd    *float64 `json:"scale_weight_end"`
	ScaleNetChangeLbs *float64 `json:"scale_net_change_lbs"`
}

type BodyComp struct {
	Current  BodyCompPeriod `json:"current"`
	Baseline BodyCompPeriod `json:"baseline"`

	TrendDirection    Direction  `json:"trend_direction"`
	BodyFatPctLatest  *float64   `json:"body_fat_pct_latest"`
	GoalWeightLbs     float64    `json:"goal_weight_lbs"`
	PoundsToGoal      *float64   `json:"pounds_to_goal"`
	WeeksToGoal       *float64   `json:"weeks_to_goal"`
	ProjectedGoalDate *time.Time `json:"projected_goal_date"`
	AvgDailyDeficit   *float64   `json:"avg_daily_deficit"`

	TrendStalled               bool `json:"trend_stalled"`
	WeightRisingDespiteDeficit bool `json:"weight_rising_despite_deficit"`
	AlgorithmRecalibrating     bool `json:"algorithm_recalibrating"`
}

// AnalyzeBodyComp summarizes weight readings in w. avgDailyDeficit comes from
// the nutrition analysis of the same window.
func AnalyzeBodyComp(src *nutrition.Source, w window.Window, avgDailyDeficit *float64, p Policy) BodyComp {
	b := BodyComp{
		Current:         summarizeWeight(src, w),
		Baseline:        summarizeWeight(src, w.Baseline()),
		GoalWeightLbs:   p.GoalWeightLbs,
		AvgDailyDeficit: avgDailyDeficit,
		TrendDirection:  DirectionUnknown,
	}

	if net := b.Current.TrendNetChangeLbs; net != nil {
		switch {
		case math.Abs(*net) < p.TrendFlatThresholdLbs:
			b.TrendDirection = DirectionFlat
		case *net < 0:
			b.TrendDirection = DirectionDown
		default:
			b.TrendDirection = DirectionUp
		}
	}

	scale := src.ScaleWeight
	if fatCol, ok := src.Find(scale, table.ConceptBodyFat); ok {
		b.BodyFatPctLatest = lastReading(scale.Before(w.End.AddDate(0, 0, 1)), fatCol)
	}

	if end := b.Current.TrendWeightEnd; end != nil {
		toGoal := *end - p.GoalWeightLbs
		b.PoundsToGoal = ptr(toGoal)
		b.WeeksToGoal = weeksToGoal(toGoal, b.Current.WeeklyChangeLbs)
		if b.WeeksToGoal != nil {
			goal := w.End.AddDate(0, 0, int(math.Round(*b.WeeksToGoal*7)))
			b.ProjectedGoalDate = &goal
		}
	}

	inDeficit := avgDailyDeficit != nil && *avgDailyDeficit > 0
	notLosing := b.TrendDirection == DirectionUp || b.TrendDirection == DirectionFlat
	b.TrendStalled = b.TrendDirection == DirectionFlat
	b.WeightRisingDespiteDeficit = inDeficit && notLosing
	b.AlgorithmRecalibrating = inDeficit && notLosing

	return b
}

// weeksToGoal is undefined when the trend moves away from the goal.
func weeksToGoal(toGoal float64, change *float64) *float64 {
	if toGoal == 0 {
		return ptr(0)
	}
	if change == nil || *change == 0 {
		return nil
	}
	// losing toward a lower goal, or gaining toward a higher one
	if (toGoal > 0) != (*change < 0) {
		return nil
	}
	return ptr(math.Abs(toGoal / *change))
}

func summarizeWeight(src *nutrition.Source, w window.Window) BodyCompPeriod {
	period := BodyCompPeriod{Start: w.Start, End: w.End}

	trend := src.WeightTrend
	if col, ok := src.Find(trend, table.ConceptTrendWeight); ok {
		start, end := readings(trend, w, col)
		if start != nil && end != nil {
			period.TrendWeightStart = &start.value
			period.TrendWeightEnd = &end.value
			// a change needs two readings on different days
			if span := pkg.DaysBetween(start.date, end.date); span > 0 {
				period.TrendNetChangeLbs = ptr(end.value - start.value)
				period.WeeklyChangeLbs = ptr((end.value - start.value) / float64(span) * 7)
			}
		}
	}

	scale := src.ScaleWeight
	if col, ok := src.Find(scale, table.ConceptScaleWeight); ok {
		start, end := readings(scale, w, col)
		if start != nil && end != nil {
			period.ScaleWeightStart = &start.value
			period.ScaleWeightEnd = &end.value
			if end.date.After(start.date) {
				period.ScaleNetChangeLbs = ptr(end.value - start.value)
			}
		}
	}

	return period
}

type reading struct {
	date  time.Time
	value float64
}

// readings returns the first and last readings within w. Without readings in
// w, both fall back to the nearest earlier reading.
func readings(t *table.Table, w window.Window, col string) (*reading, *reading) {
	var first, last *reading
	for _, row := range t.Range(w.Start, w.End) {
		v, ok := row.Get(col)
		if !ok {
			continue
		}
		r := &reading{date: row.Date, value: v}
		if first == nil {
			first = r
		}
		last = r
	}
	if first != nil {
		return first, last
	}

	earlier := t.Before(w.Start)
	for i := len(earlier) - 1; i >= 0; i-- {
		if v, ok := earlier[i].Get(col); ok {
			r := &reading{date: earlier[i].Date, value: v}
			return r, r
		}
	}
	return nil, nil
}

func lastReading(rows []table.Row, col string) *float64 {
	for i := len(rows) - 1; i >= 0; i-- {
		if v, ok := rows[i].Get(col); ok {
			return &v
		}
	}
	return nil
}
