package coverage

import (
	"fmt"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/analysis"
	"github.com/bhackerb/PeakForm-C/internal/source/activity"
	"github.com/bhackerb/PeakForm-C/internal/source/nutrition"
	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/internal/window"
	"github.com/bhackerb/PeakForm-C/pkg"
)

const dayLayout = "Mon Jan 02"

// Validate reports data coverage problems in w. The warnings are advisory
// and never change analyzer output.
func Validate(src *nutrition.Source, log *activity.Log, w window.Window, p analysis.Policy) []string {
	warnings := make([]string, 0)

	cm := src.CaloriesMacros
	calCol, hasCalories := src.Find(cm, table.ConceptCalories)
	rows := cm.Range(w.Start, w.End)
	if cm.IsEmpty() {
		warnings = append(warnings, "nutrition: Calories & Macros sheet is empty or missing")
	} else {
		logged := len(rows)
		if hasCalories {
			logged = len(table.Values(rows, calCol))
		}
		if logged < p.MinLoggedDays {
			warnings = append(warnings, fmt.Sprintf(
				"nutrition: only %d logged day(s) in the analysis window (need >= %d for complete analysis); metrics will be partial",
				logged, p.MinLoggedDays))
		}
	}

	dates := log.RunDates(w)
	if len(dates) == 0 {
		warnings = append(warnings, "activity: no running activities found in the analysis window")
	} else if gap := maxGap(dates); gap > p.MaxRunGapDays {
		warnings = append(warnings, fmt.Sprintf(
			"activity: gap of %d days between run activities; possible sync issue or intentional rest block", gap))
	}

	if hasCalories {
		for _, row := range rows {
			if cal, ok := row.Get(calCol); ok && cal > p.CalorieSpikeKcal {
				warnings = append(warnings, fmt.Sprintf(
					"calorie spike: %.0f kcal on %s (> %.0f kcal threshold)", cal, row.Date.Format(dayLayout), p.CalorieSpikeKcal))
			}
		}
	}

	for _, r := range log.Runs(w) {
		if r.Miles() > p.LongRunMiles {
			warnings = append(warnings, fmt.Sprintf(
				"long run: %.1f mi on %s (> %.0f mi threshold)", r.Miles(), r.Date.Format(dayLayout), p.LongRunMiles))
		}
	}

	return warnings
}

func maxGap(dates []time.Time) int {
	gap := 0
	for i := 1; i < len(dates); i++ {
		if d := pkg.DaysBetween(dates[i-1], dates[i]); d > gap {
			gap = d
		}
	}
	return gap
}
