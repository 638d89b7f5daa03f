package analysis

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/source/nutrition"
	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/internal/window"
)

// NutritionPeriod holds per-day averages over logged days. A logged day is a
// day with a calorie entry.
type NutritionPeriod struct {
	Start             time.Time          `json:"start"`
	End               time.Time          `json:"end"`
	AvgCalories       *float64           `json:"avg_calories"`
	AvgProteinG       *float64           `json:"avg_protein_g"`
	AvgCarbsG         *float64           `json:"avg_carbs_g"`
	AvgFatG           *float64           `json:"avg_fat_g"`
	AvgFiberG         *float64           `json:"avg_fiber_g"`
	LoggedDays        int                `json:"logged_days"`
	ProteinHitDays    int                `json:"protein_hit_days"`
	CalorieTargetDays int                `json:"calorie_target_days"`
	CalorieStdDev     *float64           `json:"calorie_stdev"`
	AvgExpenditure    *float64           `json:"avg_expenditure"`
	AvgDailyDeficit   *float64           `json:"avg_daily_deficit"`
	AvgMicronutrients map[string]float64 `json:"avg_micronutrients"`
}

type Nutrition struct {
	Current  NutritionPeriod   `json:"current"`
	Baseline NutritionPeriod   `json:"baseline"`
	Targets  nutrition.Targets `json:"targets"`

	WeeklyMileage      float64            `json:"weekly_mileage"`
	ProteinHitRate     *float64           `json:"protein_hit_rate"`
	CalorieTargetRate  *float64           `json:"calorie_target_rate"`
	CaloriesPctTarget  *float64           `json:"calories_pct_target"`
	AvgDailyDeficit    *float64           `json:"avg_daily_deficit"`
	DeficitVsTarget    *float64           `json:"deficit_vs_target"`
	// MicronutrientFlags maps each nutrient below its floor to the fraction
	// of target reached (0.7 is 70%).
	MicronutrientFlags map[string]float64 `json:"micronutrient_flag_ratios"`

	IncompleteWeek      bool `json:"incomplete_week"`
	LowProtein          bool `json:"low_protein"`
	LowCarbUnderfuel    bool `json:"low_carb_underfuel"`
	HighCalorieVariance bool `json:"high_calorie_variance"`
}

// TargetDeficit is target expenditure minus target intake.
func (n Nutrition) TargetDeficit() *float64 {
	return diff(n.Targets.Expenditure, n.Targets.Calories)
}

// AnalyzeNutrition summarizes intake in w. weeklyMileage comes from the
// running analysis of the same window; nil counts as no mileage.
func AnalyzeNutrition(src *nutrition.Source, w window.Window, weeklyMileage *float64, p Policy) Nutrition {
	targets := src.CurrentTargets()
	n := Nutrition{
		Targets:            targets,
		Current:            summarizeIntake(src, w, targets, p),
		Baseline:           summarizeIntake(src, w.Baseline(), targets, p),
		MicronutrientFlags: make(map[string]float64),
	}
	if weeklyMileage != nil {
		n.WeeklyMileage = *weeklyMileage
	}

	cur := n.Current
	_, hasProtein := src.Find(src.CaloriesMacros, table.ConceptProtein)
	_, hasCalories := src.Find(src.CaloriesMacros, table.ConceptCalories)
	if cur.LoggedDays > 0 {
		// rates need both the logged column and its target
		if hasProtein && targets.ProteinG != nil {
			n.ProteinHitRate = ptr(float64(cur.ProteinHitDays) / float64(cur.LoggedDays))
		}
		if hasCalories && targets.Calories != nil {
			n.CalorieTargetRate = ptr(float64(cur.CalorieTargetDays) / float64(cur.LoggedDays))
		}
	}
	n.CaloriesPctTarget = ratio(cur.AvgCalories, targets.Calories)
	n.AvgDailyDeficit = cur.AvgDailyDeficit
	n.DeficitVsTarget = diff(n.AvgDailyDeficit, n.TargetDeficit())

	n.IncompleteWeek = cur.LoggedDays < p.MinLoggedDays
	n.LowProtein = cur.AvgProteinG != nil && *cur.AvgProteinG < p.LowProteinFloorG
	n.LowCarbUnderfuel = cur.AvgCarbsG != nil && targets.CarbsG != nil &&
		*cur.AvgCarbsG < *targets.CarbsG && n.WeeklyMileage > p.UnderfuelMileageMiles
	n.HighCalorieVariance = cur.CalorieStdDev != nil && *cur.CalorieStdDev > p.HighCalorieStdDevKcal

	for nutrient, avg := range cur.AvgMicronutrients {
		target, ok := micronutrientTarget(p.MicronutrientTargets, nutrient)
		if !ok || target <= 0 {
			continue
		}
		if share := avg / target; share < p.MicronutrientFloorRatio {
			n.MicronutrientFlags[nutrient] = share
		}
	}

	return n
}

func summarizeIntake(src *nutrition.Source, w window.Window, targets nutrition.Targets, p Policy) NutritionPeriod {
	period := NutritionPeriod{
		Start:             w.Start,
		End:               w.End,
		AvgMicronutrients: make(map[string]float64),
	}

	cm := src.CaloriesMacros
	rows := cm.Range(w.Start, w.End)
	calCol, _ := src.Find(cm, table.ConceptCalories)
	protCol, _ := src.Find(cm, table.ConceptProtein)
	carbCol, _ := src.Find(cm, table.ConceptCarbs)
	fatCol, _ := src.Find(cm, table.ConceptFat)
	fiberCol, _ := src.Find(cm, table.ConceptFiber)

	var calories []float64
	intakeByDate := make(map[time.Time]float64)
	for _, row := range rows {
		cal, ok := row.Get(calCol)
		if calCol == "" || !ok {
			continue
		}
		period.LoggedDays++
		calories = append(calories, cal)
		intakeByDate[row.Date] = cal

		if prot, ok := row.Get(protCol); ok && protCol != "" && targets.ProteinG != nil && prot >= *targets.ProteinG {
			period.ProteinHitDays++
		}
		if targets.Calories != nil && math.Abs(cal-*targets.Calories) <= p.CalorieToleranceKcal {
			period.CalorieTargetDays++
		}
	}

	period.AvgCalories = mean(calories)
	period.AvgProteinG = mean(table.Values(rows, protCol))
	period.AvgCarbsG = mean(table.Values(rows, carbCol))
	period.AvgFatG = mean(table.Values(rows, fatCol))
	period.AvgFiberG = mean(table.Values(rows, fiberCol))
	period.CalorieStdDev = sampleStdDev(calories)

	exp := src.Expenditure
	expCol, _ := src.Find(exp, table.ConceptExpenditure)
	if expCol == "" && len(exp.Columns) > 0 {
		expCol = exp.Columns[0]
	}
	expRows := exp.Range(w.Start, w.End)
	period.AvgExpenditure = mean(table.Values(expRows, expCol))

	// deficit over dates carrying both series
	var overlapExp, overlapIntake []float64
	for _, row := range expRows {
		e, ok := row.Get(expCol)
		if !ok {
			continue
		}
		intake, ok := intakeByDate[row.Date]
		if !ok {
			continue
		}
		overlapExp = append(overlapExp, e)
		overlapIntake = append(overlapIntake, intake)
	}
	period.AvgDailyDeficit = diff(mean(overlapExp), mean(overlapIntake))

	micros := src.Micronutrients
	microRows := micros.Range(w.Start, w.End)
	for _, col := range micros.Columns {
		if avg := mean(table.Values(microRows, col)); avg != nil {
			period.AvgMicronutrients[col] = *avg
		}
	}

	return period
}

// micronutrientTarget finds the target whose keyword the column contains.
// Longer keywords win so vitamin_b12 is not matched by a shorter key.
func micronutrientTarget(targets map[string]float64, column string) (float64, bool) {
	keys := make([]string, 0, len(targets))
	for k := range targets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	col := strings.ToLower(column)
	for _, k := range keys {
		if strings.Contains(col, strings.ToLower(k)) {
			return targets[k], true
		}
	}
	return 0, false
}
