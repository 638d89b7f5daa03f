package coach

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/analysis"
	"github.com/bhackerb/PeakForm-C/internal/pipeline"
	"github.com/bhackerb/PeakForm-C/pkg"
)

const notAvailable = "N/A"

// FormatPace renders decimal minutes per mile as M:SS/mi.
func FormatPace(minPerMi *float64) string {
	if minPerMi == nil || *minPerMi <= 0 || math.IsInf(*minPerMi, 0) || math.IsNaN(*minPerMi) {
		return notAvailable
	}
	total := int(math.Round(*minPerMi * 60))
	return fmt.Sprintf("%d:%02d/mi", total/60, total%60)
}

// Digest renders every metric and flag of res as plain text. The output
// depends only on res, so equal results always produce equal digests.
func Digest(res *pipeline.Result) string {
	if res == nil {
		return ""
	}

	d := &digest{}
	d.line("PeakForm weekly digest %s (baseline %s)", res.Window, res.Baseline)
	d.blank()

	d.runningSection(res.Running)
	d.strengthSection(res.Strength)
	d.nutritionSection(res.Nutrition)
	d.bodyCompSection(res.BodyComp)

	d.line("## Signals")
	if len(res.Signals) == 0 {
		d.line("- none")
	}
	for _, s := range res.Signals {
		d.line("- %s [%s/%s] %s", s.Icon, s.Category, s.Severity, s.Message)
	}
	d.blank()

	d.line("## Data coverage")
	if len(res.Coverage) == 0 {
		d.line("- no warnings")
	}
	for _, w := range res.Coverage {
		d.line("- %s", w)
	}

	return d.String()
}

type digest struct {
	strings.Builder
}

func (d *digest) line(format string, args ...any) {
	_, _ = fmt.Fprintf(d, format, args...)
	d.WriteByte('\n')
}

func (d *digest) blank() {
	d.WriteByte('\n')
}

func (d *digest) runningSection(r analysis.Running) {
	d.line("## Running")
	d.runningPeriod("this week", r.Current)
	d.runningPeriod("4-week avg", r.Baseline)
	d.line("- change vs baseline: mileage %s | pace %s | HR %s | cadence %s | ground contact %s",
		signedPct(r.MileageChangePct),
		num(scaled(r.PaceChange, 60), "%+.0f s/mi"),
		num(r.HRChange, "%+.1f bpm"),
		num(r.CadenceChange, "%+.1f spm"),
		num(r.GroundContactChange, "%+.1f ms"),
	)
	d.line("- flags: overreach %s | recovery debt %s | aerobic adaptation %s | fatigue %s",
		yesNo(r.Overreach), yesNo(r.RecoveryDebt), yesNo(r.AerobicAdaptation), yesNo(r.Fatigue))
	d.blank()
}

func (d *digest) runningPeriod(label string, p analysis.RunningPeriod) {
	d.line("- %s (%s): %.1f mi over %.1f run(s) | +%.0f ft elevation | longest %.1f mi",
		label, span(p.Start, p.End), p.TotalMiles, p.RunCount, p.TotalElevationGainFt, p.LongestRunMiles)
	d.line("  flat runs: pace %s | HR %s | cadence %s | ground contact %s | aerobic TE %s | HR efficiency %s",
		FormatPace(p.FlatAvgPaceMinPerMi),
		num(p.FlatAvgHR, "%.0f bpm"),
		num(p.FlatAvgCadence, "%.0f spm"),
		num(p.FlatAvgGroundContactMs, "%.0f ms"),
		num(p.FlatAvgAerobicTE, "%.1f"),
		num(p.HREfficiency(), "%.1f bpm per min/mi"),
	)
	d.line("  trail: %.1f run(s), %.1f mi, +%.0f ft | body battery drain avg %s max %s",
		p.TrailRunCount, p.TrailTotalMiles, p.TrailTotalElevationFt,
		num(p.AvgBodyBatteryDrain, "%.1f"), num(p.MaxBodyBatteryDrain, "%.1f"))
}

func (d *digest) strengthSection(s analysis.Strength) {
	d.line("## Strength")
	d.strengthPeriod("this week", s.Current)
	d.strengthPeriod("4-week avg", s.Baseline)

	d.line("- PRs: %s", changes(s.PRs))
	d.line("- regressions: %s", changes(s.Regressions))
	d.line("- missed priority groups: %s", joinOrNone(s.MissedMuscleGroups))

	drops := make([]string, 0, len(s.VolumeDrops))
	for _, group := range sortedKeys(s.VolumeDrops) {
		drops = append(drops, fmt.Sprintf("%s -%.0f%%", group, s.VolumeDrops[group]*100))
	}
	d.line("- volume drops vs baseline: %s", joinOrNone(drops))
	d.blank()
}

func (d *digest) strengthPeriod(label string, p analysis.StrengthPeriod) {
	groups := make([]string, 0, len(p.SetsByMuscle))
	for _, group := range sortedKeys(p.SetsByMuscle) {
		groups = append(groups, fmt.Sprintf("%s %.1f", group, p.SetsByMuscle[group]))
	}
	d.line("- %s (%s): %.1f workout day(s), %.1f sets | by muscle: %s",
		label, span(p.Start, p.End), p.WorkoutDays, p.TotalSets, joinOrNone(groups))
}

func (d *digest) nutritionSection(n analysis.Nutrition) {
	d.line("## Nutrition")
	d.line("- targets: %s | protein %s | carbs %s | fat %s | expenditure %s | target deficit %s",
		num(n.Targets.Calories, "%.0f kcal"),
		num(n.Targets.ProteinG, "%.0f g"),
		num(n.Targets.CarbsG, "%.0f g"),
		num(n.Targets.FatG, "%.0f g"),
		num(n.Targets.Expenditure, "%.0f kcal"),
		num(n.TargetDeficit(), "%.0f kcal"),
	)
	d.nutritionPeriod("this week", n.Current)
	d.nutritionPeriod("4-week avg", n.Baseline)
	d.line("- weekly mileage %.1f mi | protein hit rate %s | calorie target rate %s | calories vs target %s",
		n.WeeklyMileage, rate(n.ProteinHitRate), rate(n.CalorieTargetRate), rate(n.CaloriesPctTarget))
	d.line("- avg daily deficit %s | deficit vs target %s",
		num(n.AvgDailyDeficit, "%.0f kcal"), num(n.DeficitVsTarget, "%+.0f kcal"))

	micros := make([]string, 0, len(n.MicronutrientFlags))
	for _, nutrient := range sortedKeys(n.MicronutrientFlags) {
		micros = append(micros, fmt.Sprintf("%s %.0f%% of target", nutrient, n.MicronutrientFlags[nutrient]*100))
	}
	d.line("- low micronutrients: %s", joinOrNone(micros))
	d.line("- flags: incomplete week %s | low protein %s | low-carb underfuel %s | high calorie variance %s",
		yesNo(n.IncompleteWeek), yesNo(n.LowProtein), yesNo(n.LowCarbUnderfuel), yesNo(n.HighCalorieVariance))
	d.blank()
}

func (d *digest) nutritionPeriod(label string, p analysis.NutritionPeriod) {
	d.line("- %s (%s): %d logged day(s) | %s | protein %s | carbs %s | fat %s | fiber %s",
		label, span(p.Start, p.End), p.LoggedDays,
		num(p.AvgCalories, "%.0f kcal"),
		num(p.AvgProteinG, "%.0f g"),
		num(p.AvgCarbsG, "%.0f g"),
		num(p.AvgFatG, "%.0f g"),
		num(p.AvgFiberG, "%.0f g"),
	)
	d.line("  protein target hit %d day(s) | calorie target hit %d day(s) | calorie stdev %s | expenditure %s | deficit %s",
		p.ProteinHitDays, p.CalorieTargetDays,
		num(p.CalorieStdDev, "%.0f kcal"),
		num(p.AvgExpenditure, "%.0f kcal"),
		num(p.AvgDailyDeficit, "%.0f kcal"),
	)

	micros := make([]string, 0, len(p.AvgMicronutrients))
	for _, nutrient := range sortedKeys(p.AvgMicronutrients) {
		micros = append(micros, fmt.Sprintf("%s %.1f", nutrient, p.AvgMicronutrients[nutrient]))
	}
	d.line("  micronutrients: %s", joinOrNone(micros))
}

func (d *digest) bodyCompSection(b analysis.BodyComp) {
	d.line("## Body composition")
	d.bodyCompPeriod("this week", b.Current)
	d.bodyCompPeriod("4-week baseline", b.Baseline)

	projected := notAvailable
	if b.ProjectedGoalDate != nil {
		projected = b.ProjectedGoalDate.Format(pkg.DateLayout)
	}
	d.line("- direction %s | body fat %s | goal %.1f lbs | to goal %s | weeks to goal %s | projected %s",
		b.TrendDirection, num(b.BodyFatPctLatest, "%.1f%%"), b.GoalWeightLbs,
		num(b.PoundsToGoal, "%.1f lbs"), num(b.WeeksToGoal, "%.1f"), projected)
	d.line("- avg daily deficit %s", num(b.AvgDailyDeficit, "%.0f kcal"))
	d.line("- flags: trend stalled %s | rising despite deficit %s | algorithm recalibrating %s",
		yesNo(b.TrendStalled), yesNo(b.WeightRisingDespiteDeficit), yesNo(b.AlgorithmRecalibrating))
	d.blank()
}

func (d *digest) bodyCompPeriod(label string, p analysis.BodyCompPeriod) {
	d.line("- %s (%s): trend %s -> %s (%s, %s/wk) | scale %s -> %s (%s)",
		label, span(p.Start, p.End),
		num(p.TrendWeightStart, "%.1f"), num(p.TrendWeightEnd, "%.1f"),
		num(p.TrendNetChangeLbs, "%+.2f lbs"), num(p.WeeklyChangeLbs, "%+.2f lbs"),
		num(p.ScaleWeightStart, "%.1f"), num(p.ScaleWeightEnd, "%.1f"),
		num(p.ScaleNetChangeLbs, "%+.2f lbs"),
	)
}

func num(v *float64, format string) string {
	if v == nil {
		return notAvailable
	}
	return fmt.Sprintf(format, *v)
}

func signedPct(v *float64) string {
	return num(scaled(v, 100), "%+.0f%%")
}

func rate(v *float64) string {
	return num(scaled(v, 100), "%.0f%%")
}

func scaled(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	s := *v * factor
	return &s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func span(start, end time.Time) string {
	return start.Format(pkg.DateLayout) + " to " + end.Format(pkg.DateLayout)
}

func changes(cs []analysis.ExerciseChange) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.String())
	}
	return joinOrNone(parts)
}

func joinOrNone(parts []string) string {
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "; ")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
