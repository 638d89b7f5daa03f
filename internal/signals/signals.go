package signals

import (
	"fmt"
	"strings"

	"github.com/bhackerb/PeakForm-C/internal/analysis"
)

type Category string

const (
	CategoryOverreach     Category = "overreach"
	CategoryUnderfuel     Category = "underfuel"
	CategoryFatigue       Category = "fatigue"
	CategoryRecovery      Category = "recovery"
	CategoryAdaptation    Category = "adaptation"
	CategoryRecalibration Category = "recalibration"
	CategoryRegression    Category = "regression"
	CategoryStrength      Category = "strength"
	CategoryPR            Category = "pr"
	CategoryProtein       Category = "protein"
	CategoryCoverage      Category = "coverage"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
	SeverityPositive Severity = "positive"
)

type Signal struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Icon     string   `json:"icon"`
	Message  string   `json:"message"`
}

// Inputs are the four analyzer outputs of one window.
type Inputs struct {
	Running   analysis.Running
	Strength  analysis.Strength
	Nutrition analysis.Nutrition
	BodyComp  analysis.BodyComp
	Policy    analysis.Policy
}

type rule struct {
	category Category
	severity Severity
	match    func(in Inputs) (string, bool)
}

var icons = map[Severity]string{
	SeverityWarning:  "⚠️",
	SeverityInfo:     "ℹ️",
	SeverityPositive: "✅",
}

// rules are evaluated in order and every match fires.
var rules = []rule{
	{CategoryOverreach, SeverityWarning, overreach},
	{CategoryUnderfuel, SeverityWarning, overreachUnderfueled},
	{CategoryFatigue, SeverityWarning, fatigue},
	{CategoryRecovery, SeverityWarning, recoveryDebtInDeficit},
	{CategoryAdaptation, SeverityPositive, aerobicAdaptation},
	{CategoryRecalibration, SeverityInfo, recalibrating},
	{CategoryRegression, SeverityWarning, regressionUnderLoad},
	{CategoryStrength, SeverityWarning, missedPriorityGroups},
	{CategoryPR, SeverityPositive, personalRecords},
	{CategoryProtein, SeverityWarning, lowProteinStrengthLoss},
	{CategoryCoverage, SeverityInfo, incompleteWeek},
}

// Detect evaluates the cross-domain rules over one window's analyzer outputs.
// The result is empty, never nil, when no rule matches.
func Detect(running analysis.Running, strength analysis.Strength, nutrition analysis.Nutrition, bodyComp analysis.BodyComp) []Signal {
	return DetectWithPolicy(Inputs{
		Running:   running,
		Strength:  strength,
		Nutrition: nutrition,
		BodyComp:  bodyComp,
		Policy:    analysis.DefaultPolicy(),
	})
}

func DetectWithPolicy(in Inputs) []Signal {
	out := make([]Signal, 0, len(rules))
	for _, r := range rules {
		msg, ok := r.match(in)
		if !ok {
			continue
		}
		out = append(out, Signal{
			Category: r.category,
			Severity: r.severity,
			Icon:     icons[r.severity],
			Message:  msg,
		})
	}
	return out
}

func overreach(in Inputs) (string, bool) {
	r := in.Running
	if !r.Overreach {
		return "", false
	}
	msg := fmt.Sprintf("Weekly mileage %.1f mi is above 110%% of the 4-week average", r.Current.TotalMiles)
	if r.MileageChangePct != nil {
		msg = fmt.Sprintf("Weekly mileage %.1f mi is %+.0f%% vs the 4-week average of %.1f mi",
			r.Current.TotalMiles, *r.MileageChangePct*100, r.Baseline.TotalMiles)
	}
	return msg, true
}

func overreachUnderfueled(in Inputs) (string, bool) {
	if !in.Running.Overreach || !in.Nutrition.LowCarbUnderfuel {
		return "", false
	}
	if miles := in.Running.Current.TotalMiles; miles >= in.Policy.HighMileageWeekMiles {
		return fmt.Sprintf("High-mileage week (%.1f mi) with carbs below target; raise carbs on long-run and quality days", miles), true
	}
	return "Mileage is climbing while carbs sit below target; raise carbs on long-run and quality days", true
}

func fatigue(in Inputs) (string, bool) {
	r := in.Running
	if !r.Fatigue || r.PaceChange == nil || r.HRChange == nil {
		return "", false
	}
	return fmt.Sprintf("Flat-run pace slowed %.0fs/mi while HR rose %+.0f bpm", *r.PaceChange*60, *r.HRChange), true
}

func recoveryDebtInDeficit(in Inputs) (string, bool) {
	r, n := in.Running, in.Nutrition
	if !r.RecoveryDebt || n.AvgDailyDeficit == nil || *n.AvgDailyDeficit <= in.Policy.LargeDeficitKcal {
		return "", false
	}
	drain := 0.0
	if r.Current.AvgBodyBatteryDrain != nil {
		drain = *r.Current.AvgBodyBatteryDrain
	}
	return fmt.Sprintf("Body battery drain averages %.1f per run on a %.0f kcal daily deficit", drain, *n.AvgDailyDeficit), true
}

func aerobicAdaptation(in Inputs) (string, bool) {
	r := in.Running
	if !r.AerobicAdaptation || r.PaceChange == nil {
		return "", false
	}
	return fmt.Sprintf("Flat-run pace improved %.0fs/mi without a rise in HR", -*r.PaceChange*60), true
}

func recalibrating(in Inputs) (string, bool) {
	b := in.BodyComp
	if !b.WeightRisingDespiteDeficit || b.AvgDailyDeficit == nil {
		return "", false
	}
	return fmt.Sprintf("Trend weight is %s despite a %.0f kcal daily deficit; expenditure is likely recalibrating",
		b.TrendDirection, *b.AvgDailyDeficit), true
}

func regressionUnderLoad(in Inputs) (string, bool) {
	if !in.Running.Overreach || len(in.Strength.Regressions) == 0 {
		return "", false
	}
	return "Strength regressed during a mileage overreach: " + joinChanges(in.Strength.Regressions), true
}

func missedPriorityGroups(in Inputs) (string, bool) {
	missed := in.Strength.MissedMuscleGroups
	if len(missed) == 0 {
		return "", false
	}
	return "No sets logged for priority muscle groups: " + strings.Join(missed, ", "), true
}

func personalRecords(in Inputs) (string, bool) {
	if len(in.Strength.PRs) == 0 {
		return "", false
	}
	return "New personal records: " + joinChanges(in.Strength.PRs), true
}

func lowProteinStrengthLoss(in Inputs) (string, bool) {
	s := in.Strength
	if !in.Nutrition.LowProtein || (len(s.Regressions) == 0 && len(s.VolumeDrops) == 0) {
		return "", false
	}
	avg := 0.0
	if in.Nutrition.Current.AvgProteinG != nil {
		avg = *in.Nutrition.Current.AvgProteinG
	}
	return fmt.Sprintf("Protein averaged %.0fg while strength output dropped", avg), true
}

func incompleteWeek(in Inputs) (string, bool) {
	n := in.Nutrition
	if !n.IncompleteWeek {
		return "", false
	}
	return fmt.Sprintf("Only %d of 7 days logged; nutrition averages are low confidence", n.Current.LoggedDays), true
}

func joinChanges(changes []analysis.ExerciseChange) string {
	parts := make([]string, len(changes))
	for i, c := range changes {
		parts[i] = c.String()
	}
	return strings.Join(parts, "; ")
}
