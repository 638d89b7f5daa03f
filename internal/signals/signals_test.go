package signals_test

import (
	"testing"

	"github.com/bhackerb/PeakForm-C/internal/analysis"
	"github.com/bhackerb/PeakForm-C/internal/signals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func f(v float64) *float64 {
	return &v
}

func categories(sigs []signals.Signal) []signals.Category {
	out := make([]signals.Category, len(sigs))
	for i, s := range sigs {
		out[i] = s.Category
	}
	return out
}

func TestDetect_NothingMatches(t *testing.T) {
	sigs := signals.Detect(analysis.Running{}, analysis.Strength{}, analysis.Nutrition{}, analysis.BodyComp{})
	require.NotNil(t, sigs)
	assert.Empty(t, sigs)
}

func TestDetect_EveryMatchingRuleFiresInOrder(t *testing.T) {
	running := analysis.Running{
		Current:          analysis.RunningPeriod{TotalMiles: 50, AvgBodyBatteryDrain: f(18)},
		Baseline:         analysis.RunningPeriod{TotalMiles: 40},
		MileageChangePct: f(0.25),
		PaceChange:       f(0.25),
		HRChange:         f(4),
		Overreach:        true,
		RecoveryDebt:     true,
		Fatigue:          true,
	}
	regression := analysis.ExerciseChange{Exercise: "Deadlift", Metric: analysis.MetricHeaviestWeight, Current: 275, PriorBest: 315}
	pr := analysis.ExerciseChange{Exercise: "Squat", Metric: analysis.MetricHeaviestWeight, Current: 235, PriorBest: 225}
	strength := analysis.Strength{
		PRs:                []analysis.ExerciseChange{pr},
		Regressions:        []analysis.ExerciseChange{regression},
		MissedMuscleGroups: []string{"Glutes", "Abs"},
		VolumeDrops:        map[string]float64{"Chest": 0.3},
	}
	nutrition := analysis.Nutrition{
		Current:          analysis.NutritionPeriod{LoggedDays: 3, AvgProteinG: f(120)},
		AvgDailyDeficit:  f(900),
		IncompleteWeek:   true,
		LowProtein:       true,
		LowCarbUnderfuel: true,
	}
	bodyComp := analysis.BodyComp{
		TrendDirection:             analysis.DirectionUp,
		AvgDailyDeficit:            f(900),
		WeightRisingDespiteDeficit: true,
		AlgorithmRecalibrating:     true,
	}

	sigs := signals.Detect(running, strength, nutrition, bodyComp)

	assert.Equal(t, []signals.Category{
		signals.CategoryOverreach,
		signals.CategoryUnderfuel,
		signals.CategoryFatigue,
		signals.CategoryRecovery,
		signals.CategoryRecalibration,
		signals.CategoryRegression,
		signals.CategoryStrength,
		signals.CategoryPR,
		signals.CategoryProtein,
		signals.CategoryCoverage,
	}, categories(sigs))

	assert.Contains(t, sigs[0].Message, "+25%")
	assert.Contains(t, sigs[1].Message, "High-mileage week (50.0 mi)")
	assert.Contains(t, sigs[2].Message, "15s/mi")
	assert.Contains(t, sigs[4].Message, "up despite a 900 kcal")
	assert.Contains(t, sigs[5].Message, "Deadlift heaviest weight: 275 (prior best 315)")
	assert.Contains(t, sigs[6].Message, "Glutes, Abs")
	assert.Contains(t, sigs[7].Message, "Squat")
	assert.Contains(t, sigs[9].Message, "3 of 7")
	for _, s := range sigs {
		assert.NotEmpty(t, s.Icon)
	}
}

func TestDetect_AdaptationIsPositive(t *testing.T) {
	running := analysis.Running{
		PaceChange:        f(-0.2),
		HRChange:          f(-1),
		AerobicAdaptation: true,
	}

	sigs := signals.Detect(running, analysis.Strength{}, analysis.Nutrition{}, analysis.BodyComp{})

	require.Len(t, sigs, 1)
	assert.Equal(t, signals.CategoryAdaptation, sigs[0].Category)
	assert.Equal(t, signals.SeverityPositive, sigs[0].Severity)
	assert.Contains(t, sigs[0].Message, "12s/mi")
}

func TestDetect_CompoundRulesNeedBothSides(t *testing.T) {
	running := analysis.Running{
		Current:      analysis.RunningPeriod{AvgBodyBatteryDrain: f(20)},
		RecoveryDebt: true,
	}
	strength := analysis.Strength{
		Regressions: []analysis.ExerciseChange{{Exercise: "Bench", Metric: analysis.MetricTotalVolume, Current: 1500, PriorBest: 2000}},
	}

	// recovery debt on a small deficit, regression without overreach, carbs low without overreach
	nutrition := analysis.Nutrition{AvgDailyDeficit: f(400), LowCarbUnderfuel: true}
	sigs := signals.Detect(running, strength, nutrition, analysis.BodyComp{})
	assert.Empty(t, sigs)

	nutrition.AvgDailyDeficit = f(800)
	sigs = signals.Detect(running, strength, nutrition, analysis.BodyComp{})
	assert.Equal(t, []signals.Category{signals.CategoryRecovery}, categories(sigs))
}

func TestDetectWithPolicy_UsesThresholds(t *testing.T) {
	p := analysis.DefaultPolicy()
	p.LargeDeficitKcal = 300
	in := signals.Inputs{
		Running:   analysis.Running{RecoveryDebt: true},
		Nutrition: analysis.Nutrition{AvgDailyDeficit: f(400)},
		Policy:    p,
	}

	sigs := signals.DetectWithPolicy(in)

	require.Len(t, sigs, 1)
	assert.Contains(t, sigs[0].Message, "0.0 per run")
}

func TestDetect_UnderfuelBelowHighMileage(t *testing.T) {
	running := analysis.Running{
		Current:   analysis.RunningPeriod{TotalMiles: 26},
		Baseline:  analysis.RunningPeriod{TotalMiles: 22},
		Overreach: true,
	}
	nutrition := analysis.Nutrition{LowCarbUnderfuel: true}

	sigs := signals.Detect(running, analysis.Strength{}, nutrition, analysis.BodyComp{})

	require.Equal(t, []signals.Category{signals.CategoryOverreach, signals.CategoryUnderfuel}, categories(sigs))
	assert.Contains(t, sigs[1].Message, "Mileage is climbing")
}
