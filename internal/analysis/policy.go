package analysis

// Policy holds every threshold the analyzers, signal rules and coverage
// checks use. Fractions are ratios: 0.10 means 10%.
//
// A zero field means "use the default" once merged, so a threshold cannot be
// configured to exactly 0. Use a small value such as 0.0001 instead.
type Policy struct {
	// running
	OverreachMileageRatio   float64 `toml:"overreach_mileage_ratio" json:"overreach_mileage_ratio"`
	RecoveryDebtDrain       float64 `toml:"recovery_debt_drain" json:"recovery_debt_drain"`
	HighMileageWeekMiles    float64 `toml:"high_mileage_week_miles" json:"high_mileage_week_miles"`
	UnderfuelMileageMiles   float64 `toml:"underfuel_mileage_miles" json:"underfuel_mileage_miles"`
	LargeDeficitKcal        float64 `toml:"large_deficit_kcal" json:"large_deficit_kcal"`
	TrendFlatThresholdLbs   float64 `toml:"trend_flat_threshold_lbs" json:"trend_flat_threshold_lbs"`
	GoalWeightLbs           float64 `toml:"goal_weight_lbs" json:"goal_weight_lbs"`
	MinLoggedDays           int     `toml:"min_logged_days" json:"min_logged_days"`
	LowProteinFloorG        float64 `toml:"low_protein_floor_g" json:"low_protein_floor_g"`
	CalorieToleranceKcal    float64 `toml:"calorie_tolerance_kcal" json:"calorie_tolerance_kcal"`
	HighCalorieStdDevKcal   float64 `toml:"high_calorie_stddev_kcal" json:"high_calorie_stddev_kcal"`
	MicronutrientFloorRatio float64 `toml:"micronutrient_floor_ratio" json:"micronutrient_floor_ratio"`
	VolumeDropRatio         float64 `toml:"volume_drop_ratio" json:"volume_drop_ratio"`
	RegressionTolerance     float64 `toml:"regression_tolerance" json:"regression_tolerance"`

	// coverage
	CalorieSpikeKcal float64 `toml:"calorie_spike_kcal" json:"calorie_spike_kcal"`
	LongRunMiles     float64 `toml:"long_run_miles" json:"long_run_miles"`
	MaxRunGapDays    int     `toml:"max_run_gap_days" json:"max_run_gap_days"`

	PriorityMuscleGroups []string `toml:"priority_muscle_groups" json:"priority_muscle_groups"`
	// MicronutrientTargets maps a column keyword to its daily target.
	MicronutrientTargets map[string]float64 `toml:"micronutrient_targets" json:"micronutrient_targets"`
}

func DefaultPolicy() Policy {
	return Policy{
		OverreachMileageRatio:   1.10,
		RecoveryDebtDrain:       15,
		HighMileageWeekMiles:    35,
		UnderfuelMileageMiles:   20,
		LargeDeficitKcal:        750,
		TrendFlatThresholdLbs:   0.1,
		GoalWeightLbs:           160,
		MinLoggedDays:           5,
		LowProteinFloorG:        140,
		CalorieToleranceKcal:    100,
		HighCalorieStdDevKcal:   300,
		MicronutrientFloorRatio: 0.80,
		VolumeDropRatio:         0.20,
		RegressionTolerance:     0.05,
		CalorieSpikeKcal:        3000,
		LongRunMiles:            15,
		MaxRunGapDays:           2,
		PriorityMuscleGroups:    []string{"Glutes", "Hamstrings", "Quads", "Abs"},
		MicronutrientTargets: map[string]float64{
			"vitamin_d":   15,
			"vitamin_c":   90,
			"vitamin_b12": 2.4,
			"calcium":     1000,
			"iron":        8,
			"magnesium":   420,
			"potassium":   3400,
			"zinc":        11,
			"omega_3":     1.6,
			"folate":      400,
		},
	}
}

// Merge returns p with every zero-valued field filled from defaults. Empty
// muscle group and micronutrient settings also take the defaults.
func (p Policy) Merge(defaults Policy) Policy {
	orF := func(v, d float64) float64 {
		if v == 0 {
			return d
		}
		return v
	}
	orI := func(v, d int) int {
		if v == 0 {
			return d
		}
		return v
	}

	out := p
	out.OverreachMileageRatio = orF(p.OverreachMileageRatio, defaults.OverreachMileageRatio)
	out.RecoveryDebtDrain = orF(p.RecoveryDebtDrain, defaults.RecoveryDebtDrain)
	out.HighMileageWeekMiles = orF(p.HighMileageWeekMiles, defaults.HighMileageWeekMiles)
	out.UnderfuelMileageMiles = orF(p.UnderfuelMileageMiles, defaults.UnderfuelMileageMiles)
	out.LargeDeficitKcal = orF(p.LargeDeficitKcal, defaults.LargeDeficitKcal)
	out.TrendFlatThresholdLbs = orF(p.TrendFlatThresholdLbs, defaults.TrendFlatThresholdLbs)
	out.GoalWeightLbs = orF(p.GoalWeightLbs, defaults.GoalWeightLbs)
	out.MinLoggedDays = orI(p.MinLoggedDays, defaults.MinLoggedDays)
	out.LowProteinFloorG = orF(p.LowProteinFloorG, defaults.LowProteinFloorG)
	out.CalorieToleranceKcal = orF(p.CalorieToleranceKcal, defaults.CalorieToleranceKcal)
	out.HighCalorieStdDevKcal = orF(p.HighCalorieStdDevKcal, defaults.HighCalorieStdDevKcal)
	out.MicronutrientFloorRatio = orF(p.MicronutrientFloorRatio, defaults.MicronutrientFloorRatio)
	out.VolumeDropRatio = orF(p.VolumeDropRatio, defaults.VolumeDropRatio)
	out.RegressionTolerance = orF(p.RegressionTolerance, defaults.RegressionTolerance)
	out.CalorieSpikeKcal = orF(p.CalorieSpikeKcal, defaults.CalorieSpikeKcal)
	out.LongRunMiles = orF(p.LongRunMiles, defaults.LongRunMiles)
	out.MaxRunGapDays = orI(p.MaxRunGapDays, defaults.MaxRunGapDays)
	if len(p.PriorityMuscleGroups) == 0 {
		out.PriorityMuscleGroups = defaults.PriorityMuscleGroups
	}
	if len(p.MicronutrientTargets) == 0 {
		out.MicronutrientTargets = defaults.MicronutrientTargets
	}
	return out
}
