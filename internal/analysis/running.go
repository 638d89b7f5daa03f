package analysis

import (
	"time"

	"github.com/bhackerb/PeakForm-C/internal/source/activity"
	"github.com/bhackerb/PeakForm-C/internal/window"
)

// RunningPeriod summarizes runs of a period as a weekly figure: totals and
// counts of a multi-week period are divided by its number of weeks.
type RunningPeriod struct {
	Start                  time.Time `json:"start"`
	End                    time.Time `json:"end"`
	TotalMiles             float64   `json:"total_miles"`
	RunCount               float64   `json:"run_count"`
	TotalElevationGainFt   float64   `json:"total_elevation_gain_ft"`
	LongestRunMiles        float64   `json:"longest_run_miles"`
	FlatAvgPaceMinPerMi    *float64  `json:"flat_avg_pace_min_per_mi"`
	FlatAvgHR              *float64  `json:"flat_avg_hr"`
	FlatAvgCadence         *float64  `json:"flat_avg_cadence"`
	FlatAvgGroundContactMs *float64  `json:"flat_avg_ground_contact_ms"`
	FlatAvgAerobicTE       *float64  `json:"flat_avg_aerobic_te"`
	TrailRunCount          float64   `json:"trail_run_count"`
	TrailTotalMiles        float64   `json:"trail_total_miles"`
	TrailTotalElevationFt  float64   `json:"trail_total_elevation_ft"`
	AvgBodyBatteryDrain    *float64  `json:"avg_body_battery_drain"`
	MaxBodyBatteryDrain    *float64  `json:"max_body_battery_drain"`
}

type Running struct {
	Current  RunningPeriod `json:"current"`
	Baseline RunningPeriod `json:"baseline"`

	MileageChangePct    *float64 `json:"mileage_change_pct"`
	PaceChange          *float64 `json:"pace_change"`
	HRChange            *float64 `json:"hr_change"`
	CadenceChange       *float64 `json:"cadence_change"`
	GroundContactChange *float64 `json:"ground_contact_change_ms"`

	Overreach         bool `json:"overreach"`
	RecoveryDebt      bool `json:"recovery_debt"`
	AerobicAdaptation bool `json:"aerobic_adaptation"`
	Fatigue           bool `json:"fatigue"`
}

// HREfficiency is flat-run heart rate per minute of pace.
func (p RunningPeriod) HREfficiency() *float64 {
	return ratio(p.FlatAvgHR, p.FlatAvgPaceMinPerMi)
}

// AnalyzeRunning summarizes runs in w against the 28-day baseline.
func AnalyzeRunning(log *activity.Log, w window.Window, p Policy) Running {
	baseline := w.Baseline()
	r := Running{
		Current:  summarizeRuns(log.Runs(w), w),
		Baseline: summarizeRuns(log.Runs(baseline), baseline),
	}

	cur, base := r.Current, r.Baseline
	if base.TotalMiles > 0 {
		r.MileageChangePct = ptr((cur.TotalMiles - base.TotalMiles) / base.TotalMiles)
		r.Overreach = cur.TotalMiles > base.TotalMiles*p.OverreachMileageRatio
	}

	r.PaceChange = diff(cur.FlatAvgPaceMinPerMi, base.FlatAvgPaceMinPerMi)
	r.HRChange = diff(cur.FlatAvgHR, base.FlatAvgHR)
	r.CadenceChange = diff(cur.FlatAvgCadence, base.FlatAvgCadence)
	r.GroundContactChange = diff(cur.FlatAvgGroundContactMs, base.FlatAvgGroundContactMs)

	r.RecoveryDebt = cur.AvgBodyBatteryDrain != nil && *cur.AvgBodyBatteryDrain > p.RecoveryDebtDrain

	if r.PaceChange != nil && r.HRChange != nil {
		// pace is minutes per mile: negative change is faster
		r.AerobicAdaptation = *r.PaceChange < 0 && *r.HRChange <= 0
		r.Fatigue = *r.PaceChange > 0 && *r.HRChange > 0
	}

	return r
}

func summarizeRuns(runs []activity.Activity, w window.Window) RunningPeriod {
	weeks := w.Weeks()
	period := RunningPeriod{Start: w.Start, End: w.End}
	if weeks <= 0 {
		return period
	}

	var (
		miles, elevation, longest  float64
		trailMiles, trailElevation float64
		trailCount                 int
		paces, hrs, cadences       []float64
		groundContacts, aerobicTEs []float64
		drains                     []float64
	)
	for _, run := range runs {
		m := run.Miles()
		miles += m
		if m > longest {
			longest = m
		}
		if run.ElevationGainFt != nil {
			elevation += *run.ElevationGainFt
		}
		if run.BodyBatteryDrain != nil {
			drains = append(drains, *run.BodyBatteryDrain)
		}

		if run.IsTrail {
			trailCount++
			trailMiles += m
			if run.ElevationGainFt != nil {
				trailElevation += *run.ElevationGainFt
			}
			continue
		}

		if run.AvgPaceMinPerMi != nil && isFinite(*run.AvgPaceMinPerMi) {
			paces = append(paces, *run.AvgPaceMinPerMi)
		}
		if run.AvgHR != nil {
			hrs = append(hrs, *run.AvgHR)
		}
		if run.AvgCadence != nil {
			cadences = append(cadences, *run.AvgCadence)
		}
		if run.GroundContactMs != nil {
			groundContacts = append(groundContacts, *run.GroundContactMs)
		}
		if run.AerobicTE != nil {
			aerobicTEs = append(aerobicTEs, *run.AerobicTE)
		}
	}

	period.TotalMiles = miles / weeks
	period.RunCount = float64(len(runs)) / weeks
	period.TotalElevationGainFt = elevation / weeks
	period.LongestRunMiles = longest
	period.TrailRunCount = float64(trailCount) / weeks
	period.TrailTotalMiles = trailMiles / weeks
	period.TrailTotalElevationFt = trailElevation / weeks
	period.FlatAvgPaceMinPerMi = mean(paces)
	period.FlatAvgHR = mean(hrs)
	period.FlatAvgCadence = mean(cadences)
	period.FlatAvgGroundContactMs = mean(groundContacts)
	period.FlatAvgAerobicTE = mean(aerobicTEs)
	period.AvgBodyBatteryDrain = mean(drains)
	period.MaxBodyBatteryDrain = maxOf(drains)

	return period
}
