package coach

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Phase is a step of the planning conversation.
type Phase int

const (
	PhaseLanding Phase = iota
	PhaseInterview
	PhaseAnalysis
	PhaseProposal
	PhaseTemplate
)

func (p Phase) String() string {
	switch p {
	case PhaseLanding:
		return "landing"
	case PhaseInterview:
		return "interview"
	case PhaseAnalysis:
		return "analysis"
	case PhaseProposal:
		return "proposal"
	case PhaseTemplate:
		return "template"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var MesocycleTypes = []string{
	"Base Build",
	"Strength Block",
	"Peak",
	"Taper",
	"Maintenance",
}

var MesocycleLengths = []int{4, 8, 12, 16}

const (
	minScore = 1
	maxScore = 10
)

// Targets are the daily nutrition targets entered after a strategy check-in.
type Targets struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// Interview holds the subjective inputs of one planning session.
type Interview struct {
	SleepScore  int    `json:"sleep_score"`
	HungerScore int    `json:"hunger_score"`
	RPEScore    int    `json:"rpe_score"`
	Notes       string `json:"notes"`

	MesocycleWeek   int    `json:"mesocycle_week"`
	MesocycleLength int    `json:"mesocycle_length"`
	MesocycleType   string `json:"mesocycle_type"`

	NewTargets   Targets `json:"new_targets"`
	PreviousPlan string  `json:"previous_plan"`
	// UseNewMeals lets the template go beyond the standard meal rotation.
	UseNewMeals bool `json:"use_new_meals"`
}

func NewInterview() Interview {
	return Interview{
		SleepScore:      5,
		HungerScore:     5,
		RPEScore:        5,
		MesocycleWeek:   1,
		MesocycleLength: 8,
		MesocycleType:   MesocycleTypes[0],
	}
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate reports every invalid field at once.
func (iv Interview) Validate() error {
	var err error
	score := func(field string, v int) {
		if v < minScore || v > maxScore {
			err = multierr.Append(err, &ValidationError{field, fmt.Sprintf("%d is outside %d-%d", v, minScore, maxScore)})
		}
	}
	score("sleep_score", iv.SleepScore)
	score("hunger_score", iv.HungerScore)
	score("rpe_score", iv.RPEScore)

	if !containsInt(MesocycleLengths, iv.MesocycleLength) {
		err = multierr.Append(err, &ValidationError{"mesocycle_length", fmt.Sprintf("%d is not one of %v", iv.MesocycleLength, MesocycleLengths)})
	}
	if iv.MesocycleWeek < 1 || (iv.MesocycleLength > 0 && iv.MesocycleWeek > iv.MesocycleLength) {
		err = multierr.Append(err, &ValidationError{"mesocycle_week", fmt.Sprintf("%d is outside 1-%d", iv.MesocycleWeek, iv.MesocycleLength)})
	}
	if !containsFold(MesocycleTypes, iv.MesocycleType) {
		err = multierr.Append(err, &ValidationError{"mesocycle_type", fmt.Sprintf("%q is not one of %s", iv.MesocycleType, strings.Join(MesocycleTypes, ", "))})
	}

	targets := []struct {
		field string
		value float64
	}{
		{"new_targets.calories", iv.NewTargets.Calories},
		{"new_targets.protein_g", iv.NewTargets.ProteinG},
		{"new_targets.carbs_g", iv.NewTargets.CarbsG},
		{"new_targets.fat_g", iv.NewTargets.FatG},
	}
	for _, t := range targets {
		if t.value < 0 {
			err = multierr.Append(err, &ValidationError{t.field, "must not be negative"})
		}
	}

	return err
}

// HasTargets reports whether new calorie targets were entered.
func (iv Interview) HasTargets() bool {
	return iv.NewTargets.Calories > 0
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsFold(values []string, v string) bool {
	for _, x := range values {
		if strings.EqualFold(x, strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}
