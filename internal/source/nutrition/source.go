package nutrition

import (
	"github.com/bhackerb/PeakForm-C/internal/table"
)

// Sheet names as exported by MacroFactor.
const (
	SheetCaloriesMacros   = "Calories & Macros"
	SheetScaleWeight      = "Scale Weight"
	SheetWeightTrend      = "Weight Trend"
	SheetExpenditure      = "Expenditure"
	SheetProgramSettings  = "Nutrition Program Settings"
	SheetMicronutrients   = "Micronutrients"
	SheetMuscleGroupSets  = "Muscle Groups - Sets"
	SheetExerciseVolume   = "Exercises - Total Volume"
	SheetExerciseHeaviest = "Exercises - Heaviest Weight"
)

// Sheets lists every sheet the loader reads, in export order.
var Sheets = []string{
	SheetCaloriesMacros,
	SheetScaleWeight,
	SheetWeightTrend,
	SheetExpenditure,
	SheetProgramSettings,
	SheetMicronutrients,
	SheetMuscleGroupSets,
	SheetExerciseVolume,
	SheetExerciseHeaviest,
}

// entity sheets keep their header text: columns are muscle groups or exercises
var entitySheets = map[string]bool{
	SheetMuscleGroupSets:  true,
	SheetExerciseVolume:   true,
	SheetExerciseHeaviest: true,
}

// Source holds every table of a nutrition export. Missing sheets are empty tables.
type Source struct {
	CaloriesMacros   *table.Table
	ScaleWeight      *table.Table
	WeightTrend      *table.Table
	Expenditure      *table.Table
	Targets          *table.Table
	Micronutrients   *table.Table
	MuscleGroupSets  *table.Table
	ExerciseVolume   *table.Table
	ExerciseHeaviest *table.Table

	Keywords table.Keywords
}

// Targets are the active calorie and macro targets. Absent values are nil.
type Targets struct {
	Calories    *float64 `json:"calories"`
	ProteinG    *float64 `json:"protein_g"`
	CarbsG      *float64 `json:"carbs_g"`
	FatG        *float64 `json:"fat_g"`
	Expenditure *float64 `json:"expenditure_kcal"`
}

// CurrentTargets returns the targets of the most recent program settings row.
// The latest row applies to the whole analysis, regardless of the window.
func (s *Source) CurrentTargets() Targets {
	var targets Targets
	latest, ok := s.Targets.Latest()
	if !ok {
		return targets
	}

	lookup := func(concept string) *float64 {
		col, ok := s.Targets.Find(s.keywords(), concept)
		if !ok {
			return nil
		}
		v, ok := latest.Get(col)
		if !ok {
			return nil
		}
		return &v
	}

	targets.Calories = lookup(table.ConceptCalories)
	targets.ProteinG = lookup(table.ConceptProtein)
	targets.CarbsG = lookup(table.ConceptCarbs)
	targets.FatG = lookup(table.ConceptFat)
	targets.Expenditure = lookup(table.ConceptExpenditure)

	return targets
}

// Tables returns the tables keyed by sheet name.
func (s *Source) Tables() map[string]*table.Table {
	return map[string]*table.Table{
		SheetCaloriesMacros:   s.CaloriesMacros,
		SheetScaleWeight:      s.ScaleWeight,
		SheetWeightTrend:      s.WeightTrend,
		SheetExpenditure:      s.Expenditure,
		SheetProgramSettings:  s.Targets,
		SheetMicronutrients:   s.Micronutrients,
		SheetMuscleGroupSets:  s.MuscleGroupSets,
		SheetExerciseVolume:   s.ExerciseVolume,
		SheetExerciseHeaviest: s.ExerciseHeaviest,
	}
}

// FromTables rebuilds a source from tables keyed by sheet name.
func FromTables(tables map[string]*table.Table, kw table.Keywords) *Source {
	get := func(name string) *table.Table {
		if t, ok := tables[name]; ok && t != nil {
			return t
		}
		return table.Empty(name)
	}
	return &Source{
		CaloriesMacros:   get(SheetCaloriesMacros),
		ScaleWeight:      get(SheetScaleWeight),
		WeightTrend:      get(SheetWeightTrend),
		Expenditure:      get(SheetExpenditure),
		Targets:          get(SheetProgramSettings),
		Micronutrients:   get(SheetMicronutrients),
		MuscleGroupSets:  get(SheetMuscleGroupSets),
		ExerciseVolume:   get(SheetExerciseVolume),
		ExerciseHeaviest: get(SheetExerciseHeaviest),
		Keywords:         kw,
	}
}

func (s *Source) keywords() table.Keywords {
	if s.Keywords == nil {
		return table.DefaultKeywords()
	}
	return s.Keywords
}

// Find resolves a concept column in t using the source's keyword strategy.
func (s *Source) Find(t *table.Table, concept string) (string, bool) {
	return t.Find(s.keywords(), concept)
}
