package table

import "strings"

const (
	ConceptCalories    = "calories"
	ConceptProtein     = "protein"
	ConceptCarbs       = "carbs"
	ConceptFat         = "fat"
	ConceptFiber       = "fiber"
	ConceptExpenditure = "expenditure"
	ConceptTrendWeight = "trend_weight"
	ConceptScaleWeight = "scale_weight"
	ConceptBodyFat     = "body_fat"
)

// Keywords maps a concept to an ordered list of case-insensitive substrings.
// The first keyword that matches any column wins; within a keyword, the first
// column in source order wins.
type Keywords map[string][]string

func DefaultKeywords() Keywords {
	return Keywords{
		ConceptCalories:    {"calorie", "kcal", "energy"},
		ConceptProtein:     {"protein"},
		ConceptCarbs:       {"carb"},
		ConceptFat:         {"fat"},
		ConceptFiber:       {"fiber", "fibre"},
		ConceptExpenditure: {"expenditure", "tdee"},
		ConceptTrendWeight: {"trend", "weight"},
		ConceptScaleWeight: {"weight"},
		ConceptBodyFat:     {"body_fat", "fat"},
	}
}

// With returns a copy of k where the given concepts are overridden.
func (k Keywords) With(overrides map[string][]string) Keywords {
	out := make(Keywords, len(k)+len(overrides))
	for c, kws := range k {
		out[c] = kws
	}
	for c, kws := range overrides {
		if len(kws) > 0 {
			out[c] = kws
		}
	}
	return out
}

func (k Keywords) Find(columns []string, concept string) (string, bool) {
	for _, kw := range k[concept] {
		kw = strings.ToLower(kw)
		for _, col := range columns {
			if strings.Contains(strings.ToLower(col), kw) {
				return col, true
			}
		}
	}
	return "", false
}
