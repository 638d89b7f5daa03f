package testinternals

import (
	"time"
)

// WeekStart is the Monday of the standard fixture week.
var WeekStart = time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)

// Internals is a coherent pair of exports covering the fixture week and its
// 28-day baseline:
//   - runs Mon/Wed/Fri/Sun, 40 mi per baseline week at 8:30 and 150 bpm,
//     50 mi in the fixture week at 8:15 and 148 bpm
//   - 1800 kcal / 150 g protein / 150 g carbs logged every day against a
//     1800 kcal / 150 g / 160 g target, expenditure 2300 kcal
//   - trend weight dropping 0.1 lb per day from 190 lb
//   - hamstrings trained only in the baseline, squat PR in the fixture week
type Internals struct {
	WeekStart     time.Time
	NutritionXLSX []byte
	ActivityCSV   []byte
}

func NewTestingInternals() *Internals {
	nutrition, err := Workbook(WeekSheets(WeekStart)...)
	if err != nil {
		panic(err)
	}
	return &Internals{
		WeekStart:     WeekStart,
		NutritionXLSX: nutrition,
		ActivityCSV:   ActivityCSV(WeekRuns(WeekStart)),
	}
}

// WeekRuns builds the run log of the fixture week and its baseline.
func WeekRuns(weekStart time.Time) []ActivityRow {
	var rows []ActivityRow
	for w := 4; w >= 1; w-- {
		monday := weekStart.AddDate(0, 0, -7*w)
		rows = append(rows,
			Run(monday, 8, "8:30", 150),
			Run(monday.AddDate(0, 0, 2), 8, "8:30", 150),
			Run(monday.AddDate(0, 0, 4), 10, "8:30", 150),
			Run(monday.AddDate(0, 0, 6), 14, "8:30", 150),
		)
	}
	rows = append(rows,
		Run(weekStart, 12, "8:15", 148),
		Run(weekStart.AddDate(0, 0, 2), 12, "8:15", 148),
		Run(weekStart.AddDate(0, 0, 4), 12, "8:15", 148),
		Run(weekStart.AddDate(0, 0, 6), 14, "8:15", 148),
	)
	return rows
}

// WeekSheets builds every nutrition sheet of the fixture week and its baseline.
// Dates alternate between native date cells and M/D/YYYY text.
func WeekSheets(weekStart time.Time) []Sheet {
	first := weekStart.AddDate(0, 0, -28)
	dateCell := func(d time.Time, i int) any {
		if i%2 == 0 {
			return d
		}
		return d.Format("1/2/2006")
	}

	macros := Sheet{
		Name:   "Calories & Macros",
		Header: []string{"Date", "Calories (kcal)", "Protein (g)", "Fat (g)", "Carbs (g)", "Fiber (g)"},
	}
	expenditure := Sheet{Name: "Expenditure", Header: []string{"Date", "Expenditure (kcal)"}}
	trend := Sheet{Name: "Weight Trend", Header: []string{"Date", "Trend Weight (lbs)"}}
	scale := Sheet{Name: "Scale Weight", Header: []string{"Date", "Weight (lbs)", "Body Fat %"}}
	micros := Sheet{Name: "Micronutrients", Header: []string{"Date", "Vitamin D (mcg)", "Potassium (mg)"}}
	muscles := Sheet{Name: "Muscle Groups - Sets", Header: []string{"Date", "Glutes", "Quads", "Hamstrings", "Chest"}}
	volume := Sheet{Name: "Exercises - Total Volume", Header: []string{"Date", "Squat", "Bench Press"}}
	heaviest := Sheet{Name: "Exercises - Heaviest Weight", Header: []string{"Date", "Squat", "Bench Press"}}

	for i := 0; i < 35; i++ {
		d := first.AddDate(0, 0, i)
		inWeek := !d.Before(weekStart)

		macros.Rows = append(macros.Rows, []any{dateCell(d, i), 1800, 150, 50, 150, 25})
		expenditure.Rows = append(expenditure.Rows, []any{dateCell(d, i), 2300})
		trend.Rows = append(trend.Rows, []any{dateCell(d, i), 190 - 0.1*float64(i)})
		scale.Rows = append(scale.Rows, []any{dateCell(d, i), 190.5 - 0.1*float64(i), 20})
		micros.Rows = append(micros.Rows, []any{dateCell(d, i), 10, 3500})

		switch d.Weekday() {
		case time.Tuesday:
			hamstrings := any(4)
			if inWeek {
				hamstrings = 0
			}
			muscles.Rows = append(muscles.Rows, []any{dateCell(d, i), 6, 6, hamstrings, 0})
			squatVolume, squatTop := 3000, 225
			if inWeek {
				squatVolume, squatTop = 3500, 235
			}
			volume.Rows = append(volume.Rows, []any{dateCell(d, i), squatVolume, nil})
			heaviest.Rows = append(heaviest.Rows, []any{dateCell(d, i), squatTop, nil})
		case time.Thursday:
			muscles.Rows = append(muscles.Rows, []any{dateCell(d, i), 0, 0, 0, 8})
			volume.Rows = append(volume.Rows, []any{dateCell(d, i), nil, 2000})
			heaviest.Rows = append(heaviest.Rows, []any{dateCell(d, i), nil, 155})
		}
	}

	program := Sheet{
		Name:   "Nutrition Program Settings",
		Header: []string{"Date", "Calories (kcal)", "Protein (g)", "Fat (g)", "Carbs (g)", "Expenditure (kcal)"},
		Rows: [][]any{
			{first.AddDate(0, 0, -30), 2000, 140, 60, 200, 2400},
			{first, 1800, 150, 50, 160, 2300},
		},
	}

	return []Sheet{macros, scale, trend, expenditure, program, micros, muscles, volume, heaviest}
}
