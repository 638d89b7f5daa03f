package table_test

import (
	"testing"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/table"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC)
}

func TestBuild_SortsAndMergesDuplicateDates(t *testing.T) {
	tbl := table.Build("calories_macros", []string{"calories_kcal", "protein_g"}, []table.Row{
		{Date: day(18), Values: map[string]float64{"calories_kcal": 1800}},
		{Date: day(16).Add(7 * time.Hour), Values: map[string]float64{"calories_kcal": 1500}},
		{Date: day(18), Values: map[string]float64{"protein_g": 150}},
	})

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, day(16), tbl.Rows[0].Date)
	assert.Equal(t, day(18), tbl.Rows[1].Date)

	cal, ok := tbl.Rows[1].Get("calories_kcal")
	require.True(t, ok)
	assert.Equal(t, 1800.0, cal)
	prot, ok := tbl.Rows[1].Get("protein_g")
	require.True(t, ok)
	assert.Equal(t, 150.0, prot)

	_, ok = tbl.Rows[0].Get("protein_g")
	assert.False(t, ok, "missing cell must stay missing, not zero")
}

func TestTable_RangeAndBefore(t *testing.T) {
	var rows []table.Row
	for d := 1; d <= 28; d++ {
		rows = append(rows, table.Row{Date: day(d), Values: map[string]float64{"v": float64(d)}})
	}
	tbl := table.Build("t", []string{"v"}, rows)

	in := tbl.Range(day(16), day(22))
	require.Len(t, in, 7)
	assert.Equal(t, day(16), in[0].Date)
	assert.Equal(t, day(22), in[6].Date)

	assert.Len(t, tbl.Before(day(16)), 15)
	assert.Empty(t, tbl.Range(day(22), day(16)))
	assert.Empty(t, table.Empty("x").Range(day(1), day(28)))

	latest, ok := tbl.Latest()
	require.True(t, ok)
	assert.Equal(t, day(28), latest.Date)

	_, ok = table.Empty("x").Latest()
	assert.False(t, ok)
}

func TestValues_SkipsMissing(t *testing.T) {
	rows := []table.Row{
		{Date: day(1), Values: map[string]float64{"a": 1}},
		{Date: day(2), Values: map[string]float64{}},
		{Date: day(3), Values: map[string]float64{"a": 0}},
	}
	assert.Equal(t, []float64{1, 0}, table.Values(rows, "a"))
	assert.Nil(t, table.Values(rows, ""))
}

func TestCanonicalColumn(t *testing.T) {
	cases := map[string]string{
		"Calories (kcal)":      "calories_kcal",
		"Protein (g)":          "protein_g",
		"Body Fat %":           "body_fat_pct",
		"Vitamin B-12 (mcg)":   "vitamin_b_12_mcg",
		"Omega-3 (g/day)":      "omega_3_g_per_day",
		"  Trend Weight (lbs)": "trend_weight_lbs",
	}
	for in, want := range cases {
		assert.Equal(t, want, table.CanonicalColumn(in), in)
	}
}

func TestKeywords_Find(t *testing.T) {
	kw := table.DefaultKeywords()
	columns := []string{"expenditure_kcal", "Energy", "Calories (kcal)", "protein_g", "fat_g", "carbs_g"}

	col, ok := kw.Find(columns, table.ConceptCalories)
	require.True(t, ok)
	// "calorie" is tried before "kcal", so the first keyword wins over column order
	assert.Equal(t, "Calories (kcal)", col)

	col, ok = kw.Find(columns, table.ConceptExpenditure)
	require.True(t, ok)
	assert.Equal(t, "expenditure_kcal", col)

	_, ok = kw.Find(columns, table.ConceptFiber)
	assert.False(t, ok)

	custom := kw.With(map[string][]string{table.ConceptCalories: {"energy"}})
	col, ok = custom.Find(columns, table.ConceptCalories)
	require.True(t, ok)
	assert.Equal(t, "Energy", col)
	// original strategy untouched
	col, _ = kw.Find(columns, table.ConceptCalories)
	assert.Equal(t, "Calories (kcal)", col)
}

func TestParseNumber(t *testing.T) {
	ok := map[string]float64{
		"1377":    1377,
		" 153.5 ": 153.5,
		"1,234":   1234,
		"-0.4":    -0.4,
		"2.5e2":   250,
		"0":       0,
	}
	for in, want := range ok {
		got, present := table.ParseNumber(in)
		require.True(t, present, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "--", "n/a", "NaN", "Inf", "12 kg"} {
		_, present := table.ParseNumber(in)
		assert.False(t, present, in)
	}
}
