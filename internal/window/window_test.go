package window_test

import (
	"errors"
	"testing"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/window"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_ExplicitDate(t *testing.T) {
	w, err := window.Resolve("2026-02-18", time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2026, 2, 22, 0, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, 7, w.Days())
}

func TestResolve_EveryWeekdayMapsToMonday(t *testing.T) {
	for d := 16; d <= 22; d++ {
		w := window.ForDate(time.Date(2026, 2, d, 15, 30, 0, 0, time.UTC))
		assert.Equal(t, time.Monday, w.Start.Weekday())
		assert.Equal(t, time.Sunday, w.End.Weekday())
		assert.Equal(t, 16, w.Start.Day())
		assert.Equal(t, 6, int(w.End.Sub(w.Start).Hours()/24))
	}
}

func TestResolve_BlankUsesNow(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) // Sunday
	w, err := window.Resolve("  ", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), w.End)
}

func TestResolve_InvalidWeek(t *testing.T) {
	for _, in := range []string{"2026-13-01", "02/18/2026", "last week"} {
		_, err := window.Resolve(in, time.Now())
		require.Error(t, err, in)

		var iwErr *window.InvalidWeekError
		require.True(t, errors.As(err, &iwErr), in)
		assert.Equal(t, in, iwErr.Value)
		assert.Contains(t, err.Error(), "YYYY-MM-DD")
	}
}

func TestBaseline(t *testing.T) {
	w := window.ForDate(time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC))
	b := w.Baseline()

	assert.Equal(t, time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC), b.Start)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), b.End)
	assert.Equal(t, window.BaselineDays, b.Days())
	assert.Equal(t, 4.0, b.Weeks())

	// disjoint and contiguous
	assert.False(t, b.Contains(w.Start))
	assert.True(t, b.Contains(w.Start.AddDate(0, 0, -1)))
	assert.True(t, w.Contains(w.End))
	assert.False(t, w.Contains(w.End.AddDate(0, 0, 1)))
}
