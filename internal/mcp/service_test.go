package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/analysis"
	"github.com/bhackerb/PeakForm-C/internal/signals"
	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/internal/testinternals"
	"github.com/bhackerb/PeakForm-C/internal/window"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExports(t *testing.T) WeekInput {
	t.Helper()
	ti := testinternals.NewTestingInternals()
	dir := t.TempDir()
	in := WeekInput{
		NutritionPath: filepath.Join(dir, "macrofactor.xlsx"),
		ActivityPath:  filepath.Join(dir, "garmin.csv"),
	}
	require.NoError(t, os.WriteFile(in.NutritionPath, ti.NutritionXLSX, 0o600))
	require.NoError(t, os.WriteFile(in.ActivityPath, ti.ActivityCSV, 0o600))
	return in
}

func fixedNow() time.Time {
	return time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC)
}

func TestAnalysisService_AnalyzeWeek(t *testing.T) {
	svc := NewAnalysisService(table.DefaultKeywords(), analysis.Policy{}, fixedNow)
	in := writeExports(t)

	res, err := svc.AnalyzeWeek(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, testinternals.WeekStart, res.Window.Start)
	assert.Equal(t, 50.0, res.Running.Current.TotalMiles)
	require.NotEmpty(t, res.Signals)
	assert.Equal(t, signals.CategoryOverreach, res.Signals[0].Category)

	in.Week = "2026-02-10"
	res, err = svc.AnalyzeWeek(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, testinternals.WeekStart.AddDate(0, 0, -7), res.Window.Start)
}

func TestAnalysisService_Errors(t *testing.T) {
	svc := NewAnalysisService(nil, analysis.Policy{}, fixedNow)

	_, err := svc.AnalyzeWeek(context.Background(), WeekInput{})
	assert.ErrorIs(t, err, ErrNoNutritionPath)

	in := writeExports(t)
	in.Week = "2026/02/18"
	_, err = svc.AnalyzeWeek(context.Background(), in)
	var weekErr *window.InvalidWeekError
	assert.True(t, errors.As(err, &weekErr))

	in.Week = ""
	in.NutritionPath = filepath.Join(t.TempDir(), "missing.xlsx")
	_, err = svc.AnalyzeWeek(context.Background(), in)
	assert.ErrorIs(t, err, table.ErrSourceFormat)
}

func TestServer_ToolsOverInMemoryTransport(t *testing.T) {
	ctx := context.Background()
	server := NewServer(NewAnalysisService(nil, analysis.Policy{}, fixedNow), "test")
	client := mcp.NewClient(&mcp.Implementation{Name: "peakform-test", Version: "test"}, nil)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, clientSession.Close())
		_ = serverSession.Wait()
	}()

	tools, err := clientSession.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"analyze_week", "weekly_signals"}, names)

	in := writeExports(t)
	res, err := clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name: "weekly_signals",
		Arguments: map[string]any{
			"nutrition_path": in.NutritionPath,
			"activity_path":  in.ActivityPath,
			"week":           "2026-02-18",
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var body WeeklySignals
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &body))
	assert.Equal(t, testinternals.WeekStart, body.Window.Start.UTC())
	assert.NotEmpty(t, body.Signals)

	res, err = clientSession.CallTool(ctx, &mcp.CallToolParams{
		Name:      "analyze_week",
		Arguments: map[string]any{"nutrition_path": in.NutritionPath, "week": "tomorrow"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
