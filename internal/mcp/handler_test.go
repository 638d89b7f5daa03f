package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/pipeline"
	"github.com/bhackerb/PeakForm-C/internal/signals"
	"github.com/bhackerb/PeakForm-C/internal/window"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// mockAnalysisService implements analysisService for tests.
type mockAnalysisService struct {
	result *pipeline.Result
	err    error
	inputs []WeekInput
}

func (m *mockAnalysisService) AnalyzeWeek(_ context.Context, in WeekInput) (*pipeline.Result, error) {
	m.inputs = append(m.inputs, in)
	return m.result, m.err
}

func fixtureResult() *pipeline.Result {
	start := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)
	return &pipeline.Result{
		Window:   window.ForDate(start),
		Baseline: window.Baseline(start),
		Signals: []signals.Signal{
			{Category: signals.CategoryOverreach, Severity: signals.SeverityWarning, Icon: "⚠️", Message: "Mileage jumped 25%"},
		},
	}
}

func toolText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected 1 content, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want *mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestHandler_AnalyzeWeekTool(t *testing.T) {
	t.Run("returns_digest", func(t *testing.T) {
		svc := &mockAnalysisService{result: fixtureResult()}
		fn := NewHandler(svc).AnalyzeWeekTool()
		in := WeekInput{NutritionPath: "/exports/mf.xlsx", Week: "2026-02-18"}
		res, _, err := fn(context.Background(), &mcp.CallToolRequest{}, in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.IsError {
			t.Fatalf("unexpected IsError: %s", toolText(t, res))
		}
		text := toolText(t, res)
		if !strings.HasPrefix(text, "PeakForm weekly digest 2026-02-16") {
			t.Fatalf("unexpected digest header: %q", text)
		}
		if !strings.Contains(text, "Mileage jumped 25%") {
			t.Fatalf("digest misses the signal: %q", text)
		}
		if len(svc.inputs) != 1 || svc.inputs[0] != in {
			t.Fatalf("service called with %+v", svc.inputs)
		}
	})

	t.Run("invalid_week", func(t *testing.T) {
		svc := &mockAnalysisService{err: &window.InvalidWeekError{Value: "soon"}}
		fn := NewHandler(svc).AnalyzeWeekTool()
		res, _, err := fn(context.Background(), &mcp.CallToolRequest{}, WeekInput{NutritionPath: "x", Week: "soon"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsError {
			t.Fatalf("expected IsError")
		}
		want := "Invalid week: invalid week value 'soon': expected ISO date format YYYY-MM-DD"
		if got := toolText(t, res); got != want {
			t.Fatalf("content text = %q, want %q", got, want)
		}
	})

	t.Run("missing_nutrition_path", func(t *testing.T) {
		fn := NewHandler(&mockAnalysisService{err: ErrNoNutritionPath}).AnalyzeWeekTool()
		res, _, _ := fn(context.Background(), &mcp.CallToolRequest{}, WeekInput{})
		if !res.IsError {
			t.Fatalf("expected IsError")
		}
		if got := toolText(t, res); got != "Invalid input: nutrition_path is required" {
			t.Fatalf("content text = %q", got)
		}
	})

	t.Run("load_failure", func(t *testing.T) {
		fn := NewHandler(&mockAnalysisService{err: errors.New("load exports: no such file")}).AnalyzeWeekTool()
		res, _, _ := fn(context.Background(), &mcp.CallToolRequest{}, WeekInput{NutritionPath: "missing.xlsx"})
		if !res.IsError {
			t.Fatalf("expected IsError")
		}
		if got := toolText(t, res); got != "Error analyzing week: load exports: no such file" {
			t.Fatalf("content text = %q", got)
		}
	})
}

func TestHandler_WeeklySignalsTool(t *testing.T) {
	t.Run("returns_json", func(t *testing.T) {
		fn := NewHandler(&mockAnalysisService{result: fixtureResult()}).WeeklySignalsTool()
		res, _, err := fn(context.Background(), &mcp.CallToolRequest{}, WeekInput{NutritionPath: "mf.xlsx"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.IsError {
			t.Fatalf("unexpected IsError: %s", toolText(t, res))
		}

		var got WeeklySignals
		if err := json.Unmarshal([]byte(toolText(t, res)), &got); err != nil {
			t.Fatalf("response is not json: %v", err)
		}
		if len(got.Signals) != 1 || got.Signals[0].Category != signals.CategoryOverreach {
			t.Fatalf("signals = %+v", got.Signals)
		}
		if got.Coverage == nil || len(got.Coverage) != 0 {
			t.Fatalf("coverage = %#v, want empty list", got.Coverage)
		}
		if !got.Window.Start.Equal(time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("window = %s", got.Window)
		}
	})

	t.Run("empty_lists_are_not_null", func(t *testing.T) {
		r := fixtureResult()
		r.Signals = nil
		fn := NewHandler(&mockAnalysisService{result: r}).WeeklySignalsTool()
		res, _, _ := fn(context.Background(), &mcp.CallToolRequest{}, WeekInput{NutritionPath: "mf.xlsx"})
		text := toolText(t, res)
		if !strings.Contains(text, `"signals": []`) || !strings.Contains(text, `"coverage_warnings": []`) {
			t.Fatalf("unexpected body: %s", text)
		}
	})

	t.Run("returns_error", func(t *testing.T) {
		fn := NewHandler(&mockAnalysisService{err: errors.New("boom")}).WeeklySignalsTool()
		res, _, _ := fn(context.Background(), &mcp.CallToolRequest{}, WeekInput{NutritionPath: "mf.xlsx"})
		if !res.IsError {
			t.Fatalf("expected IsError")
		}
	})
}
