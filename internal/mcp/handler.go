package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bhackerb/PeakForm-C/internal/coach"
	"github.com/bhackerb/PeakForm-C/internal/pipeline"
	"github.com/bhackerb/PeakForm-C/internal/signals"
	"github.com/bhackerb/PeakForm-C/internal/window"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler handles MCP tool requests: parses input, calls the service, formats the MCP result.
type Handler struct {
	service analysisService
}

func NewHandler(service analysisService) *Handler {
	return &Handler{
		service: service,
	}
}

// WeekInput is the input of analyze_week and weekly_signals.
type WeekInput struct {
	NutritionPath string `json:"nutrition_path" jsonschema:"Path to the MacroFactor nutrition XLSX export"`
	ActivityPath  string `json:"activity_path,omitempty" jsonschema:"Path to the Garmin Connect activities CSV export"`
	FITDir        string `json:"fit_dir,omitempty" jsonschema:"Directory of Garmin .fit activity files to add to the activity log"`
	Week          string `json:"week,omitempty" jsonschema:"Any date (YYYY-MM-DD) inside the week to analyze; defaults to the current week"`
}

// WeeklySignals is the weekly_signals response body.
type WeeklySignals struct {
	Window   window.Window    `json:"window"`
	Signals  []signals.Signal `json:"signals"`
	Coverage []string         `json:"coverage_warnings"`
}

// AnalyzeWeekTool returns the MCP tool handler for analyze_week.
func (h *Handler) AnalyzeWeekTool() func(context.Context, *mcp.CallToolRequest, WeekInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in WeekInput) (*mcp.CallToolResult, any, error) {
		res, err := h.service.AnalyzeWeek(ctx, in)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return textResult(coach.Digest(res)), nil, nil
	}
}

// WeeklySignalsTool returns the MCP tool handler for weekly_signals.
func (h *Handler) WeeklySignalsTool() func(context.Context, *mcp.CallToolRequest, WeekInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in WeekInput) (*mcp.CallToolResult, any, error) {
		res, err := h.service.AnalyzeWeek(ctx, in)
		if err != nil {
			return errorResult(err), nil, nil
		}
		raw, err := json.MarshalIndent(weeklySignals(res), "", "  ")
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Error encoding response: " + err.Error()}},
				IsError: true,
			}, nil, nil
		}
		return textResult(string(raw)), nil, nil
	}
}

func weeklySignals(res *pipeline.Result) WeeklySignals {
	ws := WeeklySignals{
		Window:   res.Window,
		Signals:  res.Signals,
		Coverage: res.Coverage,
	}
	if ws.Signals == nil {
		ws.Signals = []signals.Signal{}
	}
	if ws.Coverage == nil {
		ws.Coverage = []string{}
	}
	return ws
}

func errorResult(err error) *mcp.CallToolResult {
	var weekErr *window.InvalidWeekError
	prefix := "Error analyzing week: "
	switch {
	case errors.As(err, &weekErr):
		prefix = "Invalid week: "
	case errors.Is(err, ErrNoNutritionPath):
		prefix = "Invalid input: "
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: prefix + err.Error()}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
