package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer builds an MCP server with the weekly analysis tools: analyze_week
// and weekly_signals. Export paths are read from the host running the server.
func NewServer(service analysisService, version string) *mcp.Server {
	h := NewHandler(service)
	s := mcp.NewServer(&mcp.Implementation{
		Name:    "peakform",
		Version: version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "analyze_week",
		Description: "Returns the weekly digest (running, strength, nutrition, body composition, signals and data coverage) for one Monday to Sunday week. Args: nutrition_path (MacroFactor XLSX); optional: activity_path (Garmin CSV), fit_dir, week (YYYY-MM-DD). Use when you need the full picture of a training week.",
	}, h.AnalyzeWeekTool())

	mcp.AddTool(s, &mcp.Tool{
		Name:        "weekly_signals",
		Description: "Returns the coaching signals and data coverage warnings of one week as JSON. Same args as analyze_week. Use when you only need the flagged issues and wins.",
	}, h.WeeklySignalsTool())

	return s
}
