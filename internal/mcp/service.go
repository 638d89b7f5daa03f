package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/analysis"
	"github.com/bhackerb/PeakForm-C/internal/pipeline"
	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var ErrNoNutritionPath = errors.New("nutrition_path is required")

// analysisService runs the weekly analysis for a set of export paths.
// Used by Handler for testability.
type analysisService interface {
	AnalyzeWeek(ctx context.Context, in WeekInput) (*pipeline.Result, error)
}

// AnalysisService loads exports from the local disk and runs the pipeline.
type AnalysisService struct {
	keywords table.Keywords
	policy   analysis.Policy
	now      func() time.Time
}

// NewAnalysisService builds an AnalysisService. A nil now uses the wall clock.
func NewAnalysisService(keywords table.Keywords, policy analysis.Policy, now func() time.Time) *AnalysisService {
	if now == nil {
		now = time.Now
	}
	return &AnalysisService{
		keywords: keywords,
		policy:   policy.Merge(analysis.DefaultPolicy()),
		now:      now,
	}
}

// AnalyzeWeek loads the exports named in in and analyzes the week containing
// in.Week, or the current week when it is empty.
func (s *AnalysisService) AnalyzeWeek(ctx context.Context, in WeekInput) (_ *pipeline.Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "mcp.analyzeWeek")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if strings.TrimSpace(in.NutritionPath) == "" {
		return nil, ErrNoNutritionPath
	}
	span.SetAttributes(attribute.String("week", in.Week))

	res, srcs, err := pipeline.RunFiles(ctx, pipeline.Files{
		Nutrition: in.NutritionPath,
		Activity:  in.ActivityPath,
		FITDir:    in.FITDir,
		Keywords:  s.keywords,
	}, in.Week, s.now(), s.policy)
	if err != nil {
		return nil, err
	}

	log.Debugf("mcp: analyzed %s with %d activities, %d signals", res.Window, srcs.Activities.Len(), len(res.Signals))
	return res, nil
}
