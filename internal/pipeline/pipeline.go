package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/analysis"
	"github.com/bhackerb/PeakForm-C/internal/coverage"
	"github.com/bhackerb/PeakForm-C/internal/signals"
	"github.com/bhackerb/PeakForm-C/internal/source/activity"
	"github.com/bhackerb/PeakForm-C/internal/source/nutrition"
	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/internal/telemetry/tracing"
	"github.com/bhackerb/PeakForm-C/internal/window"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Input is one analysis run over already loaded sources.
type Input struct {
	Nutrition  *nutrition.Source
	Activities *activity.Log
	Window     window.Window
	Policy     analysis.Policy
}

// Result holds every analyzer output of one window. It is rebuilt from the
// sources on each run and never mutated afterwards.
type Result struct {
	Window    window.Window      `json:"window"`
	Baseline  window.Window      `json:"baseline"`
	Running   analysis.Running   `json:"running"`
	Strength  analysis.Strength  `json:"strength"`
	Nutrition analysis.Nutrition `json:"nutrition"`
	BodyComp  analysis.BodyComp  `json:"body_comp"`
	Signals   []signals.Signal   `json:"signals"`
	Coverage  []string           `json:"coverage_warnings"`
}

// Run analyzes the sources over in.Window. Running feeds Nutrition with the
// weekly mileage, Nutrition feeds BodyComp with the average daily deficit.
func Run(ctx context.Context, in Input) *Result {
	_, span := tracing.GlobalTracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(attribute.String("window", in.Window.String()))

	p := in.Policy.Merge(analysis.DefaultPolicy())
	src := in.Nutrition
	if src == nil {
		src = nutrition.FromTables(nil, nil)
	}
	acts := in.Activities
	if acts == nil {
		acts = activity.NewLog(nil)
	}

	res := &Result{
		Window:   in.Window,
		Baseline: in.Window.Baseline(),
	}

	res.Running = analysis.AnalyzeRunning(acts, in.Window, p)
	mileage := res.Running.Current.TotalMiles
	log.Debugf("running: %.1f mi over %v runs", mileage, res.Running.Current.RunCount)

	res.Strength = analysis.AnalyzeStrength(src, in.Window, p)
	log.Debugf("strength: %.0f workout days, %d PRs, %d regressions",
		res.Strength.Current.WorkoutDays, len(res.Strength.PRs), len(res.Strength.Regressions))

	res.Nutrition = analysis.AnalyzeNutrition(src, in.Window, &mileage, p)
	log.Debugf("nutrition: %d logged days", res.Nutrition.Current.LoggedDays)

	res.BodyComp = analysis.AnalyzeBodyComp(src, in.Window, res.Nutrition.AvgDailyDeficit, p)
	log.Debugf("body comp: trend %s", res.BodyComp.TrendDirection)

	res.Signals = signals.DetectWithPolicy(signals.Inputs{
		Running:   res.Running,
		Strength:  res.Strength,
		Nutrition: res.Nutrition,
		BodyComp:  res.BodyComp,
		Policy:    p,
	})

	res.Coverage = coverage.Validate(src, acts, in.Window, p)
	for _, w := range res.Coverage {
		log.Warnf("coverage [%s]: %s", in.Window, w)
	}

	span.SetAttributes(
		attribute.Int("signals", len(res.Signals)),
		attribute.Int("coverage_warnings", len(res.Coverage)),
	)
	return res
}

// Files points at the raw exports of one run.
type Files struct {
	Nutrition string
	Activity  string
	// FITDir optionally adds every .fit file of a directory to the activity log.
	FITDir   string
	Keywords table.Keywords
}

// Sources are loaded exports.
type Sources struct {
	Nutrition  *nutrition.Source
	Activities *activity.Log
}

// LoadFiles reads both exports. A missing activity path yields an empty log.
func LoadFiles(ctx context.Context, files Files) (_ *Sources, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "pipeline.load")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var opts []nutrition.Option
	if files.Keywords != nil {
		opts = append(opts, nutrition.WithKeywords(files.Keywords))
	}
	src, err := nutrition.Load(files.Nutrition, opts...)
	if err != nil {
		return nil, err
	}

	acts := activity.NewLog(nil)
	if files.Activity != "" {
		if acts, err = activity.Load(files.Activity); err != nil {
			return nil, err
		}
	}
	if files.FITDir != "" {
		fitActs, err := activity.LoadFITDir(files.FITDir)
		if err != nil {
			return nil, err
		}
		acts.Merge(fitActs...)
	}

	log.Debugf("loaded %d calorie rows, %d activities", len(src.CaloriesMacros.Rows), acts.Len())
	return &Sources{Nutrition: src, Activities: acts}, nil
}

// Uploads are raw export bytes, e.g. the parts of a multipart request.
type Uploads struct {
	Nutrition []byte
	Activity  []byte
	Keywords  table.Keywords
}

// LoadUploads parses in-memory exports. An empty activity upload yields an
// empty log.
func LoadUploads(ctx context.Context, u Uploads) (_ *Sources, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "pipeline.loadUploads")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int("nutrition_bytes", len(u.Nutrition)),
		attribute.Int("activity_bytes", len(u.Activity)),
	)

	var opts []nutrition.Option
	if u.Keywords != nil {
		opts = append(opts, nutrition.WithKeywords(u.Keywords))
	}
	src, err := nutrition.LoadBytes(u.Nutrition, opts...)
	if err != nil {
		return nil, err
	}

	acts := activity.NewLog(nil)
	if len(u.Activity) > 0 {
		if acts, err = activity.LoadBytes(u.Activity); err != nil {
			return nil, err
		}
	}
	return &Sources{Nutrition: src, Activities: acts}, nil
}

// RunFiles loads both exports, resolves the window from week (empty means
// the week containing now) and runs the analysis.
func RunFiles(ctx context.Context, files Files, week string, now time.Time, p analysis.Policy) (*Result, *Sources, error) {
	w, err := window.Resolve(week, now)
	if err != nil {
		return nil, nil, err
	}

	srcs, err := LoadFiles(ctx, files)
	if err != nil {
		return nil, nil, fmt.Errorf("load exports: %w", err)
	}

	return Run(ctx, Input{
		Nutrition:  srcs.Nutrition,
		Activities: srcs.Activities,
		Window:     w,
		Policy:     p,
	}), srcs, nil
}
