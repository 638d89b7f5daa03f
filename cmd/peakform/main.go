// Package main runs one weekly analysis from local exports and prints it as
// JSON or as the text digest.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bhackerb/PeakForm-C/internal/coach"
	"github.com/bhackerb/PeakForm-C/internal/config"
	"github.com/bhackerb/PeakForm-C/internal/logging"
	"github.com/bhackerb/PeakForm-C/internal/pipeline"
	"github.com/bhackerb/PeakForm-C/internal/snapshot"
	"github.com/bhackerb/PeakForm-C/internal/table"
	"github.com/bhackerb/PeakForm-C/internal/window"
	"github.com/bhackerb/PeakForm-C/pkg"

	log "github.com/sirupsen/logrus"
)

const (
	exitOK = iota
	exitError
	exitInvalidWeek
	exitSourceFormat
	exitUsage
)

const (
	formatJSON   = "json"
	formatDigest = "digest"
)

type options struct {
	nutrition   string
	activity    string
	fitDir      string
	week        string
	format      string
	snapshotOut string
	snapshotIn  string
	configPath  string
	env         string
	logLevel    string
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, time.Now()))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("peakform", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.nutrition, "nutrition", "", "path to the MacroFactor XLSX export")
	fs.StringVar(&opts.activity, "activity", "", "path to the Garmin Connect activities CSV export")
	fs.StringVar(&opts.fitDir, "fit-dir", "", "directory of Garmin .fit files to add to the activity log")
	fs.StringVar(&opts.week, "week", "", "any date (YYYY-MM-DD) inside the week to analyze; defaults to the current week")
	fs.StringVar(&opts.format, "format", formatDigest, "output format [json | digest]")
	fs.StringVar(&opts.snapshotOut, "snapshot-out", "", "write the loaded tables and window to this Parquet file")
	fs.StringVar(&opts.snapshotIn, "snapshot-in", "", "analyze a Parquet snapshot instead of the exports")
	fs.StringVar(&opts.configPath, "config", "./config.toml", "path for the TOML config file (optional)")
	fs.StringVar(&opts.env, "env", "development", "environment [prod | production | dev | development]")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level, logs go to stderr")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if opts.format != formatJSON && opts.format != formatDigest {
		return nil, fmt.Errorf("unknown format [%s]", opts.format)
	}
	if opts.snapshotIn == "" && opts.nutrition == "" {
		return nil, errors.New("either -nutrition or -snapshot-in is required")
	}
	if opts.snapshotIn != "" && (opts.nutrition != "" || opts.activity != "" || opts.fitDir != "") {
		return nil, errors.New("-snapshot-in cannot be combined with export paths")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, now time.Time) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			_, _ = fmt.Fprintf(stderr, "peakform: %s\n", err)
		}
		return exitUsage
	}

	log.SetOutput(stderr)
	log.SetLevel(logging.GetLevel(opts.logLevel))

	cfg, err := loadConfig(opts.env, opts.configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "peakform: %s\n", err)
		return exitError
	}

	res, err := analyze(ctx, opts, cfg, now)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "peakform: %s\n", err)
		return exitCode(err)
	}

	var out []byte
	switch opts.format {
	case formatJSON:
		if out, err = json.MarshalIndent(res, "", "  "); err != nil {
			_, _ = fmt.Fprintf(stderr, "peakform: encode result: %s\n", err)
			return exitError
		}
		out = append(out, '\n')
	default:
		out = []byte(coach.Digest(res))
	}
	if _, err := stdout.Write(out); err != nil {
		return exitError
	}
	return exitOK
}

// loadConfig falls back to the built-in defaults when there is no config file.
func loadConfig(env, path string) (*config.Config, error) {
	exists, err := pkg.PathExists(path, false)
	if err != nil {
		return nil, err
	}
	if !exists {
		log.Debugf("config file [%s] not found, using defaults", path)
		return config.Default(), nil
	}
	return config.Load(env, path)
}

func analyze(ctx context.Context, opts *options, cfg *config.Config, now time.Time) (*pipeline.Result, error) {
	if opts.snapshotIn != "" {
		return analyzeSnapshot(ctx, opts, cfg)
	}

	res, srcs, err := pipeline.RunFiles(ctx, pipeline.Files{
		Nutrition: opts.nutrition,
		Activity:  opts.activity,
		FITDir:    opts.fitDir,
		Keywords:  cfg.ColumnKeywords(),
	}, opts.week, now, cfg.Policy)
	if err != nil {
		return nil, err
	}

	if opts.snapshotOut != "" {
		data, err := snapshot.Encode(snapshot.Snapshot{
			Nutrition:  srcs.Nutrition,
			Activities: srcs.Activities,
			Window:     res.Window,
		})
		if err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
		if err := os.WriteFile(opts.snapshotOut, data, 0o600); err != nil {
			return nil, fmt.Errorf("write snapshot: %w", err)
		}
		log.Infof("snapshot of %s written to [%s] (%d bytes)", res.Window, opts.snapshotOut, len(data))
	}
	return res, nil
}

// analyzeSnapshot re-runs the stored window unless -week picks another one.
func analyzeSnapshot(ctx context.Context, opts *options, cfg *config.Config) (*pipeline.Result, error) {
	data, err := os.ReadFile(opts.snapshotIn)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot [%s]: %w", opts.snapshotIn, err)
	}

	w := snap.Window
	if opts.week != "" {
		if w, err = window.Resolve(opts.week, time.Time{}); err != nil {
			return nil, err
		}
	}

	return pipeline.Run(ctx, pipeline.Input{
		Nutrition:  snap.Nutrition,
		Activities: snap.Activities,
		Window:     w,
		Policy:     cfg.Policy,
	}), nil
}

func exitCode(err error) int {
	var weekErr *window.InvalidWeekError
	switch {
	case errors.As(err, &weekErr):
		return exitInvalidWeek
	case errors.Is(err, table.ErrSourceFormat):
		return exitSourceFormat
	default:
		return exitError
	}
}
