// Package pipeline runs a daylight evaluation end to end: validate the
// configuration, load the grids, compute their metrics in parallel, match
// them to room labels, then build and write the summary.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ChicagoDave/daylight/pkg/config"
	"github.com/ChicagoDave/daylight/pkg/errs"
	"github.com/ChicagoDave/daylight/pkg/grid"
	"github.com/ChicagoDave/daylight/pkg/match"
	"github.com/ChicagoDave/daylight/pkg/metrics"
	"github.com/ChicagoDave/daylight/pkg/summary"
	"github.com/ChicagoDave/daylight/pkg/validation"
)

// Grid statuses reported to a Recorder.
const (
	StatusOK           = "ok"
	StatusInsufficient = "insufficient"
	StatusFailed       = "failed"
)

// Recorder receives run telemetry.
type Recorder interface {
	ObserveGrid(status string, elapsed time.Duration)
	ObserveRun(s *summary.Summary, elapsed time.Duration)
	WriteTextfile(path string) error
}

// Archiver stores written summaries.
type Archiver interface {
	Store(ctx context.Context, s *summary.Summary) error
}

// Options carries the collaborators of a run. The zero value is usable.
type Options struct {
	Log      *slog.Logger
	Now      func() time.Time
	Recorder Recorder
	Archiver Archiver
}

func (o Options) logger() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Validate checks cfg and builds its occupied-hours mask. Configuration
// problems are collected in the report; err is set only when the mask
// file cannot be read.
func Validate(cfg *config.Config) (*validation.Report, []bool, error) {
	report := validation.ValidateConfig(cfg)
	if !report.Valid {
		return report, nil, nil
	}

	mask, err := cfg.Occupancy.Mask(cfg.AnnualHours)
	if err != nil {
		return report, nil, errs.Input(cfg.Occupancy.MaskFile, err)
	}
	report.Merge(validation.ValidateMask(mask, cfg.AnnualHours))
	if report.Valid {
		report.Merge(validation.ValidateRequirements(cfg.Thresholds, config.CountOccupied(mask)))
	}
	return report, mask, nil
}

// Run evaluates cfg and writes the summary artifact.
//
// Config, input and match errors abort the run without writing, and any
// artifact left by an earlier run at the output path is removed so readers
// never mistake it for this run's result. A grid that fails to compute is
// kept in the summary as insufficient data. Once the artifact is written,
// failures of the recorder or archiver are returned together with the
// summary.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*summary.Summary, error) {
	log := opts.logger()
	start := time.Now()

	s, err := evaluate(ctx, cfg, log, opts)
	if err == nil {
		err = summary.Write(cfg.OutputPath(), s)
	}
	if err != nil {
		discardStale(cfg, log)
		return nil, err
	}
	log.Info("summary written", "path", cfg.OutputPath(), "run_id", s.RunID,
		"building_pass", s.BuildingPass, "worst_room", s.WorstRoom)

	if err := afterWrite(ctx, cfg, s, time.Since(start), log, opts); err != nil {
		return s, err
	}
	return s, nil
}

// evaluate produces the summary of cfg without touching the output path.
func evaluate(ctx context.Context, cfg *config.Config, log *slog.Logger, opts Options) (*summary.Summary, error) {
	report, mask, err := Validate(cfg)
	if err != nil {
		return nil, err
	}
	if !report.Valid {
		return nil, &errs.ConfigError{Report: report}
	}

	labels, err := roomLabels(cfg)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	loader := &grid.Loader{AnnualHours: cfg.AnnualHours, Workers: workers, Log: log}
	grids, err := loader.Load(ctx, cfg.ResultsLocation)
	if err != nil {
		return nil, err
	}
	log.Info("grids loaded", "count", len(grids), "location", cfg.ResultsLocation)

	calc := metrics.NewCalculator(cfg, mask)
	results, err := compute(ctx, calc, grids, workers, log, opts.Recorder)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(grids))
	for i, g := range grids {
		ids[i] = g.ID
	}
	matched, err := match.Match(ids, labels, cfg.Policy.Normalize)
	if err != nil {
		return nil, err
	}
	for _, l := range matched.Unused {
		log.Warn("room label matched no grid", "label", l)
	}

	agg := summary.NewAggregator(cfg, config.CountOccupied(mask))
	agg.Now = opts.Now
	return agg.Build(results, matched)
}

// discardStale removes the artifact of a previous run after an abort. A
// run without a results location has no output path of its own and never
// removes anything.
func discardStale(cfg *config.Config, log *slog.Logger) {
	if cfg.ResultsLocation == "" {
		return
	}
	out := cfg.OutputPath()
	err := os.Remove(out)
	switch {
	case err == nil:
		log.Warn("removed summary of a previous run", "path", out)
	case !errors.Is(err, fs.ErrNotExist):
		log.Warn("could not remove summary of a previous run", "path", out, "err", err)
	}
}

// compute evaluates every grid on a bounded pool. Each worker writes only
// its own slot of results, so Wait is the only synchronization needed.
func compute(ctx context.Context, calc *metrics.Calculator, grids []*grid.SensorGrid, workers int, log *slog.Logger, rec Recorder) ([]metrics.Result, error) {
	results := make([]metrics.Result, len(grids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sg := range grids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			began := time.Now()
			res, err := calc.Compute(sg)
			results[i] = res

			status := StatusOK
			switch {
			case err != nil:
				status = StatusFailed
				log.Warn("grid excluded", "grid", sg.ID, "points", sg.Points(), "err", err)
			case res.InsufficientData:
				status = StatusInsufficient
				log.Warn("grid has insufficient data", "grid", sg.ID, "points", sg.Points())
			default:
				log.Debug("grid computed", "grid", sg.ID, "points", sg.Points(),
					"min_area_pct", res.MinAreaPct, "avg_hours", res.AvgHours)
			}
			if rec != nil {
				rec.ObserveGrid(status, time.Since(began))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func roomLabels(cfg *config.Config) ([]string, error) {
	labels := append([]string(nil), cfg.Rooms...)
	if cfg.RoomsFile != "" {
		fromFile, err := grid.LoadRoomLabels(cfg.RoomsFile)
		if err != nil {
			return nil, err
		}
		labels = append(labels, fromFile...)
	}
	return labels, nil
}

// afterWrite runs the optional exports. The artifact is already in place
// and is left untouched whatever happens here.
func afterWrite(ctx context.Context, cfg *config.Config, s *summary.Summary, elapsed time.Duration, log *slog.Logger, opts Options) error {
	var failures []error
	if rec := opts.Recorder; rec != nil {
		rec.ObserveRun(s, elapsed)
		if cfg.MetricsFile != "" {
			if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
				log.Error("metrics export failed", "path", cfg.MetricsFile, "err", err)
				failures = append(failures, err)
			}
		}
	}
	if opts.Archiver != nil {
		if err := opts.Archiver.Store(ctx, s); err != nil {
			log.Error("archive failed", "run_id", s.RunID, "err", err)
			failures = append(failures, err)
		} else {
			log.Info("summary archived", "run_id", s.RunID)
		}
	}
	if len(failures) > 0 {
		return fmt.Errorf("post-run export: %w", errors.Join(failures...))
	}
	return nil
}
