package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ChicagoDave/daylight/internal/archive"
	"github.com/ChicagoDave/daylight/internal/logging"
	"github.com/ChicagoDave/daylight/internal/server"
	"github.com/ChicagoDave/daylight/internal/telemetry"
	"github.com/ChicagoDave/daylight/pkg/config"
	"github.com/ChicagoDave/daylight/pkg/errs"
	"github.com/ChicagoDave/daylight/pkg/pipeline"
	"github.com/ChicagoDave/daylight/pkg/summary"
)

// setup loads the configuration and opens the logger.
func setup(cmd *cobra.Command, projectDir string, f *flags) (*config.Config, *logging.DualLogger, error) {
	cfg, err := f.load(cmd, projectDir)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(os.Stderr, f.logLevel, f.logPath())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openArchive connects to the archive when a DSN is configured and returns
// a nil store otherwise. The returned close function is never nil.
func openArchive(ctx context.Context, cfg *config.Config) (*archive.Store, func(), error) {
	if cfg.ArchiveDSN == "" {
		return nil, func() {}, nil
	}
	store, err := archive.Open(ctx, cfg.ArchiveDSN)
	if err != nil {
		return nil, func() {}, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, func() {}, err
	}
	return store, store.Close, nil
}

func runRun(cmd *cobra.Command, projectDir string, f *flags) error {
	cfg, logger, err := setup(cmd, projectDir, f)
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, closeArchive, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeArchive()

	opts := pipeline.Options{Log: log}
	if store != nil {
		opts.Archiver = store
	}
	if cfg.MetricsFile != "" {
		opts.Recorder = telemetry.New()
	}

	s, err := pipeline.Run(ctx, cfg, opts)
	if s == nil {
		log.Error("run aborted", "kind", errs.Kind(err), "err", err)
		var ce *errs.ConfigError
		if errors.As(err, &ce) && ce.Report != nil {
			printValidationReport(ce.Report)
		}
		return err
	}

	printSummary(s, false)
	return err
}

func runValidate(cmd *cobra.Command, projectDir string, f *flags) error {
	cfg, err := f.load(cmd, projectDir)
	if err != nil {
		return err
	}

	report, _, err := pipeline.Validate(cfg)
	printValidationReport(report)
	if err != nil {
		return err
	}
	if !report.Valid {
		return &errs.ConfigError{Report: report}
	}
	return nil
}

func runReport(path string, failing bool) error {
	s, err := summary.Read(path)
	if err != nil {
		return err
	}
	printSummary(s, failing)
	return nil
}

func runServe(cmd *cobra.Command, projectDir string, f *flags, port int) error {
	cfg, logger, err := setup(cmd, projectDir, f)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, closeArchive, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeArchive()

	m := telemetry.New()
	if s, err := summary.Read(cfg.OutputPath()); err == nil {
		m.SetSummary(s)
	}

	opts := server.Options{Log: logger.Logger, Metrics: m}
	if store != nil {
		opts.Archive = store
	}
	srv := server.New(cfg, port, opts)
	return srv.Start(ctx)
}
