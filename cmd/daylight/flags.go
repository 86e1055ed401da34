package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ChicagoDave/daylight/pkg/config"
	"github.com/ChicagoDave/daylight/pkg/errs"
)

// flags are the command-line overrides shared by run, validate and serve.
// Only flags the user set are applied on top of the file and environment.
type flags struct {
	configPath  string
	results     string
	output      string
	rooms       []string
	roomsFile   string
	workers     int
	metricsFile string
	archiveDSN  string
	logLevel    string
	logFile     string

	thresholds  config.Thresholds
	areaPassPct float64
}

func (f *flags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "configuration file (default <project>/"+config.FileName+")")
	fs.StringVar(&f.results, "results", "", "results location holding the grid files")
	fs.StringVarP(&f.output, "output", "o", "", "summary artifact path")
	fs.StringSliceVar(&f.rooms, "rooms", nil, "room labels to match against grid IDs")
	fs.StringVar(&f.roomsFile, "rooms-file", "", "file with one room label per line")
	fs.IntVarP(&f.workers, "workers", "w", 0, "parallel grid workers (0 = one per CPU)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	fs.StringVar(&f.archiveDSN, "archive-dsn", "", "PostgreSQL DSN to archive summaries in")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	fs.StringVar(&f.logFile, "log-file", "", "also append logs to this file")

	d := config.Default()
	fs.Float64Var(&f.thresholds.MinLux, "min-lux", d.Thresholds.MinLux, "minimum illuminance per point (lux)")
	fs.IntVar(&f.thresholds.MinHoursReq, "min-hours", d.Thresholds.MinHoursReq, "occupied hours a point must reach min-lux")
	fs.Float64Var(&f.thresholds.AvgLux, "avg-lux", d.Thresholds.AvgLux, "spatial average illuminance (lux)")
	fs.IntVar(&f.thresholds.AvgHoursReq, "avg-hours", d.Thresholds.AvgHoursReq, "occupied hours the average must reach avg-lux")
	fs.Float64Var(&f.thresholds.UDIMinLux, "udi-min-lux", d.Thresholds.UDIMinLux, "lower bound of the autonomous UDI bin (lux)")
	fs.Float64Var(&f.areaPassPct, "area-pass-pct", d.Policy.AreaPassPct, "share of area that must pass the minimum criterion")
}

// load builds the run configuration: file, then environment, then flags.
func (f *flags) load(cmd *cobra.Command, projectDir string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
	} else {
		cfg, err = config.LoadProject(projectDir)
	}
	if err != nil {
		return nil, errs.Config(err)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, errs.Config(err)
	}

	set := cmd.Flags().Changed
	if set("results") {
		cfg.ResultsLocation = f.results
	}
	if set("output") {
		cfg.Output = f.output
	}
	if set("rooms") {
		cfg.Rooms = f.rooms
	}
	if set("rooms-file") {
		cfg.RoomsFile = f.roomsFile
	}
	if set("workers") {
		cfg.Workers = f.workers
	}
	if set("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if set("archive-dsn") {
		cfg.ArchiveDSN = f.archiveDSN
	}
	if set("min-lux") {
		cfg.Thresholds.MinLux = f.thresholds.MinLux
	}
	if set("min-hours") {
		cfg.Thresholds.MinHoursReq = f.thresholds.MinHoursReq
	}
	if set("avg-lux") {
		cfg.Thresholds.AvgLux = f.thresholds.AvgLux
	}
	if set("avg-hours") {
		cfg.Thresholds.AvgHoursReq = f.thresholds.AvgHoursReq
	}
	if set("udi-min-lux") {
		cfg.Thresholds.UDIMinLux = f.thresholds.UDIMinLux
	}
	if set("area-pass-pct") {
		cfg.Policy.AreaPassPct = f.areaPassPct
	}
	return cfg, nil
}

// logPath returns the log file from the flag or DAYLIGHT_LOG_FILE.
func (f *flags) logPath() string {
	if f.logFile != "" {
		return f.logFile
	}
	return os.Getenv("DAYLIGHT_LOG_FILE")
}
