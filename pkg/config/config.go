package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in a project directory.
const FileName = "daylight.yaml"

// DefaultOutput is the artifact name written inside the results location.
const DefaultOutput = "daylight_summary.json"

// Annual hour counts accepted for the illuminance series.
const (
	HoursPerYear     = 8760
	HoursPerLeapYear = 8784
)

// Default returns a configuration holding the documented defaults. The
// threshold values follow the BREEAM Hea 01 daylighting criteria.
func Default() *Config {
	return &Config{
		Output:      DefaultOutput,
		AnnualHours: HoursPerYear,
		Thresholds: Thresholds{
			MinLux:      90,
			MinHoursReq: 2000,
			AvgLux:      300,
			AvgHoursReq: 2000,
			UDIMinLux:   300,
		},
		Policy: Policy{
			AreaPassPct: 80,
			Normalize: NormalizeRules{
				CaseFold:        true,
				CollapseSpace:   true,
				StripSeparators: true,
			},
		},
	}
}

// Load reads a run configuration from a YAML file. Relative paths inside the
// file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// LoadProject loads the configuration of a project directory. It looks for
// daylight.yaml in the directory; when there is none the defaults are used
// and the directory itself is taken as the results location.
func LoadProject(projectDir string) (*Config, error) {
	cfg, err := Load(filepath.Join(projectDir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		cfg.ResultsLocation = projectDir
		cfg.resolvePaths(projectDir)
		return cfg, nil
	}
	return cfg, err
}

// ApplyEnv overlays DAYLIGHT_* environment variables, loading a .env file
// from the working directory first when one exists.
func ApplyEnv(cfg *Config) error {
	_ = godotenv.Load(".env")

	if v := strings.TrimSpace(os.Getenv("DAYLIGHT_RESULTS")); v != "" {
		cfg.ResultsLocation = v
	}
	if v := strings.TrimSpace(os.Getenv("DAYLIGHT_OUTPUT")); v != "" {
		cfg.Output = v
	}
	if v := strings.TrimSpace(os.Getenv("DAYLIGHT_WORKERS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DAYLIGHT_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	if v := strings.TrimSpace(os.Getenv("DAYLIGHT_METRICS_FILE")); v != "" {
		cfg.MetricsFile = v
	}
	if v := strings.TrimSpace(os.Getenv("DAYLIGHT_ARCHIVE_DSN")); v != "" {
		cfg.ArchiveDSN = v
	}
	return nil
}

// OutputPath returns where the summary artifact is written. A relative
// output name lives inside the results location.
func (c *Config) OutputPath() string {
	out := c.Output
	if out == "" {
		out = DefaultOutput
	}
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(c.ResultsLocation, out)
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.ResultsLocation = abs(c.ResultsLocation)
	c.RoomsFile = abs(c.RoomsFile)
	c.Occupancy.MaskFile = abs(c.Occupancy.MaskFile)
	c.MetricsFile = abs(c.MetricsFile)
}
