// Package errs defines the failure kinds a daylight run can end with.
//
// Input, config and match errors abort the whole run and no summary is
// written. Compute errors are isolated to a single grid.
package errs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ChicagoDave/daylight/pkg/validation"
)

// Kind names used in diagnostics and exit-code mapping.
const (
	KindInput   = "input"
	KindConfig  = "config"
	KindMatch   = "match"
	KindCompute = "compute"
)

// InputError reports missing, unreadable or malformed source data.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("input error: %v", e.Err)
	}
	return fmt.Sprintf("input error: %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// Input wraps err as an InputError for path.
func Input(path string, err error) error {
	return &InputError{Path: path, Err: err}
}

// Inputf builds an InputError from a format string.
func Inputf(path, format string, args ...any) error {
	return &InputError{Path: path, Err: fmt.Errorf(format, args...)}
}

// ConfigError reports run configuration that failed validation.
type ConfigError struct {
	Report *validation.Report
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Report != nil && len(e.Report.Errors) > 0 {
		return "config error: " + strings.Join(e.Report.Problems(), "; ")
	}
	return fmt.Sprintf("config error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config wraps a plain error (e.g. a YAML parse failure) as a ConfigError.
func Config(err error) error {
	return &ConfigError{Err: err}
}

// MatchError reports room labels that collide after normalization.
type MatchError struct {
	Normalized string
	Labels     []string
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("match error: room labels %q are ambiguous (all normalize to %q)", e.Labels, e.Normalized)
}

// ComputeError reports a grid whose data cannot be evaluated.
type ComputeError struct {
	GridID string
	Err    error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("compute error: grid %s: %v", e.GridID, e.Err)
}

func (e *ComputeError) Unwrap() error { return e.Err }

// Kind returns the kind name of the first taxonomy error in err's chain,
// or "" when err is not one of them.
func Kind(err error) string {
	var (
		in *InputError
		cf *ConfigError
		mt *MatchError
		cp *ComputeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cf):
		return KindConfig
	case errors.As(err, &in):
		return KindInput
	case errors.As(err, &mt):
		return KindMatch
	case errors.As(err, &cp):
		return KindCompute
	}
	return ""
}

// ExitCode maps err to the CLI process exit status.
func ExitCode(err error) int {
	switch Kind(err) {
	case "":
		if err == nil {
			return 0
		}
		return 1
	case KindConfig:
		return 2
	case KindInput:
		return 3
	case KindMatch:
		return 4
	}
	return 1
}
