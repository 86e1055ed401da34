// Package validation checks a run configuration before any grid is read
// and collects what it finds into a Report.
package validation

import (
	"fmt"
	"strings"
)

// Section is the part of the run configuration a finding concerns.
type Section string

const (
	SectionLocation   Section = "location"
	SectionThresholds Section = "thresholds"
	SectionPolicy     Section = "policy"
	SectionOccupancy  Section = "occupancy"
)

// Severity decides whether a finding blocks the run.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one problem or note about a configuration key.
type Finding struct {
	Section  Section  `json:"section"`
	Severity Severity `json:"severity"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Value    any      `json:"value,omitempty"`
	Expected string   `json:"expected,omitempty"`
	Hint     string   `json:"hint,omitempty"`
}

// Report groups findings by severity. A run may start only while Valid.
type Report struct {
	Valid    bool      `json:"valid"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
	Info     []Finding `json:"info"`
	Summary  string    `json:"summary"`
}

// NewReport returns a report with no findings.
func NewReport() *Report {
	r := &Report{Valid: true, Errors: []Finding{}, Warnings: []Finding{}, Info: []Finding{}}
	r.summarize()
	return r
}

// Add files f under sev. An error finding invalidates the report.
func (r *Report) Add(sev Severity, f Finding) {
	f.Severity = sev
	switch sev {
	case SeverityError:
		r.Errors = append(r.Errors, f)
		r.Valid = false
	case SeverityWarning:
		r.Warnings = append(r.Warnings, f)
	default:
		f.Severity = SeverityInfo
		r.Info = append(r.Info, f)
	}
	r.summarize()
}

// Merge appends the findings of other.
func (r *Report) Merge(other *Report) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Info = append(r.Info, other.Info...)
	r.Valid = r.Valid && other.Valid
	r.summarize()
}

// Problems returns the messages of the error findings, in order.
func (r *Report) Problems() []string {
	msgs := make([]string, len(r.Errors))
	for i, f := range r.Errors {
		msgs[i] = f.Message
	}
	return msgs
}

func (r *Report) summarize() {
	parts := []string{
		count(len(r.Errors), "error"),
		count(len(r.Warnings), "warning"),
		count(len(r.Info), "note"),
	}
	r.Summary = strings.Join(parts, ", ")
}

func count(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
