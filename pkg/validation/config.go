package validation

import (
	"fmt"

	"github.com/ChicagoDave/daylight/pkg/config"
)

// UDI bin boundaries the useful-minimum threshold must lie strictly between.
const (
	udiLowerLux = 100.0
	udiUpperLux = 3000.0
)

// ValidateConfig checks a run configuration before any data is read.
func ValidateConfig(c *config.Config) *Report {
	r := NewReport()

	validateLocation(c, r)
	validateAnnualHours(c, r)
	validateThresholds(c, r)
	validatePolicy(c, r)
	validateSchedule(c, r)

	return r
}

// ValidateMask checks a built occupied-hours mask against the annual hour count.
func ValidateMask(mask []bool, annualHours int) *Report {
	r := NewReport()
	if len(mask) != annualHours {
		r.Add(SeverityError, Finding{
			Section:  SectionOccupancy,
			Field:    "occupancy",
			Message:  fmt.Sprintf("occupied-hours mask has %d entries, expected %d", len(mask), annualHours),
			Value:    len(mask),
			Expected: fmt.Sprintf("%d", annualHours),
		})
		return r
	}
	if config.CountOccupied(mask) == 0 {
		r.Add(SeverityError, Finding{
			Section:  SectionOccupancy,
			Field:    "occupancy",
			Message:  "occupied-hours mask has no occupied hours",
			Expected: "at least 1 occupied hour",
			Hint:     "Check the schedule window or the mask file contents",
		})
	}
	return r
}

func validateLocation(c *config.Config, r *Report) {
	if c.ResultsLocation == "" {
		r.Add(SeverityError, Finding{
			Section:  SectionLocation,
			Field:    "results_location",
			Message:  "results_location is required",
			Expected: "path to the simulation results folder",
		})
	}
	if c.Workers < 0 {
		r.Add(SeverityError, Finding{
			Section:  SectionLocation,
			Field:    "workers",
			Message:  "workers must be >= 0",
			Value:    c.Workers,
			Expected: ">= 0 (0 uses every CPU)",
		})
	}
}

func validateAnnualHours(c *config.Config, r *Report) {
	if c.AnnualHours != config.HoursPerYear && c.AnnualHours != config.HoursPerLeapYear {
		r.Add(SeverityError, Finding{
			Section:  SectionOccupancy,
			Field:    "annual_hours",
			Message:  fmt.Sprintf("annual_hours %d is not a year of hours", c.AnnualHours),
			Value:    c.AnnualHours,
			Expected: "8760 or 8784",
		})
	}
}

func validateThresholds(c *config.Config, r *Report) {
	t := c.Thresholds

	lux := []struct {
		field string
		value float64
	}{
		{"thresholds.min_lux", t.MinLux},
		{"thresholds.avg_lux", t.AvgLux},
	}
	for _, l := range lux {
		if !(l.value > 0) {
			r.Add(SeverityError, Finding{
				Section:  SectionThresholds,
				Field:    l.field,
				Message:  fmt.Sprintf("%s must be > 0", l.field),
				Value:    l.value,
				Expected: "> 0",
			})
		}
	}

	hours := []struct {
		field string
		value int
	}{
		{"thresholds.min_hours_req", t.MinHoursReq},
		{"thresholds.avg_hours_req", t.AvgHoursReq},
	}
	for _, h := range hours {
		if h.value < 0 {
			r.Add(SeverityError, Finding{
				Section:  SectionThresholds,
				Field:    h.field,
				Message:  fmt.Sprintf("%s must be >= 0", h.field),
				Value:    h.value,
				Expected: ">= 0",
			})
			continue
		}
		if c.AnnualHours > 0 && h.value > c.AnnualHours {
			r.Add(SeverityError, Finding{
				Section:  SectionThresholds,
				Field:    h.field,
				Message:  fmt.Sprintf("%s (%d) exceeds the hours in a year (%d)", h.field, h.value, c.AnnualHours),
				Value:    h.value,
				Expected: fmt.Sprintf("<= %d", c.AnnualHours),
			})
		}
	}

	if !(t.UDIMinLux > udiLowerLux && t.UDIMinLux < udiUpperLux) {
		r.Add(SeverityError, Finding{
			Section:  SectionThresholds,
			Field:    "thresholds.udi_min_lux",
			Message:  fmt.Sprintf("udi_min_lux %.1f must lie strictly between %.0f and %.0f lux", t.UDIMinLux, udiLowerLux, udiUpperLux),
			Value:    t.UDIMinLux,
			Expected: "100 < udi_min_lux < 3000",
		})
	}
}

func validatePolicy(c *config.Config, r *Report) {
	p := c.Policy.AreaPassPct
	if !(p >= 0 && p <= 100) {
		r.Add(SeverityError, Finding{
			Section:  SectionPolicy,
			Field:    "policy.area_pass_pct",
			Message:  fmt.Sprintf("area_pass_pct %.1f is outside 0-100", p),
			Value:    p,
			Expected: "0-100",
		})
	}
	n := c.Policy.Normalize
	if !n.CaseFold && !n.CollapseSpace && !n.StripSeparators {
		r.Add(SeverityInfo, Finding{
			Section: SectionPolicy,
			Field:   "policy.normalize",
			Message: "room labels are matched verbatim (after trimming); every normalization step is disabled",
		})
	}
}

func validateSchedule(c *config.Config, r *Report) {
	o := c.Occupancy
	if o.MaskFile != "" && o.Schedule != nil {
		r.Add(SeverityError, Finding{
			Section: SectionOccupancy,
			Field:   "occupancy",
			Message: "occupancy.mask_file and occupancy.schedule are mutually exclusive",
		})
	}
	s := o.Schedule
	if s == nil {
		return
	}
	if s.StartHour < 0 || s.EndHour > 24 || s.StartHour >= s.EndHour {
		r.Add(SeverityError, Finding{
			Section:  SectionOccupancy,
			Field:    "occupancy.schedule",
			Message:  fmt.Sprintf("schedule window %d-%d must satisfy 0 <= start_hour < end_hour <= 24", s.StartHour, s.EndHour),
			Value:    fmt.Sprintf("%d-%d", s.StartHour, s.EndHour),
			Expected: "0 <= start_hour < end_hour <= 24",
		})
	}
	if _, ok := config.ParseWeekday(s.FirstWeekday); !ok {
		r.Add(SeverityError, Finding{
			Section:  SectionOccupancy,
			Field:    "occupancy.schedule.first_weekday",
			Message:  fmt.Sprintf("unknown first_weekday %q", s.FirstWeekday),
			Value:    s.FirstWeekday,
			Expected: "monday..sunday",
		})
	}
}

// ValidateRequirements warns when an hours requirement cannot be met
// because the mask has fewer occupied hours than it asks for.
func ValidateRequirements(t config.Thresholds, occupied int) *Report {
	r := NewReport()
	for _, h := range []struct {
		field string
		value int
	}{
		{"thresholds.min_hours_req", t.MinHoursReq},
		{"thresholds.avg_hours_req", t.AvgHoursReq},
	} {
		if h.value > occupied {
			r.Add(SeverityWarning, Finding{
				Section:  SectionThresholds,
				Field:    h.field,
				Message:  fmt.Sprintf("%s (%d) exceeds the %d occupied hours; no room can pass", h.field, h.value, occupied),
				Value:    h.value,
				Expected: fmt.Sprintf("<= %d", occupied),
			})
		}
	}
	return r
}
