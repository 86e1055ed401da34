package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday resolves a weekday name; the empty string means Monday.
func ParseWeekday(name string) (time.Weekday, bool) {
	if strings.TrimSpace(name) == "" {
		return time.Monday, true
	}
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Mask builds the occupied-hours mask for a year of annualHours hours.
func (o Occupancy) Mask(annualHours int) ([]bool, error) {
	switch {
	case o.MaskFile != "" && o.Schedule != nil:
		return nil, fmt.Errorf("occupancy: mask_file and schedule are mutually exclusive")
	case o.MaskFile != "":
		return readMaskFile(o.MaskFile)
	case o.Schedule != nil:
		return o.Schedule.Mask(annualHours)
	}
	mask := make([]bool, annualHours)
	for i := range mask {
		mask[i] = true
	}
	return mask, nil
}

// Mask expands the schedule over a year. Hour h of the year falls on day
// h/24, and day 0 is FirstWeekday.
func (s Schedule) Mask(annualHours int) ([]bool, error) {
	first, ok := ParseWeekday(s.FirstWeekday)
	if !ok {
		return nil, fmt.Errorf("occupancy: unknown first_weekday %q", s.FirstWeekday)
	}
	if s.StartHour < 0 || s.EndHour > 24 || s.StartHour >= s.EndHour {
		return nil, fmt.Errorf("occupancy: schedule window %d-%d is not within 0-24", s.StartHour, s.EndHour)
	}

	mask := make([]bool, annualHours)
	for h := range mask {
		day := h / 24
		hour := h % 24
		if s.WeekdaysOnly {
			wd := time.Weekday((int(first) + day) % 7)
			if wd == time.Saturday || wd == time.Sunday {
				continue
			}
		}
		mask[h] = hour >= s.StartHour && hour < s.EndHour
	}
	return mask, nil
}

// readMaskFile parses one flag per line: 1/0, true/false, yes/no.
// Blank lines and lines starting with # are skipped.
func readMaskFile(path string) ([]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("occupancy: reading mask file: %w", err)
	}
	defer f.Close()

	var mask []bool
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		switch strings.ToLower(text) {
		case "1", "true", "yes":
			mask = append(mask, true)
		case "0", "false", "no":
			mask = append(mask, false)
		default:
			return nil, fmt.Errorf("occupancy: %s line %d: %q is not a flag", path, line, text)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("occupancy: reading mask file: %w", err)
	}
	return mask, nil
}

// CountOccupied returns the number of true entries in mask.
func CountOccupied(mask []bool) int {
	n := 0
	for _, occ := range mask {
		if occ {
			n++
		}
	}
	return n
}
