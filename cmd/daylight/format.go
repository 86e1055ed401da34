package main

import (
	"fmt"
	"strings"

	"github.com/ChicagoDave/daylight/pkg/summary"
	"github.com/ChicagoDave/daylight/pkg/validation"
)

func printValidationReport(r *validation.Report) {
	if len(r.Errors) > 0 {
		fmt.Printf("ERRORS (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			printFinding(e)
		}
		fmt.Println()
	}

	if len(r.Warnings) > 0 {
		fmt.Printf("WARNINGS (%d):\n", len(r.Warnings))
		for _, w := range r.Warnings {
			printFinding(w)
		}
		fmt.Println()
	}

	if len(r.Info) > 0 {
		fmt.Printf("INFO (%d):\n", len(r.Info))
		for _, i := range r.Info {
			fmt.Printf("  [%s] %s\n", i.Section, i.Message)
		}
		fmt.Println()
	}

	if r.Valid {
		fmt.Printf("Result: VALID (%s)\n", r.Summary)
	} else {
		fmt.Printf("Result: INVALID (%s)\n", r.Summary)
	}
}

func printFinding(f validation.Finding) {
	fmt.Printf("  [%s] %s\n", f.Section, f.Message)
	if f.Field != "" && f.Value != nil {
		fmt.Printf("    -> %s = %v\n", f.Field, f.Value)
	}
	if f.Expected != "" {
		fmt.Printf("    expected: %s\n", f.Expected)
	}
	if f.Hint != "" {
		fmt.Printf("    hint: %s\n", f.Hint)
	}
}

func printSummary(s *summary.Summary, failingOnly bool) {
	fmt.Println("Daylight Summary")
	fmt.Println("================")
	fmt.Printf("  Run:             %s\n", s.RunID)
	fmt.Printf("  Generated:       %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  Occupied hours:  %d\n", s.OccupiedHours)
	fmt.Printf("  Thresholds:      min %.0f lux / %d h, avg %.0f lux / %d h, UDI %.0f lux, area %.0f%%\n",
		s.Thresholds.MinLux, s.Thresholds.MinHoursReq, s.Thresholds.AvgLux, s.Thresholds.AvgHoursReq,
		s.Thresholds.UDIMinLux, s.Policy.AreaPassPct)
	fmt.Println()

	printRoomTable(s.Rooms, failingOnly)

	fmt.Println()
	fmt.Printf("  Rooms passing:   %d of %d\n", s.Passing(), s.RoomsAnalysed)
	fmt.Printf("  Worst room:      %s\n", s.WorstRoom)
	if len(s.InsufficientDataRooms) > 0 {
		fmt.Printf("  No data:         %s\n", strings.Join(s.InsufficientDataRooms, ", "))
	}
	if s.BuildingPass {
		fmt.Println("Result: PASS")
	} else {
		fmt.Println("Result: FAIL")
	}
}

func printRoomTable(rooms []summary.Room, failingOnly bool) {
	fmt.Printf("%-24s %8s %8s %6s %7s %7s %7s %7s %7s %7s\n",
		"Room", "Min %", "Avg h", "Pass", "UDI-f", "UDI-s", "UDI-a", "UDI-e", "sDA", "ASE")
	fmt.Printf("%-24s %8s %8s %6s %7s %7s %7s %7s %7s %7s\n",
		strings.Repeat("-", 24), "--------", "--------", "------", "-------", "-------", "-------", "-------", "-------", "-------")

	for _, r := range rooms {
		if failingOnly && r.RoomPass {
			continue
		}
		if r.InsufficientData {
			fmt.Printf("%-24s %8s %8s %6s  %s\n", roomName(r), "-", "-", "n/a", insufficientReason(r))
			continue
		}
		fmt.Printf("%-24s %8s %8d %6s %7s %7s %7s %7s %7s %7s\n",
			roomName(r), formatPct(r.MinAreaPct), r.AvgHours, passMark(r.RoomPass),
			formatPct(r.UDIPct.Fallen), formatPct(r.UDIPct.Supplementary),
			formatPct(r.UDIPct.Autonomous), formatPct(r.UDIPct.Exceeded),
			formatPct(r.SDAPct), formatPct(r.ASEPct))
	}
}

func roomName(r summary.Room) string {
	name := r.RoomLabel
	if !r.Matched {
		name += "*"
	}
	if runes := []rune(name); len(runes) > 24 {
		name = string(runes[:23]) + "~"
	}
	return name
}

func insufficientReason(r summary.Room) string {
	if r.Error != "" {
		return "insufficient data: " + r.Error
	}
	return "insufficient data"
}

func passMark(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
