package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ChicagoDave/daylight/pkg/config"
	"github.com/ChicagoDave/daylight/pkg/errs"
	"github.com/ChicagoDave/daylight/pkg/summary"
)

const hours = config.HoursPerYear

var fixedNow = func() time.Time { return time.Date(2026, 6, 21, 12, 0, 0, 0, time.UTC) }

func series(v float64) []float64 {
	s := make([]float64, hours)
	for i := range s {
		s[i] = v
	}
	return s
}

func writeGrid(t *testing.T, dir, id string, points ...[]float64) {
	t.Helper()
	var sb strings.Builder
	for _, p := range points {
		for j, v := range p {
			if j > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "%g", v)
		}
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, id+".csv"), []byte(sb.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

// project writes two grids: office_1 passes both criteria, office_2 has
// half its area in the dark.
func project(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeGrid(t, dir, "office_1", series(500), series(450))
	writeGrid(t, dir, "office_2", series(500), series(50))

	cfg := config.Default()
	cfg.ResultsLocation = dir
	cfg.Thresholds.MinLux = 300
	cfg.Thresholds.AvgLux = 250
	cfg.Occupancy.Schedule = &config.Schedule{StartHour: 9, EndHour: 17}
	cfg.Rooms = []string{"Office 1", "Office 2"}
	cfg.Workers = 2
	return cfg
}

func assertNoArtifact(t *testing.T, cfg *config.Config) {
	t.Helper()
	if _, err := os.Stat(cfg.OutputPath()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("artifact should not exist after an aborted run (stat err: %v)", err)
	}
}

func TestRun(t *testing.T) {
	cfg := project(t)
	s, err := Run(context.Background(), cfg, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(s.Rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(s.Rooms))
	}
	if s.OccupiedHours != 365*8 {
		t.Errorf("OccupiedHours = %d, want %d", s.OccupiedHours, 365*8)
	}
	if !s.Rooms[0].RoomPass || s.Rooms[0].RoomLabel != "Office 1" {
		t.Errorf("office_1 should pass: %+v", s.Rooms[0])
	}
	if s.Rooms[1].MinAreaPct != 50 || s.Rooms[1].RoomPass {
		t.Errorf("office_2 should fail with 50%% area: %+v", s.Rooms[1])
	}
	if s.BuildingPass {
		t.Error("building should fail")
	}
	if s.WorstRoom != "Office 2" {
		t.Errorf("WorstRoom = %q, want Office 2", s.WorstRoom)
	}
	for _, r := range s.Rooms {
		u := r.UDIHours
		if n := u.Fallen + u.Supplementary + u.Autonomous + u.Exceeded; n != s.OccupiedHours {
			t.Errorf("%s: UDI hours sum to %d, want %d", r.GridID, n, s.OccupiedHours)
		}
	}

	onDisk, err := summary.Read(cfg.OutputPath())
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if onDisk.RunID != s.RunID {
		t.Errorf("artifact run_id %q, returned %q", onDisk.RunID, s.RunID)
	}
}

func TestRunIsByteIdentical(t *testing.T) {
	cfg := project(t)
	if _, err := Run(context.Background(), cfg, Options{Now: fixedNow}); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(cfg.OutputPath())
	if err != nil {
		t.Fatal(err)
	}

	cfg.Workers = 1
	if _, err := Run(context.Background(), cfg, Options{Now: fixedNow}); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(cfg.OutputPath())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical runs produced different documents")
	}
}

func TestRunConfigError(t *testing.T) {
	cfg := project(t)
	cfg.Thresholds.UDIMinLux = 3000
	cfg.Thresholds.MinLux = -1

	_, err := Run(context.Background(), cfg, Options{})
	if errs.Kind(err) != errs.KindConfig {
		t.Fatalf("expected config error, got %v", err)
	}
	var ce *errs.ConfigError
	if errors.As(err, &ce) && len(ce.Report.Errors) < 2 {
		t.Errorf("every invalid field should be reported, got %d", len(ce.Report.Errors))
	}
	assertNoArtifact(t, cfg)
}

func TestRunEmptyMaskIsConfigError(t *testing.T) {
	cfg := project(t)
	maskPath := filepath.Join(t.TempDir(), "mask.txt")
	if err := os.WriteFile(maskPath, []byte(strings.Repeat("0\n", hours)), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Occupancy = config.Occupancy{MaskFile: maskPath}

	_, err := Run(context.Background(), cfg, Options{})
	if errs.Kind(err) != errs.KindConfig {
		t.Fatalf("expected config error, got %v", err)
	}
	assertNoArtifact(t, cfg)
}

func TestRunInputError(t *testing.T) {
	cfg := project(t)
	writeGrid(t, cfg.ResultsLocation, "short", []float64{1, 2, 3})

	_, err := Run(context.Background(), cfg, Options{})
	if errs.Kind(err) != errs.KindInput {
		t.Fatalf("expected input error, got %v", err)
	}
	assertNoArtifact(t, cfg)
}

func TestRunMatchError(t *testing.T) {
	cfg := project(t)
	cfg.Rooms = []string{"Office 1", "office-1"}

	_, err := Run(context.Background(), cfg, Options{})
	if errs.Kind(err) != errs.KindMatch {
		t.Fatalf("expected match error, got %v", err)
	}
	assertNoArtifact(t, cfg)
}

func TestRunAbortRemovesPreviousSummary(t *testing.T) {
	cfg := project(t)
	if _, err := Run(context.Background(), cfg, Options{Now: fixedNow}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := os.Stat(cfg.OutputPath()); err != nil {
		t.Fatalf("first run left no artifact: %v", err)
	}

	cfg.Rooms = []string{"Office 1", "office-1"}
	if _, err := Run(context.Background(), cfg, Options{}); errs.Kind(err) != errs.KindMatch {
		t.Fatalf("expected match error, got %v", err)
	}
	assertNoArtifact(t, cfg)
}

func TestRunConfigErrorRemovesPreviousSummary(t *testing.T) {
	cfg := project(t)
	if err := os.WriteFile(cfg.OutputPath(), []byte(`{"run_id":"old"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Thresholds.MinLux = -1

	if _, err := Run(context.Background(), cfg, Options{}); errs.Kind(err) != errs.KindConfig {
		t.Fatalf("expected config error, got %v", err)
	}
	assertNoArtifact(t, cfg)
}

func TestRunIsolatesComputeErrors(t *testing.T) {
	cfg := project(t)
	bad := series(400)
	bad[100] = math.NaN()
	writeGrid(t, cfg.ResultsLocation, "corrupt", series(400), bad)

	rec := &fakeRecorder{}
	s, err := Run(context.Background(), cfg, Options{Now: fixedNow, Recorder: rec})
	if err != nil {
		t.Fatalf("a corrupt grid should not abort the run: %v", err)
	}
	room, ok := s.Room("corrupt")
	if !ok {
		t.Fatal("corrupt grid missing from summary")
	}
	if !room.InsufficientData || room.Error == "" || room.Matched {
		t.Errorf("unexpected room: %+v", room)
	}
	if len(s.InsufficientDataRooms) != 1 {
		t.Errorf("InsufficientDataRooms = %q", s.InsufficientDataRooms)
	}
	if rec.statuses[StatusFailed] != 1 || rec.statuses[StatusOK] != 2 {
		t.Errorf("unexpected grid statuses: %v", rec.statuses)
	}
}

func TestRunHooks(t *testing.T) {
	cfg := project(t)
	cfg.MetricsFile = filepath.Join(t.TempDir(), "daylight.prom")
	rec := &fakeRecorder{}
	arc := &fakeArchiver{}

	s, err := Run(context.Background(), cfg, Options{Now: fixedNow, Recorder: rec, Archiver: arc})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.run != s || rec.textfile != cfg.MetricsFile {
		t.Error("recorder did not receive the run")
	}
	if len(arc.stored) != 1 || arc.stored[0] != s.RunID {
		t.Errorf("archiver stored %v", arc.stored)
	}
}

func TestRunHookFailureKeepsArtifact(t *testing.T) {
	cfg := project(t)
	arc := &fakeArchiver{err: errors.New("connection refused")}

	s, err := Run(context.Background(), cfg, Options{Archiver: arc})
	if err == nil {
		t.Fatal("expected archive failure to be reported")
	}
	if s == nil {
		t.Fatal("summary should be returned with a hook failure")
	}
	if _, statErr := os.Stat(cfg.OutputPath()); statErr != nil {
		t.Errorf("artifact should remain after a hook failure: %v", statErr)
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := project(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, cfg, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	assertNoArtifact(t, cfg)
}

type fakeRecorder struct {
	mu       sync.Mutex
	statuses map[string]int
	run      *summary.Summary
	textfile string
}

func (f *fakeRecorder) ObserveGrid(status string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = map[string]int{}
	}
	f.statuses[status]++
}

func (f *fakeRecorder) ObserveRun(s *summary.Summary, _ time.Duration) { f.run = s }

func (f *fakeRecorder) WriteTextfile(path string) error {
	f.textfile = path
	return nil
}

type fakeArchiver struct {
	stored []string
	err    error
}

func (f *fakeArchiver) Store(_ context.Context, s *summary.Summary) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, s.RunID)
	return nil
}
