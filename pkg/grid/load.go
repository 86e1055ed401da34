package grid

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sbinet/npyio"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/ChicagoDave/daylight/pkg/errs"
)

// HoneybeeResultsDir is where Honeybee annual daylight recipes leave the
// per-grid total illuminance arrays, relative to the simulation folder.
var HoneybeeResultsDir = filepath.Join("results", "__static_apertures__", "default", "total")

// WeightsExt is the extension of the optional per-grid area-weight file.
const WeightsExt = ".weights"

var gridExts = map[string]bool{".npy": true, ".csv": true}

// Loader reads every grid file of a results folder.
type Loader struct {
	AnnualHours int
	Workers     int
	Log         *slog.Logger
}

// Discover lists the grid files of a results location in name order. The
// Honeybee results folder is preferred when it exists; otherwise grid files
// are taken from the location itself.
func Discover(location string) ([]string, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, errs.Input(location, err)
	}
	if !info.IsDir() {
		return nil, errs.Inputf(location, "results location is not a directory")
	}

	dir := location
	if hb := filepath.Join(location, HoneybeeResultsDir); isDir(hb) {
		dir = hb
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errs.Input(dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !gridExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, errs.Inputf(dir, "no .npy or .csv grid files found")
	}
	sort.Strings(files)
	return files, nil
}

// Load discovers and reads every grid below location. Files are read in
// parallel; the first failure cancels the remaining reads and is returned.
// The grids are returned in file-name order.
func (l *Loader) Load(ctx context.Context, location string) ([]*SensorGrid, error) {
	files, err := Discover(location)
	if err != nil {
		return nil, err
	}

	grids := make([]*SensorGrid, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if l.Workers > 0 {
		g.SetLimit(l.Workers)
	}
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sg, err := ReadFile(path, l.AnnualHours)
			if err != nil {
				return err
			}
			grids[i] = sg
			if l.Log != nil {
				l.Log.Debug("grid loaded", "grid", sg.ID, "points", sg.Points(), "file", path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(grids))
	for _, sg := range grids {
		if prev, ok := seen[sg.ID]; ok {
			return nil, errs.Inputf(sg.Source, "grid %q is also provided by %s", sg.ID, prev)
		}
		seen[sg.ID] = sg.Source
	}
	return grids, nil
}

// ReadFile reads a single grid file and its optional weights file. Every
// point series must have exactly annualHours values.
func ReadFile(path string, annualHours int) (*SensorGrid, error) {
	var (
		m   *mat.Dense
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		m, err = readNpy(path)
	case ".csv":
		m, err = readCSV(path)
	default:
		err = fmt.Errorf("unsupported grid file type")
	}
	if err != nil {
		return nil, errs.Input(path, err)
	}

	points := 0
	if m != nil {
		var hours int
		points, hours = m.Dims()
		if hours != annualHours {
			return nil, errs.Inputf(path, "series length %d does not match %d annual hours", hours, annualHours)
		}
	}

	weights, err := readWeights(weightsPath(path), points)
	if err != nil {
		return nil, err
	}

	return &SensorGrid{
		ID:          strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Source:      path,
		Illuminance: m,
		Weights:     weights,
		Hours:       annualHours,
	}, nil
}

// readNpy reads a 2-D (points × hours) or 1-D (single point) float array.
// A nil matrix is returned for an array without points.
func readNpy(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading npy header: %w", err)
	}

	shape := r.Header.Descr.Shape
	var rows, cols int
	switch len(shape) {
	case 1:
		rows, cols = 1, shape[0]
	case 2:
		rows, cols = shape[0], shape[1]
	default:
		return nil, fmt.Errorf("expected a 1-D or 2-D array, got shape %v", shape)
	}
	if rows == 0 {
		return nil, nil
	}
	if cols == 0 {
		return nil, fmt.Errorf("array has %d points but no hours", rows)
	}

	var data []float64
	switch r.Header.Descr.Type {
	case "<f8", "f8", "float64":
		if err := r.Read(&data); err != nil {
			return nil, fmt.Errorf("reading npy data: %w", err)
		}
	case "<f4", "f4", "float32":
		var f32 []float32
		if err := r.Read(&f32); err != nil {
			return nil, fmt.Errorf("reading npy data: %w", err)
		}
		data = make([]float64, len(f32))
		for i, v := range f32 {
			data[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("unsupported npy dtype %q", r.Header.Descr.Type)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("npy holds %d values, shape %v needs %d", len(data), shape, rows*cols)
	}

	if r.Header.Descr.Fortran && rows > 1 {
		// Column-major storage: transpose into row-major points × hours.
		cm := mat.NewDense(cols, rows, data)
		m := mat.NewDense(rows, cols, nil)
		m.Copy(cm.T())
		return m, nil
	}
	return mat.NewDense(rows, cols, data), nil
}

// readCSV reads one point per row and one hour per column.
func readCSV(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(bufio.NewReader(f))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	var (
		data []float64
		cols = -1
		rows int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read error at line %d: %w", rows+1, err)
		}
		if cols == -1 {
			cols = len(record)
		} else if len(record) != cols {
			return nil, fmt.Errorf("line %d: %d values, previous rows have %d", rows+1, len(record), cols)
		}
		for j, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: invalid value %q", rows+1, j+1, field)
			}
			data = append(data, v)
		}
		rows++
	}
	if rows == 0 {
		return nil, nil
	}
	return mat.NewDense(rows, cols, data), nil
}

func weightsPath(gridPath string) string {
	return strings.TrimSuffix(gridPath, filepath.Ext(gridPath)) + WeightsExt
}

// readWeights loads one non-negative area weight per point. A missing file
// gives every point a weight of 1.
func readWeights(path string, points int) ([]float64, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		w := make([]float64, points)
		for i := range w {
			w[i] = 1
		}
		return w, nil
	}
	if err != nil {
		return nil, errs.Input(path, err)
	}
	defer f.Close()

	weights := make([]float64, 0, points)
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, errs.Inputf(path, "line %d: invalid weight %q", line, text)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errs.Inputf(path, "line %d: weight %v must be a non-negative finite number", line, v)
		}
		weights = append(weights, v)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Input(path, err)
	}
	if len(weights) != points {
		return nil, errs.Inputf(path, "%d weights for %d sensor points", len(weights), points)
	}
	return weights, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
