// Package metrics computes BREEAM, UDI, sDA and ASE results for a sensor grid.
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ChicagoDave/daylight/pkg/config"
	"github.com/ChicagoDave/daylight/pkg/errs"
	"github.com/ChicagoDave/daylight/pkg/grid"
)

// UDIHours counts occupied hours per UDI bin.
type UDIHours struct {
	Fallen        int `json:"fallen"`
	Supplementary int `json:"supplementary"`
	Autonomous    int `json:"autonomous"`
	Exceeded      int `json:"exceeded"`
}

// UDIPct is UDIHours as percentages of occupied hours.
type UDIPct struct {
	Fallen        float64 `json:"fallen"`
	Supplementary float64 `json:"supplementary"`
	Autonomous    float64 `json:"autonomous"`
	Exceeded      float64 `json:"exceeded"`
}

// Result holds the metrics of one grid. It has no room label yet.
type Result struct {
	GridID           string
	Points           int
	OccupiedHours    int
	InsufficientData bool

	MinPass    bool
	MinHours   int
	MinAreaPct float64

	AvgPass    bool
	AvgHours   int
	AvgAreaPct float64

	UDIHours UDIHours
	UDIPct   UDIPct

	SDAPct float64
	ASEPct float64

	// Error describes why the grid could not be evaluated.
	Error string
}

// Calculator evaluates grids against one run's thresholds. It holds no
// mutable state and may be shared across goroutines.
type Calculator struct {
	Thresholds config.Thresholds
	// AreaPassPct is the area share (0-100) that must pass the minimum
	// criterion for the room to pass it.
	AreaPassPct float64
	// Occupied marks the occupied hours of the year.
	Occupied []bool
}

// NewCalculator builds a Calculator from a validated configuration and
// occupied-hours mask.
func NewCalculator(c *config.Config, occupied []bool) *Calculator {
	return &Calculator{
		Thresholds:  c.Thresholds,
		AreaPassPct: c.Policy.AreaPassPct,
		Occupied:    occupied,
	}
}

// Compute evaluates a grid.
//
// BREEAM minimum: a point passes when it reaches MinLux for at least
// MinHoursReq occupied hours; MinAreaPct is the passing share of area and
// MinHours the fewest compliant hours of any point.
//
// BREEAM average: the area-weighted spatial average is taken per hour and
// the room passes when it reaches AvgLux for at least AvgHoursReq occupied
// hours. AvgAreaPct is 100 on a pass and 0 otherwise.
//
// UDI bins classify each occupied hour of the spatial average as fallen
// (< 100), supplementary (< UDIMinLux), autonomous (<= 3000) or exceeded.
//
// sDA is the share of area reaching 300 lux for half the occupied hours.
// ASE is the share of area above 1000 lux for more than 250 hours of the
// whole year.
//
// A grid without points or area is returned with InsufficientData set.
// Non-finite illuminance yields a *errs.ComputeError together with an
// InsufficientData result.
func (c *Calculator) Compute(g *grid.SensorGrid) (Result, error) {
	res := Result{
		GridID:        g.ID,
		Points:        g.Points(),
		OccupiedHours: config.CountOccupied(c.Occupied),
	}

	if g.Points() == 0 || !(g.TotalArea() > 0) || res.OccupiedHours == 0 {
		res.InsufficientData = true
		res.Error = "no sensor points, area or occupied hours to evaluate"
		return res, nil
	}
	if g.Hours != len(c.Occupied) {
		err := &errs.ComputeError{GridID: g.ID, Err: fmt.Errorf("series has %d hours, occupancy mask has %d", g.Hours, len(c.Occupied))}
		return insufficient(res, err), err
	}
	if err := checkFinite(g); err != nil {
		return insufficient(res, err), err
	}

	c.pointMetrics(g, &res)
	c.spatialMetrics(g, &res)
	return res, nil
}

func insufficient(res Result, err error) Result {
	res.InsufficientData = true
	res.Error = err.Error()
	return res
}

func checkFinite(g *grid.SensorGrid) error {
	for i := 0; i < g.Points(); i++ {
		for h, v := range g.Series(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &errs.ComputeError{
					GridID: g.ID,
					Err:    fmt.Errorf("point %d hour %d: non-finite illuminance %v", i, h, v),
				}
			}
		}
	}
	return nil
}

// pointMetrics computes the per-point criteria: BREEAM minimum, sDA, ASE.
func (c *Calculator) pointMetrics(g *grid.SensorGrid, res *Result) {
	t := c.Thresholds
	area := g.TotalArea()
	sdaNeed := SDAFraction * float64(res.OccupiedHours)

	var minArea, sdaArea, aseArea float64
	res.MinHours = -1
	for i := 0; i < g.Points(); i++ {
		var compliant, sdaHours, aseHours int
		for h, v := range g.Series(i) {
			if v > ASELux {
				aseHours++
			}
			if !c.Occupied[h] {
				continue
			}
			if v >= t.MinLux {
				compliant++
			}
			if v >= SDALux {
				sdaHours++
			}
		}

		w := g.Weights[i]
		if compliant >= t.MinHoursReq {
			minArea += w
		}
		if float64(sdaHours) >= sdaNeed {
			sdaArea += w
		}
		if aseHours > ASEHours {
			aseArea += w
		}
		if res.MinHours < 0 || compliant < res.MinHours {
			res.MinHours = compliant
		}
	}

	res.MinAreaPct = pct(minArea, area)
	res.MinPass = res.MinAreaPct >= c.AreaPassPct
	res.SDAPct = pct(sdaArea, area)
	res.ASEPct = pct(aseArea, area)
}

// spatialMetrics computes the criteria evaluated on the hourly spatial
// average: BREEAM average and UDI.
func (c *Calculator) spatialMetrics(g *grid.SensorGrid, res *Result) {
	t := c.Thresholds
	avg := SpatialAverage(g)

	for h, v := range avg {
		if !c.Occupied[h] {
			continue
		}
		if v >= t.AvgLux {
			res.AvgHours++
		}
		switch {
		case v < UDILowerLux:
			res.UDIHours.Fallen++
		case v < t.UDIMinLux:
			res.UDIHours.Supplementary++
		case v <= UDIUpperLux:
			res.UDIHours.Autonomous++
		default:
			res.UDIHours.Exceeded++
		}
	}

	res.AvgPass = res.AvgHours >= t.AvgHoursReq
	if res.AvgPass {
		res.AvgAreaPct = 100
	}

	occ := float64(res.OccupiedHours)
	res.UDIPct = UDIPct{
		Fallen:        pct(float64(res.UDIHours.Fallen), occ),
		Supplementary: pct(float64(res.UDIHours.Supplementary), occ),
		Autonomous:    pct(float64(res.UDIHours.Autonomous), occ),
		Exceeded:      pct(float64(res.UDIHours.Exceeded), occ),
	}
}

// SpatialAverage returns the area-weighted mean illuminance of the grid for
// every hour of the year. Each hourly mean is clamped to the range of the
// point values with positive weight, so a uniformly lit grid averages to
// exactly its illuminance whatever the weights.
func SpatialAverage(g *grid.SensorGrid) []float64 {
	w := mat.NewVecDense(len(g.Weights), append([]float64(nil), g.Weights...))
	var sum mat.VecDense
	sum.MulVec(g.Illuminance.T(), w)

	area := g.TotalArea()
	avg := sum.RawVector().Data
	lo := make([]float64, len(avg))
	hi := make([]float64, len(avg))
	seen := false
	for i, wi := range g.Weights {
		if !(wi > 0) {
			continue
		}
		for h, v := range g.Series(i) {
			if !seen || v < lo[h] {
				lo[h] = v
			}
			if !seen || v > hi[h] {
				hi[h] = v
			}
		}
		seen = true
	}
	for h := range avg {
		avg[h] /= area
		if seen {
			avg[h] = math.Min(math.Max(avg[h], lo[h]), hi[h])
		}
	}
	return avg
}

func pct(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return round2(100 * part / whole)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
