package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ChicagoDave/daylight/pkg/config"
	"github.com/ChicagoDave/daylight/pkg/errs"
	"github.com/ChicagoDave/daylight/pkg/grid"
)

const hours = config.HoursPerYear

func constant(v float64) []float64 {
	s := make([]float64, hours)
	for i := range s {
		s[i] = v
	}
	return s
}

// buildGrid stacks point series into a grid. nil weights means 1 per point.
func buildGrid(id string, weights []float64, series ...[]float64) *grid.SensorGrid {
	if weights == nil {
		weights = make([]float64, len(series))
		for i := range weights {
			weights[i] = 1
		}
	}
	g := &grid.SensorGrid{ID: id, Weights: weights, Hours: hours}
	if len(series) == 0 {
		return g
	}
	data := make([]float64, 0, len(series)*hours)
	for _, s := range series {
		data = append(data, s...)
	}
	g.Illuminance = mat.NewDense(len(series), hours, data)
	return g
}

// firstHours marks the first n hours of the year occupied.
func firstHours(n int) []bool {
	mask := make([]bool, hours)
	for i := 0; i < n; i++ {
		mask[i] = true
	}
	return mask
}

func defaultThresholds() config.Thresholds {
	return config.Thresholds{
		MinLux:      300,
		MinHoursReq: 2000,
		AvgLux:      300,
		AvgHoursReq: 2000,
		UDIMinLux:   300,
	}
}

func calculator(mask []bool) *Calculator {
	return &Calculator{Thresholds: defaultThresholds(), AreaPassPct: 80, Occupied: mask}
}

func TestMinimumCriterionHalfArea(t *testing.T) {
	g := buildGrid("office", nil, constant(500), constant(50))
	res, err := calculator(firstHours(2000)).Compute(g)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	if res.MinAreaPct != 50 {
		t.Errorf("MinAreaPct = %v, want 50", res.MinAreaPct)
	}
	if res.MinPass {
		t.Error("50% of area should fail an 80% area-pass policy")
	}
	if res.MinHours != 0 {
		t.Errorf("MinHours = %d, want 0 (the 50 lux point never complies)", res.MinHours)
	}
	if res.OccupiedHours != 2000 {
		t.Errorf("OccupiedHours = %d, want 2000", res.OccupiedHours)
	}
}

func TestAreaPassPolicyIsConfigurable(t *testing.T) {
	g := buildGrid("office", nil, constant(500), constant(50))
	c := calculator(firstHours(2000))
	c.AreaPassPct = 50
	res, _ := c.Compute(g)
	if !res.MinPass {
		t.Error("50% of area should pass a 50% area-pass policy")
	}
}

func TestAreaWeightsApply(t *testing.T) {
	g := buildGrid("office", []float64{3, 1}, constant(500), constant(50))
	res, _ := calculator(firstHours(2000)).Compute(g)
	if res.MinAreaPct != 75 {
		t.Errorf("MinAreaPct = %v, want 75", res.MinAreaPct)
	}
}

func TestAverageCriterion(t *testing.T) {
	// Spatial average is (500 + 50) / 2 = 275, below AvgLux 300.
	g := buildGrid("office", nil, constant(500), constant(50))
	res, _ := calculator(firstHours(2000)).Compute(g)
	if res.AvgPass || res.AvgHours != 0 || res.AvgAreaPct != 0 {
		t.Errorf("expected average fail, got pass=%v hours=%d pct=%v", res.AvgPass, res.AvgHours, res.AvgAreaPct)
	}

	// Weighted 3:1 the average is 387.5 and passes.
	g = buildGrid("office", []float64{3, 1}, constant(500), constant(50))
	res, _ = calculator(firstHours(2000)).Compute(g)
	if !res.AvgPass || res.AvgHours != 2000 || res.AvgAreaPct != 100 {
		t.Errorf("expected average pass, got pass=%v hours=%d pct=%v", res.AvgPass, res.AvgHours, res.AvgAreaPct)
	}
}

func TestAverageCountsOnlyOccupiedHours(t *testing.T) {
	series := constant(50)
	for h := 4000; h < 7000; h++ {
		series[h] = 1000
	}
	g := buildGrid("atrium", nil, series)
	res, _ := calculator(firstHours(2000)).Compute(g)
	if res.AvgHours != 0 {
		t.Errorf("AvgHours = %d, bright unoccupied hours must not count", res.AvgHours)
	}
}

func TestUDIAllAutonomousAtThreshold(t *testing.T) {
	c := calculator(firstHours(3000))
	c.Thresholds.UDIMinLux = 250
	g := buildGrid("studio", nil, constant(250), constant(250), constant(250))

	res, err := c.Compute(g)
	if err != nil {
		t.Fatal(err)
	}
	if res.UDIHours.Autonomous != 3000 {
		t.Errorf("Autonomous = %d, want 3000", res.UDIHours.Autonomous)
	}
	if res.UDIHours.Fallen != 0 || res.UDIHours.Supplementary != 0 || res.UDIHours.Exceeded != 0 {
		t.Errorf("other bins should be empty: %+v", res.UDIHours)
	}
	if res.UDIPct.Autonomous != 100 || res.UDIPct.Fallen != 0 || res.UDIPct.Supplementary != 0 || res.UDIPct.Exceeded != 0 {
		t.Errorf("unexpected UDI percentages: %+v", res.UDIPct)
	}
}

func TestUDIAllAutonomousWithFractionalWeights(t *testing.T) {
	cases := []struct {
		name    string
		lux     float64
		weights []float64
	}{
		{"two points", 300, []float64{0.1, 0.2}},
		{"three points", 333.3, []float64{1.1, 2.2, 3.3}},
		{"uneven", 417.7, []float64{0.3, 0.7, 0.01, 2.9}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			series := make([][]float64, len(tc.weights))
			for i := range series {
				series[i] = constant(tc.lux)
			}
			g := buildGrid("studio", tc.weights, series...)
			c := calculator(firstHours(3000))
			c.Thresholds.UDIMinLux = tc.lux

			res, err := c.Compute(g)
			if err != nil {
				t.Fatal(err)
			}
			if res.UDIHours.Autonomous != 3000 || res.UDIPct.Autonomous != 100 {
				t.Errorf("UDI = %+v / %+v, want all autonomous", res.UDIHours, res.UDIPct)
			}
		})
	}
}

func TestAverageAtThresholdWithFractionalWeights(t *testing.T) {
	g := buildGrid("office", []float64{0.1, 0.2, 0.35}, constant(300), constant(300), constant(300))
	res, _ := calculator(firstHours(2500)).Compute(g)
	if res.AvgHours != 2500 || !res.AvgPass || res.AvgAreaPct != 100 {
		t.Errorf("average at exactly AvgLux should comply: hours=%d pass=%v pct=%v", res.AvgHours, res.AvgPass, res.AvgAreaPct)
	}
}

func TestUDIBinBoundaries(t *testing.T) {
	// One occupied hour per value.
	values := []float64{0, 99.99, 100, 299.99, 300, 3000, 3000.01}
	series := constant(0)
	copy(series, values)
	g := buildGrid("bins", nil, series)

	res, _ := calculator(firstHours(len(values))).Compute(g)
	want := UDIHours{Fallen: 2, Supplementary: 2, Autonomous: 2, Exceeded: 1}
	if res.UDIHours != want {
		t.Errorf("UDIHours = %+v, want %+v", res.UDIHours, want)
	}
	if binTotal(res.UDIHours) != res.OccupiedHours {
		t.Errorf("bins sum to %d, occupied hours %d", binTotal(res.UDIHours), res.OccupiedHours)
	}
}

func TestUDIBinsSumToOccupiedHours(t *testing.T) {
	series := make([]float64, hours)
	for h := range series {
		series[h] = float64((h * 37) % 4000)
	}
	mask := make([]bool, hours)
	for h := range mask {
		mask[h] = h%3 != 0
	}
	g := buildGrid("mixed", []float64{0.4, 1.6}, series, constant(800))

	res, _ := calculator(mask).Compute(g)
	if binTotal(res.UDIHours) != config.CountOccupied(mask) {
		t.Errorf("bins sum to %d, want %d", binTotal(res.UDIHours), config.CountOccupied(mask))
	}
	assertPercentagesInRange(t, res)
}

func TestSDA(t *testing.T) {
	half := constant(0)
	for h := 0; h < 1000; h++ {
		half[h] = 300
	}
	short := constant(0)
	for h := 0; h < 999; h++ {
		short[h] = 300
	}
	g := buildGrid("sda", nil, half, short)

	res, _ := calculator(firstHours(2000)).Compute(g)
	if res.SDAPct != 50 {
		t.Errorf("SDAPct = %v, want 50 (only the point at exactly half the hours passes)", res.SDAPct)
	}
}

func TestASEUsesWholeYear(t *testing.T) {
	sunny := constant(0)
	for h := 8000; h < 8251; h++ { // 251 hours, all unoccupied
		sunny[h] = 1500
	}
	edge := constant(0)
	for h := 0; h < 250; h++ {
		edge[h] = 1500
	}
	atLimit := constant(1000)
	g := buildGrid("ase", nil, sunny, edge, atLimit)

	res, _ := calculator(firstHours(2000)).Compute(g)
	if math.Abs(res.ASEPct-33.33) > 1e-9 {
		t.Errorf("ASEPct = %v, want 33.33", res.ASEPct)
	}
}

func TestZeroPointGridIsInsufficient(t *testing.T) {
	g := buildGrid("empty", []float64{})
	res, err := calculator(firstHours(2000)).Compute(g)
	if err != nil {
		t.Fatalf("zero-point grid should not be an error: %v", err)
	}
	if !res.InsufficientData {
		t.Error("expected InsufficientData")
	}
	if res.MinPass || res.AvgPass || res.MinAreaPct != 0 || res.SDAPct != 0 {
		t.Errorf("insufficient data must not pass: %+v", res)
	}
}

func TestZeroAreaGridIsInsufficient(t *testing.T) {
	g := buildGrid("flat", []float64{0, 0}, constant(500), constant(500))
	res, _ := calculator(firstHours(2000)).Compute(g)
	if !res.InsufficientData {
		t.Error("grid with zero total area should be insufficient")
	}
}

func TestNonFiniteIsComputeError(t *testing.T) {
	bad := constant(400)
	bad[17] = math.NaN()
	g := buildGrid("corrupt", nil, constant(400), bad)

	res, err := calculator(firstHours(2000)).Compute(g)
	if errs.Kind(err) != errs.KindCompute {
		t.Fatalf("expected compute error, got %v", err)
	}
	if !res.InsufficientData || res.Error == "" {
		t.Errorf("result should be flagged insufficient with a reason: %+v", res)
	}

	bad[17] = math.Inf(1)
	if _, err := calculator(firstHours(2000)).Compute(g); errs.Kind(err) != errs.KindCompute {
		t.Errorf("expected compute error for +Inf, got %v", err)
	}
}

func TestRaisingMinLuxNeverIncreasesArea(t *testing.T) {
	series := make([][]float64, 6)
	for i := range series {
		s := make([]float64, hours)
		for h := range s {
			s[h] = float64((h*(i+3))%900) + float64(i*40)
		}
		series[i] = s
	}
	g := buildGrid("ramp", []float64{1, 2, 0.5, 1, 3, 1}, series...)

	prev := math.Inf(1)
	for lux := 50.0; lux <= 1000; lux += 50 {
		c := calculator(firstHours(4000))
		c.Thresholds.MinLux = lux
		c.Thresholds.MinHoursReq = 1500
		res, _ := c.Compute(g)
		if res.MinAreaPct > prev {
			t.Fatalf("min_lux %v raised MinAreaPct from %v to %v", lux, prev, res.MinAreaPct)
		}
		prev = res.MinAreaPct
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	g := buildGrid("office", []float64{1, 2}, constant(500), constant(120))
	c := calculator(firstHours(2500))
	a, _ := c.Compute(g)
	b, _ := c.Compute(g)
	if a != b {
		t.Errorf("results differ between identical computations:\n%+v\n%+v", a, b)
	}
}

func TestSpatialAverage(t *testing.T) {
	g := buildGrid("office", []float64{1, 3}, constant(100), constant(500))
	avg := SpatialAverage(g)
	if len(avg) != hours {
		t.Fatalf("len = %d, want %d", len(avg), hours)
	}
	if avg[0] != 400 || avg[hours-1] != 400 {
		t.Errorf("avg = %v, want 400", avg[0])
	}
}

func TestSpatialAverageUniformGrid(t *testing.T) {
	g := buildGrid("office", []float64{0.1, 0.2}, constant(300), constant(300))
	for h, v := range SpatialAverage(g) {
		if v != 300 {
			t.Fatalf("hour %d: avg = %v, want exactly 300", h, v)
		}
	}
}

func TestSpatialAverageIgnoresZeroWeightPoints(t *testing.T) {
	g := buildGrid("office", []float64{0, 0.3, 0.6}, constant(9000), constant(250), constant(250))
	if avg := SpatialAverage(g); avg[0] != 250 {
		t.Errorf("avg = %v, want 250", avg[0])
	}
}

func binTotal(u UDIHours) int {
	return u.Fallen + u.Supplementary + u.Autonomous + u.Exceeded
}

func assertPercentagesInRange(t *testing.T, r Result) {
	t.Helper()
	for name, v := range map[string]float64{
		"min_area_pct": r.MinAreaPct, "avg_area_pct": r.AvgAreaPct,
		"sda_pct": r.SDAPct, "ase_pct": r.ASEPct,
		"udi.fallen": r.UDIPct.Fallen, "udi.supplementary": r.UDIPct.Supplementary,
		"udi.autonomous": r.UDIPct.Autonomous, "udi.exceeded": r.UDIPct.Exceeded,
	} {
		if v < 0 || v > 100 {
			t.Errorf("%s = %v, outside [0,100]", name, v)
		}
	}
}
