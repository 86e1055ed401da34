// Package grid loads annual illuminance results, one sensor grid per file.
package grid

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SensorGrid is one analysed room or surface: a set of sensor points, each
// with an annual hourly illuminance series and an area weight.
type SensorGrid struct {
	ID     string
	Source string

	// Illuminance holds one row per sensor point and one column per annual
	// hour, in lux. It is nil for a grid without points.
	Illuminance *mat.Dense
	Weights     []float64
	Hours       int
}

// Points returns the number of sensor points in the grid.
func (g *SensorGrid) Points() int {
	return len(g.Weights)
}

// TotalArea returns the sum of the point area weights.
func (g *SensorGrid) TotalArea() float64 {
	if len(g.Weights) == 0 {
		return 0
	}
	return floats.Sum(g.Weights)
}

// Series returns the hourly series of point i. The slice aliases the
// grid's storage and must not be modified.
func (g *SensorGrid) Series(i int) []float64 {
	return g.Illuminance.RawRowView(i)
}
