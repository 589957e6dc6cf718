package estimator

import (
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/evrange/core/model"
)

// SweepSoC lists the state-of-charge values used by the degradation sweep.
var SweepSoC = []float64{10, 30, 50, 70, 90}

// Slope returns the least-squares slope of range against the swept input.
// It returns 0 when fewer than two points are given.
func Slope(points []model.SensitivityPoint) float64 {
	if len(points) < 2 {
		return 0
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Input
		ys[i] = p.Range
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return round(beta, 3)
}

// meanDelta returns the average change of the scenario ranges against base.
func meanDelta(base float64, points []model.SensitivityPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	ys := make([]float64, len(points))
	for i, p := range points {
		ys[i] = p.Range - base
	}
	return round(stat.Mean(ys, nil), 1)
}
