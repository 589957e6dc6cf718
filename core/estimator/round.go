package estimator

import (
	"math"

	"github.com/shopspring/decimal"
)

// round rounds half away from zero to the given number of decimal places.
func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// floorAt keeps a multiplicative factor from dropping below lo.
func floorAt(v, lo float64) float64 { return math.Max(lo, v) }
