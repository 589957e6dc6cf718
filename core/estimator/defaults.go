package estimator

import (
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
)

// Documented fallbacks for optional degradation-model inputs.
const (
	DefaultTemperatureC        = 25.0
	DefaultBaseEfficiency      = 0.98
	DefaultChargingDegradation = 0.98
	DefaultBatteryAgeCycles    = 100.0
	DefaultBatteryAgeYears     = 2.0
	DefaultClimateFactor       = 0.85
	DefaultRegenFactor         = 1.05
)

// Defaults are the capacity-derived driving inputs.
type Defaults struct {
	Consumption   float64 `json:"driving_consumption_kwh_per_100km"`
	TerrainFactor float64 `json:"terrain_factor"`
}

// DeriveDefaults uses the battery capacity as a proxy for vehicle class:
// large packs (>75 kWh) get 18 kWh/100km on slightly heavier terrain, small
// packs (<40 kWh) 14 kWh/100km and everything in between 16 kWh/100km.
func DeriveDefaults(capacityKWh float64) Defaults {
	d := Defaults{Consumption: 16, TerrainFactor: 1.0}
	switch {
	case capacityKWh > 75:
		d.Consumption = 18
		d.TerrainFactor = 1.05
	case capacityKWh < 40:
		d.Consumption = 14
	}
	return d
}

// CheckCapacity rejects capacities DeriveDefaults is not meant for: NaN,
// infinities and values outside the degradation model's domain.
func CheckCapacity(capacityKWh float64) error {
	if math.IsNaN(capacityKWh) || math.IsInf(capacityKWh, 0) {
		return &ValidationError{Field: "battery_capacity_kwh", Reason: "must be a number"}
	}
	err := validate.Var(capacityKWh, "gte=10,lte=200")
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: "battery_capacity_kwh", Reason: describe(verrs[0])}
	}
	return err
}

func orDefault(v *float64, def float64) *float64 {
	if v != nil {
		return v
	}
	return &def
}
