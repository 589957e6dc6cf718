package model

// DegradationParams holds the inputs of the capacity-degradation range model.
// Numeric fields are pointers so an omitted value can be told apart from zero;
// the estimator decides which omissions fall back to defaults.
type DegradationParams struct {
	StateOfCharge         *float64 `json:"state_of_charge,omitempty" validate:"required,gte=0,lte=100"`
	BatteryCapacityKWh    *float64 `json:"battery_capacity_kwh,omitempty" validate:"required,gte=10,lte=200"`
	DrivingConsumption    *float64 `json:"driving_consumption_kwh_per_100km,omitempty" validate:"required,gte=5,lte=50"`
	TemperatureC          *float64 `json:"temperature_c,omitempty" validate:"required,gte=-20,lte=50"`
	BaseEfficiency        *float64 `json:"base_efficiency,omitempty" validate:"required,gte=0.5,lte=1"`
	ChargingDegradation   *float64 `json:"charging_degradation,omitempty" validate:"required,gte=0.5,lte=1"`
	BatteryAgeCycles      *float64 `json:"battery_age_cycles,omitempty" validate:"required,gte=0,lte=2000"`
	BatteryAgeYears       *float64 `json:"battery_age_years,omitempty" validate:"required,gte=0,lte=20"`
	TerrainFactor         *float64 `json:"terrain_factor,omitempty" validate:"required,gte=1,lte=2"`
	ClimateControlEnabled *bool    `json:"climate_control_enabled,omitempty"`
	ClimateFactor         *float64 `json:"climate_factor,omitempty" validate:"required,gte=0.5,lte=1"`
	RegenBrakingEnabled   *bool    `json:"regen_braking_enabled,omitempty"`
	RegenFactor           *float64 `json:"regen_factor,omitempty" validate:"required,gte=1,lte=1.5"`

	// Advanced makes the driving, terrain and battery-age inputs mandatory
	// instead of deriving them from the battery capacity.
	Advanced bool `json:"advanced,omitempty"`
}

// EpaParams holds the inputs of the EPA-relative range model.
type EpaParams struct {
	BatteryCapacityKWh   *float64     `json:"battery_capacity_kwh,omitempty" validate:"required,gte=0,lte=300"`
	EpaRangeMiles        *float64     `json:"epa_range_miles,omitempty" validate:"required,gte=0,lte=1000"`
	CurrentChargePercent *float64     `json:"current_charge_percent,omitempty" validate:"required,gte=0,lte=100"`
	TemperatureF         *float64     `json:"temperature_f,omitempty" validate:"required,gte=-20,lte=120"`
	AvgSpeedMph          *float64     `json:"avg_speed_mph,omitempty" validate:"required,gte=5,lte=85"`
	ClimateUsage         ClimateUsage `json:"climate_usage,omitempty" validate:"required"`
	TerrainType          TerrainType  `json:"terrain_type,omitempty" validate:"required"`
}

// Float returns a pointer to v. It keeps literal parameter sets short.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
