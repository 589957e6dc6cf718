package model

// DistanceUnit identifies the unit of a range estimate.
type DistanceUnit string

const (
	Kilometres DistanceUnit = "km"
	Miles      DistanceUnit = "mi"
)

// SensitivityPoint is one row of a sensitivity table: the perturbed input
// and the range it produces.
type SensitivityPoint struct {
	Label string  `json:"label"`
	Input float64 `json:"input"`
	Range float64 `json:"range"`
}

// ConsumptionBreakdown splits energy use per 100 km into its contributors.
// It is informational and does not feed back into the range.
type ConsumptionBreakdown struct {
	Driving float64 `json:"driving"`
	Climate float64 `json:"climate"`
	Other   float64 `json:"other"`
	Total   float64 `json:"total"`
}

// Impact reports how much a single factor reduces the range.
type Impact struct {
	Factor       string   `json:"factor"`
	Value        float64  `json:"value"`
	ReductionPct float64  `json:"reduction_pct"`
	Severity     Severity `json:"severity"`
}

// Estimate is the model-independent result of a range computation.
type Estimate struct {
	ID    string       `json:"id,omitempty"`
	Model string       `json:"model"`
	Unit  DistanceUnit `json:"unit"`
	Range float64      `json:"range"`

	// EffectiveCapacityKWh is set by the degradation model.
	EffectiveCapacityKWh float64 `json:"effective_capacity_kwh,omitempty"`
	// Efficiency is distance per kWh of charged energy, set by the EPA model.
	Efficiency float64 `json:"efficiency,omitempty"`

	// Factors maps named factors to the percentage they remove from range.
	Factors map[string]float64 `json:"factors"`

	Sensitivity      []SensitivityPoint `json:"sensitivity"`
	SensitivitySlope float64            `json:"sensitivity_slope"`

	Consumption *ConsumptionBreakdown `json:"consumption,omitempty"`
	Impacts     []Impact              `json:"impacts,omitempty"`
}
