package estimator

import (
	"math"

	"github.com/kilianp07/evrange/core/model"
)

const (
	epaModelID          = "epa"
	referenceTempF      = 70.0
	referenceSpeedMph   = 25.0
	scenarioFactorFloor = 0.4
	cautionThreshold    = 0.95
	criticalThreshold   = 0.9
)

var climateFactors = map[model.ClimateUsage]float64{
	model.ClimateLow:    0.95,
	model.ClimateMedium: 0.85,
	model.ClimateHigh:   0.75,
}

var terrainFactors = map[model.TerrainType]float64{
	model.TerrainFlat:     1.0,
	model.TerrainHilly:    0.9,
	model.TerrainMountain: 0.8,
}

// EpaResult is the detailed output of EpaModel.
type EpaResult struct {
	RangeMiles        float64                  `json:"range_miles"`
	Efficiency        float64                  `json:"efficiency"`
	TemperatureFactor float64                  `json:"temperature_factor"`
	SpeedFactor       float64                  `json:"speed_factor"`
	ClimateFactor     float64                  `json:"climate_factor"`
	TerrainFactor     float64                  `json:"terrain_factor"`
	Impacts           []model.Impact           `json:"impacts"`
	Scenarios         []model.SensitivityPoint `json:"scenarios"`
	MeanScenarioDelta float64                  `json:"mean_scenario_delta"`
}

// EpaModel scales the EPA-rated range by temperature, speed, climate-control
// and terrain factors and reports miles.
type EpaModel struct{}

type epaInputs struct {
	capacity, epaRange, charge, temperature, speed float64
	climate                                        model.ClimateUsage
	terrain                                        model.TerrainType
}

type epaFactors struct {
	temperature, speed, climate, terrain float64
}

// Name implements Estimator.
func (EpaModel) Name() string { return epaModelID }

// Unit implements Estimator.
func (EpaModel) Unit() model.DistanceUnit { return model.Miles }

func resolveEpa(p model.EpaParams) (epaInputs, error) {
	if p.ClimateUsage != "" {
		cu, err := model.ParseClimateUsage(string(p.ClimateUsage))
		if err != nil {
			return epaInputs{}, &ValidationError{Field: "climate_usage", Reason: "must be one of Low Medium High"}
		}
		p.ClimateUsage = cu
	}
	if p.TerrainType != "" {
		tt, err := model.ParseTerrainType(string(p.TerrainType))
		if err != nil {
			return epaInputs{}, &ValidationError{Field: "terrain_type", Reason: "must be one of Flat Hilly Mountain"}
		}
		p.TerrainType = tt
	}
	if err := checkDomain(p); err != nil {
		return epaInputs{}, err
	}
	return epaInputs{
		capacity:    *p.BatteryCapacityKWh,
		epaRange:    *p.EpaRangeMiles,
		charge:      *p.CurrentChargePercent,
		temperature: *p.TemperatureF,
		speed:       *p.AvgSpeedMph,
		climate:     p.ClimateUsage,
		terrain:     p.TerrainType,
	}, nil
}

func temperatureFactorF(tempF float64) float64 {
	return 1 - math.Abs(tempF-referenceTempF)*0.015
}

func speedFactorMph(speed float64) float64 {
	over := math.Max(0, speed-referenceSpeedMph)
	return 1 - over*over*0.0008
}

// epaRange multiplies the EPA rating by charge and the four factors.
func epaRange(in epaInputs, f epaFactors) float64 {
	return in.epaRange * (in.charge / 100) * f.temperature * f.speed * f.climate * f.terrain
}

// Compute evaluates the model, the per-factor impacts and the three
// sensitivity scenarios. Temperature and speed factors are floored at zero
// so that two extreme inputs cannot multiply into a positive range.
func (m EpaModel) Compute(p model.EpaParams) (EpaResult, error) {
	in, err := resolveEpa(p)
	if err != nil {
		return EpaResult{}, err
	}
	f := epaFactors{
		temperature: floorAt(temperatureFactorF(in.temperature), 0),
		speed:       floorAt(speedFactorMph(in.speed), 0),
		climate:     climateFactors[in.climate],
		terrain:     terrainFactors[in.terrain],
	}
	rng := epaRange(in, f)

	eff := 0.0
	if charged := in.capacity * (in.charge / 100); in.capacity > 0 && charged > 0 {
		eff = rng / charged
	}

	scenarios := epaScenarios(in, f)
	base := round(rng, 1)
	return EpaResult{
		RangeMiles:        base,
		Efficiency:        round(eff, 2),
		TemperatureFactor: round(f.temperature, 3),
		SpeedFactor:       round(f.speed, 3),
		ClimateFactor:     f.climate,
		TerrainFactor:     f.terrain,
		Impacts: []model.Impact{
			impact("temperature", f.temperature),
			impact("speed", f.speed),
			impact("climate", f.climate),
			impact("terrain", f.terrain),
		},
		Scenarios:         scenarios,
		MeanScenarioDelta: meanDelta(base, scenarios),
	}, nil
}

// Scenarios returns the colder, faster and high-climate recomputations.
func (m EpaModel) Scenarios(p model.EpaParams) ([]model.SensitivityPoint, error) {
	res, err := m.Compute(p)
	if err != nil {
		return nil, err
	}
	return res.Scenarios, nil
}

func epaScenarios(in epaInputs, f epaFactors) []model.SensitivityPoint {
	colder := f
	colder.temperature = floorAt(temperatureFactorF(in.temperature-10), scenarioFactorFloor)
	faster := f
	faster.speed = floorAt(speedFactorMph(in.speed+10), scenarioFactorFloor)
	highClimate := f
	highClimate.climate = climateFactors[model.ClimateHigh]

	return []model.SensitivityPoint{
		{Label: "10°F colder", Input: in.temperature - 10, Range: round(epaRange(in, colder), 1)},
		{Label: "+10 mph faster", Input: in.speed + 10, Range: round(epaRange(in, faster), 1)},
		{Label: "High climate use", Input: highClimate.climate, Range: round(epaRange(in, highClimate), 1)},
	}
}

// Classify maps a factor onto a severity: below 0.9 is critical, below 0.95
// is caution.
func Classify(factor float64) model.Severity {
	switch {
	case factor < criticalThreshold:
		return model.SeverityCritical
	case factor < cautionThreshold:
		return model.SeverityCaution
	default:
		return model.SeverityNominal
	}
}

func impact(name string, factor float64) model.Impact {
	return model.Impact{
		Factor:       name,
		Value:        round(factor, 3),
		ReductionPct: round((1-factor)*100, 0),
		Severity:     Classify(factor),
	}
}

// Estimate converts the detailed result into the shared Estimate shape.
func (r EpaResult) Estimate() model.Estimate {
	factors := make(map[string]float64, len(r.Impacts))
	for _, im := range r.Impacts {
		factors[im.Factor] = im.ReductionPct
	}
	return model.Estimate{
		Model:            epaModelID,
		Unit:             model.Miles,
		Range:            r.RangeMiles,
		Efficiency:       r.Efficiency,
		Factors:          factors,
		Sensitivity:      r.Scenarios,
		SensitivitySlope: r.MeanScenarioDelta,
		Impacts:          r.Impacts,
	}
}

// ComputeRange implements Estimator for raw parameter maps.
func (m EpaModel) ComputeRange(params map[string]any) (model.Estimate, error) {
	var p model.EpaParams
	if err := decodeParams(params, &p); err != nil {
		return model.Estimate{}, err
	}
	res, err := m.Compute(p)
	if err != nil {
		return model.Estimate{}, err
	}
	return res.Estimate(), nil
}
