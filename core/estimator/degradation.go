package estimator

import (
	"fmt"
	"math"

	"github.com/kilianp07/evrange/core/model"
)

const (
	degradationFloor   = 0.7
	temperatureFloor   = 0.7
	referenceTempC     = 25.0
	otherLossShare     = 0.1
	degradationModelID = "degradation"
)

// DegradationResult is the detailed output of DegradationModel.
type DegradationResult struct {
	RangeKm                float64                    `json:"range_km"`
	EffectiveCapacityKWh   float64                    `json:"effective_capacity_kwh"`
	CycleDegradationPct    float64                    `json:"cycle_degradation_pct"`
	CalendarDegradationPct float64                    `json:"calendar_degradation_pct"`
	TotalDegradationPct    float64                    `json:"total_degradation_pct"`
	TempFactor             float64                    `json:"temp_factor"`
	EnergyConsumption      float64                    `json:"energy_consumption"`
	ClimateFactor          float64                    `json:"climate_factor"`
	RegenFactor            float64                    `json:"regen_factor"`
	Consumption            model.ConsumptionBreakdown `json:"consumption"`
	Sensitivity            []model.SensitivityPoint   `json:"sensitivity"`
	SensitivitySlope       float64                    `json:"sensitivity_slope"`
}

// DegradationModel estimates range in kilometres from the usable share of the
// battery after cycle and calendar ageing, temperature and accessory losses.
type DegradationModel struct{}

// degradationInputs is a fully resolved and validated parameter set.
type degradationInputs struct {
	soc, capacity, consumption, temperature float64
	baseEfficiency, chargingDegradation     float64
	cycles, years, terrain                  float64
	climateOn, regenOn                      bool
	climateFactor, regenFactor              float64
}

// degradationCore holds the unrounded intermediate values of one evaluation.
type degradationCore struct {
	cycleDeg, calendarDeg, degradation float64
	tempFactor, climate, regen         float64
	effectiveCapacity, consumption     float64
	rangeKm                            float64
}

// Name implements Estimator.
func (DegradationModel) Name() string { return degradationModelID }

// Unit implements Estimator.
func (DegradationModel) Unit() model.DistanceUnit { return model.Kilometres }

// resolveDegradation applies defaults to optional inputs and validates the
// result. In basic mode consumption and terrain are derived from capacity;
// in advanced mode they, the temperature and the battery age are required.
func resolveDegradation(p model.DegradationParams) (degradationInputs, error) {
	if !p.Advanced {
		if p.BatteryCapacityKWh != nil {
			d := DeriveDefaults(*p.BatteryCapacityKWh)
			p.DrivingConsumption = orDefault(p.DrivingConsumption, d.Consumption)
			p.TerrainFactor = orDefault(p.TerrainFactor, d.TerrainFactor)
		}
		p.TemperatureC = orDefault(p.TemperatureC, DefaultTemperatureC)
		p.BatteryAgeCycles = orDefault(p.BatteryAgeCycles, DefaultBatteryAgeCycles)
		p.BatteryAgeYears = orDefault(p.BatteryAgeYears, DefaultBatteryAgeYears)
	}
	p.BaseEfficiency = orDefault(p.BaseEfficiency, DefaultBaseEfficiency)
	p.ChargingDegradation = orDefault(p.ChargingDegradation, DefaultChargingDegradation)

	climateOn := p.ClimateControlEnabled != nil && *p.ClimateControlEnabled
	regenOn := p.RegenBrakingEnabled == nil || *p.RegenBrakingEnabled
	if !p.Advanced || !climateOn {
		p.ClimateFactor = orDefault(p.ClimateFactor, DefaultClimateFactor)
	}
	if !p.Advanced || !regenOn {
		p.RegenFactor = orDefault(p.RegenFactor, DefaultRegenFactor)
	}

	if err := checkDomain(p); err != nil {
		return degradationInputs{}, err
	}
	return degradationInputs{
		soc:                 *p.StateOfCharge,
		capacity:            *p.BatteryCapacityKWh,
		consumption:         *p.DrivingConsumption,
		temperature:         *p.TemperatureC,
		baseEfficiency:      *p.BaseEfficiency,
		chargingDegradation: *p.ChargingDegradation,
		cycles:              *p.BatteryAgeCycles,
		years:               *p.BatteryAgeYears,
		terrain:             *p.TerrainFactor,
		climateOn:           climateOn,
		regenOn:             regenOn,
		climateFactor:       *p.ClimateFactor,
		regenFactor:         *p.RegenFactor,
	}, nil
}

func evalDegradation(in degradationInputs) degradationCore {
	var c degradationCore
	c.cycleDeg = 0.0001*in.cycles + 0.00000002*in.cycles*in.cycles
	c.calendarDeg = 0.02 * math.Sqrt(in.years)
	c.degradation = floorAt(1-(c.cycleDeg+c.calendarDeg), degradationFloor)
	c.tempFactor = floorAt(1-0.005*math.Abs(in.temperature-referenceTempC), temperatureFloor)

	c.climate = 1.0
	if in.climateOn {
		c.climate = in.climateFactor
	}
	c.regen = 1.0
	if in.regenOn {
		c.regen = in.regenFactor
	}

	c.effectiveCapacity = in.capacity * (in.soc / 100) * c.degradation * in.baseEfficiency *
		in.chargingDegradation * c.tempFactor * c.climate * c.regen
	c.consumption = in.consumption * in.terrain
	c.rangeKm = math.Max(0, c.effectiveCapacity/c.consumption*100)
	return c
}

// Compute evaluates the model, the SoC sweep and the consumption breakdown.
func (m DegradationModel) Compute(p model.DegradationParams) (DegradationResult, error) {
	in, err := resolveDegradation(p)
	if err != nil {
		return DegradationResult{}, err
	}
	c := evalDegradation(in)
	sweep := sweepDegradation(in)
	return DegradationResult{
		RangeKm:                round(c.rangeKm, 1),
		EffectiveCapacityKWh:   round(c.effectiveCapacity, 2),
		CycleDegradationPct:    round(c.cycleDeg*100, 2),
		CalendarDegradationPct: round(c.calendarDeg*100, 2),
		TotalDegradationPct:    round((1-c.degradation)*100, 2),
		TempFactor:             round(c.tempFactor, 3),
		EnergyConsumption:      round(c.consumption, 2),
		ClimateFactor:          c.climate,
		RegenFactor:            c.regen,
		Consumption:            breakdown(in),
		Sensitivity:            sweep,
		SensitivitySlope:       Slope(sweep),
	}, nil
}

// Sweep recomputes the range for each SweepSoC value, all other inputs fixed.
func (m DegradationModel) Sweep(p model.DegradationParams) ([]model.SensitivityPoint, error) {
	in, err := resolveDegradation(p)
	if err != nil {
		return nil, err
	}
	return sweepDegradation(in), nil
}

// Breakdown splits the configured consumption into driving, climate and
// unmodelled losses.
func (m DegradationModel) Breakdown(p model.DegradationParams) (model.ConsumptionBreakdown, error) {
	in, err := resolveDegradation(p)
	if err != nil {
		return model.ConsumptionBreakdown{}, err
	}
	return breakdown(in), nil
}

func sweepDegradation(in degradationInputs) []model.SensitivityPoint {
	out := make([]model.SensitivityPoint, 0, len(SweepSoC))
	for _, soc := range SweepSoC {
		in.soc = soc
		out = append(out, model.SensitivityPoint{
			Label: fmt.Sprintf("%g%% SoC", soc),
			Input: soc,
			Range: round(evalDegradation(in).rangeKm, 1),
		})
	}
	return out
}

func breakdown(in degradationInputs) model.ConsumptionBreakdown {
	b := model.ConsumptionBreakdown{
		Driving: in.consumption * in.terrain,
		Other:   in.consumption * otherLossShare,
	}
	if in.climateOn {
		b.Climate = in.consumption * (1 - in.climateFactor)
	}
	b.Total = b.Driving + b.Climate + b.Other
	b.Driving = round(b.Driving, 2)
	b.Climate = round(b.Climate, 2)
	b.Other = round(b.Other, 2)
	b.Total = round(b.Total, 2)
	return b
}

// Estimate converts the detailed result into the shared Estimate shape.
func (r DegradationResult) Estimate() model.Estimate {
	cons := r.Consumption
	return model.Estimate{
		Model:                degradationModelID,
		Unit:                 model.Kilometres,
		Range:                r.RangeKm,
		EffectiveCapacityKWh: r.EffectiveCapacityKWh,
		Factors: map[string]float64{
			"cycle_degradation":    r.CycleDegradationPct,
			"calendar_degradation": r.CalendarDegradationPct,
			"total_degradation":    r.TotalDegradationPct,
			"temperature":          round((1-r.TempFactor)*100, 2),
			"climate":              round((1-r.ClimateFactor)*100, 2),
			"regen":                round((1-r.RegenFactor)*100, 2),
		},
		Sensitivity:      r.Sensitivity,
		SensitivitySlope: r.SensitivitySlope,
		Consumption:      &cons,
	}
}

// ComputeRange implements Estimator for raw parameter maps.
func (m DegradationModel) ComputeRange(params map[string]any) (model.Estimate, error) {
	var p model.DegradationParams
	if err := decodeParams(params, &p); err != nil {
		return model.Estimate{}, err
	}
	res, err := m.Compute(p)
	if err != nil {
		return model.Estimate{}, err
	}
	return res.Estimate(), nil
}
