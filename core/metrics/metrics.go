package metrics

import (
	"time"

	"github.com/kilianp07/evrange/core/model"
)

// EstimateRecord is one handled estimate request.
type EstimateRecord struct {
	ID      string
	Model   string
	Source  string
	Outcome string
	Unit    model.DistanceUnit
	Range   float64
	// Efficiency or EffectiveCapacityKWh, depending on the model.
	Efficiency           float64
	EffectiveCapacityKWh float64
	SensitivitySlope     float64
	Factors              map[string]float64
	Latency              time.Duration
	Time                 time.Time
}

// MetricsSink records estimates for observability purposes.
type MetricsSink interface {
	RecordEstimate(rec EstimateRecord) error
}

// SensitivityRecorder is implemented by sinks that keep the sensitivity table.
type SensitivityRecorder interface {
	RecordSensitivity(id, model string, points []model.SensitivityPoint) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordEstimate(EstimateRecord) error { return nil }

func (NopSink) RecordSensitivity(string, string, []model.SensitivityPoint) error { return nil }

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordEstimate forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordEstimate(rec EstimateRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordEstimate(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordSensitivity forwards the table to sinks that support it.
func (m *MultiSink) RecordSensitivity(id, model string, points []model.SensitivityPoint) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SensitivityRecorder); ok {
			if err := rec.RecordSensitivity(id, model, points); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
