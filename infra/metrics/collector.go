package metrics

import (
	"context"

	"github.com/kilianp07/evrange/core/estimator"
	"github.com/kilianp07/evrange/core/events"
	coremetrics "github.com/kilianp07/evrange/core/metrics"
	"github.com/kilianp07/evrange/core/monitoring"
	"github.com/kilianp07/evrange/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records every estimate
// event on the sink. It stops when the context is canceled or the bus closes.
// The returned channel is closed once the collector has stopped.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.EstimateEvent], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
	return done
}

// UnknownModel is the model label recorded for names no estimator is
// registered under. Model names come from callers and must not create series.
const UnknownModel = "unknown"

func modelLabel(name string) string {
	if estimator.Known(name) {
		return name
	}
	return UnknownModel
}

func record(sink coremetrics.MetricsSink, ev events.EstimateEvent) {
	rec := ToRecord(ev)
	if err := sink.RecordEstimate(rec); err != nil {
		monitoring.CaptureException(err, map[string]string{"module": "metrics", "model": rec.Model})
	}
	if ev.Outcome != events.OutcomeOK {
		return
	}
	if r, ok := sink.(coremetrics.SensitivityRecorder); ok {
		if err := r.RecordSensitivity(ev.ID, rec.Model, ev.Estimate.Sensitivity); err != nil {
			monitoring.CaptureException(err, map[string]string{"module": "metrics", "model": rec.Model})
		}
	}
}

// ToRecord flattens an estimate event into a sink record.
func ToRecord(ev events.EstimateEvent) coremetrics.EstimateRecord {
	est := ev.Estimate
	return coremetrics.EstimateRecord{
		ID:                   ev.ID,
		Model:                modelLabel(ev.Model),
		Source:               ev.Source,
		Outcome:              string(ev.Outcome),
		Unit:                 est.Unit,
		Range:                est.Range,
		Efficiency:           est.Efficiency,
		EffectiveCapacityKWh: est.EffectiveCapacityKWh,
		SensitivitySlope:     est.SensitivitySlope,
		Factors:              est.Factors,
		Latency:              ev.Latency,
		Time:                 ev.Time,
	}
}
