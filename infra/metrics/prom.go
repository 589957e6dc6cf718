package metrics

import (
	coremetrics "github.com/kilianp07/evrange/core/metrics"
	"github.com/kilianp07/evrange/core/model"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink records estimates in Prometheus metrics.
type PromSink struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	rangeDist   *prometheus.HistogramVec
	factors     *prometheus.GaugeVec
	sensitivity *prometheus.GaugeVec
}

// NewPromSink registers estimate metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "range_estimates_total",
		Help: "Total number of range estimate requests",
	}, []string{"model", "source", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "range_estimate_duration_seconds",
		Help:    "Time spent handling an estimate request",
		Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
	}, []string{"model"})
	rangeDist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "range_estimate_distance",
		Help:    "Distribution of estimated ranges in the model's distance unit",
		Buckets: prometheus.LinearBuckets(0, 50, 12),
	}, []string{"model", "unit"})
	factors := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "range_estimate_factor_reduction_percent",
		Help: "Reduction percentage of each factor in the latest estimate",
	}, []string{"model", "factor"})
	sensitivity := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "range_estimate_sensitivity_range",
		Help: "Range per sensitivity scenario in the latest estimate",
	}, []string{"model", "scenario"})

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if rangeDist, err = register(reg, rangeDist); err != nil {
		return nil, err
	}
	if factors, err = register(reg, factors); err != nil {
		return nil, err
	}
	if sensitivity, err = register(reg, sensitivity); err != nil {
		return nil, err
	}
	return &PromSink{requests: requests, latency: latency, rangeDist: rangeDist, factors: factors, sensitivity: sensitivity}, nil
}

// register returns the already registered collector when c was registered before.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordEstimate counts the request and, for successful ones, observes the range.
func (s *PromSink) RecordEstimate(rec coremetrics.EstimateRecord) error {
	name := modelLabel(rec.Model)
	s.requests.WithLabelValues(name, rec.Source, rec.Outcome).Inc()
	s.latency.WithLabelValues(name).Observe(rec.Latency.Seconds())
	if rec.Outcome != "ok" {
		return nil
	}
	s.rangeDist.WithLabelValues(name, string(rec.Unit)).Observe(rec.Range)
	for factor, pct := range rec.Factors {
		s.factors.WithLabelValues(name, factor).Set(pct)
	}
	return nil
}

// RecordSensitivity exposes the latest sensitivity table as gauges.
func (s *PromSink) RecordSensitivity(_ string, modelName string, points []model.SensitivityPoint) error {
	name := modelLabel(modelName)
	for _, p := range points {
		s.sensitivity.WithLabelValues(name, p.Label).Set(p.Range)
	}
	return nil
}
