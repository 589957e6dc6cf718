// Package app wires the estimators to their outer surfaces: the HTTP API,
// the MQTT responder, history storage and the metrics sinks.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evrange/api/estimate"
	"github.com/kilianp07/evrange/config"
	"github.com/kilianp07/evrange/core/estimator"
	"github.com/kilianp07/evrange/core/events"
	"github.com/kilianp07/evrange/core/history"
	coremetrics "github.com/kilianp07/evrange/core/metrics"
	"github.com/kilianp07/evrange/core/model"
	"github.com/kilianp07/evrange/core/monitoring"
	"github.com/kilianp07/evrange/infra/logger"
	"github.com/kilianp07/evrange/infra/metrics"
	"github.com/kilianp07/evrange/infra/mqtt"
	"github.com/kilianp07/evrange/internal/eventbus"
)

// Service handles estimate requests and records their outcome.
type Service struct {
	cfg     *config.Config
	history history.Store
	sink    coremetrics.MetricsSink
	bus     *eventbus.Bus[events.EstimateEvent]
	log     logger.Logger

	newID func() string
	now   func() time.Time

	closeOnce sync.Once
}

// Option customises a Service.
type Option func(*Service)

// WithHistory replaces the store built from the configuration.
func WithHistory(s history.Store) Option { return func(svc *Service) { svc.history = s } }

// WithMetricsSink replaces the sinks built from the configuration.
func WithMetricsSink(s coremetrics.MetricsSink) Option {
	return func(svc *Service) { svc.sink = s }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option { return func(svc *Service) { svc.log = l } }

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = &config.Config{}
		cfg.SetDefaults()
	}
	svc := &Service{
		cfg:   cfg,
		bus:   eventbus.New[events.EstimateEvent](),
		log:   logger.New("service"),
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, o := range opts {
		o(svc)
	}
	if svc.history == nil {
		store, err := history.NewStore(cfg.History)
		if err != nil {
			return nil, fmt.Errorf("history store: %w", err)
		}
		svc.history = store
	}
	if svc.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			_ = svc.history.Close()
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		svc.sink = sink
	}
	return svc, nil
}

// Bus exposes the estimate event stream.
func (s *Service) Bus() *eventbus.Bus[events.EstimateEvent] { return s.bus }

// Estimate computes the estimate requested by req. Successful results are
// stored in the history; every request, valid or not, is published on the
// event bus.
func (s *Service) Estimate(ctx context.Context, req model.EstimateRequest) (model.Estimate, error) {
	start := s.now()
	id := s.newID()
	ev := events.EstimateEvent{ID: id, RequestID: req.RequestID, Model: req.Model, Source: req.Source, Time: start}
	defer func() {
		ev.Latency = s.now().Sub(start)
		s.bus.Publish(ev)
	}()

	est, err := s.compute(req)
	if err != nil {
		ev.Err = err
		if errors.Is(err, estimator.ErrValidation) {
			ev.Outcome = events.OutcomeInvalid
			s.log.Debugw("estimate rejected", map[string]any{"id": id, "request_id": req.RequestID, "model": req.Model, "error": err.Error()})
		} else {
			ev.Outcome = events.OutcomeError
			s.log.Warnf("estimate %s (request %q) failed: %v", id, req.RequestID, err)
		}
		return model.Estimate{}, err
	}
	est.ID = id
	ev.Outcome = events.OutcomeOK
	ev.Estimate = est

	rec := history.Record{
		ID:        id,
		RequestID: req.RequestID,
		Timestamp: start,
		Model:     est.Model,
		Source:    req.Source,
		VehicleID: req.VehicleID,
		Params:    req.Params,
		Estimate:  est,
	}
	if err := s.history.Append(ctx, rec); err != nil {
		s.log.Errorf("history append %s: %v", id, err)
		monitoring.CaptureException(err, map[string]string{"module": "history", "model": est.Model})
	}
	s.log.Debugw("estimate computed", map[string]any{"id": id, "request_id": req.RequestID, "model": est.Model, "range": est.Range, "unit": string(est.Unit)})
	return est, nil
}

func (s *Service) compute(req model.EstimateRequest) (model.Estimate, error) {
	e, err := estimator.New(req.Model)
	if err != nil {
		return model.Estimate{}, fmt.Errorf("model %q: %w", req.Model, err)
	}
	return e.ComputeRange(req.Params)
}

// History lists stored estimates.
func (s *Service) History(ctx context.Context, q history.Query) ([]history.Record, error) {
	return s.history.Query(ctx, q)
}

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	estimate.Register(mux, s, s.cfg.HTTP.Token)
	if s.cfg.Metrics.HasSink("prometheus") {
		mux.Handle("/metrics", metrics.Handler(nil))
	}
	return mux
}

// Run starts the collectors and the enabled surfaces and blocks until the
// context is cancelled or a surface fails.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink)

	errCh := make(chan error, 2)
	if s.cfg.Metrics.HasSink("prometheus") && s.cfg.Metrics.PrometheusPort != "" && s.cfg.Metrics.PrometheusPort != s.cfg.HTTP.Addr {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.cfg.MQTT.Enabled() {
		responder, err := mqtt.NewResponder(s.cfg.MQTT, s.Estimate)
		if err != nil {
			return fmt.Errorf("mqtt responder: %w", err)
		}
		defer responder.Disconnect()
		s.log.Infof("answering estimate requests on %s", s.cfg.MQTT.RequestTopic)
	}
	if !s.cfg.HTTP.Disabled {
		srv := &http.Server{Addr: s.cfg.HTTP.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			s.log.Infof("HTTP API listening on %s", s.cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
		defer func() {
			shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		cancel()
	}
	<-collected
	return runErr
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.bus.Close()
		if c, ok := s.sink.(interface{ Close() }); ok {
			c.Close()
		}
		err = s.history.Close()
	})
	return err
}

// Models lists the estimators the service can run.
func (s *Service) Models() []string { return estimator.Names() }
