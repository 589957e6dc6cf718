package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evrange/config"
	"github.com/kilianp07/evrange/core/estimator"
	"github.com/kilianp07/evrange/core/events"
	"github.com/kilianp07/evrange/core/factory"
	"github.com/kilianp07/evrange/core/history"
	coremetrics "github.com/kilianp07/evrange/core/metrics"
	"github.com/kilianp07/evrange/core/model"
	coremon "github.com/kilianp07/evrange/core/monitoring"
	"github.com/kilianp07/evrange/infra/logger"
)

type memStore struct {
	mu   sync.Mutex
	recs []history.Record
	err  error
}

func (m *memStore) Append(_ context.Context, r history.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, r)
	return nil
}

func (m *memStore) Query(_ context.Context, q history.Query) ([]history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []history.Record
	for _, r := range m.recs {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

type captureSink struct {
	mu   sync.Mutex
	recs []coremetrics.EstimateRecord
}

func (c *captureSink) RecordEstimate(r coremetrics.EstimateRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = append(c.recs, r)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.recs)
}

type recordMonitor struct {
	mu  sync.Mutex
	err error
}

func (r *recordMonitor) CaptureException(err error, _ map[string]string) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}
func (r *recordMonitor) Recover(any)         {}
func (r *recordMonitor) Flush(time.Duration) {}

func newTestService(t *testing.T, store history.Store) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.SetDefaults()
	svc, err := New(cfg, WithHistory(store), WithMetricsSink(coremetrics.NopSink{}), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func degradationRequest() model.EstimateRequest {
	return model.EstimateRequest{
		Model:     "degradation",
		Params:    map[string]any{"state_of_charge": 80.0, "battery_capacity_kwh": 60.0},
		VehicleID: "car-1",
		Source:    model.SourceCLI,
	}
}

func TestService_EstimateStoresAndPublishes(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)
	sub := svc.Bus().Subscribe()

	est, err := svc.Estimate(context.Background(), degradationRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, est.ID)
	assert.Equal(t, model.Kilometres, est.Unit)
	assert.Greater(t, est.Range, 0.0)

	require.Len(t, store.recs, 1)
	rec := store.recs[0]
	assert.Equal(t, est.ID, rec.ID)
	assert.Equal(t, "car-1", rec.VehicleID)
	assert.Equal(t, model.SourceCLI, rec.Source)
	assert.Equal(t, est.Range, rec.Estimate.Range)

	select {
	case ev := <-sub:
		assert.Equal(t, events.OutcomeOK, ev.Outcome)
		assert.Equal(t, est.ID, ev.ID)
		assert.Equal(t, est.Range, ev.Estimate.Range)
	case <-time.After(time.Second):
		t.Fatalf("no event published")
	}
}

func TestService_InvalidRequestPublishedNotStored(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)
	sub := svc.Bus().Subscribe()

	req := degradationRequest()
	req.Params["state_of_charge"] = 140.0
	_, err := svc.Estimate(context.Background(), req)
	require.ErrorIs(t, err, estimator.ErrValidation)
	assert.Empty(t, store.recs)

	ev := <-sub
	assert.Equal(t, events.OutcomeInvalid, ev.Outcome)
	assert.Error(t, ev.Err)
}

func TestService_UnknownModel(t *testing.T) {
	svc := newTestService(t, &memStore{})
	sub := svc.Bus().Subscribe()
	_, err := svc.Estimate(context.Background(), model.EstimateRequest{Model: "wltp"})
	require.ErrorIs(t, err, factory.ErrUnknownType)
	assert.Equal(t, events.OutcomeError, (<-sub).Outcome)
}

func TestService_HistoryFailureDoesNotFailEstimate(t *testing.T) {
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(nil)
	svc := newTestService(t, &memStore{err: errors.New("disk full")})

	_, err := svc.Estimate(context.Background(), degradationRequest())
	require.NoError(t, err)
	assert.EqualError(t, mon.err, "disk full")
}

func TestService_IdenticalInputsIdenticalRange(t *testing.T) {
	svc := newTestService(t, &memStore{})
	a, err := svc.Estimate(context.Background(), degradationRequest())
	require.NoError(t, err)
	b, err := svc.Estimate(context.Background(), degradationRequest())
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	a.ID, b.ID = "", ""
	assert.Equal(t, a, b)
}

func TestService_History(t *testing.T) {
	svc := newTestService(t, &memStore{})
	_, err := svc.Estimate(context.Background(), degradationRequest())
	require.NoError(t, err)
	recs, err := svc.History(context.Background(), history.Query{Model: "degradation"})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	recs, err = svc.History(context.Background(), history.Query{Model: "epa"})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestNew_BuildsStoreFromConfig(t *testing.T) {
	cfg := &config.Config{History: history.Config{Backend: history.BackendSQLite, Path: filepath.Join(t.TempDir(), "h.db")}}
	cfg.SetDefaults()
	svc, err := New(cfg, WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	_, err = svc.Estimate(context.Background(), degradationRequest())
	require.NoError(t, err)
	recs, err := svc.History(context.Background(), history.Query{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestService_RequestIDRecorded(t *testing.T) {
	store := &memStore{}
	svc := newTestService(t, store)
	sub := svc.Bus().Subscribe()

	req := degradationRequest()
	req.RequestID = "req-7"
	est, err := svc.Estimate(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "req-7", est.ID)

	require.Len(t, store.recs, 1)
	assert.Equal(t, "req-7", store.recs[0].RequestID)
	assert.Equal(t, "req-7", (<-sub).RequestID)
}

func TestService_UnknownParameterKeepsHistoryReadable(t *testing.T) {
	cfg := &config.Config{History: history.Config{Backend: history.BackendJSONL, Path: filepath.Join(t.TempDir(), "h.jsonl")}}
	cfg.SetDefaults()
	svc, err := New(cfg, WithMetricsSink(coremetrics.NopSink{}), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	h := svc.Handler()

	body, err := json.Marshal(map[string]any{
		"state_of_charge":      80.0,
		"battery_capacity_kwh": 60.0,
		"note":                 strings.Repeat("<", 200_000),
	})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/estimate/degradation", bytes.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"note"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/estimate/degradation",
		strings.NewReader(`{"state_of_charge":80,"battery_capacity_kwh":60}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/estimate/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var recs []history.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.NotContains(t, recs[0].Params, "note")
}

func TestNew_UnknownSink(t *testing.T) {
	cfg := &config.Config{Metrics: coremetrics.Config{Sinks: []factory.ModuleConfig{{Type: "statsd"}}}}
	cfg.SetDefaults()
	cfg.History.Backend = history.BackendNone
	_, err := New(cfg)
	require.ErrorIs(t, err, factory.ErrUnknownType)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestService_RunServesHTTPAndRecordsMetrics(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.HTTP.Addr = freeAddr(t)
	sink := &captureSink{}
	svc, err := New(cfg, WithHistory(&memStore{}), WithMetricsSink(sink), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	url := "http://" + cfg.HTTP.Addr + "/api/estimate/models"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	_, err = svc.Estimate(context.Background(), degradationRequest())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return")
	}
}
