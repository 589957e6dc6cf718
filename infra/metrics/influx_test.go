package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	coremetrics "github.com/kilianp07/evrange/core/metrics"
	"github.com/kilianp07/evrange/core/model"
)

type lineCapture struct {
	mu    sync.Mutex
	lines []string
}

func (c *lineCapture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.lines = append(c.lines, strings.Split(strings.TrimSpace(string(data)), "\n")...)
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestInfluxSink_RecordEstimate(t *testing.T) {
	capture := &lineCapture{}
	srv := httptest.NewServer(capture.handler())
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	rec := coremetrics.EstimateRecord{
		ID:      "est-1",
		Model:   "epa",
		Source:  "http",
		Outcome: "ok",
		Unit:    model.Miles,
		Range:   224.4,
		Factors: map[string]float64{"climate": 15},
		Latency: time.Millisecond,
		Time:    time.Unix(0, 1),
	}
	if err := sink.RecordEstimate(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if len(capture.lines) != 1 {
		t.Fatalf("expected one line, got %v", capture.lines)
	}
	line := capture.lines[0]
	for _, want := range []string{"range_estimate,", "model=epa", "outcome=ok", "unit=mi", "range=224.4", "factor_climate=15"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestInfluxSink_RecordEstimateInvalid(t *testing.T) {
	capture := &lineCapture{}
	srv := httptest.NewServer(capture.handler())
	defer srv.Close()

	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()
	if err := sink.RecordEstimate(coremetrics.EstimateRecord{ID: "x", Model: "degradation", Outcome: "invalid", Time: time.Now()}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if strings.Contains(capture.lines[0], "range=") {
		t.Fatalf("invalid estimate must not carry a range: %s", capture.lines[0])
	}
}

func TestInfluxSink_RecordSensitivity(t *testing.T) {
	capture := &lineCapture{}
	srv := httptest.NewServer(capture.handler())
	defer srv.Close()

	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()
	points := []model.SensitivityPoint{{Label: "10% SoC", Input: 10, Range: 36.4}, {Label: "30% SoC", Input: 30, Range: 109.1}}
	if err := sink.RecordSensitivity("est-1", "degradation", points); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if len(capture.lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(capture.lines))
	}
	if err := sink.RecordSensitivity("est-1", "degradation", nil); err != nil {
		t.Fatalf("empty table: %v", err)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
