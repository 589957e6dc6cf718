package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/evrange/core/metrics"
	"github.com/kilianp07/evrange/core/model"
	"github.com/kilianp07/evrange/infra/logger"
)

// InfluxSink writes estimates to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordEstimate writes one range_estimate point per request.
func (s *InfluxSink) RecordEstimate(rec coremetrics.EstimateRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("range_estimate").
		AddTag("model", modelLabel(rec.Model)).
		AddTag("source", rec.Source).
		AddTag("outcome", rec.Outcome).
		AddTag("estimate_id", rec.ID).
		AddField("latency_ms", rec.Latency.Seconds()*1000)
	if rec.Outcome == "ok" {
		p = p.AddTag("unit", string(rec.Unit)).
			AddField("range", rec.Range).
			AddField("efficiency", rec.Efficiency).
			AddField("effective_capacity_kwh", rec.EffectiveCapacityKWh).
			AddField("sensitivity_slope", rec.SensitivitySlope)
		for name, pct := range rec.Factors {
			p = p.AddField("factor_"+name, pct)
		}
	}
	p = p.SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSensitivity writes one point per sensitivity row.
func (s *InfluxSink) RecordSensitivity(id, modelName string, points []model.SensitivityPoint) error {
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := time.Now()
	batch := make([]*write.Point, 0, len(points))
	for i, pt := range points {
		batch = append(batch, write.NewPointWithMeasurement("range_sensitivity").
			AddTag("model", modelLabel(modelName)).
			AddTag("estimate_id", id).
			AddTag("scenario", pt.Label).
			AddField("input", pt.Input).
			AddField("range", pt.Range).
			SetTime(now.Add(time.Duration(i))))
	}
	return s.writeAPI.WritePoint(ctx, batch...)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }
