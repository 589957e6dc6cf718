// Package metrics defines the sinks that record range estimates for
// observability. Sinks like the Prometheus and InfluxDB implementations in
// infra/metrics are registered by name and combined with NewMultiSink when
// several are configured.
package metrics
