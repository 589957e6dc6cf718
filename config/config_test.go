package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `log:
  level: debug
http:
  addr: ":9000"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  qos:
    request: 1
metrics:
  sinks:
    - type: "prometheus"
    - type: "influx"
      conf:
        url: "http://localhost:8086"
        bucket: "ev"
history:
  backend: "sqlite"
  path: "/tmp/estimates.db"
sentry:
  dsn: "https://key@example.com/1"
  environment: "test"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"log.level", cfg.Log.Level, "debug"},
		{"http.addr", cfg.HTTP.Addr, ":9000"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"username", cfg.MQTT.Username, "user"},
		{"password", cfg.MQTT.Password, "pass"},
		{"request qos", cfg.MQTT.QoS["request"], byte(1)},
		{"request_topic default", cfg.MQTT.RequestTopic, "evrange/vehicles/+/estimate/request"},
		{"sinks", len(cfg.Metrics.Sinks), 2},
		{"influx bucket", cfg.Metrics.Sinks[1].Conf["bucket"], "ev"},
		{"prometheus_port default", cfg.Metrics.PrometheusPort, ":9090"},
		{"history.backend", cfg.History.Backend, "sqlite"},
		{"history.path", cfg.History.Path, "/tmp/estimates.db"},
		{"sentry.environment", cfg.Sentry.Environment, "test"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadJSONDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{"mqtt": {}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Log.Level != "info" || cfg.HTTP.Addr != ":8080" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.History.Backend != "jsonl" || cfg.History.Path != "estimates.jsonl" {
		t.Fatalf("history defaults not applied: %+v", cfg.History)
	}
	if cfg.MQTT.Enabled() {
		t.Fatalf("mqtt should be disabled without a broker")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", "http:\n  addr: \":9000\"\n")
	t.Setenv("K_HTTP__ADDR", ":7000")
	t.Setenv("K_LOG__LEVEL", "warn")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.HTTP.Addr != ":7000" {
		t.Fatalf("env override ignored: %s", cfg.HTTP.Addr)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("env override ignored: %s", cfg.Log.Level)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("K_HISTORY__BACKEND", "none")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.History.Backend != "none" {
		t.Fatalf("backend = %s", cfg.History.Backend)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"config.toml": "x = 1",
		"bad.yaml":    "log:\n  level: loud\n",
		"hist.yaml":   "history:\n  backend: postgres\n",
		"mqtt.yaml":   "mqtt:\n  broker: tcp://x:1883\n  request_topic: a/b\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, name, data)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
