package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"default"}, cfg.Queue.Names)
	assert.Equal(t, 5, cfg.Queue.MaxRetries)
	assert.Equal(t, time.Second, cfg.Queue.Backoff.InitialInterval)
	assert.Equal(t, 5*time.Minute, cfg.Queue.Backoff.MaxInterval)
	assert.Equal(t, 10*time.Second, cfg.Gateway.AdapterTimeout)
	assert.Equal(t, "X-Tenant-ID", cfg.Tenant.Header)
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
queue:
  names: [outbound, inbound]
  max_retries: 3
  backoff:
    initial_interval: 200ms
    max_interval: 10s
    multiplier: 3
gateway:
  health_failure_threshold: 0.25
  routing_rules:
    - name: billing
      expression: request.operation == "invoice"
      endpoint_id: billing-http
  endpoints:
    - id: billing-http
      protocol: http
      enabled: true
      config:
        url: http://billing.local/api
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"outbound", "inbound"}, cfg.Queue.Names)
	assert.Equal(t, 3, cfg.Queue.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.Queue.Backoff.InitialInterval)
	assert.InDelta(t, 0.25, cfg.Gateway.HealthFailureThreshold, 1e-9)
	require.Len(t, cfg.Gateway.RoutingRules, 1)
	assert.Equal(t, "billing-http", cfg.Gateway.RoutingRules[0].EndpointID)
	require.Len(t, cfg.Gateway.Endpoints, 1)
	assert.Equal(t, "http://billing.local/api", cfg.Gateway.Endpoints[0].Config["url"])
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("QUEUE_NAMES", "a, b")
	t.Setenv("BROKER_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, cfg.Queue.Names)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.Kafka.Brokers)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateStatic_CollectsAllErrors(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.Server.Port = 0
	cfg.Queue.MaxRetries = 0
	cfg.Gateway.HealthFailureThreshold = 1.5
	cfg.Monitoring.Sinks = []string{"postgres", "s3"}

	err = ValidateStatic(cfg)
	require.Error(t, err)

	fields := map[string]bool{}
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var vErr *ValidationError
		require.True(t, errors.As(e, &vErr))
		fields[vErr.Field] = true
	}

	assert.True(t, fields["server.port"])
	assert.True(t, fields["queue.max_retries"])
	assert.True(t, fields["gateway.health_failure_threshold"])
	assert.True(t, fields["monitoring.sinks"])
}

func TestValidateStatic_DuplicateStaticEndpoints(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.Gateway.Endpoints = []Endpoint{
		{ID: "e1", Protocol: "http"},
		{ID: "e1", Protocol: "kafka"},
	}

	err = ValidateStatic(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate endpoint id "e1"`)
}
