package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/healthops/health"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("HEALTHOPS_AUTH_SECRET", testSecret)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "healthd", cfg.Service.Name)
	assert.Equal(t, 30*time.Second, cfg.Engine.Interval)
	assert.Equal(t, 10*time.Second, cfg.Engine.ProbeTimeout)
	assert.Equal(t, 120, cfg.Engine.HistorySize)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, testSecret, cfg.Auth.Secret)

	_, ok := cfg.RedisConfig()
	assert.False(t, ok, "redis disabled without address")
}

func TestLoad_YAMLWithExpansionAndOverrides(t *testing.T) {
	t.Setenv("TEST_HEALTHOPS_SECRET", testSecret)
	t.Setenv("TEST_HEALTHOPS_DB_HOST", "db.internal")
	t.Setenv("HEALTHOPS_ENGINE_INTERVAL", "45s")

	path := writeFile(t, "healthd.yaml", `
service:
  name: threat-dash-health
engine:
  interval: 20s
  probe_timeout: 5s
  history_size: 30
probes:
  endpoints:
    database: http://${TEST_HEALTHOPS_DB_HOST}:9000/health
    external_services: https://intel.internal/status
  max_retries: 1
redis:
  address: localhost:6379
  channel: dash-events
auth:
  secret: ${TEST_HEALTHOPS_SECRET}
  ttl: 5m
telemetry:
  log_level: debug
  metrics_exporter: none
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "threat-dash-health", cfg.Service.Name)
	assert.Equal(t, 45*time.Second, cfg.Engine.Interval, "env wins over file")
	assert.Equal(t, 5*time.Second, cfg.Engine.ProbeTimeout)
	assert.Equal(t, "http://db.internal:9000/health", cfg.Probes.Endpoints.Database)
	assert.Equal(t, "", cfg.Probes.Endpoints.MessageQueue)
	assert.Equal(t, testSecret, cfg.Auth.Secret)
	assert.Equal(t, 5*time.Minute, cfg.Auth.TTL)

	redisCfg, ok := cfg.RedisConfig()
	assert.True(t, ok)
	assert.Equal(t, "localhost:6379", redisCfg.Address)

	engine := cfg.EngineConfig()
	assert.Equal(t, 45*time.Second, engine.Interval)
	assert.Equal(t, 30, engine.HistorySize)

	client := cfg.ClientConfig("Database")
	assert.Equal(t, "Database", client.Name)
	assert.Equal(t, uint64(1), client.Retry.MaxRetries)

	obs := cfg.ObserveConfig()
	assert.False(t, obs.Tracing.Enabled)
	assert.False(t, obs.Metrics.Enabled)
	assert.Equal(t, "debug", obs.Logging.Level)
	require.NoError(t, obs.Validate())
}

func TestLoad_MissingVariable(t *testing.T) {
	path := writeFile(t, "healthd.yaml", "auth:\n  secret: ${TEST_HEALTHOPS_UNSET_VAR}\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrMissingEnv)
	assert.Contains(t, err.Error(), "TEST_HEALTHOPS_UNSET_VAR")
}

func TestLoad_UnknownField(t *testing.T) {
	t.Setenv("HEALTHOPS_AUTH_SECRET", testSecret)
	path := writeFile(t, "healthd.yaml", "engine:\n  intervall: 10s\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	t.Setenv("HEALTHOPS_AUTH_SECRET", testSecret)
	path := writeFile(t, "healthd.yaml", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Engine, cfg.Engine)
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	t.Setenv("HEALTHOPS_AUTH_SECRET", testSecret)
	t.Setenv("HEALTHOPS_ENGINE_HISTORY_SIZE", "lots")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidEnv)
}

func TestLoad_EnvFile(t *testing.T) {
	envPath := writeFile(t, "test.env", "TEST_HEALTHOPS_FROM_DOTENV="+testSecret+"\n")
	t.Setenv("ENV_FILE", envPath)
	t.Cleanup(func() { _ = os.Unsetenv("TEST_HEALTHOPS_FROM_DOTENV") })

	path := writeFile(t, "healthd.yaml", "auth:\n  secret: ${TEST_HEALTHOPS_FROM_DOTENV}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Auth.Secret)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Auth.Secret = "short"
	cfg.Engine.Interval = 0
	cfg.Telemetry.TracingExporter = "zipkin"

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "auth.secret")
	assert.Contains(t, err.Error(), "engine.interval")
	assert.Contains(t, err.Error(), "zipkin")

	cfg = Default()
	cfg.Auth.Secret = testSecret
	cfg.Engine.ProbeTimeout = time.Minute
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid, "probe timeout longer than interval")

	cfg = Default()
	cfg.Auth.Secret = testSecret
	assert.NoError(t, cfg.Validate())
}

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("TEST_HEALTHOPS_A", "alpha")

	got, err := ExpandEnvStrict("${TEST_HEALTHOPS_A}-$TEST_HEALTHOPS_A-$$literal")
	require.NoError(t, err)
	assert.Equal(t, "alpha-alpha-$literal", got)

	got, err = ExpandEnvStrict("$TEST_HEALTHOPS_LENIENT_UNSET")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = ExpandEnvStrict("${TEST_HEALTHOPS_B} ${TEST_HEALTHOPS_C} ${TEST_HEALTHOPS_B}")
	require.ErrorIs(t, err, ErrMissingEnv)
	assert.Contains(t, err.Error(), "TEST_HEALTHOPS_B, TEST_HEALTHOPS_C")
}

func TestDefault_MatchesEngineDefaults(t *testing.T) {
	cfg := Default()
	cfg.Auth.Secret = testSecret
	assert.Equal(t, health.DefaultEngineConfig().Interval, cfg.EngineConfig().Interval)
	assert.Equal(t, health.DefaultEngineConfig().SubscriberBuffer, cfg.EngineConfig().SubscriberBuffer)
}
