package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jonwraymond/healthops/auth"
	"github.com/jonwraymond/healthops/health"
	"github.com/jonwraymond/healthops/kv"
	"github.com/jonwraymond/healthops/observe"
	"github.com/jonwraymond/healthops/probe"
	"github.com/jonwraymond/healthops/resilience"
)

// Config is the complete healthd configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Engine    EngineConfig    `yaml:"engine"`
	Probes    ProbesConfig    `yaml:"probes"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	HTTP      HTTPConfig      `yaml:"http"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// ServiceConfig identifies the running service.
type ServiceConfig struct {
	Name        string `yaml:"name" env:"HEALTHOPS_SERVICE_NAME"`
	Version     string `yaml:"version" env:"HEALTHOPS_VERSION"`
	Environment string `yaml:"environment" env:"HEALTHOPS_ENVIRONMENT"`
}

// EngineConfig tunes the polling engine.
type EngineConfig struct {
	Interval         time.Duration `yaml:"interval" env:"HEALTHOPS_ENGINE_INTERVAL"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout" env:"HEALTHOPS_ENGINE_PROBE_TIMEOUT"`
	HistorySize      int           `yaml:"history_size" env:"HEALTHOPS_ENGINE_HISTORY_SIZE"`
	SubscriberBuffer int           `yaml:"subscriber_buffer" env:"HEALTHOPS_ENGINE_SUBSCRIBER_BUFFER"`
}

// ProbesConfig locates the probe endpoints and tunes the outbound client.
type ProbesConfig struct {
	Endpoints probe.Endpoints `yaml:"endpoints"`

	Timeout      time.Duration `yaml:"timeout" env:"HEALTHOPS_PROBE_HTTP_TIMEOUT"`
	MaxRetries   uint64        `yaml:"max_retries" env:"HEALTHOPS_PROBE_MAX_RETRIES"`
	ResetTimeout time.Duration `yaml:"breaker_reset_timeout" env:"HEALTHOPS_PROBE_BREAKER_RESET"`
	FailureRatio float64       `yaml:"breaker_failure_ratio" env:"HEALTHOPS_PROBE_BREAKER_RATIO"`
}

// RedisConfig selects the persistent store. An empty address keeps
// preferences in memory and disables the pub/sub sink.
type RedisConfig struct {
	Address     string        `yaml:"address" env:"HEALTHOPS_REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"HEALTHOPS_REDIS_PASSWORD"`
	DB          int           `yaml:"db" env:"HEALTHOPS_REDIS_DB"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"HEALTHOPS_REDIS_DIAL_TIMEOUT"`
	KeyPrefix   string        `yaml:"key_prefix" env:"HEALTHOPS_REDIS_KEY_PREFIX"`
	Channel     string        `yaml:"channel" env:"HEALTHOPS_REDIS_CHANNEL"`
}

// AuthConfig configures token signing and verification.
type AuthConfig struct {
	Secret   string        `yaml:"secret" env:"HEALTHOPS_AUTH_SECRET"`
	Issuer   string        `yaml:"issuer" env:"HEALTHOPS_AUTH_ISSUER"`
	Audience string        `yaml:"audience" env:"HEALTHOPS_AUTH_AUDIENCE"`
	TTL      time.Duration `yaml:"ttl" env:"HEALTHOPS_AUTH_TTL"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr" env:"HEALTHOPS_HTTP_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HEALTHOPS_HTTP_READ_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HEALTHOPS_HTTP_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HEALTHOPS_HTTP_SHUTDOWN_TIMEOUT"`
	RefreshLimit    int           `yaml:"refresh_limit" env:"HEALTHOPS_HTTP_REFRESH_LIMIT"`
	RefreshWindow   time.Duration `yaml:"refresh_window" env:"HEALTHOPS_HTTP_REFRESH_WINDOW"`
	EventsKeepAlive time.Duration `yaml:"events_keep_alive" env:"HEALTHOPS_HTTP_EVENTS_KEEP_ALIVE"`
}

// TelemetryConfig selects logging and OpenTelemetry exporters.
type TelemetryConfig struct {
	LogLevel        string  `yaml:"log_level" env:"HEALTHOPS_LOG_LEVEL"`
	TracingExporter string  `yaml:"tracing_exporter" env:"HEALTHOPS_TRACING_EXPORTER"`
	SamplePct       float64 `yaml:"sample_pct" env:"HEALTHOPS_TRACING_SAMPLE_PCT"`
	MetricsExporter string  `yaml:"metrics_exporter" env:"HEALTHOPS_METRICS_EXPORTER"`
}

// NotifyConfig sizes the notification inbox.
type NotifyConfig struct {
	InboxSize int `yaml:"inbox_size" env:"HEALTHOPS_NOTIFY_INBOX_SIZE"`
}

// Default returns the configuration used for unset values.
func Default() Config {
	engine := health.DefaultEngineConfig()
	client := resilience.DefaultClientConfig("")

	return Config{
		Service: ServiceConfig{
			Name:        "healthd",
			Version:     "dev",
			Environment: "development",
		},
		Engine: EngineConfig{
			Interval:         engine.Interval,
			ProbeTimeout:     engine.ProbeTimeout,
			HistorySize:      engine.HistorySize,
			SubscriberBuffer: engine.SubscriberBuffer,
		},
		Probes: ProbesConfig{
			Timeout:      client.Timeout,
			MaxRetries:   client.Retry.MaxRetries,
			ResetTimeout: client.CircuitBreaker.ResetTimeout,
			FailureRatio: client.CircuitBreaker.FailureRatio,
		},
		Redis: RedisConfig{
			DialTimeout: 5 * time.Second,
			KeyPrefix:   "healthops",
		},
		Auth: AuthConfig{
			Issuer:   "healthd",
			Audience: "healthops",
			TTL:      15 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RefreshLimit:    6,
			RefreshWindow:   time.Minute,
			EventsKeepAlive: 15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			LogLevel:        "info",
			TracingExporter: "none",
			SamplePct:       1.0,
			MetricsExporter: "prometheus",
		},
		Notify: NotifyConfig{
			InboxSize: 100,
		},
	}
}

// Validate reports every problem found, joined, each wrapping ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Service.Name == "" {
		invalid("service.name is required")
	}
	if c.Engine.Interval <= 0 {
		invalid("engine.interval must be positive, got %s", c.Engine.Interval)
	}
	if c.Engine.ProbeTimeout <= 0 {
		invalid("engine.probe_timeout must be positive, got %s", c.Engine.ProbeTimeout)
	}
	if c.Engine.ProbeTimeout > c.Engine.Interval {
		invalid("engine.probe_timeout %s exceeds engine.interval %s", c.Engine.ProbeTimeout, c.Engine.Interval)
	}
	if c.Probes.Timeout <= 0 {
		invalid("probes.timeout must be positive, got %s", c.Probes.Timeout)
	}
	if c.Probes.FailureRatio <= 0 || c.Probes.FailureRatio > 1 {
		invalid("probes.breaker_failure_ratio must be in (0,1], got %g", c.Probes.FailureRatio)
	}
	if len(c.Auth.Secret) < auth.MinSecretLength {
		invalid("auth.secret must be at least %d bytes", auth.MinSecretLength)
	}
	if c.Auth.TTL <= 0 {
		invalid("auth.ttl must be positive, got %s", c.Auth.TTL)
	}
	if c.HTTP.Addr == "" {
		invalid("http.addr is required")
	}
	if c.HTTP.RefreshLimit <= 0 || c.HTTP.RefreshWindow <= 0 {
		invalid("http.refresh_limit and http.refresh_window must be positive")
	}
	if c.Notify.InboxSize <= 0 {
		invalid("notify.inbox_size must be positive, got %d", c.Notify.InboxSize)
	}
	if !slices.Contains(observe.ValidLogLevels, c.Telemetry.LogLevel) {
		invalid("telemetry.log_level %q is not one of %v", c.Telemetry.LogLevel, observe.ValidLogLevels)
	}
	if !slices.Contains(observe.ValidTracingExporters, c.Telemetry.TracingExporter) {
		invalid("telemetry.tracing_exporter %q is not one of %v", c.Telemetry.TracingExporter, observe.ValidTracingExporters)
	}
	if !slices.Contains(observe.ValidMetricsExporters, c.Telemetry.MetricsExporter) {
		invalid("telemetry.metrics_exporter %q is not one of %v", c.Telemetry.MetricsExporter, observe.ValidMetricsExporters)
	}

	return errors.Join(errs...)
}

// EngineConfig converts to the engine's configuration.
func (c *Config) EngineConfig() health.EngineConfig {
	cfg := health.DefaultEngineConfig()
	cfg.Interval = c.Engine.Interval
	cfg.ProbeTimeout = c.Engine.ProbeTimeout
	cfg.HistorySize = c.Engine.HistorySize
	cfg.SubscriberBuffer = c.Engine.SubscriberBuffer
	return cfg
}

// ClientConfig returns the resilient client configuration for upstream name.
func (c *Config) ClientConfig(name string) resilience.ClientConfig {
	cfg := resilience.DefaultClientConfig(name)
	cfg.Timeout = c.Probes.Timeout
	cfg.Retry.MaxRetries = c.Probes.MaxRetries
	cfg.CircuitBreaker.ResetTimeout = c.Probes.ResetTimeout
	cfg.CircuitBreaker.FailureRatio = c.Probes.FailureRatio
	return cfg
}

// JWTConfig returns the token configuration.
func (c *Config) JWTConfig() auth.JWTConfig {
	return auth.JWTConfig{
		Secret:   []byte(c.Auth.Secret),
		Issuer:   c.Auth.Issuer,
		Audience: c.Auth.Audience,
		TTL:      c.Auth.TTL,
	}
}

// RedisConfig returns the connection settings. The bool is false when Redis
// is not configured.
func (c *Config) RedisConfig() (kv.RedisConfig, bool) {
	return kv.RedisConfig{
		Address:     c.Redis.Address,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		DialTimeout: c.Redis.DialTimeout,
	}, c.Redis.Address != ""
}

// ObserveConfig returns the telemetry configuration.
func (c *Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: c.Service.Name,
		Version:     c.Service.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Telemetry.TracingExporter != "none",
			Exporter:  c.Telemetry.TracingExporter,
			SamplePct: c.Telemetry.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Telemetry.MetricsExporter != "none",
			Exporter: c.Telemetry.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Telemetry.LogLevel,
		},
	}
}
