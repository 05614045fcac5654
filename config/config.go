package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sumandas0/entropic-model/internal/mockapi"
	"github.com/sumandas0/entropic-model/internal/observability"
	"github.com/sumandas0/entropic-model/internal/resilience"
	"github.com/sumandas0/entropic-model/internal/security"
)

type Config struct {
	Client      ClientConfig                `mapstructure:"client"`
	Logging     observability.LoggingConfig `mapstructure:"logging"`
	Metrics     observability.MetricsConfig `mapstructure:"metrics"`
	Tracing     observability.TracingConfig `mapstructure:"tracing"`
	Resilience  ResilienceConfig            `mapstructure:"resilience"`
	RateLimit   security.RateLimitConfig    `mapstructure:"rate_limit"`
	Sanitizer   security.SanitizerConfig    `mapstructure:"sanitizer"`
	MockServer  mockapi.Config              `mapstructure:"mock_server"`
	Environment string                      `mapstructure:"environment"`
}

type ClientConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Resource string        `mapstructure:"resource"`
}

type ResilienceConfig struct {
	CircuitBreaker resilience.CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Retry          resilience.RetryConfig          `mapstructure:"retry"`
	RetryStrategy  resilience.RetryStrategy        `mapstructure:"retry_strategy"`
}

// LoadConfig reads configPath, or entropic-model.yaml from the usual locations when
// configPath is empty, then applies ENTROPIC_MODEL_* environment overrides. A missing
// default config file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("entropic-model")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/entropic-model/")
		v.AddConfigPath("$HOME/.entropic-model/")
	}

	v.SetEnvPrefix("ENTROPIC_MODEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("client.base_url", "http://127.0.0.1:8080")
	v.SetDefault("client.timeout", "30s")
	v.SetDefault("client.resource", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "entropic")
	v.SetDefault("metrics.subsystem", "model")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_url", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", observability.ServiceName)
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("resilience.circuit_breaker.enabled", true)
	v.SetDefault("resilience.circuit_breaker.max_requests", 1)
	v.SetDefault("resilience.circuit_breaker.interval", "60s")
	v.SetDefault("resilience.circuit_breaker.timeout", "30s")
	v.SetDefault("resilience.circuit_breaker.failure_threshold", 5)

	v.SetDefault("resilience.retry.enabled", true)
	v.SetDefault("resilience.retry.max_attempts", 3)
	v.SetDefault("resilience.retry.initial_delay", "100ms")
	v.SetDefault("resilience.retry.max_delay", "5s")
	v.SetDefault("resilience.retry.backoff_multiplier", 2.0)
	v.SetDefault("resilience.retry.jitter_enabled", true)
	v.SetDefault("resilience.retry.jitter_factor", 0.1)
	v.SetDefault("resilience.retry_strategy", string(resilience.StrategyExponential))

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst_size", 10)
	v.SetDefault("rate_limit.block", true)

	v.SetDefault("sanitizer.enabled", true)
	v.SetDefault("sanitizer.max_string_length", 10000)
	v.SetDefault("sanitizer.max_array_length", 1000)
	v.SetDefault("sanitizer.max_object_depth", 10)
	v.SetDefault("sanitizer.strict_mode", false)
	v.SetDefault("sanitizer.allow_html", false)

	mock := mockapi.DefaultConfig()
	v.SetDefault("mock_server.host", mock.Host)
	v.SetDefault("mock_server.port", mock.Port)
	v.SetDefault("mock_server.request_timeout", mock.RequestTimeout.String())
	v.SetDefault("mock_server.max_body_size", mock.MaxBodySize)
	v.SetDefault("mock_server.cors.allowed_origins", mock.CORS.AllowedOrigins)
	v.SetDefault("mock_server.cors.allowed_methods", mock.CORS.AllowedMethods)
	v.SetDefault("mock_server.cors.allowed_headers", mock.CORS.AllowedHeaders)
	v.SetDefault("mock_server.cors.exposed_headers", mock.CORS.ExposedHeaders)
	v.SetDefault("mock_server.cors.allow_credentials", mock.CORS.AllowCredentials)
	v.SetDefault("mock_server.cors.max_age", mock.CORS.MaxAge)

	v.SetDefault("environment", "development")
}

func validateConfig(config *Config) error {
	u, err := url.Parse(config.Client.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid client base URL: %q", config.Client.BaseURL)
	}
	if config.Client.Timeout <= 0 {
		return fmt.Errorf("client timeout must be positive: %s", config.Client.Timeout)
	}

	switch config.Logging.Level {
	case observability.LogLevelTrace, observability.LogLevelDebug, observability.LogLevelInfo,
		observability.LogLevelWarn, observability.LogLevelError:
	default:
		return fmt.Errorf("invalid logging level: %s", config.Logging.Level)
	}

	if config.Logging.Format != observability.LogFormatJSON && config.Logging.Format != observability.LogFormatConsole {
		return fmt.Errorf("invalid logging format: %s", config.Logging.Format)
	}

	switch config.Resilience.RetryStrategy {
	case resilience.StrategyExponential, resilience.StrategyLinear, resilience.StrategyFixed:
	default:
		return fmt.Errorf("invalid retry strategy: %s", config.Resilience.RetryStrategy)
	}

	if config.Tracing.Enabled && (config.Tracing.SampleRate < 0 || config.Tracing.SampleRate > 1) {
		return fmt.Errorf("invalid tracing sample rate: %v", config.Tracing.SampleRate)
	}

	if config.RateLimit.Enabled && config.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit requires a positive requests_per_second")
	}

	if config.MockServer.Port <= 0 || config.MockServer.Port > 65535 {
		return fmt.Errorf("invalid mock server port: %d", config.MockServer.Port)
	}

	return nil
}

func (c *Config) GetMockServerAddress() string {
	return fmt.Sprintf("%s:%d", c.MockServer.Host, c.MockServer.Port)
}
