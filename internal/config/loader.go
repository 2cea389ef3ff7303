package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"faultline/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("server.port", "FAULTLINE_SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "FAULTLINE_SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "FAULTLINE_SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "FAULTLINE_LOGGING_LEVEL")
	viper.BindEnv("logging.format", "FAULTLINE_LOGGING_FORMAT")

	viper.BindEnv("client.environment", "FAULTLINE_CLIENT_ENVIRONMENT")
	viper.BindEnv("client.sample_rate", "FAULTLINE_CLIENT_SAMPLE_RATE")
	viper.BindEnv("client.max_breadcrumbs", "FAULTLINE_CLIENT_MAX_BREADCRUMBS")

	viper.BindEnv("sink.type", "FAULTLINE_SINK_TYPE")

	viper.BindEnv("tracing.otlp.endpoint", "FAULTLINE_TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "FAULTLINE_TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "FAULTLINE_TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "FAULTLINE_TRACING_SERVICE_NAME")
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", 10)
	viper.SetDefault("server.write_timeout_seconds", 10)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// An absent client section behaves like the unset runtime config:
	// sample everything.
	viper.SetDefault("client.sample_rate", constants.DefaultSampleRate)

	viper.SetDefault("pipeline.dedup_ttl", constants.DedupTTL)
	viper.SetDefault("pipeline.rate_limit_window", constants.RateLimitWindow)
	viper.SetDefault("pipeline.rate_limit_cap", constants.RateLimitCap)
	viper.SetDefault("pipeline.queue_size", constants.DispatchQueueSize)
	viper.SetDefault("pipeline.max_message_len", constants.MaxMessageLen)
	viper.SetDefault("pipeline.max_stack_len", constants.MaxStackLen)
	viper.SetDefault("pipeline.max_source_len", constants.MaxSourceLen)

	viper.SetDefault("filtering.fallback.on_error", constants.FallbackAllow)

	viper.SetDefault("sink.type", "console")

	viper.SetDefault("tracing.service_name", "faultline")
	viper.SetDefault("tracing.sampler.type", "parentbased_always_on")
}

func applyEnvOverrides(cfg *Config) error {
	if otlpEndpoint := viper.GetString("FAULTLINE_TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}
