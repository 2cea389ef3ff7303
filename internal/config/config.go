package config

import (
	"time"
)

type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Client    ClientConfig
	Pipeline  PipelineConfig
	Filtering FilteringConfig
	Sink      SinkConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ClientConfig is the runtime config pushed into the pipeline's config
// store. It is the hot-reloadable part of the file.
type ClientConfig struct {
	Environment    string  `mapstructure:"environment"`
	SampleRate     float64 `mapstructure:"sample_rate"`
	MaxBreadcrumbs int     `mapstructure:"max_breadcrumbs"`
}

type PipelineConfig struct {
	DedupTTL        time.Duration `mapstructure:"dedup_ttl"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
	RateLimitCap    int           `mapstructure:"rate_limit_cap"`
	QueueSize       int           `mapstructure:"queue_size"`
	MaxMessageLen   int           `mapstructure:"max_message_len"`
	MaxStackLen     int           `mapstructure:"max_stack_len"`
	MaxSourceLen    int           `mapstructure:"max_source_len"`
}

type FilteringConfig struct {
	Rules    []RuleConfig   `mapstructure:"rules"`
	Fallback FallbackConfig `mapstructure:"fallback"`
}

type RuleConfig struct {
	ID         string `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	Expression string `mapstructure:"expression"`
}

type FallbackConfig struct {
	OnError string `mapstructure:"on_error"` // "allow", "deny" (default: "allow")
}

type SinkConfig struct {
	Type     string         `mapstructure:"type"` // "console", "noop"
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
}

type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

type ThrottleConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	EventsPerSecond float64 `mapstructure:"events_per_second"`
	Burst           int     `mapstructure:"burst"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
