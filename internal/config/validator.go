package config

import (
	"fmt"
	"strings"

	"faultline/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateLogging(cfg.Logging); err != nil {
		errors = append(errors, err)
	}

	if err := validateClient(cfg.Client); err != nil {
		errors = append(errors, err)
	}

	if err := validatePipeline(cfg.Pipeline); err != nil {
		errors = append(errors, err)
	}

	if err := validateFiltering(cfg.Filtering); err != nil {
		errors = append(errors, err)
	}

	if err := validateSink(cfg.Sink); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateLogging(cfg LoggingConfig) error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if cfg.Level != "" && !validLevels[strings.ToLower(cfg.Level)] {
		return &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level: %s (valid: debug, info, warn, error)", cfg.Level),
		}
	}

	validFormats := map[string]bool{
		"json": true, "console": true,
	}
	if cfg.Format != "" && !validFormats[strings.ToLower(cfg.Format)] {
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid format: %s (valid: json, console)", cfg.Format),
		}
	}

	return nil
}

func validateClient(cfg ClientConfig) error {
	if cfg.SampleRate < 0 || cfg.SampleRate > 1 {
		return &ValidationError{
			Field:   "client.sample_rate",
			Message: fmt.Sprintf("sample rate must be between 0 and 1, got %g", cfg.SampleRate),
		}
	}

	if cfg.MaxBreadcrumbs < 0 {
		return &ValidationError{
			Field:   "client.max_breadcrumbs",
			Message: "max_breadcrumbs must be non-negative",
		}
	}

	return nil
}

func validatePipeline(cfg PipelineConfig) error {
	if cfg.DedupTTL < 0 {
		return &ValidationError{
			Field:   "pipeline.dedup_ttl",
			Message: "dedup TTL must be non-negative",
		}
	}

	if cfg.RateLimitWindow < 0 {
		return &ValidationError{
			Field:   "pipeline.rate_limit_window",
			Message: "rate limit window must be non-negative",
		}
	}

	if cfg.RateLimitCap < 0 {
		return &ValidationError{
			Field:   "pipeline.rate_limit_cap",
			Message: "rate limit cap must be non-negative",
		}
	}

	if cfg.QueueSize < 0 {
		return &ValidationError{
			Field:   "pipeline.queue_size",
			Message: "queue size must be non-negative",
		}
	}

	if cfg.MaxMessageLen < 0 || cfg.MaxStackLen < 0 || cfg.MaxSourceLen < 0 {
		return &ValidationError{
			Field:   "pipeline.max_message_len",
			Message: "field length caps must be non-negative",
		}
	}

	return nil
}

func validateFiltering(cfg FilteringConfig) error {
	validOnError := map[string]bool{
		constants.FallbackAllow: true,
		constants.FallbackDeny:  true,
	}
	if cfg.Fallback.OnError != "" && !validOnError[strings.ToLower(cfg.Fallback.OnError)] {
		return &ValidationError{
			Field:   "filtering.fallback.on_error",
			Message: fmt.Sprintf("invalid on_error value: %s (valid: allow, deny)", cfg.Fallback.OnError),
		}
	}

	seen := make(map[string]bool, len(cfg.Rules))
	for i, rule := range cfg.Rules {
		if rule.ID == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("filtering.rules[%d].id", i),
				Message: "rule id is required",
			}
		}
		if seen[rule.ID] {
			return &ValidationError{
				Field:   fmt.Sprintf("filtering.rules[%d].id", i),
				Message: fmt.Sprintf("duplicate rule id: %s", rule.ID),
			}
		}
		seen[rule.ID] = true

		if rule.Expression == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("filtering.rules[%d].expression", i),
				Message: "rule expression is required",
			}
		}
	}

	return nil
}

func validateSink(cfg SinkConfig) error {
	validTypes := map[string]bool{
		"console": true, "noop": true,
	}
	if cfg.Type != "" && !validTypes[strings.ToLower(cfg.Type)] {
		return &ValidationError{
			Field:   "sink.type",
			Message: fmt.Sprintf("unknown sink type: %s (supported: console, noop)", cfg.Type),
		}
	}

	if cfg.Throttle.Enabled && cfg.Throttle.EventsPerSecond < 0 {
		return &ValidationError{
			Field:   "sink.throttle.events_per_second",
			Message: "events_per_second must be non-negative",
		}
	}

	if cfg.Breaker.Enabled {
		if cfg.Breaker.Interval < 0 {
			return &ValidationError{
				Field:   "sink.breaker.interval",
				Message: "interval must be non-negative",
			}
		}
		if cfg.Breaker.Timeout < 0 {
			return &ValidationError{
				Field:   "sink.breaker.timeout",
				Message: "timeout must be non-negative",
			}
		}
	}

	return nil
}
