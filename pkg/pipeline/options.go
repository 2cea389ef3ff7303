package pipeline

import (
	"go.opentelemetry.io/otel/trace"

	"faultline/internal/constants"
	"faultline/internal/filtering"
	"faultline/internal/logger"
	"faultline/pkg/sink"
	"faultline/pkg/sink/noop"
)

// DropRule is a CEL expression evaluated against each event after the rate
// limiter; a rule that evaluates to true drops the event.
type DropRule struct {
	ID         string `mapstructure:"id" json:"id"`
	Name       string `mapstructure:"name" json:"name"`
	Expression string `mapstructure:"expression" json:"expression"`
}

func toFilterRules(rules []DropRule) []filtering.Rule {
	out := make([]filtering.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, filtering.Rule{ID: r.ID, Name: r.Name, Expression: r.Expression})
	}
	return out
}

type options struct {
	cfg             Config
	sink            sink.Sink
	logger          logger.Logger
	tracer          trace.Tracer
	runtime         *RuntimeConfig
	dropRules       []DropRule
	fallbackOnError string
}

func defaultOptions() *options {
	return &options{
		cfg:             DefaultConfig(),
		sink:            noop.New(),
		logger:          logger.NopLogger(),
		fallbackOnError: constants.FallbackAllow,
	}
}

type Option func(*options)

// WithSink sets the delivery target. Events that survive every gate are
// written to it from the dispatch worker.
func WithSink(s sink.Sink) Option {
	return func(o *options) {
		if s != nil {
			o.sink = s
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}

func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithRuntimeConfig seeds the config store so the first Process call does
// not run with defaults.
func WithRuntimeConfig(cfg RuntimeConfig) Option {
	return func(o *options) {
		o.runtime = &cfg
	}
}

// WithDropRules installs the initial drop rule set. fallbackOnError decides
// what a rule evaluation failure means: constants.FallbackAllow keeps the
// event, constants.FallbackDeny drops it.
func WithDropRules(fallbackOnError string, rules ...DropRule) Option {
	return func(o *options) {
		if fallbackOnError != "" {
			o.fallbackOnError = fallbackOnError
		}
		o.dropRules = append(o.dropRules, rules...)
	}
}
