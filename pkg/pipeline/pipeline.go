// Package pipeline wires the capture gates into a single processing chain:
// runtime config snapshot, sampling, rate limiting, drop rules, payload
// sanitization, fingerprinting, deduplication, then asynchronous dispatch
// to a sink. Processing never returns an error and never panics; events
// that fail a gate are counted and dropped, not reported to the caller.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"faultline/internal/constants"
	"faultline/internal/dedup"
	"faultline/internal/filtering"
	"faultline/internal/fingerprint"
	"faultline/internal/logger"
	"faultline/internal/ratelimit"
	"faultline/internal/sampling"
	"faultline/internal/sanitize"
	"faultline/pkg/logging"
	"faultline/pkg/metrics"
	"faultline/pkg/models"
	"faultline/pkg/sink"
)

// Config tunes the per-instance gates. Zero values fall back to the
// package defaults, so Config{} behaves like DefaultConfig().
type Config struct {
	DedupTTL        time.Duration
	RateLimitWindow time.Duration
	RateLimitCap    int
	QueueSize       int
	MaxMessageLen   int
	MaxStackLen     int
	MaxSourceLen    int
}

func DefaultConfig() Config {
	return Config{
		DedupTTL:        constants.DedupTTL,
		RateLimitWindow: constants.RateLimitWindow,
		RateLimitCap:    constants.RateLimitCap,
		QueueSize:       constants.DispatchQueueSize,
		MaxMessageLen:   constants.MaxMessageLen,
		MaxStackLen:     constants.MaxStackLen,
		MaxSourceLen:    constants.MaxSourceLen,
	}
}

// Pipeline owns every piece of per-instance state: the dedup cache, the
// rate limit window, the runtime config store and the dispatch queue.
// Instances are independent; creating two pipelines in one process shares
// nothing but the metrics registry.
type Pipeline struct {
	store      *ConfigStore
	sampler    *sampling.Sampler
	limiter    *ratelimit.Limiter
	filter     *filtering.Service
	sanitizer  *sanitize.Sanitizer
	dedup      *dedup.Deduplicator
	dispatcher *dispatcher
	sink       sink.Sink
	logger     logger.Logger
	tracer     trace.Tracer

	closeOnce sync.Once
	closeErr  error
}

func New(opts ...Option) (*Pipeline, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	filter, err := filtering.NewService(o.fallbackOnError, o.logger)
	if err != nil {
		return nil, fmt.Errorf("building drop rule engine: %w", err)
	}
	if len(o.dropRules) > 0 {
		if err := filter.ReloadRules(context.Background(), toFilterRules(o.dropRules)); err != nil {
			return nil, fmt.Errorf("loading drop rules: %w", err)
		}
	}

	p := &Pipeline{
		store:   NewConfigStore(o.logger),
		sampler: sampling.New(),
		limiter: ratelimit.New(o.cfg.RateLimitWindow, o.cfg.RateLimitCap),
		filter:  filter,
		sanitizer: sanitize.New(sanitize.Config{
			MaxMessageLen: o.cfg.MaxMessageLen,
			MaxStackLen:   o.cfg.MaxStackLen,
			MaxSourceLen:  o.cfg.MaxSourceLen,
		}),
		dedup:  dedup.New(o.cfg.DedupTTL),
		sink:   o.sink,
		logger: o.logger,
		tracer: o.tracer,
	}
	p.dispatcher = newDispatcher(o.sink, o.cfg.QueueSize, o.logger)

	if o.runtime != nil {
		p.store.Set(*o.runtime)
	}
	return p, nil
}

// Process runs payload through every gate and, if it survives, queues it
// for delivery. It returns before the sink sees anything; delivery happens
// on the dispatch worker. The caller's payload is never modified.
func (p *Pipeline) Process(ctx context.Context, payload models.ErrorPayload) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncEvent(constants.DropInternalError)
			p.logger.Errorw("panic while processing event",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	// An event reported during request teardown still goes through every
	// gate, so delivery must not inherit the request's cancellation.
	ctx = context.WithoutCancel(ctx)

	var span trace.Span
	if p.tracer != nil {
		ctx, span = p.tracer.Start(ctx, "faultline.process",
			trace.WithAttributes(attribute.String("faultline.kind", string(payload.Kind))))
		defer span.End()
	}

	status := p.run(ctx, payload)
	metrics.IncEvent(status)
	if span != nil {
		span.SetAttributes(attribute.String("faultline.status", status))
	}
}

func (p *Pipeline) run(ctx context.Context, payload models.ErrorPayload) string {
	cfg, ok := p.store.Get()
	rate := cfg.SampleRate
	if !ok {
		rate = constants.DefaultSampleRate
	}

	start := time.Now()
	keep := p.sampler.Keep(rate)
	metrics.ObserveStageDuration(constants.StageSample, time.Since(start))
	if !keep {
		return p.dropped(ctx, payload, constants.DropSampledOut)
	}

	// Sampled-out events never reach this point, so they consume no rate
	// limit budget.
	start = time.Now()
	allowed := p.limiter.Allow()
	metrics.ObserveStageDuration(constants.StageRateLimit, time.Since(start))
	if !allowed {
		return p.dropped(ctx, payload, constants.DropRateLimited)
	}

	if p.filter.ActiveRules() > 0 {
		start = time.Now()
		drop, err := p.filter.ShouldDrop(ctx, payload)
		metrics.ObserveStageDuration(constants.StageFilter, time.Since(start))
		if err != nil {
			p.logger.ErrorwCtx(ctx, "drop rule evaluation aborted",
				"event_id", payload.EventID,
				"error", err,
			)
			return constants.DropInternalError
		}
		if drop {
			return p.dropped(ctx, payload, constants.DropFiltered)
		}
	}

	start = time.Now()
	clean := p.sanitizer.Sanitize(payload)
	metrics.ObserveStageDuration(constants.StageSanitize, time.Since(start))

	start = time.Now()
	fp := fingerprint.Compute(clean)
	metrics.ObserveStageDuration(constants.StageFingerprint, time.Since(start))
	ctx = logging.WithFingerprint(ctx, fp)

	start = time.Now()
	duplicate := p.dedup.IsDuplicate(fp)
	metrics.ObserveStageDuration(constants.StageDedup, time.Since(start))
	metrics.SetDedupEntries(p.dedup.Len())
	if duplicate {
		return p.dropped(ctx, payload, constants.DropDuplicate)
	}

	clean.Fingerprint = fp

	start = time.Now()
	accepted := p.dispatcher.Enqueue(clean)
	metrics.ObserveStageDuration(constants.StageDispatch, time.Since(start))
	if !accepted {
		p.logger.WarnwCtx(ctx, "dispatch queue full, dropping event",
			"event_id", clean.EventID,
			"queue_capacity", p.dispatcher.QueueCapacity(),
		)
		return constants.DropQueueOverflow
	}

	p.logger.DebugwCtx(logging.WithEventID(ctx, clean.EventID), "event dispatched",
		"kind", clean.Kind,
	)
	return constants.StatusDispatched
}

func (p *Pipeline) dropped(ctx context.Context, payload models.ErrorPayload, reason string) string {
	p.logger.DebugwCtx(ctx, "event dropped",
		"reason", reason,
		"kind", payload.Kind,
		"event_id", payload.EventID,
	)
	return reason
}

// ReloadDropRules replaces the active drop rule set. A compile failure in
// any rule leaves the previous set untouched.
func (p *Pipeline) ReloadDropRules(ctx context.Context, rules []DropRule) error {
	return p.filter.ReloadRules(ctx, toFilterRules(rules))
}

// SetRuntimeConfig stores the client runtime config used by subsequent
// Process calls.
func (p *Pipeline) SetRuntimeConfig(cfg RuntimeConfig) {
	p.store.Set(cfg)
}

// Store exposes the runtime config store for components that push updates,
// such as a config file watcher.
func (p *Pipeline) Store() *ConfigStore {
	return p.store
}

// Environment returns the environment tag of the active runtime config, or
// "" when none is set.
func (p *Pipeline) Environment() string {
	cfg, _ := p.store.Get()
	return cfg.Environment
}

// Flush blocks until all queued events have been handed to the sink and the
// sink itself has flushed, or until ctx expires.
func (p *Pipeline) Flush(ctx context.Context) error {
	return p.dispatcher.Flush(ctx)
}

// Close drains the dispatch queue and closes the sink. Subsequent calls
// return the first result.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = errors.Join(p.dispatcher.Close(), p.sink.Close())
	})
	return p.closeErr
}

func (p *Pipeline) QueueDepth() int {
	return p.dispatcher.QueueDepth()
}

func (p *Pipeline) QueueCapacity() int {
	return p.dispatcher.QueueCapacity()
}
