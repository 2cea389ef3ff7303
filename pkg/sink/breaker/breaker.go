// Package breaker decorates a sink with a circuit breaker. A sink that
// starts failing gets a rest instead of a hammering; while the circuit is
// open, writes fail fast and the pipeline's loss model (drop and count)
// handles the rest.
package breaker

import (
	"context"
	"errors"
	"time"

	"faultline/pkg/metrics"
	"faultline/pkg/models"
	"faultline/pkg/sink"

	"github.com/sony/gobreaker"
)

type Config struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		MaxRequests:         3,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

type Sink struct {
	next sink.Sink
	cb   *gobreaker.CircuitBreaker
	name string
}

func New(next sink.Sink, cfg Config) *Sink {
	def := DefaultConfig(next.Name())
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = def.ConsecutiveFailures
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// A throttled write is a deliberate drop, not a sink failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, sink.ErrThrottled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			updateStateMetric(name, to)
		},
	}

	cb := gobreaker.NewCircuitBreaker(settings)
	updateStateMetric(cfg.Name, cb.State())

	return &Sink{next: next, cb: cb, name: cfg.Name}
}

func (s *Sink) Name() string {
	return s.next.Name()
}

func (s *Sink) Write(ctx context.Context, payload models.ErrorPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state := s.cb.State().String()
	metrics.IncBreakerRequest(s.name, state)

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Write(ctx, payload)
	})
	if err != nil && !errors.Is(err, sink.ErrThrottled) {
		metrics.IncBreakerFailure(s.name)
	}
	return err
}

// Flush and Close bypass the breaker; they are control operations and must
// stay available while the data path is open-circuited.
func (s *Sink) Flush(ctx context.Context) error {
	return s.next.Flush(ctx)
}

func (s *Sink) Close() error {
	return s.next.Close()
}

func (s *Sink) State() gobreaker.State {
	return s.cb.State()
}

func updateStateMetric(name string, state gobreaker.State) {
	var value int
	switch state {
	case gobreaker.StateClosed:
		value = 0
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	metrics.SetBreakerState(name, value)
}
