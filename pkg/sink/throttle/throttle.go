// Package throttle decorates a sink with a token-bucket cap. Unlike the
// pipeline's own fixed-window limiter, which bounds what enters the
// pipeline, this bounds how fast a sink is written to; beyond the budget,
// writes are declined with sink.ErrThrottled rather than queued.
package throttle

import (
	"context"

	"faultline/pkg/models"
	"faultline/pkg/sink"

	"golang.org/x/time/rate"
)

type Sink struct {
	next    sink.Sink
	limiter *rate.Limiter
}

func New(next sink.Sink, eventsPerSecond float64, burst int) *Sink {
	if burst < 1 {
		burst = 1
	}
	return &Sink{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(eventsPerSecond), burst),
	}
}

func (s *Sink) Name() string {
	return s.next.Name()
}

// Write never waits for a token; a telemetry path must not block.
func (s *Sink) Write(ctx context.Context, payload models.ErrorPayload) error {
	if !s.limiter.Allow() {
		return sink.ErrThrottled
	}
	return s.next.Write(ctx, payload)
}

func (s *Sink) Flush(ctx context.Context) error {
	return s.next.Flush(ctx)
}

func (s *Sink) Close() error {
	return s.next.Close()
}
