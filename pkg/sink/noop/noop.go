// Package noop discards every payload. Useful as a default while wiring and
// in tests that only care about gate behavior.
package noop

import (
	"context"

	"faultline/pkg/models"
)

type Sink struct{}

func New() *Sink {
	return &Sink{}
}

func (s *Sink) Name() string {
	return "noop"
}

func (s *Sink) Write(_ context.Context, _ models.ErrorPayload) error {
	return nil
}

func (s *Sink) Flush(_ context.Context) error {
	return nil
}

func (s *Sink) Close() error {
	return nil
}
