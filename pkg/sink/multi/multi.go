// Package multi fans a payload out to several sinks. Every sink sees every
// payload even when an earlier one fails; errors are joined.
package multi

import (
	"context"
	"errors"

	"faultline/pkg/models"
	"faultline/pkg/sink"
)

type Sink struct {
	sinks []sink.Sink
}

func New(sinks ...sink.Sink) *Sink {
	return &Sink{sinks: sinks}
}

func (s *Sink) Name() string {
	return "multi"
}

func (s *Sink) Write(ctx context.Context, payload models.ErrorPayload) error {
	var errs []error
	for _, target := range s.sinks {
		if err := target.Write(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sink) Flush(ctx context.Context) error {
	var errs []error
	for _, target := range s.sinks {
		if err := target.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sink) Close() error {
	var errs []error
	for _, target := range s.sinks {
		if err := target.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
