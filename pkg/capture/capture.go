// Package capture turns Go-side failures into pipeline events: explicit
// error reports, recovered panics, crashed goroutines and HTTP failures
// observed on either side of a request.
package capture

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"faultline/internal/logger"
	"faultline/pkg/models"
	"faultline/pkg/pipeline"
)

// Capturer builds payloads from Go values and feeds them to one pipeline.
// All report methods are safe for concurrent use and never block on the
// sink.
type Capturer struct {
	pipeline *pipeline.Pipeline
	logger   logger.Logger
}

func New(p *pipeline.Pipeline, log logger.Logger) *Capturer {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Capturer{pipeline: p, logger: log}
}

// Option attaches caller-known context to a captured event. Options run
// after the payload base is built from the error or message.
type Option func(*models.ErrorPayloadBuilder)

func WithSessionID(id string) Option {
	return func(b *models.ErrorPayloadBuilder) { b.WithSessionID(id) }
}

func WithUserAgent(userAgent string) Option {
	return func(b *models.ErrorPayloadBuilder) { b.WithUserAgent(userAgent) }
}

func WithURL(url string) Option {
	return func(b *models.ErrorPayloadBuilder) { b.WithURL(url) }
}

func WithRoute(route string) Option {
	return func(b *models.ErrorPayloadBuilder) { b.WithRoute(route) }
}

func WithMetadata(key, value string) Option {
	return func(b *models.ErrorPayloadBuilder) { b.WithMetadataEntry(key, value) }
}

// CaptureError reports err as an explicit rejection, with the capture-site
// stack attached. Nil errors are ignored.
func (c *Capturer) CaptureError(ctx context.Context, err error, opts ...Option) {
	if err == nil {
		return
	}
	b := models.NewErrorPayloadBuilder(models.KindExplicitRejection).
		WithName(errorName(err)).
		WithMessage(err.Error()).
		WithStack(string(debug.Stack()))
	for _, opt := range opts {
		opt(b)
	}
	c.submit(ctx, b)
}

// CaptureMessage reports a plain string the way CaptureError reports an
// error.
func (c *Capturer) CaptureMessage(ctx context.Context, message string, opts ...Option) {
	if message == "" {
		return
	}
	b := models.NewErrorPayloadBuilder(models.KindExplicitRejection).
		WithName("Message").
		WithMessage(message)
	for _, opt := range opts {
		opt(b)
	}
	c.submit(ctx, b)
}

// Recover reports an in-flight panic as a runtime error and returns the
// recovered value. It must be deferred directly:
//
//	defer capturer.Recover(ctx)
//
// Wrapping it in another function breaks recover and the panic keeps
// unwinding.
func (c *Capturer) Recover(ctx context.Context) any {
	r := recover()
	if r == nil {
		return nil
	}
	c.submit(ctx, models.NewErrorPayloadBuilder(models.KindRuntimeError).
		WithName("panic").
		WithMessage(formatRecovered(r)).
		WithStack(string(debug.Stack())))
	return r
}

// Go runs fn on a new goroutine. A panic in fn is reported as an unhandled
// rejection instead of crashing the process.
func (c *Capturer) Go(ctx context.Context, fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.submit(ctx, models.NewErrorPayloadBuilder(models.KindUnhandledRejection).
					WithName("panic").
					WithMessage(formatRecovered(r)).
					WithStack(string(debug.Stack())))
				c.logger.Errorw("goroutine panic captured", "panic", r)
			}
		}()
		fn(ctx)
	}()
}

// submit stamps the environment tag from the active runtime config when the
// builder left it empty, then hands the payload to the pipeline.
func (c *Capturer) submit(ctx context.Context, b *models.ErrorPayloadBuilder) {
	payload := b.Build()
	if payload.Environment == "" {
		payload.Environment = c.pipeline.Environment()
	}
	c.pipeline.Process(ctx, payload)
}

func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}

// errorName maps an error value to a stable event name. Plain stdlib error
// wrappers collapse to "error"; named types keep their type name.
func errorName(err error) string {
	name := fmt.Sprintf("%T", err)
	switch name {
	case "*errors.errorString", "*errors.joinError", "*fmt.wrapError", "*fmt.wrapErrors":
		return "error"
	}
	return strings.TrimPrefix(name, "*")
}
