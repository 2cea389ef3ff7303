// Package sink defines the delivery boundary of the pipeline. A sink
// receives fully processed payloads; what happens to them afterwards is the
// embedding application's business. Sinks must tolerate concurrent Write
// calls from the dispatch worker and Flush callers.
package sink

import (
	"context"
	"errors"

	"faultline/pkg/models"
)

// ErrThrottled marks a write declined by a throttling decorator. It is a
// deliberate drop, not a sink failure; circuit breakers must not trip on it.
var ErrThrottled = errors.New("sink write throttled")

type Sink interface {
	Name() string
	Write(ctx context.Context, payload models.ErrorPayload) error
	Flush(ctx context.Context) error
	Close() error
}
