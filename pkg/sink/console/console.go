// Package console writes payloads as JSON lines, one per event. The default
// target is stderr so telemetry stays out of an application's stdout.
package console

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"faultline/pkg/models"
)

type Sink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func New(w io.Writer) *Sink {
	if w == nil {
		w = os.Stderr
	}
	return &Sink{enc: json.NewEncoder(w)}
}

func (s *Sink) Name() string {
	return "console"
}

func (s *Sink) Write(_ context.Context, payload models.ErrorPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(payload)
}

// Flush is a no-op; every Write reaches the writer before returning.
func (s *Sink) Flush(_ context.Context) error {
	return nil
}

func (s *Sink) Close() error {
	return nil
}
