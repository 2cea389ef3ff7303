package pipeline

import (
	"context"
	"sync"

	"faultline/pkg/models"
)

// captureSink records every delivered payload for later assertions.
type captureSink struct {
	mu      sync.Mutex
	events  []models.ErrorPayload
	flushes int
	closes  int
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Write(_ context.Context, payload models.ErrorPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, payload)
	return nil
}

func (s *captureSink) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *captureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *captureSink) Events() []models.ErrorPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ErrorPayload, len(s.events))
	copy(out, s.events)
	return out
}

func (s *captureSink) CloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// blockingSink parks every Write until release is closed, signalling each
// attempt on started. It makes the worker's position observable.
type blockingSink struct {
	captureSink
	started chan struct{}
	release chan struct{}
}

func newBlockingSink() *blockingSink {
	return &blockingSink{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (s *blockingSink) Write(ctx context.Context, payload models.ErrorPayload) error {
	s.started <- struct{}{}
	<-s.release
	return s.captureSink.Write(ctx, payload)
}

// panicSink panics on payloads whose message is "boom" and records the rest.
type panicSink struct {
	captureSink
}

func (s *panicSink) Write(ctx context.Context, payload models.ErrorPayload) error {
	if payload.Message == "boom" {
		panic("sink exploded")
	}
	return s.captureSink.Write(ctx, payload)
}
