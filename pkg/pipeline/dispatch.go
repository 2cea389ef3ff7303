package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"faultline/internal/constants"
	"faultline/internal/logger"
	"faultline/pkg/metrics"
	"faultline/pkg/models"
	"faultline/pkg/sink"
)

// dispatcher decouples event processing from sink delivery. Enqueue never
// blocks: when the queue is full the newest event is dropped, so a slow or
// dead sink can stall at most queueSize events and never the caller.
type dispatcher struct {
	sink   sink.Sink
	logger logger.Logger

	queue   chan models.ErrorPayload
	done    chan struct{}
	stopped chan struct{}

	// accepted counts Enqueue successes, delivered counts completed sink
	// writes. Flush is done when delivered catches up to accepted.
	accepted  atomic.Int64
	delivered atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

func newDispatcher(s sink.Sink, queueSize int, log logger.Logger) *dispatcher {
	if queueSize <= 0 {
		queueSize = constants.DispatchQueueSize
	}
	d := &dispatcher{
		sink:    s,
		logger:  log,
		queue:   make(chan models.ErrorPayload, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go d.processLoop()
	return d
}

// Enqueue hands a payload to the delivery worker. The boolean reports
// whether the payload was accepted; false means the queue was full and the
// payload was dropped.
func (d *dispatcher) Enqueue(payload models.ErrorPayload) bool {
	select {
	case d.queue <- payload:
		d.accepted.Add(1)
		metrics.SetDispatchQueueDepth(len(d.queue))
		return true
	default:
		return false
	}
}

func (d *dispatcher) processLoop() {
	defer close(d.stopped)
	for {
		select {
		case payload := <-d.queue:
			d.deliver(payload)
		case <-d.done:
			// Drain whatever was accepted before shutdown.
			for {
				select {
				case payload := <-d.queue:
					d.deliver(payload)
				default:
					return
				}
			}
		}
	}
}

func (d *dispatcher) deliver(payload models.ErrorPayload) {
	defer d.delivered.Add(1)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorw("sink panicked during write",
				"sink", d.sink.Name(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			metrics.IncSinkWrite(d.sink.Name(), "panic")
		}
	}()

	metrics.SetDispatchQueueDepth(len(d.queue))

	start := time.Now()
	err := d.sink.Write(context.Background(), payload)
	metrics.ObserveSinkWriteDuration(d.sink.Name(), time.Since(start))

	switch {
	case err == nil:
		metrics.IncSinkWrite(d.sink.Name(), "ok")
	case errors.Is(err, sink.ErrThrottled):
		metrics.IncSinkWrite(d.sink.Name(), "throttled")
	default:
		metrics.IncSinkWrite(d.sink.Name(), "error")
		d.logger.Warnw("sink write failed",
			"sink", d.sink.Name(),
			"event_id", payload.EventID,
			"error", err,
		)
	}
}

// Flush blocks until every payload accepted before the call has been handed
// to the sink, then flushes the sink itself. It returns early with the
// context error if ctx expires first.
func (d *dispatcher) Flush(ctx context.Context) error {
	target := d.accepted.Load()
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for d.delivered.Load() < target {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return d.sink.Flush(ctx)
}

// Close stops the worker after draining accepted payloads. It does not
// close the sink; the owner of the sink does that.
func (d *dispatcher) Close() error {
	d.closeOnce.Do(func() {
		close(d.done)
		select {
		case <-d.stopped:
		case <-time.After(constants.ShutdownTimeout):
			d.closeErr = fmt.Errorf("dispatcher drain timed out after %s", constants.ShutdownTimeout)
		}
	})
	return d.closeErr
}

func (d *dispatcher) QueueDepth() int {
	return len(d.queue)
}

func (d *dispatcher) QueueCapacity() int {
	return cap(d.queue)
}
