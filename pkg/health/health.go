package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"faultline/pkg/pipeline"
	"faultline/pkg/sink"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ErrDegraded marks a check that is impaired but still doing its job. Wrap
// it to attach detail: fmt.Errorf("%w: queue at 90%%", ErrDegraded).
var ErrDegraded = errors.New("degraded")

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CheckerRegistry struct {
	checkers []Checker
}

func NewCheckerRegistry() *CheckerRegistry {
	return &CheckerRegistry{
		checkers: make([]Checker, 0),
	}
}

func (r *CheckerRegistry) Register(checker Checker) {
	r.checkers = append(r.checkers, checker)
}

func (r *CheckerRegistry) Check(ctx context.Context) Health {
	results := make(map[string]CheckResult)
	allHealthy := true
	anyDegraded := false

	for _, checker := range r.checkers {
		err := checker.Check(ctx)
		result := CheckResult{
			Timestamp: time.Now(),
		}

		switch {
		case err == nil:
			result.Status = StatusHealthy
		case errors.Is(err, ErrDegraded):
			result.Status = StatusDegraded
			result.Message = err.Error()
			anyDegraded = true
		default:
			result.Status = StatusUnhealthy
			result.Message = err.Error()
			allHealthy = false
		}

		results[checker.Name()] = result
	}

	overallStatus := StatusHealthy
	if !allHealthy {
		overallStatus = StatusUnhealthy
	} else if anyDegraded {
		overallStatus = StatusDegraded
	}

	return Health{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// DispatchQueueChecker watches the pipeline's delivery queue. A full queue
// means events are being dropped; a nearly full one means the sink is not
// keeping up.
type DispatchQueueChecker struct {
	pipeline *pipeline.Pipeline
}

func NewDispatchQueueChecker(p *pipeline.Pipeline) *DispatchQueueChecker {
	return &DispatchQueueChecker{pipeline: p}
}

func (c *DispatchQueueChecker) Name() string {
	return "dispatch_queue"
}

func (c *DispatchQueueChecker) Check(_ context.Context) error {
	depth := c.pipeline.QueueDepth()
	capacity := c.pipeline.QueueCapacity()
	if capacity == 0 {
		return nil
	}

	if depth >= capacity {
		return fmt.Errorf("dispatch queue full (%d/%d), dropping events", depth, capacity)
	}
	if depth*10 >= capacity*8 {
		return fmt.Errorf("%w: dispatch queue at %d/%d", ErrDegraded, depth, capacity)
	}
	return nil
}

// SinkChecker flushes the sink and, when the sink is breaker-wrapped,
// reports an open circuit as unhealthy and a half-open one as degraded.
type SinkChecker struct {
	sink sink.Sink
}

func NewSinkChecker(s sink.Sink) *SinkChecker {
	return &SinkChecker{sink: s}
}

func (c *SinkChecker) Name() string {
	return "sink"
}

type breakerStater interface {
	State() gobreaker.State
}

func (c *SinkChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if br, ok := c.sink.(breakerStater); ok {
		switch br.State() {
		case gobreaker.StateOpen:
			return fmt.Errorf("sink circuit breaker open")
		case gobreaker.StateHalfOpen:
			return fmt.Errorf("%w: sink circuit breaker half-open", ErrDegraded)
		}
	}

	if err := c.sink.Flush(ctx); err != nil {
		return fmt.Errorf("sink flush failed: %w", err)
	}
	return nil
}

// ConfigChecker reports degraded while the pipeline runs on defaults
// because no runtime config was ever stored. Events still flow in that
// state.
type ConfigChecker struct {
	store *pipeline.ConfigStore
}

func NewConfigChecker(store *pipeline.ConfigStore) *ConfigChecker {
	return &ConfigChecker{store: store}
}

func (c *ConfigChecker) Name() string {
	return "runtime_config"
}

func (c *ConfigChecker) Check(_ context.Context) error {
	if !c.store.IsSet() {
		return fmt.Errorf("%w: runtime config not set, sampling everything", ErrDegraded)
	}
	return nil
}
