package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_events_total",
			Help: "Total number of error events processed, by terminal status (count)",
		},
		[]string{"status"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "faultline_stage_duration_ms",
			Help:    "Duration of individual pipeline stages in milliseconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
		},
		[]string{"stage"},
	)

	DedupEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "faultline_dedup_entries",
			Help: "Approximate number of live fingerprints in the dedup store (count)",
		},
	)

	DispatchQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "faultline_dispatch_queue_depth",
			Help: "Number of events waiting in the async dispatch queue (count)",
		},
	)

	SinkWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_sink_writes_total",
			Help: "Total number of sink write attempts (count)",
		},
		[]string{"sink", "status"},
	)

	SinkWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "faultline_sink_write_duration_ms",
			Help:    "Duration of sink writes in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"sink"},
	)

	FilterRulesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "faultline_filter_rules_active",
			Help: "Number of active drop rules (count)",
		},
	)

	FilterRuleEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_filter_rule_evaluations_total",
			Help: "Total number of drop rule evaluations (count)",
		},
		[]string{"rule_id", "rule_name", "result"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"component", "strategy", "reason"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "faultline_breaker_state",
			Help: "Sink circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	BreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_breaker_requests_total",
			Help: "Total number of writes attempted through the sink circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	BreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faultline_breaker_failures_total",
			Help: "Total number of failures observed by the sink circuit breaker (count)",
		},
		[]string{"name"},
	)
)

var fallbackRegisterOnce sync.Once

func registerFallbackUsageTotalOnce() {
	fallbackRegisterOnce.Do(func() {
		prometheus.MustRegister(FallbackUsageTotal)
	})
}

func RegisterPipelineMetrics() {
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(DedupEntries)
	prometheus.MustRegister(DispatchQueueDepth)
	registerFallbackUsageTotalOnce()
}

func RegisterFilterMetrics() {
	prometheus.MustRegister(FilterRulesActive)
	prometheus.MustRegister(FilterRuleEvaluationsTotal)
	registerFallbackUsageTotalOnce()
}

func RegisterSinkMetrics() {
	prometheus.MustRegister(SinkWritesTotal)
	prometheus.MustRegister(SinkWriteDuration)
	prometheus.MustRegister(BreakerState)
	prometheus.MustRegister(BreakerRequests)
	prometheus.MustRegister(BreakerFailures)
}

// Stage work is in-process and routinely sub-millisecond, so durations keep
// their fractional part instead of flooring through Milliseconds().
func ms(duration time.Duration) float64 {
	return float64(duration.Nanoseconds()) / 1e6
}

func IncEvent(status string) {
	EventsTotal.WithLabelValues(status).Inc()
}

func ObserveStageDuration(stage string, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(ms(duration))
}

func SetDedupEntries(count int) {
	DedupEntries.Set(float64(count))
}

func SetDispatchQueueDepth(depth int) {
	DispatchQueueDepth.Set(float64(depth))
}

func IncSinkWrite(sink, status string) {
	SinkWritesTotal.WithLabelValues(sink, status).Inc()
}

func ObserveSinkWriteDuration(sink string, duration time.Duration) {
	SinkWriteDuration.WithLabelValues(sink).Observe(ms(duration))
}

func SetFilterRulesActive(count int) {
	FilterRulesActive.Set(float64(count))
}

func IncFilterRuleEvaluation(ruleID, ruleName, result string) {
	FilterRuleEvaluationsTotal.WithLabelValues(ruleID, ruleName, result).Inc()
}

func IncFallbackUsage(component, strategy, reason string) {
	FallbackUsageTotal.WithLabelValues(component, strategy, reason).Inc()
}

func SetBreakerState(name string, state int) {
	BreakerState.WithLabelValues(name).Set(float64(state))
}

func IncBreakerRequest(name, state string) {
	BreakerRequests.WithLabelValues(name, state).Inc()
}

func IncBreakerFailure(name string) {
	BreakerFailures.WithLabelValues(name).Inc()
}
