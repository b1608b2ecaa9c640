// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the application.
package observability

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GovernanceOperations counts governance operations by kind and outcome.
	GovernanceOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_governance_operations_total",
		Help: "Total number of governance operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// BansExpired counts ban records removed by the expiry sweeper.
	BansExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_bans_expired_total",
		Help: "Total number of ban records removed by the expiry sweeper",
	})

	// SweepDuration records the duration of one full sweeper tick.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "agora_ban_sweep_duration_seconds",
		Help:    "Duration of one ban-expiry sweep in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// SweepFailures counts communities whose sweep processing failed.
	SweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_ban_sweep_failures_total",
		Help: "Total number of per-community failures during ban-expiry sweeps",
	})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})
)

// NewHTTPMetrics returns the Fiber Prometheus middleware for HTTP metrics.
func NewHTTPMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.New(serviceName)
}

// RecordOperation increments the governance operation counter.
func RecordOperation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	GovernanceOperations.WithLabelValues(operation, outcome).Inc()
}
