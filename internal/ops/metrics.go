// Package ops exposes the operator-facing surface of the bot: Prometheus
// collectors for command and provider activity, and a small HTTP listener
// serving health probes and /metrics.
//
// Label cardinality is kept bounded: commands come from a fixed set,
// outcomes from the error taxonomy, provider/op pairs from the three
// adapters.
package ops

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// operationsTotal counts user-facing operations by handler and outcome
	// (completed, rejected, partial, unauthorized, rate_limited...).
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_operations_total",
			Help: "Total number of user-facing operations by handler and outcome.",
		},
		[]string{"handler", "outcome"},
	)

	// providerLatency records external call duration by provider and operation.
	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Duration of external provider calls in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "op"},
	)

	// providerErrors counts failed external calls by provider and operation.
	providerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_request_errors_total",
			Help: "Total number of failed external provider calls.",
		},
		[]string{"provider", "op"},
	)

	// spoolPending gauges audit rows waiting in the local spool.
	spoolPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_spool_pending_rows",
			Help: "Audit rows buffered locally after a failed sink append.",
		},
	)
)

func init() {
	prometheus.MustRegister(operationsTotal, providerLatency, providerErrors, spoolPending)
}

// CountOperation records one completed user-facing operation.
func CountOperation(handler, outcome string) {
	operationsTotal.WithLabelValues(handler, outcome).Inc()
}

// ObserveProvider records latency (since start) and the error outcome of one
// external provider call.
func ObserveProvider(provider, op string, start time.Time, err error) {
	providerLatency.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
	if err != nil {
		providerErrors.WithLabelValues(provider, op).Inc()
	}
}

// SetSpoolPending updates the spooled-row gauge.
func SetSpoolPending(n int64) {
	spoolPending.Set(float64(n))
}
