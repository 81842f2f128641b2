package payment

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricPaymentAttempts    = "payment_attempts_total"
	MetricLockConflicts      = "payment_lock_conflicts_total"
	MetricProcessingDuration = "payment_processing_duration_seconds"
)

// Outcome labels for payment_attempts_total.
const (
	OutcomeCompleted        = "completed"
	OutcomeMissingFields    = "missing_fields"
	OutcomeLockDenied       = "lock_denied"
	OutcomeAlreadyProcessed = "already_processed"
	OutcomeGatewayFailed    = "gateway_failed"
	OutcomeStoreError       = "store_error"
)

// Metrics contains Prometheus metrics for the payment coordinator.
// All operations are thread-safe and nil-receiver safe, so tests can run a
// coordinator without a registry.
type Metrics struct {
	attempts           *prometheus.CounterVec
	lockConflicts      prometheus.Counter
	processingDuration prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them.
func NewMetrics() *Metrics {
	return &Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPaymentAttempts,
				Help: "Total number of payment processing attempts by outcome",
			},
			[]string{"outcome"},
		),
		lockConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricLockConflicts,
				Help: "Total number of requests rejected because the session lock was held",
			},
		),
		processingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricProcessingDuration,
				Help:    "Gateway processing duration for successful payments in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 3.0, 5.0},
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.attempts, m.lockConflicts, m.processingDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// RecordOutcome increments the attempt counter for the given outcome.
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

// RecordLockConflict increments the lock conflict counter.
func (m *Metrics) RecordLockConflict() {
	if m == nil {
		return
	}
	m.lockConflicts.Inc()
}

// ObserveProcessing records the gateway duration of a successful payment.
func (m *Metrics) ObserveProcessing(d time.Duration) {
	if m == nil {
		return
	}
	m.processingDuration.Observe(d.Seconds())
}
