package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for registry operations.
type Metrics struct {
	CredentialsCreated    prometheus.Counter
	SignaturesRecorded    prometheus.Counter
	CredentialsValidated  prometheus.Counter
	MutationsDenied       *prometheus.CounterVec
	UnreachableThresholds prometheus.Counter
	RequiredSignatures    prometheus.Histogram
	OperationLatency      *prometheus.HistogramVec
	LockWaitDuration      prometheus.Histogram
	FeedCursor            *prometheus.GaugeVec
	FeedEventsProcessed   *prometheus.CounterVec
}

// New registers collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		CredentialsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "quorumcred_credentials_created_total",
			Help: "Total number of credentials created",
		}),
		SignaturesRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "quorumcred_signatures_recorded_total",
			Help: "Total number of validator signatures recorded",
		}),
		CredentialsValidated: f.NewCounter(prometheus.CounterOpts{
			Name: "quorumcred_credentials_validated_total",
			Help: "Total number of credentials that reached their signature threshold",
		}),
		MutationsDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quorumcred_mutations_denied_total",
			Help: "Total number of rejected create or sign attempts, labeled by reason",
		}, []string{"operation", "reason"}),
		UnreachableThresholds: f.NewCounter(prometheus.CounterOpts{
			Name: "quorumcred_unreachable_thresholds_total",
			Help: "Credentials created with more required signatures than current validators",
		}),
		RequiredSignatures: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "quorumcred_required_signatures",
			Help:    "Distribution of signature thresholds at creation",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 50, 100},
		}),
		OperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quorumcred_operation_latency_seconds",
			Help:    "Latency of registry mutations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation"}),
		LockWaitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "quorumcred_credential_lock_wait_seconds",
			Help:    "Time spent waiting to acquire a credential shard lock",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		FeedCursor: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quorumcred_feed_cursor",
			Help: "Last event sequence applied by a feed consumer",
		}, []string{"consumer"}),
		FeedEventsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quorumcred_feed_events_processed_total",
			Help: "Events processed by a feed consumer",
		}, []string{"consumer"}),
	}
}

func (m *Metrics) IncrementCreated(requiredSignatures int) {
	m.CredentialsCreated.Inc()
	m.RequiredSignatures.Observe(float64(requiredSignatures))
}

func (m *Metrics) IncrementSigned() {
	m.SignaturesRecorded.Inc()
}

func (m *Metrics) IncrementValidated() {
	m.CredentialsValidated.Inc()
}

func (m *Metrics) IncrementDenied(operation, reason string) {
	m.MutationsDenied.WithLabelValues(operation, reason).Inc()
}

func (m *Metrics) IncrementUnreachableThreshold() {
	m.UnreachableThresholds.Inc()
}

func (m *Metrics) ObserveOperationLatency(operation string, durationSeconds float64) {
	m.OperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}

func (m *Metrics) ObserveLockWait(durationSeconds float64) {
	m.LockWaitDuration.Observe(durationSeconds)
}

// ObserveFeed records that consumer applied n events up to cursor.
func (m *Metrics) ObserveFeed(consumer string, cursor uint64, n int) {
	m.FeedCursor.WithLabelValues(consumer).Set(float64(cursor))
	m.FeedEventsProcessed.WithLabelValues(consumer).Add(float64(n))
}
