// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the learning engine.
type Metrics struct {
	// Cycle metrics
	CyclesTotal    *prometheus.CounterVec // by outcome: completed | degraded
	CycleDuration  prometheus.Histogram
	DegradedCycles *prometheus.CounterVec // by state the cycle degraded from
	ArmSelections  *prometheus.CounterVec // by strategy id

	// Experience store metrics
	TrialsAppended  prometheus.Counter
	TrialsEvicted   prometheus.Counter
	BackupsCreated  prometheus.Counter
	StorageRetries  prometheus.Counter
	StorageFailures prometheus.Counter

	// Reward distribution
	RewardObserved prometheus.Histogram
}

// NewMetrics creates a Metrics instance with all metrics registered on the
// default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "market_manus"
	}

	return &Metrics{
		CyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Learning cycles run, by outcome.",
		}, []string{"outcome"}),
		CycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one full learning cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		DegradedCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_cycles_total",
			Help:      "Cycles that degraded to a flat signal, by state.",
		}, []string{"state"}),
		ArmSelections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arm_selections_total",
			Help:      "Arm selections, by strategy id.",
		}, []string{"strategy"}),
		TrialsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_appended_total",
			Help:      "Trials durably appended to the experience store.",
		}),
		TrialsEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trials_evicted_total",
			Help:      "Trials dropped by the retention policy.",
		}),
		BackupsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_created_total",
			Help:      "Experience store backup snapshots written.",
		}),
		StorageRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_retries_total",
			Help:      "Storage writes retried after a transient failure.",
		}),
		StorageFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_failures_total",
			Help:      "Storage writes that failed after the retry.",
		}),
		RewardObserved: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reward_observed",
			Help:      "Distribution of computed trial rewards.",
			Buckets:   prometheus.LinearBuckets(-2, 0.25, 17),
		}),
	}
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
