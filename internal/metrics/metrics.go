package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

/*
PollMetrics tracks the response pipeline.

Counters are not labelled by poll id: polls are created by admins at will and
an unbounded label set would grow the series count without limit. Outcome
labels are a small closed set instead.
*/
type PollMetrics struct {
	ResponsesRecorded prometheus.Counter
	ResponsesRejected *prometheus.CounterVec
	Unlocks           *prometheus.CounterVec
	PublishFailures   prometheus.Counter
	Peeks             prometheus.Counter
	CacheLookups      *prometheus.CounterVec
	SubmitDuration    prometheus.Histogram
}

// NewPollMetrics registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewPollMetrics(reg prometheus.Registerer, namespace string) *PollMetrics {
	factory := promauto.With(reg)
	return &PollMetrics{
		ResponsesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "responses",
			Name:      "recorded_total",
			Help:      "Total number of poll responses persisted",
		}),
		ResponsesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "responses",
			Name:      "rejected_total",
			Help:      "Total number of poll responses rejected, by reason",
		}, []string{"reason"}),
		Unlocks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "unlock",
			Name:      "attempts_total",
			Help:      "Conditional unlock attempts, by outcome (won, lost)",
		}, []string{"outcome"}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "failures_total",
			Help:      "Auto-publish attempts that failed after an unlock",
		}),
		Peeks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "peeks_total",
			Help:      "Total number of one-time peeks granted",
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stats",
			Name:      "cache_lookups_total",
			Help:      "Statistics cache lookups, by result (hit, miss, error)",
		}, []string{"result"}),
		SubmitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "responses",
			Name:      "submit_duration_seconds",
			Help:      "Histogram of response submission times",
			Buckets:   prometheus.ExponentialBuckets(0.002, 2, 10), // 2ms to ~1s
		}),
	}
}
