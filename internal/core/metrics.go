package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus instrumentation for the assignment loop.
// A nil *Metrics is valid and every method is a no-op, so callers that
// don't wire a metrics address pay nothing.
type Metrics struct {
	registry          *prometheus.Registry
	batches           prometheus.Counter
	profilesAssigned  prometheus.Counter
	reusedCodes       prometheus.Counter
	pairwiseCompares  prometheus.Counter
	batchDuration     prometheus.Histogram
}

// NewMetrics constructs a fresh registry and registers the assignment
// loop's counters and histogram (spec §4.12).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lincode_batches_total",
			Help: "Number of assignment batches processed.",
		}),
		profilesAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lincode_profiles_assigned_total",
			Help: "Number of profiles that received a LINcode.",
		}),
		reusedCodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lincode_reused_codes_total",
			Help: "Number of profiles that reused an existing code via exact kernel match.",
		}),
		pairwiseCompares: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lincode_pairwise_comparisons_total",
			Help: "Number of pairwise distance computations performed while building batch distance matrices.",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lincode_batch_duration_seconds",
			Help:    "Wall-clock duration of a single assignment batch.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.batches, m.profilesAssigned, m.reusedCodes, m.pairwiseCompares, m.batchDuration)
	return m
}

// Registry exposes the underlying Prometheus registry for serving /metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) observeBatch(seconds float64, profileCount int) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.batchDuration.Observe(seconds)
	m.profilesAssigned.Add(float64(profileCount))
}

func (m *Metrics) observeReuse() {
	if m == nil {
		return
	}
	m.reusedCodes.Inc()
}

func (m *Metrics) observeComparisons(n int) {
	if m == nil {
		return
	}
	m.pairwiseCompares.Add(float64(n))
}
