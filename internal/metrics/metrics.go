package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "argdec"
	subsystem = "decoder"
)

// Outcome labels for DecodesTotal.
const (
	OutcomeOK         = "ok"
	OutcomeInfeasible = "infeasible"
	OutcomeMalformed  = "malformed"
	OutcomeProjection = "projection_failure"
	OutcomeCanceled   = "canceled"
)

// #region metrics
// Metrics holds the decoder's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	DecodesTotal       *prometheus.CounterVec   // labels: mode, outcome
	DecodeSeconds      *prometheus.HistogramVec // labels: mode
	ADMMIterations     prometheus.Histogram
	NonConvergedTotal  prometheus.Counter
	RepairsTotal       *prometheus.CounterVec // labels: mode, kind
	CubeFallbacksTotal prometheus.Counter
	InFlight           prometheus.Gauge
	CacheLookupsTotal  *prometheus.CounterVec // labels: result
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated from the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DecodesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decodes_total",
			Help:      "Frame instances decoded, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		DecodeSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "decode_seconds",
			Help:      "Wall time of a single instance decode.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"mode"}),
		ADMMIterations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "admm_iterations",
			Help:      "ADMM iterations run per instance.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		NonConvergedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "admm_non_converged_total",
			Help:      "ADMM decodes that hit the iteration cap.",
		}),
		RepairsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "repairs_total",
			Help:      "Post-hoc repairs applied, by mode and kind.",
		}, []string{"mode", "kind"}),
		CubeFallbacksTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cube_fallbacks_total",
			Help:      "Cube merges where every combination overlapped.",
		}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "in_flight",
			Help:      "Instances currently being decoded.",
		}),
		CacheLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "cache_lookups_total",
			Help:      "Decode cache lookups, by result.",
		}, []string{"result"}),
	}
}

// #endregion metrics

// #region observers
// ObserveDecode records one finished decode.
func (m *Metrics) ObserveDecode(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DecodesTotal.WithLabelValues(mode, outcome).Inc()
	if outcome == OutcomeOK {
		m.DecodeSeconds.WithLabelValues(mode).Observe(elapsed.Seconds())
	}
}

// ObserveADMM records the iteration count and convergence of one solve.
func (m *Metrics) ObserveADMM(iterations int, converged bool) {
	if m == nil {
		return
	}
	m.ADMMIterations.Observe(float64(iterations))
	if !converged {
		m.NonConvergedTotal.Inc()
	}
}

// ObserveRepairs adds n repairs of a kind.
func (m *Metrics) ObserveRepairs(mode, kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RepairsTotal.WithLabelValues(mode, kind).Add(float64(n))
}

// ObserveFallback counts a cube merge that fell back to unfilled roles.
func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.CubeFallbacksTotal.Inc()
}

// TrackInFlight bumps the in-flight gauge and returns the matching release.
func (m *Metrics) TrackInFlight() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// #endregion observers
