package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDecode(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveDecode("admm", OutcomeOK, time.Millisecond)
	m.ObserveDecode("admm", OutcomeOK, time.Millisecond)
	m.ObserveDecode("cube", OutcomeInfeasible, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DecodesTotal.WithLabelValues("admm", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodesTotal.WithLabelValues("cube", OutcomeInfeasible)))
}

func TestObserveADMMCountsNonConvergence(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveADMM(12, true)
	m.ObserveADMM(1000, false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NonConvergedTotal))
}

func TestInFlightGauge(t *testing.T) {
	m := New(prometheus.NewRegistry())
	done := m.TrackInFlight()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}

func TestRepairsAndCache(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRepairs("cube", "excludes", 2)
	m.ObserveRepairs("cube", "excludes", 0)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RepairsTotal.WithLabelValues("cube", "excludes")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveDecode("cube", OutcomeOK, 0)
	m.ObserveADMM(1, false)
	m.ObserveRepairs("cube", "overlap", 1)
	m.ObserveFallback()
	m.ObserveCache(true)
	m.TrackInFlight()()
}
