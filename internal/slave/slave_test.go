package slave

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// #region projection-tests
func TestProjectCappedSimplexClampsWhenFeasible(t *testing.T) {
	z, err := ProjectCappedSimplex([]float64{0.2, -0.5, 0.3})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.2, 0, 0.3}, z, 1e-12)

	z, err = ProjectCappedSimplex([]float64{1.7, -2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 0}, z, 1e-12)
}

func TestProjectSimplexKnownValue(t *testing.T) {
	z, err := ProjectCappedSimplex([]float64{0.8, 0.6, -1})
	require.NoError(t, err)
	// tau = (0.8+0.6-1)/2 = 0.2
	assert.InDeltaSlice(t, []float64{0.6, 0.4, 0}, z, 1e-12)
}

func TestProjectSimplexNaNFails(t *testing.T) {
	_, err := ProjectSimplex([]float64{math.NaN(), math.NaN()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, frame.ErrProjectionFailure))

	var pe *ProjectionError
	require.True(t, errors.As(err, &pe))
	assert.Len(t, pe.Vector, 2)
}

func TestProjectCappedSimplexIsNearestFeasiblePoint(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 500; trial++ {
		n := 1 + rng.Intn(8)
		a := make([]float64, n)
		for i := range a {
			a[i] = rng.NormFloat64()
		}
		z, err := ProjectCappedSimplex(a)
		require.NoError(t, err)

		var sum float64
		for _, v := range z {
			require.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		require.LessOrEqual(t, sum, 1+1e-9)

		assert.InDeltaSlice(t, bisectionProjection(a), z, 1e-7, "trial %d a=%v", trial, a)

		// no random feasible point is closer
		d := dist(a, z)
		for k := 0; k < 50; k++ {
			p := randomFeasible(rng, n)
			require.LessOrEqual(t, d, dist(a, p)+1e-9, "trial %d", trial)
		}
	}
}

// bisectionProjection is an independent reference: find tau >= 0 with
// sum(max(a - tau, 0)) <= 1 as tight as possible.
func bisectionProjection(a []float64) []float64 {
	f := func(tau float64) float64 {
		var s float64
		for _, v := range a {
			s += max(v-tau, 0)
		}
		return s
	}
	lo, hi := 0.0, 0.0
	for _, v := range a {
		hi = max(hi, v)
	}
	if f(0) > 1 {
		for it := 0; it < 200; it++ {
			mid := (lo + hi) / 2
			if f(mid) > 1 {
				lo = mid
			} else {
				hi = mid
			}
		}
	} else {
		hi = 0
	}
	out := make([]float64, len(a))
	for i, v := range a {
		out[i] = max(v-hi, 0)
	}
	return out
}

func randomFeasible(rng *rand.Rand, n int) []float64 {
	p := make([]float64, n)
	var s float64
	for i := range p {
		p[i] = rng.Float64()
		s += p[i]
	}
	scale := rng.Float64() / max(s, 1e-12)
	for i := range p {
		p[i] *= scale
	}
	return p
}

func dist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

// #endregion projection-tests

// #region slave-tests
func TestMakeZUpdateRestrictsToIndices(t *testing.T) {
	s := NewUniqueness("Agent", []int{1, 3}, DefaultMemoTolerance)
	assert.Equal(t, KindUniqueness, s.Kind())
	assert.Equal(t, []int{1, 3}, s.Indices())

	s.SetObjVals([]float64{100, 0.5, 100, 0.2})
	u := []float64{0, 0.1, 0, 0.2}
	z, err := s.MakeZUpdate(1, u, []float64{0, 0})
	require.NoError(t, err)
	// a = (0.6, 0.4) sums to 1 and is feasible as-is
	assert.InDeltaSlice(t, []float64{0.6, 0.4}, z, 1e-12)
}

func TestMakeZUpdateMemoizes(t *testing.T) {
	s := NewOverlap([]string{"Agent", "Path"}, []int{0, 1, 2}, DefaultMemoTolerance)
	s.SetObjVals([]float64{2, 3, 1})
	u := []float64{0.5, 0.5, 0}
	lambda := []float64{0.1, -0.2, 0}

	z1, err := s.MakeZUpdate(1, u, lambda)
	require.NoError(t, err)
	require.True(t, s.checkEquals(s.memoA))

	z1[0] = 99 // callers cannot corrupt the memo
	z2, err := s.MakeZUpdate(1, u, lambda)
	require.NoError(t, err)
	z3, err := s.MakeZUpdate(1, u, lambda)
	require.NoError(t, err)
	assert.Equal(t, z2, z3)
	assert.NotEqual(t, 99.0, z2[0])

	z4, err := s.MakeZUpdate(1, []float64{0, 0, 0}, []float64{0, 0, 0})
	require.NoError(t, err)
	assert.NotEqual(t, z2, z4)
}

func TestComputeDual(t *testing.T) {
	s := NewExclusion("Agent", "Cause", []int{0, 1}, 0)
	assert.Equal(t, KindExclusion, s.Kind())
	s.SetObjVals([]float64{2, 1})
	u := []float64{0.5, 0.25}
	lambda := []float64{0.5, -0.5}
	z := []float64{1, 0}
	// 1*(2+0.5) - 0.5*0.5 - 0.5*(0.5)^2 + 0*(1-0.5) + 0.5*0.25 - 0.5*(0.25)^2
	want := 2.5 - 0.25 - 0.125 + 0.125 - 0.03125
	assert.InDelta(t, want, s.ComputeDual(1, u, lambda, z), 1e-12)
}

func TestSlaveKindsSatisfyInterface(t *testing.T) {
	var slaves []Slave
	slaves = append(slaves,
		NewUniqueness("A", []int{0}, -1),
		NewOverlap([]string{"A", "B"}, []int{0, 1}, -1),
		NewExclusion("A", "B", []int{0, 1}, -1),
	)
	for _, s := range slaves {
		assert.NotEmpty(t, s.Indices())
	}
}

// #endregion slave-tests
