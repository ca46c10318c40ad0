package slave

import (
	"fmt"
	"sort"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
)

// #region projection-error
// ProjectionError carries the vector the simplex projection could not handle.
// It always wraps frame.ErrProjectionFailure.
type ProjectionError struct {
	Vector []float64
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("%v: no breakpoint for %v", frame.ErrProjectionFailure, e.Vector)
}

func (e *ProjectionError) Unwrap() error {
	return frame.ErrProjectionFailure
}

// #endregion projection-error

// #region capped-simplex
// ProjectCappedSimplex returns the Euclidean projection of a onto
// {z >= 0, sum(z) <= 1}.
func ProjectCappedSimplex(a []float64) ([]float64, error) {
	z := make([]float64, len(a))
	var sum float64
	for i, v := range a {
		z[i] = min(1, max(v, 0))
		sum += z[i]
	}
	if sum <= 1 {
		return z, nil
	}
	return ProjectSimplex(a)
}

// ProjectSimplex returns the Euclidean projection of a onto the probability
// simplex {z >= 0, sum(z) = 1}.
func ProjectSimplex(a []float64) ([]float64, error) {
	b := make([]float64, len(a))
	copy(b, a)
	sort.SliceStable(b, func(i, j int) bool { return b[i] > b[j] })

	cumsum := make([]float64, len(b))
	var run float64
	for i, v := range b {
		run += v
		cumsum[i] = run
	}

	rho := -1
	for j := range b {
		if b[j]-(cumsum[j]-1)/float64(j+1) > 0 {
			rho = j
		}
	}
	if rho < 0 {
		vec := make([]float64, len(a))
		copy(vec, a)
		return nil, &ProjectionError{Vector: vec}
	}

	tau := (cumsum[rho] - 1) / float64(rho+1)
	z := make([]float64, len(a))
	for i, v := range a {
		z[i] = max(v-tau, 0)
	}
	return z, nil
}

// #endregion capped-simplex
