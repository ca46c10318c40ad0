package slave

import "math"

// #region kind
// Kind names the constraint a factor enforces.
type Kind string

const (
	KindUniqueness Kind = "uniqueness" // at most one filler per role
	KindOverlap    Kind = "overlap"    // at most one of a clique of overlapping fillers
	KindExclusion  Kind = "exclusion"  // two roles that may not both be filled
)

// DefaultMemoTolerance is the componentwise tolerance for reusing a cached update.
const DefaultMemoTolerance = 1e-12

// #endregion kind

// #region interface
// Slave is one ADMM sub-problem over a fixed subset of the global indicator
// vector. Local vectors (lambda, z) are aligned with Indices().
type Slave interface {
	Kind() Kind
	Indices() []int

	// SetObjVals caches the objective coefficients from a global vector.
	SetObjVals(c []float64)

	// MakeZUpdate solves argmin over the capped simplex of
	// sum_i -z_i(c_i+lambda_i) + (rho/2)(z_i-u_i)^2, u being global.
	MakeZUpdate(rho float64, u, lambda []float64) ([]float64, error)

	// ComputeDual is this factor's share of the ADMM dual objective.
	ComputeDual(rho float64, u, lambda, z []float64) float64
}

// #endregion interface

// #region factor
// factor implements Slave for every capped-simplex constraint; the concrete
// kinds differ only in how their index set is chosen.
type factor struct {
	kind    Kind
	indices []int
	obj     []float64
	tol     float64

	memoA []float64
	memoZ []float64
}

func newFactor(kind Kind, indices []int, tol float64) factor {
	idx := make([]int, len(indices))
	copy(idx, indices)
	if tol < 0 {
		tol = DefaultMemoTolerance
	}
	return factor{kind: kind, indices: idx, obj: make([]float64, len(idx)), tol: tol}
}

func (f *factor) Kind() Kind { return f.kind }

func (f *factor) Indices() []int { return f.indices }

func (f *factor) SetObjVals(c []float64) {
	for k, i := range f.indices {
		f.obj[k] = c[i]
	}
}

func (f *factor) MakeZUpdate(rho float64, u, lambda []float64) ([]float64, error) {
	a := make([]float64, len(f.indices))
	for k, i := range f.indices {
		a[k] = u[i] + (f.obj[k]+lambda[k])/rho
	}
	if f.checkEquals(a) {
		return clone(f.memoZ), nil
	}
	z, err := ProjectCappedSimplex(a)
	if err != nil {
		return nil, err
	}
	f.cache(a, z)
	return clone(z), nil
}

func (f *factor) ComputeDual(rho float64, u, lambda, z []float64) float64 {
	var dual float64
	for k, i := range f.indices {
		d := z[k] - u[i]
		dual += z[k]*(f.obj[k]+lambda[k]) - lambda[k]*u[i] - rho/2*d*d
	}
	return dual
}

// cache remembers the last (a, z) pair.
func (f *factor) cache(a, z []float64) {
	f.memoA = a
	f.memoZ = z
}

// checkEquals reports whether a matches the cached input within tolerance.
func (f *factor) checkEquals(a []float64) bool {
	if f.memoA == nil || len(f.memoA) != len(a) {
		return false
	}
	for k := range a {
		if math.Abs(a[k]-f.memoA[k]) > f.tol {
			return false
		}
	}
	return true
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// #endregion factor

// #region concrete
// Uniqueness allows at most one candidate of a single role, sentinel included.
type Uniqueness struct {
	factor
	Role string
}

// NewUniqueness builds the factor for one role's candidate indices.
func NewUniqueness(role string, indices []int, tol float64) *Uniqueness {
	return &Uniqueness{factor: newFactor(KindUniqueness, indices, tol), Role: role}
}

// Overlap allows at most one of a clique of mutually overlapping candidates
// drawn from different roles.
type Overlap struct {
	factor
	Roles []string
}

// NewOverlap builds the factor for one clique.
func NewOverlap(roles []string, indices []int, tol float64) *Overlap {
	return &Overlap{factor: newFactor(KindOverlap, indices, tol), Roles: roles}
}

// Exclusion allows at most one filled candidate across two roles that
// exclude each other.
type Exclusion struct {
	factor
	First, Second string
}

// NewExclusion builds the factor over the non-sentinel candidates of both roles.
func NewExclusion(first, second string, indices []int, tol float64) *Exclusion {
	return &Exclusion{factor: newFactor(KindExclusion, indices, tol), First: first, Second: second}
}

// #endregion concrete
