package frame

import "errors"

// #region error-kinds
var (
	// ErrInfeasibleCandidateSet: a role arrived with no candidates at all.
	ErrInfeasibleCandidateSet = errors.New("infeasible candidate set")

	// ErrMalformedInput: the scoring data does not have the expected shape.
	ErrMalformedInput = errors.New("malformed input")

	// ErrProjectionFailure is an internal invariant violation in the simplex
	// projection and is never recovered.
	ErrProjectionFailure = errors.New("simplex projection failure")

	// ErrNonConvergence is reported, never returned from a decode.
	ErrNonConvergence = errors.New("admm did not converge")
)

// #endregion error-kinds
