package admm

import (
	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/relations"
	"github.com/danielpatrickdp/argument-decoder/internal/slave"
)

// #region config
// Config holds the ADMM step size and stopping rule.
type Config struct {
	Rho           float64 // augmented Lagrangian penalty
	MaxIterations int     // hard cap, non-convergence is reported, not fatal
	Tolerance     float64 // primal and dual residual threshold
	MemoTolerance float64 // per-slave cache tolerance on the projection input
}

// DefaultConfig returns rho=1, 1000 iterations, residuals below 1e-6.
func DefaultConfig() Config {
	return Config{
		Rho:           1.0,
		MaxIterations: 1000,
		Tolerance:     1e-6,
		MemoTolerance: slave.DefaultMemoTolerance,
	}
}

// #endregion config

// #region result
// Result is the outcome of one ADMM decode.
type Result struct {
	Assignment frame.Assignment

	Iterations     int
	Converged      bool
	DualObjective  float64
	PrimalResidual float64
	DualResidual   float64

	// Relaxed is true when some relaxed indicator ended strictly between 0 and 1.
	Relaxed bool

	// Factors counts the slaves built per kind.
	Factors map[slave.Kind]int

	// Repaired counts roles whose rounded choice had to be replaced to keep
	// the fillers non-overlapping.
	Repaired int

	// Violations lists the relation breaks fixed after rounding.
	Violations []relations.Violation
}

// #endregion result
