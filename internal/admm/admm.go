package admm

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/relations"
	"github.com/danielpatrickdp/argument-decoder/internal/slave"
	"go.uber.org/zap"
)

// #region solver
// Solver runs consensus ADMM over a per-instance factor graph. It holds only
// configuration and lifetime counters, so one Solver serves concurrent decodes.
type Solver struct {
	config    Config
	relations *relations.Table
	logger    *zap.Logger

	solved       atomic.Int64
	nonConverged atomic.Int64
	iterations   atomic.Int64
}

// NewSolver creates a solver. Zero config fields take their defaults; a nil
// relation table means no role relations.
func NewSolver(config Config, rel *relations.Table, logger *zap.Logger) *Solver {
	def := DefaultConfig()
	if config.Rho <= 0 {
		config.Rho = def.Rho
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = def.MaxIterations
	}
	if config.Tolerance <= 0 {
		config.Tolerance = def.Tolerance
	}
	if config.MemoTolerance <= 0 {
		config.MemoTolerance = def.MemoTolerance
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{config: config, relations: rel, logger: logger}
}

// Config returns the effective configuration.
func (s *Solver) Config() Config { return s.config }

// Close logs lifetime statistics.
func (s *Solver) Close() {
	s.logger.Info("admm solver closed",
		zap.Int64("solved", s.solved.Load()),
		zap.Int64("non_converged", s.nonConverged.Load()),
		zap.Int64("iterations", s.iterations.Load()),
	)
}

// #endregion solver

// #region solve
// Solve decodes one instance. objective, when non-nil, replaces the candidate
// scores in the ADMM objective (flattened role-major, e.g. scoring.Augment);
// the returned choices always carry the original scores.
func (s *Solver) Solve(inst *frame.Instance, objective []float64) (Result, error) {
	if err := inst.Validate(); err != nil {
		return Result{}, err
	}
	l := newLayout(inst)
	c := l.scores
	if objective != nil {
		if len(objective) != l.size() {
			return Result{}, fmt.Errorf("%w: objective has %d values for %d candidates",
				frame.ErrMalformedInput, len(objective), l.size())
		}
		c = objective
	}

	rel := s.relations.For(inst.Frame)
	slaves := buildFactors(inst, l, rel, s.config.MemoTolerance)
	res := Result{Factors: make(map[slave.Kind]int)}
	for _, sl := range slaves {
		res.Factors[sl.Kind()]++
	}

	u, err := s.iterate(inst, l, c, slaves, &res)
	if err != nil {
		return Result{}, err
	}

	s.solved.Add(1)
	s.iterations.Add(int64(res.Iterations))
	if !res.Converged {
		s.nonConverged.Add(1)
		s.logger.Warn("admm did not converge",
			zap.String("frame", inst.Frame),
			zap.Int("iterations", res.Iterations),
			zap.Float64("primal_residual", res.PrimalResidual),
			zap.Float64("dual_residual", res.DualResidual),
			zap.Error(frame.ErrNonConvergence),
		)
	}

	a, repaired := round(inst, l, u)
	res.Repaired = repaired
	if s.relations != nil {
		a, res.Violations = s.relations.Repair(inst, a)
	}
	res.Assignment = a

	s.logger.Debug("admm decoded",
		zap.String("frame", inst.Frame),
		zap.Int("slaves", len(slaves)),
		zap.Int("iterations", res.Iterations),
		zap.Bool("relaxed", res.Relaxed),
		zap.Int("repaired", res.Repaired),
		zap.Int("violations", len(res.Violations)),
	)
	return res, nil
}

// iterate runs the ADMM loop and returns the consensus vector u.
func (s *Solver) iterate(inst *frame.Instance, l layout, c []float64, slaves []slave.Slave, res *Result) ([]float64, error) {
	n := l.size()
	rho := s.config.Rho

	// each index's objective is shared evenly among the slaves covering it
	degree := make([]int, n)
	copies := 0
	for _, sl := range slaves {
		for _, i := range sl.Indices() {
			degree[i]++
		}
		copies += len(sl.Indices())
	}
	split := make([]float64, n)
	for i := range split {
		split[i] = c[i] / float64(degree[i])
	}
	for _, sl := range slaves {
		sl.SetObjVals(split)
	}

	u := make([]float64, n)
	lambda := make([][]float64, len(slaves))
	z := make([][]float64, len(slaves))
	for k, sl := range slaves {
		lambda[k] = make([]float64, len(sl.Indices()))
	}

	next := make([]float64, n)
	for it := 1; it <= s.config.MaxIterations; it++ {
		for k, sl := range slaves {
			zk, err := sl.MakeZUpdate(rho, u, lambda[k])
			if err != nil {
				return nil, fmt.Errorf("admm: frame %s slave %d (%s) iteration %d: %w",
					inst.Frame, k, sl.Kind(), it, err)
			}
			z[k] = zk
		}

		for i := range next {
			next[i] = 0
		}
		for k, sl := range slaves {
			for j, i := range sl.Indices() {
				next[i] += z[k][j]
			}
		}
		var dualSq float64
		for i := range next {
			next[i] = min(1, max(next[i]/float64(degree[i]), 0))
			d := next[i] - u[i]
			dualSq += d * d
		}

		var primalSq float64
		for k, sl := range slaves {
			for j, i := range sl.Indices() {
				r := z[k][j] - next[i]
				primalSq += r * r
				lambda[k][j] -= rho * r
			}
		}
		u, next = next, u

		res.Iterations = it
		res.PrimalResidual = math.Sqrt(primalSq / float64(max(copies, 1)))
		res.DualResidual = rho * math.Sqrt(dualSq/float64(max(n, 1)))
		if res.PrimalResidual < s.config.Tolerance && res.DualResidual < s.config.Tolerance {
			res.Converged = true
			break
		}
	}

	var dual float64
	for k, sl := range slaves {
		if z[k] != nil {
			dual += sl.ComputeDual(rho, u, lambda[k], z[k])
		}
	}
	res.DualObjective = dual
	for _, v := range u {
		if v > fractionalEpsilon && v < 1-fractionalEpsilon {
			res.Relaxed = true
			break
		}
	}
	return u, nil
}

// #endregion solve
