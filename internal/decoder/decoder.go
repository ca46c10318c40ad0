package decoder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielpatrickdp/argument-decoder/internal/admm"
	"github.com/danielpatrickdp/argument-decoder/internal/cube"
	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/metrics"
	"github.com/danielpatrickdp/argument-decoder/internal/relations"
	"github.com/danielpatrickdp/argument-decoder/internal/scoring"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// #region decoder
// Decoder scores frame instances, dispatches them to the configured solver
// and formats the decisions. It is safe for concurrent use.
type Decoder struct {
	config    Config
	scorer    scoring.Scorer
	relations *relations.Table
	metrics   *metrics.Metrics
	logger    *zap.Logger

	cube *cube.Decoder
	admm *admm.Solver

	sem *semaphore.Weighted

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// New creates a decoder. scorer may be nil when instances arrive prescored;
// rel and m may be nil.
func New(config Config, scorer scoring.Scorer, rel *relations.Table, m *metrics.Metrics, logger *zap.Logger) (*Decoder, error) {
	if config.Mode == "" {
		config.Mode = ModeADMM
	}
	if _, err := ParseMode(string(config.Mode)); err != nil {
		return nil, err
	}
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if config.Cost == nil {
		config.Cost = scoring.HammingCost
	}
	if config.CostMultiple < 0 {
		return nil, fmt.Errorf("cost multiple must be non-negative, got %v", config.CostMultiple)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{
		config:    config,
		scorer:    scorer,
		relations: rel,
		metrics:   m,
		logger:    logger,
		cube:      cube.NewDecoder(config.Cube, logger.Named("cube")),
		admm:      admm.NewSolver(config.ADMM, rel, logger.Named("admm")),
		sem:       semaphore.NewWeighted(int64(config.Workers)),
	}, nil
}

// Mode reports the solver in use.
func (d *Decoder) Mode() Mode { return d.config.Mode }

// Close waits for in-flight decodes and rejects later ones.
func (d *Decoder) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.inflight.Wait()
	d.admm.Close()
	d.logger.Info("decoder closed", zap.String("mode", string(d.config.Mode)))
	return nil
}

func (d *Decoder) enter() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	d.inflight.Add(1)
	return nil
}

// #endregion decoder

// #region decode
// Decode solves one instance. Per-instance failures (infeasible or malformed
// input) and projection failures are returned as errors.
func (d *Decoder) Decode(ctx context.Context, inst *frame.Instance) (Result, error) {
	if err := d.enter(); err != nil {
		return Result{}, err
	}
	defer d.inflight.Done()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("acquiring decode slot: %w", err)
	}
	defer d.sem.Release(1)

	res := d.decode(inst)
	return res, res.Err
}

// DecodeBatch decodes every instance on the worker pool and returns the
// results in input order. Infeasible or malformed instances carry their error
// in Result.Err and do not stop the batch; a projection failure cancels the
// remaining work and is returned. Instances never scheduled because ctx ended
// carry the context error.
func (d *Decoder) DecodeBatch(ctx context.Context, insts []*frame.Instance) ([]Result, error) {
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.inflight.Done()

	results := make([]Result, len(insts))
	for i := range results {
		results[i].Index = i
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.Workers)

	for i, inst := range insts {
		if err := gctx.Err(); err != nil {
			for j := i; j < len(insts); j++ {
				results[j].Err = err
				d.metrics.ObserveDecode(string(d.config.Mode), metrics.OutcomeCanceled, 0)
			}
			break
		}
		g.Go(func() error {
			if err := d.sem.Acquire(gctx, 1); err != nil {
				results[i].Err = err
				return nil
			}
			defer d.sem.Release(1)

			res := d.decode(inst)
			res.Index = i
			results[i] = res
			if errors.Is(res.Err, frame.ErrProjectionFailure) {
				return fmt.Errorf("batch instance %d (frame %s): %w", i, inst.Frame, res.Err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		d.logger.Error("batch aborted", zap.Int("size", len(insts)), zap.Error(err))
		return results, err
	}
	return results, nil
}

// decode runs the full pipeline for one instance; errors land in Result.Err.
func (d *Decoder) decode(inst *frame.Instance) Result {
	start := time.Now()
	defer d.metrics.TrackInFlight()()

	res := d.solve(inst)
	d.metrics.ObserveDecode(string(d.config.Mode), Outcome(res.Err), time.Since(start))
	if res.Err != nil {
		level := d.logger.Debug
		if errors.Is(res.Err, frame.ErrProjectionFailure) {
			level = d.logger.Error
		}
		level("decode failed", zap.String("frame", inst.Frame), zap.Error(res.Err))
	}
	return res
}

func (d *Decoder) solve(inst *frame.Instance) Result {
	scored := inst.Clone()
	if d.scorer != nil {
		if err := scoring.ScoreInstance(d.scorer, scored); err != nil {
			return Result{Err: err}
		}
	} else if !scored.Prescored {
		return Result{Err: fmt.Errorf("%w: frame %s has unscored candidates and no model is loaded",
			frame.ErrMalformedInput, inst.Frame)}
	}
	if err := scored.Validate(); err != nil {
		return Result{Err: err}
	}

	var objective []float64
	if d.config.CostMultiple > 0 && len(scored.Gold) > 0 {
		objective = scoring.Augment(scored, d.config.Cost, d.config.CostMultiple)
	}

	res := Result{Instance: scored}
	mode := string(d.config.Mode)
	switch d.config.Mode {
	case ModeCube:
		out, err := d.cube.Decode(scored, objective)
		if err != nil {
			return Result{Err: err}
		}
		if out.Fallback {
			d.metrics.ObserveFallback()
		}
		res.Assignment = out.Assignment
		res.Converged = true
		if d.relations != nil {
			res.Assignment, res.Violations = d.relations.Repair(scored, res.Assignment)
		}
	case ModeADMM:
		out, err := d.admm.Solve(scored, objective)
		if err != nil {
			return Result{Err: err}
		}
		d.metrics.ObserveADMM(out.Iterations, out.Converged)
		d.metrics.ObserveRepairs(mode, "overlap", out.Repaired)
		res.Assignment = out.Assignment
		res.Iterations = out.Iterations
		res.Converged = out.Converged
		res.Repaired = out.Repaired
		res.Violations = out.Violations
	}
	for _, v := range res.Violations {
		d.metrics.ObserveRepairs(mode, string(v.Type), 1)
	}

	res.Score = res.Assignment.AverageScore()
	res.Line = FormatLine(0, scored, res.Assignment, d.config.Confidence)
	return res
}

// Outcome classifies a decode error with the metrics outcome labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, frame.ErrInfeasibleCandidateSet):
		return metrics.OutcomeInfeasible
	case errors.Is(err, frame.ErrProjectionFailure):
		return metrics.OutcomeProjection
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeMalformed
	}
}

// #endregion decode
