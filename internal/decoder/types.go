package decoder

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/argument-decoder/internal/admm"
	"github.com/danielpatrickdp/argument-decoder/internal/cube"
	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/relations"
	"github.com/danielpatrickdp/argument-decoder/internal/scoring"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("decoder closed")

// #region mode
// Mode selects the solver used for every instance.
type Mode string

const (
	ModeCube Mode = "cube"
	ModeADMM Mode = "admm"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCube, ModeADMM:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown decoding mode %q (want cube or admm)", s)
}

// #endregion mode

// #region config
// Config controls dispatch, batching and output.
type Config struct {
	Mode       Mode
	Workers    int  // instances decoded concurrently
	Confidence bool // append the average filled-role score to each line

	// CostMultiple > 0 turns on loss-augmented decoding for instances that
	// carry gold spans.
	CostMultiple float64
	Cost         scoring.CostFunc

	Cube cube.Config
	ADMM admm.Config
}

// DefaultConfig returns ADMM mode on 4 workers with no cost augmentation.
func DefaultConfig() Config {
	return Config{
		Mode:    ModeADMM,
		Workers: 4,
		Cost:    scoring.HammingCost,
		Cube:    cube.DefaultConfig(),
		ADMM:    admm.DefaultConfig(),
	}
}

// #endregion config

// #region result
// Result is the decode of one instance. In a batch, Index is the instance's
// position in the input and Err holds a per-instance failure.
type Result struct {
	Index      int
	Instance   *frame.Instance // scored copy of the input
	Assignment frame.Assignment
	Score      float64 // average over filled roles
	Line       string

	Iterations int
	Converged  bool
	Repaired   int
	Violations []relations.Violation

	Err error
}

// #endregion result
