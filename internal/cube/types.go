package cube

import "github.com/danielpatrickdp/argument-decoder/internal/frame"

// #region config
// Config holds the beam parameters for the cube-pruning merge.
type Config struct {
	BeamWidth int // partial assignments kept after each role is merged
}

// DefaultConfig returns the standard beam of 100.
func DefaultConfig() Config {
	return Config{BeamWidth: 100}
}

// #endregion config

// #region result
// Result is the outcome of one greedy + cube-pruning decode.
type Result struct {
	Assignment frame.Assignment

	// Conflicting names the roles whose independent picks overlapped and
	// therefore went through the merge, in merge order.
	Conflicting []string

	// Fallback is true when no non-zero combination survived the beam and the
	// conflicting roles were left unfilled.
	Fallback bool
}

// #endregion result
