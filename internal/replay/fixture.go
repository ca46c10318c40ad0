package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/argument-decoder/internal/admm"
	"github.com/danielpatrickdp/argument-decoder/internal/cube"
	"github.com/danielpatrickdp/argument-decoder/internal/decoder"
	"github.com/danielpatrickdp/argument-decoder/internal/eval"
	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/relations"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description string                      `json:"description"`
	Config      FixtureConfig               `json:"config"`
	Relations   map[string]FixtureRelations `json:"relations,omitempty"`
	Instances   []frame.Record              `json:"instances"`
	Expected    []FixtureExpected           `json:"expected"`
}

// FixtureConfig bundles the solver settings for a replay run. Zero values
// take the defaults.
type FixtureConfig struct {
	BeamWidth     int     `json:"beam_width"`
	Rho           float64 `json:"rho"`
	MaxIterations int     `json:"max_iterations"`
	Tolerance     float64 `json:"tolerance"`
	CostMultiple  float64 `json:"cost_multiple"`
	Confidence    bool    `json:"confidence"`
	MinF1         float64 `json:"min_f1"`
}

// FixtureRelations mirrors relations.FrameRelations with JSON tags.
type FixtureRelations struct {
	Excludes [][2]string `json:"excludes,omitempty"`
	Requires [][2]string `json:"requires,omitempty"`
}

// FixtureExpected is the expected decision for one instance. Line applies to
// both modes unless Cube or ADMM overrides it; Outcome names the expected
// failure class for instances that must not decode.
type FixtureExpected struct {
	Index   int    `json:"index"`
	Line    string `json:"line,omitempty"`
	Cube    string `json:"cube,omitempty"`
	ADMM    string `json:"admm,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToInstances converts the fixture records to domain instances.
func (f *Fixture) ToInstances() []*frame.Instance {
	out := make([]*frame.Instance, len(f.Instances))
	for i := range f.Instances {
		out[i] = f.Instances[i].ToInstance()
	}
	return out
}

// RelationTable converts the fixture relations; nil when there are none.
func (f *Fixture) RelationTable() *relations.Table {
	if len(f.Relations) == 0 {
		return nil
	}
	frames := make(map[string]relations.FrameRelations, len(f.Relations))
	for name, fr := range f.Relations {
		var rel relations.FrameRelations
		for _, p := range fr.Excludes {
			rel.Excludes = append(rel.Excludes, relations.Pair{First: p[0], Second: p[1]})
		}
		for _, p := range fr.Requires {
			rel.Requires = append(rel.Requires, relations.Pair{First: p[0], Second: p[1]})
		}
		frames[name] = rel
	}
	return relations.NewTable(frames)
}

// ToReplayConfig converts a FixtureConfig to a domain ReplayConfig.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	cfg := DefaultReplayConfig()
	if fc.BeamWidth > 0 {
		cfg.Decoder.Cube = cube.Config{BeamWidth: fc.BeamWidth}
	}
	ad := admm.DefaultConfig()
	if fc.Rho > 0 {
		ad.Rho = fc.Rho
	}
	if fc.MaxIterations > 0 {
		ad.MaxIterations = fc.MaxIterations
	}
	if fc.Tolerance > 0 {
		ad.Tolerance = fc.Tolerance
	}
	cfg.Decoder.ADMM = ad
	cfg.Decoder.CostMultiple = fc.CostMultiple
	cfg.Decoder.Confidence = fc.Confidence
	cfg.Eval = eval.EvalConfig{MinF1: fc.MinF1}
	return cfg
}

// Want returns the expected line for a mode.
func (e FixtureExpected) Want(mode decoder.Mode) string {
	switch {
	case mode == decoder.ModeCube && e.Cube != "":
		return e.Cube
	case mode == decoder.ModeADMM && e.ADMM != "":
		return e.ADMM
	}
	return e.Line
}

// #endregion fixture-loader
