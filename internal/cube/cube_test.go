package cube

import (
	"math/rand"
	"testing"

	"github.com/danielpatrickdp/argument-decoder/internal/frame"
	"github.com/danielpatrickdp/argument-decoder/internal/span"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// #region helpers
func cand(start, end int, score float64) frame.Candidate {
	return frame.Candidate{Span: span.New(start, end), Score: score}
}

func motion() *frame.Instance {
	return &frame.Instance{
		Frame: "Motion",
		Roles: []frame.Role{
			{Name: "Agent", Candidates: []frame.Candidate{cand(0, 0, 2.0), cand(-1, -1, 0.1)}},
			{Name: "Path", Candidates: []frame.Candidate{cand(0, 1, 3.0), cand(2, 2, 1.0), cand(-1, -1, 0.2)}},
		},
	}
}

func newTestDecoder(t *testing.T) *Decoder {
	return NewDecoder(DefaultConfig(), zaptest.NewLogger(t))
}

// #endregion helpers

func TestDecodeMotionPrefersHigherJointScore(t *testing.T) {
	res, err := newTestDecoder(t).Decode(motion(), nil)
	require.NoError(t, err)

	agent, _ := res.Assignment.Get("Agent")
	path, _ := res.Assignment.Get("Path")
	assert.True(t, agent.Span.IsNull())
	assert.Equal(t, span.New(0, 1), path.Span)
	assert.InDelta(t, 3.1, res.Assignment.Total(), 1e-9)
	assert.Equal(t, []string{"Agent", "Path"}, res.Conflicting)
	assert.False(t, res.Fallback)
}

func TestDecodeKeepsIndependentRoles(t *testing.T) {
	inst := motion()
	inst.Roles = append(inst.Roles, frame.Role{Name: "Time", Candidates: []frame.Candidate{
		cand(5, 6, 1.5), cand(-1, -1, 0),
	}})
	res, err := newTestDecoder(t).Decode(inst, nil)
	require.NoError(t, err)

	tm, _ := res.Assignment.Get("Time")
	assert.Equal(t, span.New(5, 6), tm.Span)
	assert.NotContains(t, res.Conflicting, "Time")
	assert.True(t, res.Assignment.Consistent())
}

func TestDecodeAvoidsCommittedSpans(t *testing.T) {
	// Goal commits [4,4]; Source and Theme conflict and Theme's runner-up
	// would reuse the committed token.
	inst := &frame.Instance{Frame: "Motion", Roles: []frame.Role{
		{Name: "Goal", Candidates: []frame.Candidate{cand(4, 4, 5), cand(-1, -1, 0)}},
		{Name: "Source", Candidates: []frame.Candidate{cand(0, 2, 3), cand(-1, -1, 0)}},
		{Name: "Theme", Candidates: []frame.Candidate{cand(1, 1, 2.5), cand(4, 4, 2.4), cand(-1, -1, 0)}},
	}}
	res, err := newTestDecoder(t).Decode(inst, nil)
	require.NoError(t, err)

	goal, _ := res.Assignment.Get("Goal")
	source, _ := res.Assignment.Get("Source")
	theme, _ := res.Assignment.Get("Theme")
	assert.Equal(t, span.New(4, 4), goal.Span)
	assert.Equal(t, span.New(0, 2), source.Span)
	assert.True(t, theme.Span.IsNull())
	assert.True(t, res.Assignment.Consistent())
}

func TestDecodeSentinelOnlyRole(t *testing.T) {
	inst := &frame.Instance{Frame: "Motion", Roles: []frame.Role{
		{Name: "Manner", Candidates: []frame.Candidate{cand(-1, -1, -3)}},
	}}
	res, err := newTestDecoder(t).Decode(inst, nil)
	require.NoError(t, err)
	require.Len(t, res.Assignment, 1)
	assert.True(t, res.Assignment[0].Span.IsNull())
}

func TestDecodeRejectsEmptyRole(t *testing.T) {
	inst := &frame.Instance{Frame: "Motion", Roles: []frame.Role{{Name: "Manner"}}}
	_, err := newTestDecoder(t).Decode(inst, nil)
	assert.ErrorIs(t, err, frame.ErrInfeasibleCandidateSet)
}

func TestDecodeUsesObjectiveButReportsScores(t *testing.T) {
	// cost augmentation flips the Path choice to [2,2]
	objective := []float64{2.0, 0.1, 3.0, 4.0, 0.2}
	res, err := newTestDecoder(t).Decode(motion(), objective)
	require.NoError(t, err)

	path, _ := res.Assignment.Get("Path")
	agent, _ := res.Assignment.Get("Agent")
	assert.Equal(t, span.New(2, 2), path.Span)
	assert.Equal(t, 1.0, path.Score)
	assert.Equal(t, span.New(0, 0), agent.Span)

	_, err = newTestDecoder(t).Decode(motion(), []float64{1})
	assert.ErrorIs(t, err, frame.ErrMalformedInput)
}

func TestMergeFallsBackWhenEverythingCollides(t *testing.T) {
	roles := []frame.Role{
		{Name: "A", Candidates: []frame.Candidate{cand(0, 1, 1)}},
		{Name: "B", Candidates: []frame.Candidate{cand(1, 2, 1)}},
	}
	picks, ok := merge(roles, [][]float64{{1}, {1}}, nil, 10)
	assert.False(t, ok)
	assert.Equal(t, []int{-1, -1}, picks)
}

func TestMergeMatchesExhaustiveSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 300; trial++ {
		nRoles := 2 + rng.Intn(2)
		roles := make([]frame.Role, nRoles)
		objs := make([][]float64, nRoles)
		for r := range roles {
			n := 1 + rng.Intn(3)
			cands := make([]frame.Candidate, 0, n+1)
			for c := 0; c < n; c++ {
				start := rng.Intn(6)
				cands = append(cands, cand(start, start+rng.Intn(3), rng.NormFloat64()*2))
			}
			cands = append(cands, cand(-1, -1, rng.NormFloat64()))
			roles[r] = frame.Role{Name: string(rune('A' + r)), Candidates: cands}
			objs[r] = make([]float64, len(cands))
			for i, c := range cands {
				objs[r][i] = c.Score
			}
		}
		var committed []span.Span
		if rng.Intn(2) == 0 {
			committed = []span.Span{span.New(3, 3)}
		}

		picks, ok := merge(roles, objs, committed, DefaultConfig().BeamWidth)
		require.True(t, ok, "trial %d", trial)

		got := 0.0
		var chosen []span.Span
		for r, ci := range picks {
			got += objs[r][ci]
			s := roles[r].Candidates[ci].Span
			require.False(t, span.AnyOverlap(s, chosen), "trial %d overlaps", trial)
			require.False(t, span.AnyOverlap(s, committed), "trial %d reuses committed span", trial)
			chosen = append(chosen, s)
		}
		assert.GreaterOrEqual(t, got+1e-9, exhaustive(roles, objs, committed), "trial %d", trial)
	}
}

// exhaustive is the brute-force optimum over all feasible combinations.
func exhaustive(roles []frame.Role, objs [][]float64, committed []span.Span) float64 {
	best := -1e18
	var rec func(k int, total float64, chosen []span.Span)
	rec = func(k int, total float64, chosen []span.Span) {
		if k == len(roles) {
			if total > best {
				best = total
			}
			return
		}
		for ci, c := range roles[k].Candidates {
			if span.AnyOverlap(c.Span, chosen) || span.AnyOverlap(c.Span, committed) {
				continue
			}
			rec(k+1, total+objs[k][ci], append(chosen, c.Span))
		}
	}
	rec(0, 0, nil)
	return best
}
