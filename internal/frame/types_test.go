package frame

import (
	"errors"
	"strings"
	"testing"

	"github.com/danielpatrickdp/argument-decoder/internal/span"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleBestFirstWinsTies(t *testing.T) {
	r := Role{Name: "Agent", Candidates: []Candidate{
		{Span: span.New(0, 0), Score: 1.0},
		{Span: span.New(2, 3), Score: 2.5},
		{Span: span.New(5, 5), Score: 2.5},
		{Span: span.Null, Score: 0.1},
	}}
	assert.Equal(t, 1, r.Best())
	assert.Equal(t, 3, r.NullIndex())
	assert.Equal(t, -1, Role{Name: "Empty"}.Best())
}

func TestValidate(t *testing.T) {
	ok := &Instance{Frame: "Motion", Roles: []Role{
		{Name: "Agent", Candidates: []Candidate{{Span: span.Null}}},
	}}
	require.NoError(t, ok.Validate())

	empty := &Instance{Frame: "Motion", Roles: []Role{{Name: "Agent"}}}
	assert.True(t, errors.Is(empty.Validate(), ErrInfeasibleCandidateSet))

	dup := &Instance{Frame: "Motion", Roles: []Role{
		{Name: "Agent", Candidates: []Candidate{{Span: span.Null}}},
		{Name: "Agent", Candidates: []Candidate{{Span: span.Null}}},
	}}
	assert.True(t, errors.Is(dup.Validate(), ErrMalformedInput))

	bad := &Instance{Frame: "Motion", Roles: []Role{
		{Name: "Agent", Candidates: []Candidate{{Span: span.New(4, 2)}}},
	}}
	assert.True(t, errors.Is(bad.Validate(), ErrMalformedInput))
}

func TestAssignmentAggregates(t *testing.T) {
	a := Assignment{
		{Role: "Agent", Span: span.Null, Score: 0.1},
		{Role: "Path", Span: span.New(0, 1), Score: 3.0},
		{Role: "Goal", Span: span.New(3, 4), Score: 1.0},
	}
	assert.InDelta(t, 4.1, a.Total(), 1e-9)
	assert.InDelta(t, 2.0, a.AverageScore(), 1e-9)
	assert.Len(t, a.Filled(), 2)
	assert.True(t, a.Consistent())

	c, ok := a.Get("Path")
	require.True(t, ok)
	assert.Equal(t, span.New(0, 1), c.Span)

	a = append(a, Choice{Role: "Source", Span: span.New(1, 1), Score: 0.5})
	assert.False(t, a.Consistent())
	assert.Equal(t, 0.0, Assignment{{Role: "X", Span: span.Null}}.AverageScore())
}

func TestCloneIsIndependent(t *testing.T) {
	in := &Instance{Frame: "Motion", Roles: []Role{
		{Name: "Agent", Candidates: []Candidate{{Span: span.New(0, 0), Score: 1}}},
	}}
	cp := in.Clone()
	cp.Roles[0].Candidates[0].Score = 9
	assert.Equal(t, 1.0, in.Roles[0].Candidates[0].Score)
}

func TestReadRecordsIsolatesBadLines(t *testing.T) {
	input := strings.Join([]string{
		`{"frame":"Motion","target":{"tokens":"2","words":"ran","sentence":0},"roles":[{"name":"Agent","candidates":[{"span":[0,0],"score":2.0},{"span":[-1,-1],"score":0.1}]}]}`,
		``,
		`{"frame": not json}`,
		`{"frame":"Motion","roles":[{"name":"Path","candidates":[{"span":[3,4],"features":[1,2,2]}]}],"gold":{"Path":[3,4]}}`,
	}, "\n")

	parsed, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	require.NoError(t, parsed[0].Err)
	assert.True(t, parsed[0].Instance.Prescored)
	assert.Equal(t, "ran", parsed[0].Instance.Target.Words)
	assert.Equal(t, span.New(0, 0), parsed[0].Instance.Roles[0].Candidates[0].Span)

	assert.True(t, errors.Is(parsed[1].Err, ErrMalformedInput))
	assert.Equal(t, 3, parsed[1].Line)

	require.NoError(t, parsed[2].Err)
	assert.False(t, parsed[2].Instance.Prescored)
	assert.Equal(t, []int{1, 2, 2}, parsed[2].Instance.Roles[0].Candidates[0].Features)
	assert.Equal(t, span.New(3, 4), parsed[2].Instance.Gold["Path"])
}

func TestFromInstanceRoundTrip(t *testing.T) {
	in := &Instance{
		Frame:     "Motion",
		Target:    Target{Tokens: "1", Words: "went", Sentence: 4},
		Prescored: true,
		Roles: []Role{{Name: "Agent", Candidates: []Candidate{
			{Span: span.New(0, 0), Score: 2},
			{Span: span.Null, Score: 0.1},
		}}},
	}
	rec := FromInstance(in)
	back := rec.ToInstance()
	assert.Equal(t, in.Frame, back.Frame)
	assert.Equal(t, in.Target, back.Target)
	assert.True(t, back.Prescored)
	assert.Equal(t, in.Roles[0].Candidates[0].Span, back.Roles[0].Candidates[0].Span)
	assert.Equal(t, 0.1, back.Roles[0].Candidates[1].Score)
}
