package frame

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/danielpatrickdp/argument-decoder/internal/span"
)

// #region record-types
// Record is the JSON-lines wire form of an Instance.
type Record struct {
	Frame  string               `json:"frame"`
	Target TargetRecord         `json:"target"`
	Roles  []RoleRecord         `json:"roles"`
	Gold   map[string]span.Span `json:"gold,omitempty"`
}

// TargetRecord mirrors Target with JSON tags.
type TargetRecord struct {
	Tokens   string `json:"tokens"`
	Words    string `json:"words"`
	Sentence int    `json:"sentence"`
}

// RoleRecord mirrors Role with JSON tags.
type RoleRecord struct {
	Name       string            `json:"name"`
	Candidates []CandidateRecord `json:"candidates"`
}

// CandidateRecord mirrors Candidate. Score is optional: absent scores are
// filled in by the model at decode time.
type CandidateRecord struct {
	Span     span.Span `json:"span"`
	Features []int     `json:"features,omitempty"`
	Score    *float64  `json:"score,omitempty"`
}

// #endregion record-types

// #region convert
// ToInstance converts a record to the domain type.
func (r *Record) ToInstance() *Instance {
	inst := &Instance{
		Frame: r.Frame,
		Target: Target{
			Tokens:   r.Target.Tokens,
			Words:    r.Target.Words,
			Sentence: r.Target.Sentence,
		},
		Roles:     make([]Role, len(r.Roles)),
		Gold:      r.Gold,
		Prescored: true,
	}
	for i, rr := range r.Roles {
		cands := make([]Candidate, len(rr.Candidates))
		for j, cr := range rr.Candidates {
			cands[j] = Candidate{Span: cr.Span, Features: cr.Features}
			if cr.Score != nil {
				cands[j].Score = *cr.Score
			} else {
				inst.Prescored = false
			}
		}
		inst.Roles[i] = Role{Name: rr.Name, Candidates: cands}
	}
	return inst
}

// FromInstance converts a domain instance back to its wire form.
func FromInstance(in *Instance) Record {
	rec := Record{
		Frame: in.Frame,
		Target: TargetRecord{
			Tokens:   in.Target.Tokens,
			Words:    in.Target.Words,
			Sentence: in.Target.Sentence,
		},
		Roles: make([]RoleRecord, len(in.Roles)),
		Gold:  in.Gold,
	}
	for i, r := range in.Roles {
		cands := make([]CandidateRecord, len(r.Candidates))
		for j, c := range r.Candidates {
			cands[j] = CandidateRecord{Span: c.Span, Features: c.Features}
			if in.Prescored {
				score := c.Score
				cands[j].Score = &score
			}
		}
		rec.Roles[i] = RoleRecord{Name: r.Name, Candidates: cands}
	}
	return rec
}

// #endregion convert

// #region reader
// Parsed is one line of input: either an instance or the error that kept it
// from being read. Index is the zero-based position among non-blank lines.
type Parsed struct {
	Index    int
	Line     int
	Instance *Instance
	Err      error
}

const maxLineBytes = 64 << 20

// ReadRecords parses JSON-lines input. A malformed line does not stop the
// read; it is returned with an ErrMalformedInput error in its slot.
func ReadRecords(r io.Reader) ([]Parsed, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), maxLineBytes)

	var out []Parsed
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		p := Parsed{Index: len(out), Line: lineNo}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			p.Err = fmt.Errorf("%w: line %d: %v", ErrMalformedInput, lineNo, err)
		} else {
			p.Instance = rec.ToInstance()
		}
		out = append(out, p)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("read records: %w", err)
	}
	return out, nil
}

// #endregion reader
