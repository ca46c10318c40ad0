package span

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// #region span
// Span is an inclusive token range [Start, End]. The sentinel Null marks a role
// that is not realized in the sentence.
type Span struct {
	Start int
	End   int
}

// Null is the "unfilled" sentinel.
var Null = Span{Start: -1, End: -1}

// New returns the span [start, end].
func New(start, end int) Span {
	return Span{Start: start, End: end}
}

// IsNull reports whether s is the sentinel.
func (s Span) IsNull() bool {
	return s.Start == -1 && s.End == -1
}

// Valid reports whether s is the sentinel or a well-formed token range.
func (s Span) Valid() bool {
	if s.IsNull() {
		return true
	}
	return s.Start >= 0 && s.Start <= s.End
}

// Len is the number of tokens covered; zero for the sentinel.
func (s Span) Len() int {
	if s.IsNull() {
		return 0
	}
	return s.End - s.Start + 1
}

// #endregion span

// #region overlap
// Overlaps reports whether two spans share at least one token. The sentinel
// never overlaps anything; spans touching at a boundary token do overlap.
func Overlaps(a, b Span) bool {
	if a.IsNull() || b.IsNull() {
		return false
	}
	// compare the end of the earlier-starting interval against the other's start
	if a.Start <= b.Start {
		return a.End >= b.Start
	}
	return b.End >= a.Start
}

// AnyOverlap reports whether s overlaps any span in others.
func AnyOverlap(s Span, others []Span) bool {
	for _, o := range others {
		if Overlaps(s, o) {
			return true
		}
	}
	return false
}

// #endregion overlap

// #region format
// Spec renders the span for decision lines: "i" for one token, "i:j" otherwise.
func (s Span) Spec() string {
	if s.Start == s.End {
		return strconv.Itoa(s.Start)
	}
	return fmt.Sprintf("%d:%d", s.Start, s.End)
}

func (s Span) String() string {
	if s.IsNull() {
		return "null"
	}
	return fmt.Sprintf("[%d,%d]", s.Start, s.End)
}

// ParseSpec is the inverse of Spec.
func ParseSpec(spec string) (Span, error) {
	lo, hi, found := strings.Cut(spec, ":")
	start, err := strconv.Atoi(lo)
	if err != nil {
		return Span{}, fmt.Errorf("parse span %q: %w", spec, err)
	}
	end := start
	if found {
		end, err = strconv.Atoi(hi)
		if err != nil {
			return Span{}, fmt.Errorf("parse span %q: %w", spec, err)
		}
	}
	s := New(start, end)
	if !s.Valid() {
		return Span{}, fmt.Errorf("parse span %q: start after end", spec)
	}
	return s, nil
}

// #endregion format

// #region json
// MarshalJSON encodes a span as a [start, end] pair.
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Start, s.End})
}

// UnmarshalJSON decodes a [start, end] pair.
func (s *Span) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode span: %w", err)
	}
	*s = New(pair[0], pair[1])
	return nil
}

// #endregion json
