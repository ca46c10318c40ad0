package relations

// #region violation-type
// ViolationType enumerates the hard relation categories.
type ViolationType string

const (
	ViolationExcludes ViolationType = "excludes"
	ViolationRequires ViolationType = "requires"
)

// #endregion violation-type

// #region violation
// Violation is one broken relation in an assignment.
type Violation struct {
	Type   ViolationType
	First  string
	Second string
	Reason string
}

// #endregion violation

// #region pair
// Pair is an ordered role pair. For requires, filling First demands filling Second.
type Pair struct {
	First  string
	Second string
}

// FrameRelations holds the relations declared for one frame.
type FrameRelations struct {
	Excludes []Pair
	Requires []Pair
}

// #endregion pair

// #region file-format
// fileFormat is the YAML layout of a relation table:
//
//	frames:
//	  Motion:
//	    excludes: [[Agent, Cause]]
//	    requires: [[Path, Theme]]
type fileFormat struct {
	Frames map[string]struct {
		Excludes [][]string `yaml:"excludes"`
		Requires [][]string `yaml:"requires"`
	} `yaml:"frames"`
}

// #endregion file-format
