package domain

import "time"

// Exercise is one fully resolved language version of an exercise: the result
// of include merging and tag processing for a single language.
type Exercise struct {
	Key      string
	Lang     string
	Title    string
	ViewType string
	Feedback bool   // feedback questionnaires always pass with full points
	Secret   string // per-exercise sample secret override
	Groups   []FieldGroup
	ModTime  time.Time
}

// FieldGroup is an ordered set of fields graded together.
type FieldGroup struct {
	Name                 string // assigned group identity, "group_N"
	Title                string
	PickRandomly         int // select N of the group's fields, 0 disables
	ResampleAfterAttempt bool
	GroupErrors          bool // hide which field in the group failed
	Fields               []FieldSpec
}

// FieldKind enumerates the closed set of field types. Unknown kinds are
// rejected when the exercise config is parsed, not when it is graded.
type FieldKind string

const (
	FieldCheckbox      FieldKind = "checkbox"
	FieldRadio         FieldKind = "radio"
	FieldDropdown      FieldKind = "dropdown"
	FieldText          FieldKind = "text"
	FieldTextarea      FieldKind = "textarea"
	FieldStatic        FieldKind = "static"
	FieldFile          FieldKind = "file"
	FieldTableRadio    FieldKind = "table-radio"
	FieldTableCheckbox FieldKind = "table-checkbox"
)

// ParseFieldKind maps a config type string to a FieldKind. "select" is an
// alias for dropdown. ok is false for unknown types.
func ParseFieldKind(s string) (FieldKind, bool) {
	switch s {
	case "checkbox":
		return FieldCheckbox, true
	case "radio":
		return FieldRadio, true
	case "dropdown", "select":
		return FieldDropdown, true
	case "text":
		return FieldText, true
	case "textarea":
		return FieldTextarea, true
	case "static":
		return FieldStatic, true
	case "file":
		return FieldFile, true
	case "table-radio":
		return FieldTableRadio, true
	case "table-checkbox":
		return FieldTableCheckbox, true
	}
	return "", false
}

// IsChoice reports whether the kind carries an option list.
func (k FieldKind) IsChoice() bool {
	switch k {
	case FieldCheckbox, FieldRadio, FieldDropdown, FieldTableRadio, FieldTableCheckbox:
		return true
	}
	return false
}

// IsTable reports whether the kind grades per row.
func (k FieldKind) IsTable() bool {
	return k == FieldTableRadio || k == FieldTableCheckbox
}

// FieldSpec describes one question/input unit.
type FieldSpec struct {
	Kind          FieldKind
	Key           string // empty key falls back to the positional name
	Title         string
	Required      bool
	Points        int
	PartialPoints bool

	// Text comparison
	CompareMethod string
	Correct       string // model answer
	Regex         string // regexp model answer, takes precedence over Correct
	Hint          string

	// Choice kinds
	Options []OptionSpec

	// Randomized option subset (checkbox)
	Randomized           int // pick K options, 0 disables
	CorrectCount         int
	HasCorrectCount      bool
	ResampleAfterAttempt bool

	// Table kinds
	Rows []TableRow

	Feedback []FeedbackRule
}

// Correctness is the tri-state correctness marker of an option.
type Correctness string

const (
	CorrectYes     Correctness = "true"
	CorrectNo      Correctness = "false"
	CorrectNeutral Correctness = "neutral"
)

// OptionSpec is one selectable option of a choice field.
type OptionSpec struct {
	Value    string // empty value falls back to the positional name
	Label    string
	Correct  Correctness
	Selected bool // initially selected
	Hint     string
}

// TableRow grades one row of a table field. CorrectOptions marks the
// correctness of the field's options for this particular row.
type TableRow struct {
	Key            string
	Label          string
	Hint           string
	Points         int
	CorrectOptions []Correctness
}

// FeedbackRule attaches hint text when a submitted value matches (or, with
// Not, fails to match) a comparison value. The special value "%100%" matches
// iff the field was answered correctly.
type FeedbackRule struct {
	Value         string
	Label         string
	Not           bool
	CompareRegexp bool
}

// MaxPoints is the maximum number of points the exercise awards.
func (e *Exercise) MaxPoints() int {
	total := 0
	for _, g := range e.Groups {
		for _, f := range g.Fields {
			total += f.Points
			for _, row := range f.Rows {
				total += row.Points
			}
		}
	}
	return total
}
