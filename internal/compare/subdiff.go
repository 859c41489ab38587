package compare

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Subdiff checks a submitted value against a "|"-delimited list of
// acceptable answers, each compared under string rules with the method's
// modifiers. It returns whether any alternative matched.
func Subdiff(m Method, submitted, model string) (bool, error) {
	stringMethod := m.WithBase(KindString)
	for _, alt := range strings.Split(model, "|") {
		ok, err := Equal(stringMethod, submitted, alt)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// MatchingParts renders the substrings of value that also occur in solution,
// aligned to their positions in the solution, with "-" covering the
// unmatched solution text. Used to build "correct parts in your answer"
// hints after a failed subdiff comparison.
func MatchingParts(value, solution string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(value, solution, false)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		case diffmatchpatch.DiffInsert:
			// Solution-only text: keep the alignment, hide the content.
			b.WriteString(strings.Repeat("-", len([]rune(d.Text))))
		}
	}
	return b.String()
}

// Alternatives splits a subdiff model value into its acceptable answers.
func Alternatives(model string) []string {
	return strings.Split(model, "|")
}
