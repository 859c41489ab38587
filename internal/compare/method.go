// Package compare implements the comparison-method mini-language used to
// decide whether one submitted value matches one model value. A method is a
// hyphen-joined string "base-mod1-mod2"; the base picks the comparison and
// the modifiers normalize both sides before it runs.
package compare

import (
	"strings"

	"github.com/mlahtinen/gradery/internal/domain"
)

// Kind is a comparison base.
type Kind string

const (
	KindString        Kind = "string"
	KindRegexp        Kind = "regexp"
	KindInt           Kind = "int"
	KindFloat         Kind = "float"
	KindArray         Kind = "array"
	KindUnsortedChars Kind = "unsortedchars"
	KindSubdiff       Kind = "subdiff"
)

// Modifier names.
const (
	ModRequireCase       = "requirecase"
	ModIgnoreRepl        = "ignorerepl"
	ModIgnoreWS          = "ignorews"
	ModIgnoreQuotes      = "ignorequotes"
	ModIgnoreParenthesis = "ignoreparenthesis"
)

// Method is a parsed compare method. Parse once per field, evaluate many
// times.
type Method struct {
	Base Kind
	mods map[string]bool
	raw  string
}

// Parse parses a compare-method string. The empty string parses as plain
// "string". An unknown base kind is a configuration error; modifiers are not
// validated because authoring tools compose them freely.
func Parse(s string) (Method, error) {
	if s == "" {
		s = string(KindString)
	}
	parts := strings.Split(s, "-")
	base := Kind(parts[0])
	switch base {
	case KindString, KindRegexp, KindInt, KindFloat, KindArray, KindUnsortedChars, KindSubdiff:
	default:
		return Method{}, domain.Configf("", "unknown compare method %q", parts[0])
	}
	m := Method{Base: base, mods: make(map[string]bool, len(parts)-1), raw: s}
	for _, mod := range parts[1:] {
		m.mods[mod] = true
	}
	return m, nil
}

// Has reports whether the method carries a modifier.
func (m Method) Has(mod string) bool { return m.mods[mod] }

// String returns the original method string.
func (m Method) String() string { return m.raw }

// WithBase returns a copy of the method with the base kind replaced and the
// modifiers kept. Feedback rules use this to rewrite a field's method into
// its "string" or "regexp" form.
func (m Method) WithBase(base Kind) Method {
	out := Method{Base: base, mods: m.mods}
	parts := []string{string(base)}
	for _, p := range strings.Split(m.raw, "-")[1:] {
		parts = append(parts, p)
	}
	out.raw = strings.Join(parts, "-")
	return out
}
