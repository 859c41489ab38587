package compare

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mlahtinen/gradery/internal/domain"
)

var replPrefix = regexp.MustCompile(`^\w+:\s[\w.\[\]]+\s=`)

// Equal compares one submitted scalar against one model value under the
// method. A mismatch is a normal result, not an error; errors are reserved
// for broken model configuration (an invalid model regexp).
func Equal(m Method, submitted, model string) (bool, error) {
	switch m.Base {
	case KindInt:
		return equalInt(submitted, model), nil
	case KindFloat:
		return equalFloat(submitted, model), nil
	case KindArray:
		// Array containment over a scalar degrades to a single-element check.
		return Contains(m, []string{submitted}, model), nil
	}

	val := strip(submitted)
	cmp := strip(model)

	if m.Has(ModIgnoreRepl) {
		if loc := replPrefix.FindString(val); loc != "" {
			val = strings.TrimSpace(val[len(loc):])
		}
	}
	if m.Has(ModIgnoreWS) || m.Base == KindUnsortedChars {
		val = stripWS(val)
		cmp = stripWS(cmp)
	}
	if m.Has(ModIgnoreQuotes) {
		val = stripQuotes(val)
		cmp = stripQuotes(cmp)
	}
	if m.Has(ModIgnoreParenthesis) {
		val = stripParens(val)
		if m.Base != KindRegexp {
			cmp = stripParens(cmp)
		}
	}

	switch m.Base {
	case KindUnsortedChars:
		return runeSet(val) == runeSet(cmp), nil
	case KindString:
		return equalString(m, val, cmp), nil
	case KindRegexp:
		return matchRegexp(val, cmp)
	}
	return false, domain.Configf("", "compare method %q has no scalar comparison", m.String())
}

// Contains implements the "array" base: the model value must be among the
// submitted values.
func Contains(_ Method, submitted []string, model string) bool {
	for _, v := range submitted {
		if v == model {
			return true
		}
	}
	return false
}

func equalInt(val, cmp string) bool {
	if strings.TrimSpace(val) == "" {
		return false
	}
	a, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return false
	}
	b, err := strconv.Atoi(strings.TrimSpace(cmp))
	if err != nil {
		return false
	}
	return a == b
}

// equalFloat accepts values within 2% relative tolerance of the model.
func equalFloat(val, cmp string) bool {
	if strings.TrimSpace(val) == "" {
		return false
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return false
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(cmp), 64)
	if err != nil {
		return false
	}
	return math.Abs(a-b) <= 0.02*math.Max(math.Abs(a), math.Abs(b))
}

// equalString is case-insensitive unless requirecase is set. A model value
// containing newlines compares line by line with per-line trimming, and the
// line counts must match.
func equalString(m Method, val, cmp string) bool {
	if strings.Contains(cmp, "\n") {
		cmpLines := trimmedLines(cmp)
		valLines := trimmedLines(val)
		if len(cmpLines) != len(valLines) {
			return false
		}
		for i := range cmpLines {
			if m.Has(ModRequireCase) {
				if cmpLines[i] != valLines[i] {
					return false
				}
			} else if !strings.EqualFold(cmpLines[i], valLines[i]) {
				return false
			}
		}
		return true
	}
	if m.Has(ModRequireCase) {
		return val == cmp
	}
	return strings.EqualFold(val, cmp)
}

// matchRegexp searches (not full-matches) the submitted text with the model
// pattern. A "/pattern/" wrapper is stripped first.
func matchRegexp(val, cmp string) (bool, error) {
	if strings.HasPrefix(cmp, "/") && strings.HasSuffix(cmp, "/") && len(cmp) >= 2 {
		cmp = cmp[1 : len(cmp)-1]
	}
	re, err := regexp.Compile(cmp)
	if err != nil {
		return false, domain.Configf("", "invalid model regexp %q: %v", cmp, err)
	}
	return re.FindStringIndex(val) != nil, nil
}

func strip(v string) string {
	return strings.TrimSpace(strings.ReplaceAll(v, "\r", ""))
}

func stripWS(v string) string {
	return strings.Join(strings.Fields(v), "")
}

func stripQuotes(v string) string {
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) >= 2 {
		return v[1 : len(v)-1]
	}
	return v
}

func stripParens(v string) string {
	return strings.NewReplacer("(", "", ")", "").Replace(v)
}

func runeSet(v string) string {
	seen := make(map[rune]bool)
	var runes []rune
	for _, r := range v {
		if !seen[r] {
			seen[r] = true
			runes = append(runes, r)
		}
	}
	sortRunes(runes)
	return string(runes)
}

func sortRunes(rs []rune) {
	for i := 1; i < len(rs); i++ {
		for j := i; j > 0 && rs[j] < rs[j-1]; j-- {
			rs[j], rs[j-1] = rs[j-1], rs[j]
		}
	}
}

func trimmedLines(v string) []string {
	raw := strings.Split(strings.TrimSpace(v), "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = strings.TrimSpace(l)
	}
	return out
}
