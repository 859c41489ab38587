package compare

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, s string) Method {
	t.Helper()
	m, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", s, err)
	}
	return m
}

func TestParse(t *testing.T) {
	m := mustParse(t, "string-ignorews-requirecase")
	if m.Base != KindString {
		t.Errorf("Base = %q, want %q", m.Base, KindString)
	}
	if !m.Has(ModIgnoreWS) || !m.Has(ModRequireCase) {
		t.Error("expected ignorews and requirecase modifiers")
	}
	if m.Has(ModIgnoreQuotes) {
		t.Error("unexpected ignorequotes modifier")
	}
	if got := m.String(); got != "string-ignorews-requirecase" {
		t.Errorf("String() = %q", got)
	}
}

func TestParse_EmptyDefaultsToString(t *testing.T) {
	m := mustParse(t, "")
	if m.Base != KindString {
		t.Errorf("Base = %q, want %q", m.Base, KindString)
	}
}

func TestParse_UnknownBase(t *testing.T) {
	if _, err := Parse("bogus-ignorews"); err == nil {
		t.Fatal("Parse() expected error for unknown base")
	}
}

func TestWithBase(t *testing.T) {
	m := mustParse(t, "subdiff-ignorews")
	s := m.WithBase(KindString)
	if s.Base != KindString {
		t.Errorf("Base = %q, want %q", s.Base, KindString)
	}
	if !s.Has(ModIgnoreWS) {
		t.Error("modifier lost on WithBase")
	}
	if got := s.String(); got != "string-ignorews" {
		t.Errorf("String() = %q, want %q", got, "string-ignorews")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name      string
		method    string
		submitted string
		model     string
		want      bool
	}{
		{"int equal", "int", "7", "7", true},
		{"int whitespace", "int", " 7 ", "7", true},
		{"int empty", "int", "", "7", false},
		{"int non numeric", "int", "seven", "7", false},
		{"float tolerance inside", "float", "3.01", "3.0", true},
		{"float tolerance outside", "float", "3.1", "3.0", false},
		{"float empty", "float", "", "3.0", false},
		{"string case insensitive", "string", "Hello", "hello", true},
		{"string requirecase", "string-requirecase", "Hello", "hello", false},
		{"string requirecase exact", "string-requirecase", "hello", "hello", true},
		{"string trims ends", "string", "  hello  ", "hello", true},
		{"string ignorews", "string-ignorews", "h e l l o", "hello", true},
		{"string ignorequotes", "string-ignorequotes", `"hello"`, "hello", true},
		{"string ignoreparenthesis", "string-ignoreparenthesis", "f(x)", "fx", true},
		{"unsortedchars", "unsortedchars", "abca", "aabc", true},
		{"unsortedchars mismatch", "unsortedchars", "abd", "abc", false},
		{"regexp match", "regexp", "foobar", "/foo.*/", true},
		{"regexp search not anchored", "regexp", "xxfooxx", "foo", true},
		{"regexp no match", "regexp", "bar", "/foo.*/", false},
		{"array scalar", "array", "a", "a", true},
		{"array scalar mismatch", "array", "a", "b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Equal(mustParse(t, tt.method), tt.submitted, tt.model)
			if err != nil {
				t.Fatalf("Equal() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Equal(%q, %q, %q) = %v, want %v",
					tt.method, tt.submitted, tt.model, got, tt.want)
			}
		})
	}
}

func TestEqual_Multiline(t *testing.T) {
	m := mustParse(t, "string")
	ok, err := Equal(m, "one\n  two  \nthree", "one\ntwo\nthree")
	if err != nil {
		t.Fatalf("Equal() error = %v", err)
	}
	if !ok {
		t.Error("expected line-trimmed multiline match")
	}

	ok, err = Equal(m, "one\ntwo", "one\ntwo\nthree")
	if err != nil {
		t.Fatalf("Equal() error = %v", err)
	}
	if ok {
		t.Error("expected mismatch on differing line counts")
	}
}

func TestEqual_IgnoreRepl(t *testing.T) {
	m := mustParse(t, "string-ignorerepl")
	ok, err := Equal(m, "In: x = 42", "42")
	if err != nil {
		t.Fatalf("Equal() error = %v", err)
	}
	if !ok {
		t.Error("expected REPL prefix to be stripped")
	}
}

func TestEqual_InvalidModelRegexp(t *testing.T) {
	m := mustParse(t, "regexp")
	if _, err := Equal(m, "value", "("); err == nil {
		t.Fatal("Equal() expected error for invalid model regexp")
	}
}

func TestContains(t *testing.T) {
	m := mustParse(t, "array")
	if !Contains(m, []string{"a", "b"}, "b") {
		t.Error("Contains() = false, want true")
	}
	if Contains(m, []string{"a", "b"}, "c") {
		t.Error("Contains() = true, want false")
	}
}

func TestSubdiff(t *testing.T) {
	m := mustParse(t, "subdiff")
	ok, err := Subdiff(m, "cat", "dog|cat|bird")
	if err != nil {
		t.Fatalf("Subdiff() error = %v", err)
	}
	if !ok {
		t.Error("expected match against one alternative")
	}

	ok, err = Subdiff(m, "fish", "dog|cat|bird")
	if err != nil {
		t.Fatalf("Subdiff() error = %v", err)
	}
	if ok {
		t.Error("expected no alternative to match")
	}
}

func TestMatchingParts(t *testing.T) {
	got := MatchingParts("hello world", "hello there")
	if !strings.HasPrefix(got, "hello ") {
		t.Errorf("MatchingParts() = %q, want shared prefix kept", got)
	}
	if !strings.Contains(got, "-") {
		t.Errorf("MatchingParts() = %q, want dashes over unmatched solution text", got)
	}
	if len([]rune(got)) != len([]rune("hello there")) {
		t.Errorf("MatchingParts() length = %d, want aligned to solution length %d",
			len([]rune(got)), len([]rune("hello there")))
	}
}

func TestAlternatives(t *testing.T) {
	got := Alternatives("a|b|c")
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("Alternatives() = %v", got)
	}
}
