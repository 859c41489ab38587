package courseconfig

import (
	"regexp"

	"github.com/mlahtinen/gradery/internal/domain"
	"github.com/mlahtinen/gradery/internal/rst"
)

// TagFunc resolves one suffix-tagged value. root is the (partially built)
// document the resolved key is placed into, parent the node the tagged key
// was found in, and lang the language the document is being rendered for.
type TagFunc func(root Document, parent map[string]any, value any, lang string) (any, error)

var tagPattern = regexp.MustCompile(`^(.+)\|(\w+)$`)

func builtinTags() map[string]TagFunc {
	return map[string]TagFunc{
		// i18n: the value maps language codes to raw values; pick the value
		// for the language being rendered. Missing languages resolve to nil.
		"i18n": func(_ Document, _ map[string]any, value any, lang string) (any, error) {
			versions, ok := asMap(value)
			if !ok {
				return nil, nil
			}
			return versions[lang], nil
		},
		// rst: the value is reStructuredText source, rendered to HTML.
		"rst": func(_ Document, _ map[string]any, value any, _ string) (any, error) {
			src, ok := asString(value)
			if !ok {
				return nil, domain.Configf("", "rst tag requires a string value")
			}
			return rst.ToHTML(src), nil
		},
	}
}

// RegisterTag adds a tag processor. Only "i18n" and "rst" are built in; new
// tags are a registered name mapped to a pure resolver function.
func (s *Store) RegisterTag(name string, fn TagFunc) {
	s.tags[name] = fn
}

// Expand walks the document tree, resolves every "name|tag" key and returns
// one fully resolved document per discovered language. The first pass renders
// with the default language and collects the language codes seen under any
// i18n tag; each remaining language gets its own pass over the original tree.
func (s *Store) Expand(doc Document, defaultLang string) (map[string]Document, error) {
	langs := map[string]bool{}

	render := func(lang string, collect bool) (Document, error) {
		out, err := s.expandNode(map[string]any(doc), lang, collect, langs)
		if err != nil {
			return nil, err
		}
		resolved, _ := out.(map[string]any)
		return Document(resolved), nil
	}

	byLang := map[string]Document{}
	first, err := render(defaultLang, true)
	if err != nil {
		return nil, err
	}
	byLang[defaultLang] = first

	for _, lang := range sortedKeys(boolToAny(langs)) {
		if lang == defaultLang {
			continue
		}
		d, err := render(lang, false)
		if err != nil {
			return nil, err
		}
		byLang[lang] = d
	}
	return byLang, nil
}

// expandNode returns a new tree; the input is never mutated, so several
// language variants can be derived from one source tree without aliasing.
func (s *Store) expandNode(n any, lang string, collect bool, langs map[string]bool) (any, error) {
	switch node := n.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for _, key := range sortedKeys(node) {
			value := node[key]
			// Re-match after each tag so chains like "name|i18n|rst" resolve
			// one suffix at a time, innermost last.
			for m := tagPattern.FindStringSubmatch(key); m != nil; m = tagPattern.FindStringSubmatch(key) {
				key = m[1]
				tag := m[2]
				if collect && tag == "i18n" {
					if versions, ok := asMap(value); ok {
						for code := range versions {
							langs[code] = true
						}
					}
				}
				fn, ok := s.tags[tag]
				if !ok {
					return nil, domain.Configf("", "unsupported processor tag %q", tag)
				}
				var err error
				value, err = fn(Document(out), node, value, lang)
				if err != nil {
					return nil, err
				}
			}
			resolved, err := s.expandNode(value, lang, collect, langs)
			if err != nil {
				return nil, err
			}
			out[key] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			resolved, err := s.expandNode(item, lang, collect, langs)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return n, nil
	}
}

func boolToAny(m map[string]bool) map[string]any {
	out := make(map[string]any, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}
