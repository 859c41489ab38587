// Package courseconfig resolves course and exercise configuration from a
// directory tree. Each directory under the courses root holding an
// index.json/yaml is a course. Exercise documents are merged with their
// include targets, expanded into one document per language, parsed into
// typed specs and cached keyed by file modification time.
package courseconfig

import (
	"fmt"
	"sort"
)

// Document is a parsed configuration tree: nested maps, lists and scalars as
// decoded from JSON or YAML. Documents are treated as immutable once parsed;
// transforms return fresh trees.
type Document map[string]any

// sortedKeys returns the document keys in ascending (length, lexicographic)
// order, the order in which tag-suffixed keys are processed.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (d Document) clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Scalar coercions. JSON decodes numbers as float64 and YAML as int, so both
// shapes are accepted wherever config expects a number.

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int:
		return fmt.Sprintf("%d", t), true
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t)), true
		}
		return fmt.Sprintf("%g", t), true
	case bool:
		return fmt.Sprintf("%t", t), true
	}
	return "", false
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	}
	return 0, false
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

// getString returns d[key] coerced to string, or "".
func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := asString(v); ok {
			return s
		}
	}
	return ""
}

// getBool returns d[key] as bool, or false.
func getBool(m map[string]any, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := asBool(v); ok {
			return b
		}
	}
	return false
}

// getInt returns d[key] coerced to int and whether it was present.
func getInt(m map[string]any, key string) (int, bool) {
	if v, ok := m[key]; ok {
		return asInt(v)
	}
	return 0, false
}
