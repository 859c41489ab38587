package courseconfig

import (
	"time"

	"github.com/mlahtinen/gradery/internal/domain"
)

const fallbackLang = "en"

// parseCourse turns a parsed course index document into a typed Course.
// "name" is required; everything else has defaults.
func parseCourse(file string, doc Document, key, dir string, modTime time.Time) (*domain.Course, error) {
	if len(doc) == 0 {
		return nil, domain.Configf(file, "failed to parse configuration file, it must be a mapping")
	}
	if _, ok := doc["name"]; !ok {
		return nil, domain.Configf(file, "required field %q missing", "name")
	}

	course := &domain.Course{
		Key:         key,
		Name:        getString(doc, "name"),
		Dir:         dir,
		ConfigFiles: map[string]string{},
		Loader:      getString(doc, "exercise_loader"),
		Secret:      getString(doc, "secret"),
		Data:        map[string]any{},
		ModTime:     modTime,
	}

	course.DefaultLang, course.Languages = courseLanguages(doc)

	if raw, ok := doc["exercises"]; ok {
		list, ok := asList(raw)
		if !ok {
			return nil, domain.Configf(file, `field "exercises" must be a list of exercise keys`)
		}
		for _, item := range list {
			k, ok := asString(item)
			if !ok {
				return nil, domain.Configf(file, `field "exercises" must be a list of exercise keys`)
			}
			course.Exercises = append(course.Exercises, k)
		}
	}

	if raw, ok := doc["config_files"]; ok {
		m, ok := asMap(raw)
		if !ok {
			return nil, domain.Configf(file, `field "config_files" must map exercise keys to file names`)
		}
		for k, v := range m {
			name, ok := asString(v)
			if !ok {
				return nil, domain.Configf(file, `field "config_files" must map exercise keys to file names`)
			}
			course.ConfigFiles[k] = name
		}
	}

	for k, v := range doc {
		switch k {
		case "name", "exercises", "config_files", "exercise_loader", "secret", "language", "lang":
		default:
			course.Data[k] = v
		}
	}
	return course, nil
}

// courseLanguages reads the course's declared language(s). A list declares
// several with the first as default; a plain string declares one; anything
// else falls back to "en".
func courseLanguages(doc Document) (string, []string) {
	raw, ok := doc["language"]
	if !ok {
		raw = doc["lang"]
	}
	switch v := raw.(type) {
	case string:
		if v != "" {
			return v, []string{v}
		}
	case []any:
		var langs []string
		for _, item := range v {
			if s, ok := asString(item); ok {
				langs = append(langs, s)
			}
		}
		if len(langs) > 0 {
			return langs[0], langs
		}
	}
	return fallbackLang, []string{fallbackLang}
}
