package domain

import "time"

// Course is a top-level configuration root identified by a key. It is built
// from the course directory's index config file.
type Course struct {
	Key         string
	Name        string
	Dir         string // course config directory
	DefaultLang string
	Languages   []string          // declared languages, first is the default
	Exercises   []string          // ordered exercise keys
	ConfigFiles map[string]string // exercise key -> config file name override
	Loader      string            // named exercise loader, empty for default
	Secret      string            // course-level sample secret override
	Data        map[string]any    // remaining course metadata
	ModTime     time.Time
}

// ConfigFile returns the config file name for an exercise key, falling back
// to the key itself.
func (c *Course) ConfigFile(exerciseKey string) string {
	if name, ok := c.ConfigFiles[exerciseKey]; ok {
		return name
	}
	return exerciseKey
}

// HasExercise reports whether the course lists the exercise key.
func (c *Course) HasExercise(key string) bool {
	for _, k := range c.Exercises {
		if k == key {
			return true
		}
	}
	return false
}
