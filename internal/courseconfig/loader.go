package courseconfig

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/mlahtinen/gradery/internal/domain"
)

// RawExercise is an exercise document as read from disk, after include
// resolution but before tag expansion. Includes lists the files merged into
// the document so cache freshness can account for them.
type RawExercise struct {
	File     string
	ModTime  time.Time
	Doc      Document
	Includes []string
}

// LoaderFunc reads the raw configuration document for one exercise of a
// course. Courses select a loader by name with the exercise_loader key.
type LoaderFunc func(course *domain.Course, exerciseKey, dir string) (*RawExercise, error)

// RegisterLoader makes a named loader available to courses. The default
// loader reads <dir>/<key>.json or .yaml and resolves its includes.
func (s *Store) RegisterLoader(name string, fn LoaderFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaders[name] = fn
}

func (s *Store) fileLoader(course *domain.Course, exerciseKey, dir string) (*RawExercise, error) {
	name := strings.TrimPrefix(course.ConfigFile(exerciseKey), "/")
	file, err := FindConfig(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	modTime, err := s.mtime(file)
	if err != nil {
		return nil, err
	}
	doc, err := ParseFile(file)
	if err != nil {
		return nil, err
	}
	var includes []string
	if _, ok := doc["include"]; ok {
		doc, includes, err = s.resolveIncludes(doc, file, dir)
		if err != nil {
			return nil, err
		}
	}
	return &RawExercise{File: file, ModTime: modTime, Doc: doc, Includes: includes}, nil
}

func (s *Store) loaderFor(course *domain.Course) (LoaderFunc, error) {
	if course.Loader == "" {
		return s.fileLoader, nil
	}
	s.mu.RLock()
	fn, ok := s.loaders[course.Loader]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.Configf(course.Dir, "unknown exercise_loader %q", course.Loader)
	}
	return fn, nil
}
