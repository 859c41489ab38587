package courseconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mlahtinen/gradery/internal/domain"
)

// Store loads and caches course and exercise configuration from a courses
// directory. Entries are keyed by file modification time: a cached entry is
// served as long as neither its config file nor any of its include files has
// a newer mtime on disk. Concurrent loads of the same entry are collapsed
// into one parse.
type Store struct {
	coursesPath string
	defaultLang string
	renderer    TemplateRenderer
	mtime       func(path string) (time.Time, error)
	log         *slog.Logger
	tags        map[string]TagFunc

	mu      sync.RWMutex
	loaders map[string]LoaderFunc
	flight  singleflight.Group
	courses map[string]*courseRoot

	dirModTime time.Time
	courseKeys []string
}

type courseRoot struct {
	file      string
	modTime   time.Time
	course    *domain.Course
	exercises map[string]*exerciseRoot
}

type exerciseRoot struct {
	file     string
	modTime  time.Time
	includes map[string]time.Time
	byLang   map[string]*domain.Exercise
	langs    []string
}

// Option configures a Store.
type Option func(*Store)

// WithRenderer sets the template renderer used for includes that carry a
// template_context.
func WithRenderer(r TemplateRenderer) Option {
	return func(s *Store) { s.renderer = r }
}

// WithMTime replaces the modification time reader used for cache freshness
// checks.
func WithMTime(fn func(path string) (time.Time, error)) Option {
	return func(s *Store) { s.mtime = fn }
}

// WithLogger sets the logger used to report skipped broken courses.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a Store over the given courses directory. defaultLang is used
// when a course declares no language of its own.
func New(coursesPath, defaultLang string, opts ...Option) *Store {
	s := &Store{
		coursesPath: coursesPath,
		defaultLang: defaultLang,
		mtime:       statMTime,
		log:         slog.Default(),
		tags:        builtinTags(),
		loaders:     map[string]LoaderFunc{},
		courses:     map[string]*courseRoot{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func statMTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Courses returns every loadable course under the courses directory, sorted
// by key. Directories whose configuration fails to parse are logged and
// skipped so one broken course does not hide the rest. The directory listing
// itself is cached until the directory mtime advances.
func (s *Store) Courses() []*domain.Course {
	keys := s.scanKeys()
	out := make([]*domain.Course, 0, len(keys))
	for _, key := range keys {
		course, err := s.Course(key)
		if err != nil {
			s.log.Warn("skipping broken course", "course", key, "error", err)
			continue
		}
		out = append(out, course)
	}
	return out
}

func (s *Store) scanKeys() []string {
	dirMod, err := s.mtime(s.coursesPath)

	s.mu.RLock()
	cached := s.courseKeys
	fresh := err == nil && cached != nil && !s.dirModTime.Before(dirMod)
	s.mu.RUnlock()
	if fresh {
		return cached
	}

	entries, err := os.ReadDir(s.coursesPath)
	if err != nil {
		s.log.Warn("failed to read courses directory", "path", s.coursesPath, "error", err)
		return nil
	}
	var keys []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			keys = append(keys, entry.Name())
		}
	}

	s.mu.Lock()
	s.courseKeys = keys
	s.dirModTime = dirMod
	s.mu.Unlock()
	return keys
}

// Course returns the course for a key, loading or refreshing it as needed.
func (s *Store) Course(key string) (*domain.Course, error) {
	if !validKey(key) {
		return nil, fmt.Errorf("%w: %s", domain.ErrCourseNotFound, key)
	}
	dir := filepath.Join(s.coursesPath, key)
	file, err := FindConfig(filepath.Join(dir, "index"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCourseNotFound, key)
	}
	diskMod, err := s.mtime(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCourseNotFound, key)
	}

	s.mu.RLock()
	root := s.courses[key]
	s.mu.RUnlock()
	if root != nil && root.file == file && !root.modTime.Before(diskMod) {
		return root.course, nil
	}

	load := func() (any, error) { return s.loadCourse(key, dir, file) }
	v, err, _ := s.flight.Do("course/"+key, load)
	if errors.Is(err, fs.ErrNotExist) {
		// The file was replaced between the mtime check and the read.
		v, err = s.loadCourse(key, dir, file)
	}
	if err != nil {
		return nil, err
	}
	return v.(*courseRoot).course, nil
}

func (s *Store) loadCourse(key, dir, file string) (*courseRoot, error) {
	modTime, err := s.mtime(file)
	if err != nil {
		return nil, err
	}
	doc, err := ParseFile(file)
	if err != nil {
		return nil, err
	}
	course, err := parseCourse(file, doc, key, dir, modTime)
	if err != nil {
		return nil, err
	}
	// A changed course index may remap config_files or swap the exercise
	// loader, so nested exercise entries are rebuilt rather than carried
	// over.
	root := &courseRoot{
		file:      file,
		modTime:   modTime,
		course:    course,
		exercises: map[string]*exerciseRoot{},
	}
	s.mu.Lock()
	s.courses[key] = root
	s.mu.Unlock()
	return root, nil
}

// Exercise returns one exercise of a course in the best matching language.
// The requested language is used when the exercise defines it, then the
// course default, then the lexicographically first defined language.
func (s *Store) Exercise(courseKey, exerciseKey, lang string) (*domain.Exercise, *domain.Course, error) {
	course, err := s.Course(courseKey)
	if err != nil {
		return nil, nil, err
	}
	if !validKey(exerciseKey) || !course.HasExercise(exerciseKey) {
		return nil, nil, fmt.Errorf("%w: %s/%s", domain.ErrExerciseNotFound, courseKey, exerciseKey)
	}
	root, err := s.exerciseRoot(course, exerciseKey)
	if err != nil {
		return nil, nil, err
	}
	ex := root.pick(lang, s.courseLang(course))
	if ex == nil {
		return nil, nil, domain.Configf(root.file, "exercise %q resolved to no language versions", exerciseKey)
	}
	return ex, course, nil
}

// ExerciseLanguages returns the sorted language codes an exercise resolves
// to.
func (s *Store) ExerciseLanguages(courseKey, exerciseKey string) ([]string, error) {
	course, err := s.Course(courseKey)
	if err != nil {
		return nil, err
	}
	if !course.HasExercise(exerciseKey) {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrExerciseNotFound, courseKey, exerciseKey)
	}
	root, err := s.exerciseRoot(course, exerciseKey)
	if err != nil {
		return nil, err
	}
	return root.langs, nil
}

// Exercises returns every exercise listed by the course, in course order and
// in the best matching language. A listed key that fails to load is an
// error: the course explicitly names it.
func (s *Store) Exercises(courseKey, lang string) ([]*domain.Exercise, error) {
	course, err := s.Course(courseKey)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Exercise, 0, len(course.Exercises))
	for _, key := range course.Exercises {
		ex, _, err := s.Exercise(courseKey, key, lang)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

func (s *Store) exerciseRoot(course *domain.Course, key string) (*exerciseRoot, error) {
	s.mu.RLock()
	var cached *exerciseRoot
	if croot := s.courses[course.Key]; croot != nil {
		cached = croot.exercises[key]
	}
	s.mu.RUnlock()
	if cached != nil && s.exerciseFresh(cached) {
		return cached, nil
	}

	load := func() (any, error) { return s.loadExercise(course, key) }
	v, err, _ := s.flight.Do("exercise/"+course.Key+"/"+key, load)
	if errors.Is(err, fs.ErrNotExist) {
		v, err = load()
	}
	if err != nil {
		return nil, err
	}
	return v.(*exerciseRoot), nil
}

func (s *Store) exerciseFresh(root *exerciseRoot) bool {
	diskMod, err := s.mtime(root.file)
	if err != nil || root.modTime.Before(diskMod) {
		return false
	}
	for file, loaded := range root.includes {
		diskMod, err := s.mtime(file)
		if err != nil || loaded.Before(diskMod) {
			return false
		}
	}
	return true
}

func (s *Store) loadExercise(course *domain.Course, key string) (*exerciseRoot, error) {
	loader, err := s.loaderFor(course)
	if err != nil {
		return nil, err
	}
	raw, err := loader(course, key, course.Dir)
	if err != nil {
		return nil, err
	}

	byLang, err := s.Expand(raw.Doc, s.courseLang(course))
	if err != nil {
		var cfg *domain.ConfigError
		if errors.As(err, &cfg) && cfg.File == "" {
			cfg.File = raw.File
		}
		return nil, err
	}

	root := &exerciseRoot{
		file:     raw.File,
		modTime:  raw.ModTime,
		includes: map[string]time.Time{},
		byLang:   map[string]*domain.Exercise{},
	}
	for _, file := range raw.Includes {
		mod, err := s.mtime(file)
		if err != nil {
			return nil, err
		}
		root.includes[file] = mod
	}
	for lang, doc := range byLang {
		ex, err := parseExercise(raw.File, doc, key, lang, raw.ModTime)
		if err != nil {
			return nil, err
		}
		root.byLang[lang] = ex
		root.langs = append(root.langs, lang)
	}
	sort.Strings(root.langs)

	s.mu.Lock()
	if croot := s.courses[course.Key]; croot != nil {
		croot.exercises[key] = root
	}
	s.mu.Unlock()
	return root, nil
}

func (s *Store) courseLang(course *domain.Course) string {
	if course.DefaultLang != "" {
		return course.DefaultLang
	}
	return s.defaultLang
}

// pick selects a language version: the requested language first, then the
// course default, then the lexicographically first available.
func (r *exerciseRoot) pick(lang, defaultLang string) *domain.Exercise {
	if ex := r.byLang[lang]; ex != nil {
		return ex
	}
	if ex := r.byLang[defaultLang]; ex != nil {
		return ex
	}
	if len(r.langs) > 0 {
		return r.byLang[r.langs[0]]
	}
	return nil
}

// validKey rejects keys that could escape the courses directory.
func validKey(key string) bool {
	return key != "" && key != "." && key != ".." &&
		!strings.ContainsAny(key, "/\\")
}
