package courseconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mlahtinen/gradery/internal/domain"
)

// newCourse writes a minimal course directory and returns the courses root.
func newCourse(t *testing.T, key, index string) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, key, "index.yaml"), index)
	return root
}

const quizYAML = `title: Quiz
view_type: exercise
fieldgroups:
  - title: Basics
    fields:
      - type: text
        key: q1
        correct: answer
        points: 5
`

func TestCourse(t *testing.T) {
	root := newCourse(t, "demo", `name: Demo Course
language:
  - fi
  - en
exercises:
  - quiz1
secret: course-secret
category: testing
`)
	s := New(root, "en")

	course, err := s.Course("demo")
	if err != nil {
		t.Fatalf("Course() error = %v", err)
	}
	if course.Name != "Demo Course" {
		t.Errorf("Name = %q, want %q", course.Name, "Demo Course")
	}
	if course.DefaultLang != "fi" {
		t.Errorf("DefaultLang = %q, want %q", course.DefaultLang, "fi")
	}
	if len(course.Languages) != 2 {
		t.Errorf("Languages = %v, want two entries", course.Languages)
	}
	if !course.HasExercise("quiz1") || course.HasExercise("other") {
		t.Errorf("Exercises = %v", course.Exercises)
	}
	if course.Secret != "course-secret" {
		t.Errorf("Secret = %q", course.Secret)
	}
	if course.Data["category"] != "testing" {
		t.Errorf("Data = %v, want extra keys carried", course.Data)
	}
}

func TestCourse_NameRequired(t *testing.T) {
	root := newCourse(t, "demo", "language: en\n")
	s := New(root, "en")
	if _, err := s.Course("demo"); !domain.AsConfigError(err) {
		t.Errorf("Course() error = %v, want config error", err)
	}
}

func TestCourse_NotFound(t *testing.T) {
	s := New(t.TempDir(), "en")
	if _, err := s.Course("missing"); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Errorf("Course() error = %v, want ErrCourseNotFound", err)
	}
}

func TestCourse_RejectsTraversalKeys(t *testing.T) {
	s := New(t.TempDir(), "en")
	for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
		if _, err := s.Course(key); !errors.Is(err, domain.ErrCourseNotFound) {
			t.Errorf("Course(%q) error = %v, want ErrCourseNotFound", key, err)
		}
	}
}

func TestCourses_SkipsBroken(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "good", "index.yaml"), "name: Good\n")
	writeFile(t, filepath.Join(root, "broken", "index.yaml"), "language: en\n")
	writeFile(t, filepath.Join(root, ".hidden", "index.yaml"), "name: Hidden\n")

	s := New(root, "en")
	courses := s.Courses()
	if len(courses) != 1 {
		t.Fatalf("len(Courses()) = %d, want 1", len(courses))
	}
	if courses[0].Key != "good" {
		t.Errorf("Key = %q, want %q", courses[0].Key, "good")
	}
}

func TestExercise(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nexercises: [quiz1]\n")
	writeFile(t, filepath.Join(root, "demo", "quiz1.yaml"), quizYAML)
	s := New(root, "en")

	ex, course, err := s.Exercise("demo", "quiz1", "en")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	if course.Key != "demo" {
		t.Errorf("course.Key = %q", course.Key)
	}
	if ex.Title != "Quiz" || ex.Lang != "en" {
		t.Errorf("Title = %q, Lang = %q", ex.Title, ex.Lang)
	}
	if len(ex.Groups) != 1 {
		t.Fatalf("len(Groups) = %d, want 1", len(ex.Groups))
	}
	group := ex.Groups[0]
	if group.Name != "group_0" {
		t.Errorf("group.Name = %q, want %q", group.Name, "group_0")
	}
	if len(group.Fields) != 1 || group.Fields[0].Key != "q1" || group.Fields[0].Points != 5 {
		t.Errorf("Fields = %+v", group.Fields)
	}
}

func TestExercise_NotListed(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nexercises: [quiz1]\n")
	writeFile(t, filepath.Join(root, "demo", "quiz1.yaml"), quizYAML)
	s := New(root, "en")

	_, _, err := s.Exercise("demo", "other", "en")
	if !errors.Is(err, domain.ErrExerciseNotFound) {
		t.Errorf("Exercise() error = %v, want ErrExerciseNotFound", err)
	}
}

func TestExercise_ConfigFileOverride(t *testing.T) {
	root := newCourse(t, "demo", `name: Demo
exercises: [quiz1]
config_files:
  quiz1: /exercises/q.yaml
`)
	writeFile(t, filepath.Join(root, "demo", "exercises", "q.yaml"), quizYAML)
	s := New(root, "en")

	ex, _, err := s.Exercise("demo", "quiz1", "en")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	if ex.Title != "Quiz" {
		t.Errorf("Title = %q", ex.Title)
	}
}

func TestExercise_LanguageFallback(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nlanguage: en\nexercises: [quiz1]\n")
	writeFile(t, filepath.Join(root, "demo", "quiz1.yaml"), `title|i18n:
  en: Quiz
  fi: Tietovisa
view_type: exercise
`)
	s := New(root, "en")

	ex, _, err := s.Exercise("demo", "quiz1", "fi")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	if ex.Title != "Tietovisa" || ex.Lang != "fi" {
		t.Errorf("fi version: Title = %q, Lang = %q", ex.Title, ex.Lang)
	}

	// Unknown language falls back to the course default.
	ex, _, err = s.Exercise("demo", "quiz1", "sv")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	if ex.Lang != "en" {
		t.Errorf("fallback Lang = %q, want %q", ex.Lang, "en")
	}

	langs, err := s.ExerciseLanguages("demo", "quiz1")
	if err != nil {
		t.Fatalf("ExerciseLanguages() error = %v", err)
	}
	if len(langs) != 2 || langs[0] != "en" || langs[1] != "fi" {
		t.Errorf("ExerciseLanguages() = %v, want sorted [en fi]", langs)
	}
}

func TestExercise_FirstLanguageFallback(t *testing.T) {
	// Neither the requested nor the default language is defined; the
	// lexicographically first available wins.
	root := newCourse(t, "demo", "name: Demo\nlanguage: en\nexercises: [quiz1]\n")
	writeFile(t, filepath.Join(root, "demo", "quiz1.yaml"), `title|i18n:
  sv: Prov
  fi: Tietovisa
view_type: exercise
`)
	s := New(root, "de")

	ex, _, err := s.Exercise("demo", "quiz1", "no")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	// The default-language pass always produces a variant, here "en" with
	// nil i18n values; it sorts before fi and sv.
	if ex.Lang != "en" {
		t.Errorf("Lang = %q, want %q", ex.Lang, "en")
	}
}

func TestExercise_CacheRefresh(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nexercises: [quiz1]\n")
	file := filepath.Join(root, "demo", "quiz1.yaml")
	writeFile(t, file, quizYAML)
	s := New(root, "en")

	ex, _, err := s.Exercise("demo", "quiz1", "en")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	if ex.Title != "Quiz" {
		t.Fatalf("Title = %q", ex.Title)
	}

	writeFile(t, file, "title: Updated\nview_type: exercise\n")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(file, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	ex, _, err = s.Exercise("demo", "quiz1", "en")
	if err != nil {
		t.Fatalf("Exercise() after update error = %v", err)
	}
	if ex.Title != "Updated" {
		t.Errorf("Title = %q, want %q after refresh", ex.Title, "Updated")
	}
}

func TestExercise_CourseChangeDropsExerciseCache(t *testing.T) {
	root := newCourse(t, "demo", `name: Demo
exercises: [quiz1]
config_files:
  quiz1: conf_a
`)
	writeFile(t, filepath.Join(root, "demo", "conf_a.yaml"), "title: A\nview_type: exercise\n")
	writeFile(t, filepath.Join(root, "demo", "conf_b.yaml"), "title: B\nview_type: exercise\n")
	s := New(root, "en")

	ex, _, err := s.Exercise("demo", "quiz1", "en")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	if ex.Title != "A" {
		t.Fatalf("Title = %q, want %q", ex.Title, "A")
	}

	// Remap the exercise to another config file. Only the course index
	// changes; the previously loaded file stays fresh on disk, so serving
	// the new mapping requires the rebuilt course to drop its nested
	// exercise entries.
	index := filepath.Join(root, "demo", "index.yaml")
	writeFile(t, index, `name: Demo
exercises: [quiz1]
config_files:
  quiz1: conf_b
`)
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(index, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	ex, _, err = s.Exercise("demo", "quiz1", "en")
	if err != nil {
		t.Fatalf("Exercise() after index change error = %v", err)
	}
	if ex.Title != "B" {
		t.Errorf("Title = %q, want %q after the course index remapped the exercise", ex.Title, "B")
	}
}

func TestExercise_CachedWhileUnchanged(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nexercises: [quiz1]\n")
	file := filepath.Join(root, "demo", "quiz1.yaml")
	writeFile(t, file, quizYAML)
	s := New(root, "en")

	first, _, err := s.Exercise("demo", "quiz1", "en")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	second, _, err := s.Exercise("demo", "quiz1", "en")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	if first != second {
		t.Error("expected the cached exercise instance while the file is unchanged")
	}
}

func TestExercise_IncludeConflict(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nexercises: [quiz1]\n")
	writeFile(t, filepath.Join(root, "demo", "common.yaml"), "view_type: shared\n")
	writeFile(t, filepath.Join(root, "demo", "quiz1.yaml"), `title: Quiz
view_type: exercise
include:
  - file: common
`)
	s := New(root, "en")

	_, _, err := s.Exercise("demo", "quiz1", "en")
	var conflict *domain.IncludeConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Exercise() error = %v, want IncludeConflictError", err)
	}
	if conflict.Key != "view_type" {
		t.Errorf("conflict.Key = %q, want %q", conflict.Key, "view_type")
	}
}

func TestExercise_IncludeForce(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nexercises: [quiz1]\n")
	writeFile(t, filepath.Join(root, "demo", "common.yaml"), "view_type: shared\nextra: 1\n")
	writeFile(t, filepath.Join(root, "demo", "quiz1.yaml"), `title: Quiz
view_type: exercise
include:
  - file: common
    force: true
`)
	s := New(root, "en")

	ex, _, err := s.Exercise("demo", "quiz1", "en")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	if ex.ViewType != "shared" {
		t.Errorf("ViewType = %q, want forced include value %q", ex.ViewType, "shared")
	}
}

func TestExercise_IncludeInvalidatesCache(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nexercises: [quiz1]\n")
	include := filepath.Join(root, "demo", "common.yaml")
	writeFile(t, include, "extra_title: One\n")
	writeFile(t, filepath.Join(root, "demo", "quiz1.yaml"), `title: Quiz
view_type: exercise
include:
  - file: common
`)
	s := New(root, "en")

	if _, _, err := s.Exercise("demo", "quiz1", "en"); err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}

	writeFile(t, include, "extra_title: Two\n")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(include, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	// The reload is observable through the cached instance changing.
	first, _, _ := s.Exercise("demo", "quiz1", "en")
	second, _, _ := s.Exercise("demo", "quiz1", "en")
	if first != second {
		t.Error("reload did not settle into a fresh cached instance")
	}
}

func TestRegisterLoader(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nexercise_loader: custom\nexercises: [gen1]\n")
	s := New(root, "en")
	s.RegisterLoader("custom", func(course *domain.Course, exerciseKey, dir string) (*RawExercise, error) {
		return &RawExercise{
			File:    filepath.Join(dir, exerciseKey+".synthetic"),
			ModTime: time.Now(),
			Doc: Document{
				"title":     "Generated " + exerciseKey,
				"view_type": "exercise",
			},
		}, nil
	})

	ex, _, err := s.Exercise("demo", "gen1", "en")
	if err != nil {
		t.Fatalf("Exercise() error = %v", err)
	}
	if ex.Title != "Generated gen1" {
		t.Errorf("Title = %q", ex.Title)
	}
}

func TestLoaderFor_Unknown(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nexercise_loader: nope\nexercises: [quiz1]\n")
	s := New(root, "en")

	_, _, err := s.Exercise("demo", "quiz1", "en")
	if !domain.AsConfigError(err) {
		t.Errorf("Exercise() error = %v, want config error for unknown loader", err)
	}
}

func TestExercises(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nexercises: [quiz1, quiz2]\n")
	writeFile(t, filepath.Join(root, "demo", "quiz1.yaml"), quizYAML)
	writeFile(t, filepath.Join(root, "demo", "quiz2.yaml"), "title: Second\nview_type: exercise\n")
	s := New(root, "en")

	exs, err := s.Exercises("demo", "en")
	if err != nil {
		t.Fatalf("Exercises() error = %v", err)
	}
	if len(exs) != 2 || exs[0].Key != "quiz1" || exs[1].Key != "quiz2" {
		t.Errorf("Exercises() keys = %v", []string{exs[0].Key, exs[1].Key})
	}
}

func TestExercises_BrokenListedKeyIsError(t *testing.T) {
	root := newCourse(t, "demo", "name: Demo\nexercises: [quiz1, missing]\n")
	writeFile(t, filepath.Join(root, "demo", "quiz1.yaml"), quizYAML)
	s := New(root, "en")

	if _, err := s.Exercises("demo", "en"); err == nil {
		t.Fatal("Exercises() expected error for a listed key without config")
	}
}
