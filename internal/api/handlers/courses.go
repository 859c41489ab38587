package handlers

import (
	"net/http"
	"strconv"

	"github.com/mlahtinen/gradery/internal/courseconfig"
	"github.com/mlahtinen/gradery/internal/domain"
	"github.com/mlahtinen/gradery/internal/fields"
	"github.com/mlahtinen/gradery/internal/grading"
)

// CourseHandler handles course and exercise endpoints
type CourseHandler struct {
	store  *courseconfig.Store
	engine *grading.Engine
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(store *courseconfig.Store, engine *grading.Engine) *CourseHandler {
	return &CourseHandler{store: store, engine: engine}
}

// CourseResponse represents a course in API responses
type CourseResponse struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	DefaultLang string   `json:"default_lang"`
	Languages   []string `json:"languages"`
	Exercises   []string `json:"exercises"`
}

// ExerciseSummary represents an exercise summary in API responses
type ExerciseSummary struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	ViewType  string `json:"view_type"`
	Lang      string `json:"lang"`
	MaxPoints int    `json:"max_points"`
}

// ExerciseDetail is one rendered exercise form: the field layout the
// frontend shows, with randomized subsets already drawn for the requesting
// user. Correctness markers and model answers are never included.
type ExerciseDetail struct {
	Key       string      `json:"key"`
	Title     string      `json:"title"`
	ViewType  string      `json:"view_type"`
	Lang      string      `json:"lang"`
	Languages []string    `json:"languages"`
	MaxPoints int         `json:"max_points"`
	Groups    []GroupView `json:"groups"`
	Sample    string      `json:"sample,omitempty"`
	Checksum  string      `json:"checksum,omitempty"`
}

// GroupView is one field group of a rendered form.
type GroupView struct {
	Name   string      `json:"name"`
	Title  string      `json:"title,omitempty"`
	Fields []FieldView `json:"fields"`
}

// FieldView is one rendered field.
type FieldView struct {
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	Title    string       `json:"title,omitempty"`
	Required bool         `json:"required,omitempty"`
	Points   int          `json:"points"`
	Options  []OptionView `json:"options,omitempty"`
	Rows     []RowView    `json:"rows,omitempty"`
	Sample   string       `json:"sample,omitempty"`
	Checksum string       `json:"checksum,omitempty"`
}

// OptionView is one selectable option.
type OptionView struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// RowView is one table row.
type RowView struct {
	Name   string `json:"name"`
	Label  string `json:"label,omitempty"`
	Points int    `json:"points"`
}

// List lists all loadable courses
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	courses := h.store.Courses()

	response := make([]CourseResponse, 0, len(courses))
	for _, c := range courses {
		response = append(response, courseResponse(c))
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"courses": response,
		"total":   len(response),
	})
}

// Get returns one course
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	course, err := h.store.Course(r.PathValue("course"))
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, courseResponse(course))
}

// ListExercises lists the course's exercises in course order
func (h *CourseHandler) ListExercises(w http.ResponseWriter, r *http.Request) {
	courseKey := r.PathValue("course")
	exercises, err := h.store.Exercises(courseKey, r.URL.Query().Get("lang"))
	if err != nil {
		domainError(w, err)
		return
	}

	response := make([]ExerciseSummary, 0, len(exercises))
	for _, ex := range exercises {
		response = append(response, ExerciseSummary{
			Key:       ex.Key,
			Title:     ex.Title,
			ViewType:  ex.ViewType,
			Lang:      ex.Lang,
			MaxPoints: ex.MaxPoints(),
		})
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"exercises": response,
		"total":     len(response),
	})
}

// GetExercise renders one exercise form for a user. Randomized subsets are
// drawn with the user id and attempt ordinal from the query, and the sample
// tokens to round-trip with the submission are included.
func (h *CourseHandler) GetExercise(w http.ResponseWriter, r *http.Request) {
	courseKey := r.PathValue("course")
	exerciseKey := r.PathValue("exercise")

	ex, course, err := h.store.Exercise(courseKey, exerciseKey, r.URL.Query().Get("lang"))
	if err != nil {
		domainError(w, err)
		return
	}
	langs, err := h.store.ExerciseLanguages(courseKey, exerciseKey)
	if err != nil {
		domainError(w, err)
		return
	}

	built, desc, err := fields.Build(ex, fields.Request{
		UserID:  userID(r),
		Ordinal: ordinal(r),
	}, h.engine.Secret(ex, course))
	if err != nil {
		domainError(w, err)
		return
	}

	detail := ExerciseDetail{
		Key:       ex.Key,
		Title:     ex.Title,
		ViewType:  ex.ViewType,
		Lang:      ex.Lang,
		Languages: langs,
		Sample:    desc.Token,
		Checksum:  desc.Checksum,
	}
	byGroup := map[string]*GroupView{}
	for _, g := range ex.Groups {
		gv := &GroupView{Name: g.Name, Title: g.Title}
		byGroup[g.Name] = gv
	}
	for _, f := range built {
		detail.MaxPoints += f.MaxPoints()
		byGroup[f.GroupName].Fields = append(byGroup[f.GroupName].Fields, fieldView(f))
	}
	for _, g := range ex.Groups {
		if gv := byGroup[g.Name]; len(gv.Fields) > 0 {
			detail.Groups = append(detail.Groups, *gv)
		}
	}
	jsonResponse(w, http.StatusOK, detail)
}

func fieldView(f *fields.Field) FieldView {
	fv := FieldView{
		Name:     f.Name,
		Type:     string(f.Spec.Kind),
		Title:    f.Spec.Title,
		Required: f.Spec.Required,
		Points:   f.Spec.Points,
		Sample:   f.SampleToken,
		Checksum: f.SampleChecksum,
	}
	for _, opt := range f.Options {
		fv.Options = append(fv.Options, OptionView{
			Name:     opt.Name,
			Label:    opt.Spec.Label,
			Selected: opt.Spec.Selected,
		})
	}
	for i, name := range f.RowNames {
		row := f.Spec.Rows[i]
		fv.Rows = append(fv.Rows, RowView{Name: name, Label: row.Label, Points: row.Points})
	}
	return fv
}

func courseResponse(c *domain.Course) CourseResponse {
	exercises := c.Exercises
	if exercises == nil {
		exercises = []string{}
	}
	return CourseResponse{
		Key:         c.Key,
		Name:        c.Name,
		DefaultLang: c.DefaultLang,
		Languages:   c.Languages,
		Exercises:   exercises,
	}
}

// userID reads the stable per-user identifier randomized subsets are seeded
// with. The frontend passes it through; "1" matches an anonymous preview.
func userID(r *http.Request) string {
	if uid := r.URL.Query().Get("uid"); uid != "" {
		return uid
	}
	return "1"
}

func ordinal(r *http.Request) int {
	if n, err := strconv.Atoi(r.URL.Query().Get("ordinal")); err == nil && n > 0 {
		return n
	}
	return 1
}
