package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mlahtinen/gradery/internal/courseconfig"
	"github.com/mlahtinen/gradery/internal/domain"
	"github.com/mlahtinen/gradery/internal/grading"
	"github.com/mlahtinen/gradery/internal/storage"
)

// GradeHandler grades submissions
type GradeHandler struct {
	store  *courseconfig.Store
	engine *grading.Engine
	subs   storage.Store // nil disables persistence
}

// NewGradeHandler creates a new grade handler
func NewGradeHandler(store *courseconfig.Store, engine *grading.Engine, subs storage.Store) *GradeHandler {
	return &GradeHandler{store: store, engine: engine, subs: subs}
}

// GradeRequest is a submission body. Values accept a scalar string or a
// list of strings per field; multi-select fields submit lists. Files map
// field names to opaque stored-file references.
type GradeRequest struct {
	Values map[string]json.RawMessage `json:"values"`
	Files  map[string]string          `json:"files"`
}

// GradeResponse is the grading outcome.
type GradeResponse struct {
	Points       int                   `json:"points"`
	MaxPoints    int                   `json:"max_points"`
	Passed       bool                  `json:"passed"`
	ErrorGroups  []string              `json:"error_groups"`
	ErrorFields  []string              `json:"error_fields"`
	Hints        map[string][]string   `json:"hints"`
	Fields       []domain.FieldResult  `json:"fields"`
	SubmissionID string                `json:"submission_id,omitempty"`
}

// Grade grades one submission against an exercise
func (h *GradeHandler) Grade(w http.ResponseWriter, r *http.Request) {
	courseKey := r.PathValue("course")
	exerciseKey := r.PathValue("exercise")

	ex, course, err := h.store.Exercise(courseKey, exerciseKey, r.URL.Query().Get("lang"))
	if err != nil {
		domainError(w, err)
		return
	}

	var req GradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}
	sub, err := req.submission()
	if err != nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	uid := userID(r)
	ord := ordinal(r)
	result, err := h.engine.Grade(r.Context(), course, ex, sub, uid, ord)
	if err != nil {
		domainError(w, err)
		return
	}

	resp := GradeResponse{
		Points:      result.Points,
		MaxPoints:   result.MaxPoints,
		Passed:      result.Passed(),
		ErrorGroups: result.ErrorGroups,
		ErrorFields: result.ErrorFields,
		Hints:       result.Hints,
		Fields:      result.Fields,
	}

	if h.subs != nil {
		rec := &storage.Record{
			ID:          uuid.New(),
			CourseKey:   courseKey,
			ExerciseKey: exerciseKey,
			UserID:      uid,
			Lang:        ex.Lang,
			Ordinal:     ord,
			Points:      result.Points,
			MaxPoints:   result.MaxPoints,
			ErrorFields: result.ErrorFields,
			ErrorGroups: result.ErrorGroups,
			Hints:       result.Hints,
		}
		if err := h.subs.SaveSubmission(r.Context(), rec); err != nil {
			// The grading outcome is still valid without the stored record.
			slog.Error("failed to store submission",
				"course", courseKey, "exercise", exerciseKey, "error", err)
		} else {
			resp.SubmissionID = rec.ID.String()
		}
	}

	jsonResponse(w, http.StatusOK, resp)
}

// submission converts the request body into the core's submission mapping.
func (r *GradeRequest) submission() (domain.Submission, error) {
	sub := domain.Submission{
		Values: make(map[string][]string, len(r.Values)),
		Files:  r.Files,
	}
	for name, raw := range r.Values {
		var scalar string
		if err := json.Unmarshal(raw, &scalar); err == nil {
			sub.Values[name] = []string{scalar}
			continue
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			sub.Values[name] = list
			continue
		}
		return domain.Submission{}, &valueError{name: name}
	}
	return sub, nil
}

type valueError struct {
	name string
}

func (e *valueError) Error() string {
	return "field " + e.name + ": value must be a string or a list of strings"
}
