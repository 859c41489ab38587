package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mlahtinen/gradery/internal/storage"
)

// SubmissionHandler serves stored grading outcomes
type SubmissionHandler struct {
	subs storage.Store
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(subs storage.Store) *SubmissionHandler {
	return &SubmissionHandler{subs: subs}
}

// Get returns one stored submission by id
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid submission id")
		return
	}
	rec, err := h.subs.GetSubmission(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "NOT_FOUND", "submission not found")
		return
	}
	if err != nil {
		domainError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// List returns stored submissions, newest first, filtered by the course,
// exercise and uid query parameters
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = n
	}
	recs, err := h.subs.ListSubmissions(r.Context(), q.Get("course"), q.Get("exercise"), q.Get("uid"), limit)
	if err != nil {
		domainError(w, err)
		return
	}
	if recs == nil {
		recs = []*storage.Record{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{
		"submissions": recs,
		"total":       len(recs),
	})
}
