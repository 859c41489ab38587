// Package handlers implements the HTTP endpoints: course and exercise
// listing, exercise rendering and submission grading.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mlahtinen/gradery/internal/domain"
)

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

// domainError maps core errors onto HTTP statuses: lookups to 404, sample
// integrity failures to 403, configuration errors to 500 with the message
// surfaced so course authors can see what is broken.
func domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrCourseNotFound):
		jsonError(w, http.StatusNotFound, "NOT_FOUND", "course not found")
	case errors.Is(err, domain.ErrExerciseNotFound):
		jsonError(w, http.StatusNotFound, "NOT_FOUND", "exercise not found")
	case domain.IsIntegrityError(err):
		jsonError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case domain.AsConfigError(err):
		slog.Error("configuration error", "error", err)
		jsonError(w, http.StatusInternalServerError, "CONFIG_ERROR", err.Error())
	default:
		slog.Error("internal error", "error", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
	}
}
