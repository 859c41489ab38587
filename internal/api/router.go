// Package api exposes the grader over HTTP: course and exercise listing,
// per-user exercise rendering and submission grading.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mlahtinen/gradery/internal/api/handlers"
	"github.com/mlahtinen/gradery/internal/api/middleware"
	"github.com/mlahtinen/gradery/internal/courseconfig"
	"github.com/mlahtinen/gradery/internal/grading"
	"github.com/mlahtinen/gradery/internal/storage"
)

// App bundles the collaborators the HTTP layer serves.
type App struct {
	Store       *courseconfig.Store
	Engine      *grading.Engine
	Submissions storage.Store // nil disables persistence endpoints
	Debug       bool
}

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux     *http.ServeMux
	courses *handlers.CourseHandler
	grade   *handlers.GradeHandler
	subs    *handlers.SubmissionHandler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(app *App) http.Handler {
	r := &Router{
		mux: http.NewServeMux(),
	}

	// Initialize handlers
	r.courses = handlers.NewCourseHandler(app.Store, app.Engine)
	r.grade = handlers.NewGradeHandler(app.Store, app.Engine, app.Submissions)
	if app.Submissions != nil {
		r.subs = handlers.NewSubmissionHandler(app.Submissions)
	}

	// Register routes
	r.registerRoutes()

	// Build middleware chain
	return r.buildMiddlewareChain(r.mux, app)
}

func (r *Router) registerRoutes() {
	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)

	// Courses and exercises
	r.mux.HandleFunc("GET /api/v1/courses", r.courses.List)
	r.mux.HandleFunc("GET /api/v1/courses/{course}", r.courses.Get)
	r.mux.HandleFunc("GET /api/v1/courses/{course}/exercises", r.courses.ListExercises)
	r.mux.HandleFunc("GET /api/v1/courses/{course}/exercises/{exercise}", r.courses.GetExercise)
	r.mux.HandleFunc("POST /api/v1/courses/{course}/exercises/{exercise}/grade", r.grade.Grade)

	// Stored submissions
	if r.subs != nil {
		r.mux.HandleFunc("GET /api/v1/submissions", r.subs.List)
		r.mux.HandleFunc("GET /api/v1/submissions/{id}", r.subs.Get)
	}
}

func (r *Router) buildMiddlewareChain(handler http.Handler, app *App) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(handler)

	// Apply rate limiting (skip in debug mode for easier development)
	if !app.Debug {
		handler = middleware.RateLimitMiddleware(middleware.DefaultRateLimitConfig())(handler)
	}

	handler = middleware.RequestID(handler)

	return handler
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
