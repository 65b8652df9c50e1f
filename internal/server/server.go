package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claude/mapty/internal/coordinator"
	"github.com/claude/mapty/internal/mapview"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	app    *coordinator.Coordinator
	canvas *mapview.Canvas
	log    *slog.Logger
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(app *coordinator.Coordinator, canvas *mapview.Canvas, log *slog.Logger) *Server {
	s := &Server{
		app:    app,
		canvas: canvas,
		log:    log,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/state", s.handleState)

		r.Get("/map", s.handleMap)
		r.Post("/map/click", s.handleMapClick)

		r.Post("/form/type", s.handleFormType)
		r.Post("/form/cancel", s.handleFormCancel)

		r.Get("/workouts", s.handleListWorkouts)
		r.Post("/workouts", s.handleSubmitWorkout)
		r.Get("/workouts/list.html", s.handleListHTML)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Post("/workouts/{id}/select", s.handleSelectWorkout)

		r.Post("/reset", s.handleReset)
	})
}

// SetMCP mounts the MCP streamable HTTP endpoint at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
	s.router.Handle("/mcp/*", h)
}
