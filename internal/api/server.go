package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/skillsprint/internal/config"
	"github.com/dgallion1/skillsprint/internal/generate"
	"github.com/dgallion1/skillsprint/internal/metrics"
	"github.com/dgallion1/skillsprint/internal/pipeline"
	"github.com/dgallion1/skillsprint/internal/review"
	"github.com/dgallion1/skillsprint/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the components the API serves.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Structurer   pipeline.Structurer
	Lessons      store.Store
	Generator    generate.Generator
	Sessions     *review.Sessions
	Metrics      *metrics.Metrics

	// Stats and Model are set when an LLM backend generates content.
	Stats *generate.LLMStats
	Model string
}

// Server is the HTTP API server for skillsprint.
type Server struct {
	router chi.Router
	Deps
	log *slog.Logger
	cfg config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		Deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log, s.Metrics))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.Metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		// Collaborator surface: synchronous parse and generation.
		r.Post("/parse", s.handleParse)
		r.Post("/generate-flashcards", s.handleGenerateFlashcards)
		r.Post("/generate-quiz", s.handleGenerateQuiz)

		r.Post("/api/lessons", s.handleUpload)
		r.Post("/api/lessons/batch", s.handleBatchUpload)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/lessons", s.handleListLessons)
		r.Get("/api/lessons/{lessonID}", s.handleGetLesson)
		r.Get("/api/lessons/{lessonID}/export", s.handleExportLesson)

		r.Post("/api/sessions", s.handleOpenSession)
		r.Get("/api/sessions/{sessionID}", s.handleGetSession)
		r.Delete("/api/sessions/{sessionID}", s.handleEndSession)
		r.Post("/api/sessions/{sessionID}/{kind}", s.handleEnsureArtifact)
		r.Get("/api/sessions/{sessionID}/{kind}", s.handleArtifactState)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
