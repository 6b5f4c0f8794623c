package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voxhire/voxhire/internal/config"
	"github.com/voxhire/voxhire/internal/evaluation"
	"github.com/voxhire/voxhire/internal/interview"
	"github.com/voxhire/voxhire/internal/transcription"
	"github.com/voxhire/voxhire/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(
	interviewService *interview.Service,
	evaluator *evaluation.Evaluator,
	gate *transcription.Gate,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		handler:    NewHandler(interviewService, evaluator, gate, cfg, log),
		middleware: NewMiddleware(log),
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		// Interview session routes
		router.Post("/interview/start", r.handler.StartInterview)
		router.Get("/interview/{id}/question", r.handler.GetQuestion)
		router.Post("/interview/{id}/answer", r.handler.SubmitAnswer)
		router.Get("/interview/{id}/results", r.handler.GetResults)

		// Health check
		router.Get("/health", r.handler.GetHealth)

		// Configuration
		router.Get("/config", r.handler.GetConfig)
	})

	return router
}
