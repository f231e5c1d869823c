// Package httpserver provides the HTTP REST API server for the paper
// enrichment service.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-enrichment-service/internal/database"
	"github.com/helixir/paper-enrichment-service/internal/domain"
	"github.com/helixir/paper-enrichment-service/internal/graph"
	"github.com/helixir/paper-enrichment-service/internal/ingest"
	"github.com/helixir/paper-enrichment-service/internal/observability"
	"github.com/helixir/paper-enrichment-service/internal/repository"
	"github.com/helixir/paper-enrichment-service/internal/searchindex"
	"github.com/helixir/paper-enrichment-service/internal/storage"
)

// Ingester runs an ingestion pass against a bibliographic source.
type Ingester interface {
	Ingest(ctx context.Context, source domain.SourceType, query string, maxResults int) (*ingest.Result, error)
}

// AbstractAnalyzer runs a synchronous analysis over a paper's abstract.
type AbstractAnalyzer interface {
	AnalyzeAbstract(ctx context.Context, paperID uuid.UUID) (*domain.Analysis, error)
}

// JobEnqueuer records and publishes background analysis jobs.
type JobEnqueuer interface {
	EnqueueAnalyzePDF(ctx context.Context, paperID uuid.UUID, storagePath string) (*domain.Job, error)
}

// Repositories bundles the persistence dependencies the server needs.
type Repositories struct {
	Users     repository.UserRepository
	Papers    repository.PaperRepository
	Files     repository.PaperFileRepository
	Analyses  repository.AnalysisRepository
	Jobs      repository.JobRepository
	Grants    repository.GrantRepository
	Proposals repository.ProposalRepository
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MaxUploadBytes caps multipart PDF uploads. Zero means the
	// defaultMaxUploadBytes limit.
	MaxUploadBytes int64
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	repos      Repositories
	ingester   Ingester
	analyzer   AbstractAnalyzer
	enqueuer   JobEnqueuer
	index      searchindex.PaperIndex
	coauthors  graph.CoauthorGraph
	store      storage.ObjectStore
	maxUpload  int64
	db         *database.DB
	metrics    *observability.Metrics
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewServer creates a new HTTP server with all dependencies. The index,
// graph, store, and enqueuer may be nil when the corresponding backend is
// not configured; their endpoints then answer 503.
func NewServer(
	cfg Config,
	repos Repositories,
	ingester Ingester,
	analyzer AbstractAnalyzer,
	enqueuer JobEnqueuer,
	index searchindex.PaperIndex,
	coauthors graph.CoauthorGraph,
	store storage.ObjectStore,
	db *database.DB,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		repos:     repos,
		ingester:  ingester,
		analyzer:  analyzer,
		enqueuer:  enqueuer,
		index:     index,
		coauthors: coauthors,
		store:     store,
		maxUpload: cfg.MaxUploadBytes,
		db:        db,
		metrics:   metrics,
		validate:  validator.New(),
		logger:    logger.With().Str("component", "http-server").Logger(),
	}

	if s.maxUpload <= 0 {
		s.maxUpload = defaultMaxUploadBytes
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", s.createUser)
		r.Get("/users", s.listUsers)
		r.Get("/users/{userID}", s.getUser)

		r.Post("/papers", s.createPaper)
		r.Get("/papers", s.listPapers)
		r.Get("/papers/{paperID}", s.getPaper)
		r.Get("/papers/{paperID}/analyses", s.listPaperAnalyses)

		r.Post("/ingest", s.ingestPapers)
		r.Post("/analyze/{paperID}", s.analyzePaper)
		r.Get("/search", s.searchPapers)
		r.Get("/collaborators", s.suggestCollaborators)

		r.Post("/files/{paperID}/upload-pdf", s.uploadPDF)

		r.Get("/grants", s.listGrants)
		r.Post("/proposals", s.createProposal)

		r.Get("/jobs/{jobID}", s.getJob)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler returns readiness status including database health.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// writeDomainError maps domain error types onto HTTP status codes.
// Duplicate-entity conflicts answer 400 rather than 409, matching the
// service's published API contract.
func writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var notFoundErr *domain.NotFoundError
	var existsErr *domain.AlreadyExistsError

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &existsErr):
		writeError(w, http.StatusBadRequest, existsErr.Error())
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
