// Package server provides the HTTP REST API for the citation service.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/chive-archive/citation-service/internal/domain"
	"github.com/chive-archive/citation-service/internal/graphstore"
	"github.com/chive-archive/citation-service/internal/observability"
)

// ExtractionService runs the citation extraction pipeline.
type ExtractionService interface {
	ExtractCitations(ctx context.Context, documentURI string, opts domain.ExtractionOptions) (*domain.ExtractionResult, error)
}

// CitationReader reads stored canonical citations.
type CitationReader interface {
	GetByCitingURI(ctx context.Context, citingURI string) ([]domain.CanonicalCitation, error)
	CountByCitingURI(ctx context.Context, citingURI string) (int64, error)
}

// GraphReader reads the citation graph.
type GraphReader interface {
	References(ctx context.Context, citingURI string) ([]domain.CitationRelationship, error)
	CitedBy(ctx context.Context, citedURI string) ([]domain.CitationRelationship, error)
	CoCitedWith(ctx context.Context, uri string, limit int) ([]graphstore.CoCitation, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	extraction ExtractionService
	citations  CitationReader
	graph      GraphReader
	db         Pinger
	graphDB    Pinger
	metrics    *observability.Metrics
	validate   *validator.Validate
	logger     zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	extraction ExtractionService,
	citations CitationReader,
	graph GraphReader,
	db Pinger,
	graphDB Pinger,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		extraction: extraction,
		citations:  citations,
		graph:      graph,
		db:         db,
		graphDB:    graphDB,
		metrics:    metrics,
		validate:   validator.New(),
		logger:     logger.With().Str("component", "http-server").Logger(),
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

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestContextMiddleware)
	r.Use(s.metricsMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extractions", s.runExtraction)
		r.Get("/documents/citations", s.getCitations)
		r.Get("/graph/references", s.getReferences)
		r.Get("/graph/cited-by", s.getCitedBy)
		r.Get("/graph/co-cited", s.getCoCited)
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
	if err := s.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "unreachable",
			"error":    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "healthy"})
}

// readinessHandler returns readiness status including the graph store.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": "unreachable",
			"error":    err.Error(),
		})
		return
	}
	if err := s.graphDB.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":      "not_ready",
			"database":    "healthy",
			"graph_store": "unreachable",
			"error":       err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ready",
		"database":    "healthy",
		"graph_store": "healthy",
	})
}
