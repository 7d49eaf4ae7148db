// Package server provides the read-only HTTP API over stored alignments.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/samuelstevens/arxiv-edits-sub000/internal/config"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/metrics"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/pipeline"
	"github.com/samuelstevens/arxiv-edits-sub000/internal/storage"
)

// Server is the HTTP server for the alignment API.
type Server struct {
	pipeline *pipeline.Pipeline
	storage  storage.Storage
	metrics  *metrics.Metrics
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. m may be nil, in which case
// /metrics serves an empty registry.
func NewServer(
	p *pipeline.Pipeline,
	store storage.Storage,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		pipeline: p,
		storage:  store,
		metrics:  m,
		config:   cfg,
		logger:   logger,
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Route("/alignments/{paper}/{v1}/{v2}", func(r chi.Router) {
			r.Get("/", s.handleGetAlignment)
			r.Get("/unaligned", s.handleUnaligned)
			r.Get("/revisions", s.handleRevisions)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Mount("/", s.Router())

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
