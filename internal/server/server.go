// Package server provides the HTTP API for the knowledge base.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/config"
	"github.com/hyperjump/cmassist/internal/knowledge"
	"github.com/hyperjump/cmassist/internal/models"
)

// KnowledgeBase is the part of knowledge.Service the API needs.
type KnowledgeBase interface {
	Retrieve(ctx context.Context, req models.RetrieveRequest) ([]models.SimilarityResult, error)
	IngestDocument(ctx context.Context, path string, metadata map[string]string) models.IngestResult
	IngestDirectory(ctx context.Context, root string, opts ...knowledge.IngestOption) (*models.IngestReport, error)
	ChunkCount() int
}

// IndexInfo describes the vector index for the status endpoint.
type IndexInfo interface {
	Count() int
	Dimensions() int
	Model() string
	Path() string
}

// Server is the HTTP server for the knowledge base API.
type Server struct {
	kb     KnowledgeBase
	index  IndexInfo
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies. index may be nil,
// in which case the status endpoint reports only the chunk count.
func NewServer(kb KnowledgeBase, index IndexInfo, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		kb:     kb,
		index:  index,
		config: cfg,
		logger: logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	timeout := 60 * time.Second
	if s.config != nil && s.config.TimeoutSeconds > 0 {
		timeout = time.Duration(s.config.TimeoutSeconds) * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))
	if s.config != nil && len(s.config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleKnowledgeHealth)
		r.Get("/status", s.handleStatus)
		r.Post("/knowledge/retrieve", s.handleRetrieve)
		r.Post("/knowledge/ingest", s.handleIngest)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
