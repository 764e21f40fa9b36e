// Package mcp exposes the knowledge base to AI assistants over the Model
// Context Protocol, on stdio or streamable HTTP.
package mcp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/knowledge"
	"github.com/hyperjump/cmassist/internal/models"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ErrMissingKnowledgeBase is returned when no knowledge base is provided.
var ErrMissingKnowledgeBase = errors.New("mcp: knowledge base is required")

// KnowledgeBase is the part of knowledge.Service the tools need.
type KnowledgeBase interface {
	Retrieve(ctx context.Context, req models.RetrieveRequest) ([]models.SimilarityResult, error)
	IngestDirectory(ctx context.Context, root string, opts ...knowledge.IngestOption) (*models.IngestReport, error)
	IngestDocument(ctx context.Context, path string, metadata map[string]string) models.IngestResult
	ChunkCount() int
}

// SourceLister lists ingested sources. Optional.
type SourceLister interface {
	ListSources(ctx context.Context) ([]models.SourceRecord, error)
}

// Server is the MCP server for the knowledge base.
type Server struct {
	kb      KnowledgeBase
	sources SourceLister
	logger  *zap.Logger
	server  *mcp.Server
}

// NewServer creates an MCP server. sources may be nil.
func NewServer(kb KnowledgeBase, sources SourceLister, logger *zap.Logger) (*Server, error) {
	if kb == nil {
		return nil, ErrMissingKnowledgeBase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		kb:      kb,
		sources: sources,
		logger:  logger,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "cmassist",
			Version: Version,
		}, nil),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves streamable HTTP on addr until ctx is canceled.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background()) //nolint:errcheck
	}()

	s.logger.Info("MCP server listening", zap.String("addr", addr))
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
