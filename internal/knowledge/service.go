// Package knowledge is the knowledge base service: it ingests files and
// directories into the vector index and serves threshold-filtered retrieval
// for prompt augmentation.
package knowledge

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/config"
	"github.com/hyperjump/cmassist/internal/models"
)

// DocumentLoader turns a file into documents.
type DocumentLoader interface {
	Load(ctx context.Context, path string) ([]models.Document, error)
}

// Splitter chunks documents.
type Splitter interface {
	Split(docs []models.Document) []models.Chunk
}

// Index stores chunks and answers nearest-neighbour queries.
type Index interface {
	Add(ctx context.Context, chunks []models.Chunk) (int, error)
	SearchFiltered(ctx context.Context, query string, k int, keep models.MetadataFilter) ([]models.SimilarityResult, error)
	Count() int
}

// Ledger remembers which files were ingested and in what state.
type Ledger interface {
	GetSource(ctx context.Context, path string) (*models.SourceRecord, error)
	PutSource(ctx context.Context, src models.SourceRecord) error
	ListSources(ctx context.Context) ([]models.SourceRecord, error)
}

// Service orchestrates loading, chunking, indexing and retrieval. It holds no
// copy of ingested data; the index is the single source of truth.
type Service struct {
	loader    DocumentLoader
	splitter  Splitter
	index     Index
	ledger    Ledger
	gens      generations
	logger    *zap.Logger
	topK      int
	threshold float64
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTopK sets how many nearest chunks a retrieval asks the index for.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithThreshold sets the minimum similarity a retrieved chunk must reach.
func WithThreshold(t float64) Option {
	return func(s *Service) { s.threshold = t }
}

// WithLedger enables the ingested-source ledger used to skip unchanged files.
func WithLedger(l Ledger) Option {
	return func(s *Service) { s.ledger = l }
}

// New creates a service over the given components.
func New(loader DocumentLoader, splitter Splitter, index Index, opts ...Option) *Service {
	s := &Service{
		loader:    loader,
		splitter:  splitter,
		index:     index,
		logger:    zap.NewNop(),
		topK:      config.DefaultTopK,
		threshold: config.DefaultSimilarityThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// TopK returns the default number of chunks requested per retrieval.
func (s *Service) TopK() int { return s.topK }

// Threshold returns the default similarity threshold.
func (s *Service) Threshold() float64 { return s.threshold }

// ChunkCount returns the number of records in the index.
func (s *Service) ChunkCount() int {
	return s.index.Count()
}

// DocumentCount is ChunkCount: it counts stored chunks, not distinct source files.
func (s *Service) DocumentCount() int {
	return s.ChunkCount()
}

// Retrieve searches the index for req.Query and keeps the results whose
// similarity is at least the threshold, in rank order. Chunks from an earlier
// ingestion of a file that has since been re-ingested are not returned. TopK
// and Threshold in req override the service defaults.
func (s *Service) Retrieve(ctx context.Context, req models.RetrieveRequest) ([]models.SimilarityResult, error) {
	if err := req.Validate(); err != nil {
		return nil, models.NewError(models.KindInvalidInput, "retrieve", err)
	}
	k := s.topK
	if req.TopK > 0 {
		k = req.TopK
	}
	threshold := s.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	results, err := s.index.SearchFiltered(ctx, req.Query, k, s.currentFilter(ctx))
	if err != nil {
		return nil, err
	}
	kept := make([]models.SimilarityResult, 0, len(results))
	for _, r := range results {
		if r.Similarity >= threshold {
			kept = append(kept, r)
		}
	}
	s.logger.Debug("retrieved",
		zap.String("query", req.Query),
		zap.Int("k", k),
		zap.Float64("threshold", threshold),
		zap.Int("candidates", len(results)),
		zap.Int("kept", len(kept)))
	return kept, nil
}

// currentFilter hides chunks from superseded ingestions of a file. Without a
// ledger nothing is hidden.
func (s *Service) currentFilter(ctx context.Context) models.MetadataFilter {
	if s.ledger == nil {
		return nil
	}
	if err := s.gens.load(ctx, s.ledger); err != nil {
		s.logger.Warn("failed to read source ledger, superseded chunks may be returned", zap.Error(err))
		return nil
	}
	return s.gens.current
}

// RetrieveRelevant returns the chunks relevant to query using the service
// defaults. It never fails: errors are logged and yield an empty list so the
// caller can answer without knowledge base context.
func (s *Service) RetrieveRelevant(ctx context.Context, query string) []models.Chunk {
	results, err := s.Retrieve(ctx, models.RetrieveRequest{Query: query})
	if err != nil {
		s.logger.Warn("retrieval failed, continuing without context",
			zap.String("query", query), zap.Error(err))
		return []models.Chunk{}
	}
	return Chunks(results)
}

// Chunks extracts the chunks from results, keeping order.
func Chunks(results []models.SimilarityResult) []models.Chunk {
	out := make([]models.Chunk, len(results))
	for i, r := range results {
		out[i] = r.Chunk
	}
	return out
}
