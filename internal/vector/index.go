// Package vector provides the persistent vector index that owns every
// embedding record. Records live in SQLite and are mirrored in memory for
// brute-force cosine search.
package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/embedding"
	"github.com/hyperjump/cmassist/internal/models"
	"github.com/hyperjump/cmassist/internal/storage"
	"github.com/hyperjump/cmassist/pkg/utils"
)

// DBFile is the database file name inside the index directory.
const DBFile = "index.db"

const defaultEmbedTimeout = 2 * time.Minute

// Index maps chunk IDs to (vector, text, metadata) records and answers
// k-nearest-neighbour queries by cosine distance.
//
// Add embeds outside the lock, then commits the whole batch in one SQLite
// transaction and appends it to memory under the write lock. Searches never
// observe a partially written batch.
type Index struct {
	dir          string
	store        storage.Store
	embedder     embedding.Embedder
	logger       *zap.Logger
	embedTimeout time.Duration

	mu         sync.RWMutex
	mem        memoryIndex
	dimensions int
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the index logger.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// WithEmbedTimeout bounds each embedding call made by Add and Search.
func WithEmbedTimeout(d time.Duration) Option {
	return func(ix *Index) {
		if d > 0 {
			ix.embedTimeout = d
		}
	}
}

// Open opens the index stored in dir, creating an empty one when dir does not exist.
func Open(ctx context.Context, dir string, embedder embedding.Embedder, opts ...Option) (*Index, error) {
	if dir == "" {
		return nil, models.NewError(models.KindInvalidInput, "open index", errors.New("index path is empty"))
	}
	store, err := storage.NewSQLiteStore(filepath.Join(dir, DBFile))
	if err != nil {
		return nil, models.NewPathError(models.KindIndexIO, "open index", dir, err)
	}
	ix, err := New(ctx, store, embedder, opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	ix.dir = dir
	return ix, nil
}

// New loads every record from store. It fails when the store was built with a
// different embedding model or dimension.
func New(ctx context.Context, store storage.Store, embedder embedding.Embedder, opts ...Option) (*Index, error) {
	ix := &Index{
		store:        store,
		embedder:     embedder,
		logger:       zap.NewNop(),
		embedTimeout: defaultEmbedTimeout,
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.logger == nil {
		ix.logger = zap.NewNop()
	}
	if err := ix.load(ctx); err != nil {
		return nil, err
	}
	return ix, nil
}

func (ix *Index) load(ctx context.Context) error {
	model, ok, err := ix.store.GetMeta(ctx, storage.MetaModel)
	if err != nil {
		return models.NewError(models.KindIndexIO, "load index", err)
	}
	switch {
	case !ok:
		if err := ix.store.SetMeta(ctx, storage.MetaModel, ix.embedder.Model()); err != nil {
			return models.NewError(models.KindIndexIO, "load index", err)
		}
	case model != ix.embedder.Model():
		return models.NewError(models.KindIndexIO, "load index",
			fmt.Errorf("index was built with model %q, embedder is %q", model, ix.embedder.Model()))
	}

	if v, ok, err := ix.store.GetMeta(ctx, storage.MetaDimensions); err != nil {
		return models.NewError(models.KindIndexIO, "load index", err)
	} else if ok {
		if ix.dimensions, err = strconv.Atoi(v); err != nil {
			return models.NewError(models.KindIndexIO, "load index", fmt.Errorf("bad dimensions %q: %w", v, err))
		}
	}
	if d := ix.embedder.Dimensions(); d > 0 && ix.dimensions > 0 && d != ix.dimensions {
		return models.NewError(models.KindIndexIO, "load index",
			fmt.Errorf("index has %d dimensions, embedder produces %d", ix.dimensions, d))
	}

	records, err := ix.store.LoadRecords(ctx)
	if err != nil {
		return models.NewError(models.KindIndexIO, "load index", err)
	}
	for _, r := range records {
		if len(r.Vector) != ix.dimensions {
			return models.NewError(models.KindIndexIO, "load index",
				fmt.Errorf("record %s has %d dimensions, index has %d", r.ID, len(r.Vector), ix.dimensions))
		}
	}
	ix.mem.add(records...)
	ix.logger.Info("index loaded",
		zap.Int("records", len(records)),
		zap.Int("dimensions", ix.dimensions),
		zap.String("model", ix.embedder.Model()))
	return nil
}

// Add embeds and stores chunks in order. A chunk whose text is blank, or whose
// embedding fails or is unusable, is skipped and logged. Add returns the number
// stored; the error is non-nil when the batch could not be persisted, or when
// every chunk failed to embed.
func (ix *Index) Add(ctx context.Context, chunks []models.Chunk) (int, error) {
	pending := make([]models.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			ix.logger.Debug("skipping empty chunk", zap.String("source", c.Source()))
			continue
		}
		pending = append(pending, c)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	vectors, embedErr := ix.embedChunks(ctx, pending)

	ix.mu.Lock()
	defer ix.mu.Unlock()

	dims := ix.dimensions
	now := time.Now()
	records := make([]models.EmbeddingRecord, 0, len(pending))
	for i, c := range pending {
		v := vectors[i]
		if v == nil {
			continue
		}
		if dims == 0 {
			dims = len(v)
		}
		if err := checkVector(v, dims); err != nil {
			ix.logger.Warn("skipping chunk with unusable embedding",
				zap.String("source", c.Source()), zap.Int("chunk", c.Index), zap.Error(err))
			continue
		}
		records = append(records, models.EmbeddingRecord{
			ID:        c.ID,
			Vector:    v,
			Text:      c.Text,
			Metadata:  models.CopyMetadata(c.Metadata),
			CreatedAt: now,
		})
	}
	if len(records) == 0 {
		if embedErr != nil {
			return 0, embedErr
		}
		return 0, models.NewError(models.KindEmbeddingBackend, "add", errors.New("no usable embeddings"))
	}

	var meta map[string]string
	if ix.dimensions == 0 {
		meta = map[string]string{storage.MetaDimensions: strconv.Itoa(dims)}
	}
	if err := ix.store.InsertRecordsWithMeta(ctx, records, meta); err != nil {
		return 0, models.NewError(models.KindIndexIO, "add", err)
	}
	ix.dimensions = dims
	ix.mem.add(records...)
	return len(records), nil
}

// embedChunks embeds all texts in one batch call, falling back to one call per
// chunk when the batch fails so a single bad chunk only loses itself. Failed
// slots are nil; the returned error is the last embedding failure.
func (ix *Index) embedChunks(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	bctx, cancel := context.WithTimeout(ctx, ix.embedTimeout)
	vectors, err := ix.embedder.EmbedBatch(bctx, texts)
	cancel()
	if err == nil && len(vectors) == len(texts) {
		return vectors, nil
	}
	if err == nil {
		err = fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	if ctx.Err() != nil {
		return make([][]float32, len(chunks)), classifyEmbedErr("add", ctx.Err())
	}
	ix.logger.Warn("batch embedding failed, embedding chunks one by one",
		zap.Int("chunks", len(chunks)), zap.Error(err))

	var lastErr error
	vectors = make([][]float32, len(chunks))
	for i, c := range chunks {
		cctx, cancel := context.WithTimeout(ctx, ix.embedTimeout)
		v, err := ix.embedder.Embed(cctx, c.Text)
		cancel()
		if err != nil {
			lastErr = classifyEmbedErr("add", err)
			ix.logger.Warn("skipping chunk, embedding failed",
				zap.String("source", c.Source()), zap.Int("chunk", c.Index), zap.Error(err))
			continue
		}
		vectors[i] = v
	}
	return vectors, lastErr
}

// Search embeds query and returns the k nearest records by ascending cosine
// distance, or all of them when the index holds fewer than k.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]models.SimilarityResult, error) {
	return ix.SearchFiltered(ctx, query, k, nil)
}

// SearchFiltered is Search over the records keep accepts; rejected records
// never take one of the k slots. A nil keep accepts everything.
func (ix *Index) SearchFiltered(ctx context.Context, query string, k int, keep models.MetadataFilter) ([]models.SimilarityResult, error) {
	if k <= 0 || ix.Count() == 0 {
		return []models.SimilarityResult{}, nil
	}

	qctx, cancel := context.WithTimeout(ctx, ix.embedTimeout)
	q, err := ix.embedder.Embed(qctx, query)
	cancel()
	if err != nil {
		return nil, classifyEmbedErr("search", err)
	}
	if !utils.IsFinite(q) {
		return nil, models.NewError(models.KindEmbeddingBackend, "search", errors.New("query embedding is not finite"))
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if len(q) != ix.dimensions {
		return nil, models.NewError(models.KindEmbeddingBackend, "search",
			fmt.Errorf("query has %d dimensions, index has %d", len(q), ix.dimensions))
	}
	return ix.mem.search(q, k, keep), nil
}

// Count returns the number of stored records (chunks, not source files).
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.mem.len()
}

// Dimensions returns the vector dimension, or 0 before the first record is stored.
func (ix *Index) Dimensions() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimensions
}

// Model returns the embedding model the index is bound to.
func (ix *Index) Model() string {
	return ix.embedder.Model()
}

// Path returns the index directory ("" for indexes built with New).
func (ix *Index) Path() string {
	return ix.dir
}

// Store returns the underlying store, which also holds the source ledger.
func (ix *Index) Store() storage.Store {
	return ix.store
}

// Close closes the store. The embedder belongs to the caller.
func (ix *Index) Close() error {
	if err := ix.store.Close(); err != nil {
		return models.NewError(models.KindIndexIO, "close index", err)
	}
	return nil
}

// Exists reports whether an index database is present in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, DBFile))
	return err == nil
}

func checkVector(v []float32, dims int) error {
	if len(v) != dims {
		return fmt.Errorf("embedding has %d dimensions, index has %d", len(v), dims)
	}
	if !utils.IsFinite(v) {
		return errors.New("embedding contains NaN or Inf")
	}
	if utils.Norm(v) == 0 {
		return errors.New("embedding has zero magnitude")
	}
	return nil
}

// classifyEmbedErr keeps already classified errors and marks everything else,
// timeouts included, as a retryable embedding backend failure.
func classifyEmbedErr(op string, err error) error {
	if models.KindOf(err) != "" {
		return err
	}
	return models.NewError(models.KindEmbeddingBackend, op, err)
}
