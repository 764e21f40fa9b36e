package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/cmassist/internal/chunker"
	"github.com/hyperjump/cmassist/internal/config"
	"github.com/hyperjump/cmassist/internal/embedding"
	"github.com/hyperjump/cmassist/internal/knowledge"
	"github.com/hyperjump/cmassist/internal/loader"
	"github.com/hyperjump/cmassist/internal/vector"
)

// Components holds the wired knowledge base.
type Components struct {
	Embedder  embedding.Embedder
	Index     *vector.Index
	Knowledge *knowledge.Service
}

// Close releases the index and the embedding backend.
func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	emb, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding backend: %w", err)
	}
	c := &Components{Embedder: emb}

	opts := []vector.Option{vector.WithLogger(logger)}
	if cfg.Embedding.TimeoutSeconds > 0 {
		opts = append(opts, vector.WithEmbedTimeout(time.Duration(cfg.Embedding.TimeoutSeconds)*time.Second))
	}
	ix, err := vector.Open(ctx, cfg.Storage.IndexPath, emb, opts...)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}
	c.Index = ix

	split, err := chunker.New(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap())
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Knowledge = knowledge.New(
		loader.New(loader.WithLogger(logger)),
		split,
		ix,
		knowledge.WithLogger(logger),
		knowledge.WithTopK(cfg.Retrieval.TopK),
		knowledge.WithThreshold(cfg.Retrieval.Threshold()),
		knowledge.WithLedger(ix.Store()),
	)
	return c, nil
}
