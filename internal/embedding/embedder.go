// Package embedding turns text into fixed-dimension vectors. Backends are an
// OpenAI-compatible HTTP API, a local ONNX model, and a hashing bag-of-words
// model for offline use; any of them can sit behind an LRU cache.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations are safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions is 0 when the backend reports it only after the first call.
	Dimensions() int
	// Model identifies the embedding model; an index built with one model
	// cannot be searched with another.
	Model() string
	Close() error
}

// embedEach implements EmbedBatch on top of a single-text embed function.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}
