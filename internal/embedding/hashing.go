package embedding

import (
	"context"
	"hash/fnv"

	"github.com/hyperjump/cmassist/pkg/utils"
)

// HashingModel is the model identifier reported by HashingEmbedder.
const HashingModel = "hashing-bow"

// HashingEmbedder maps lower-cased word unigrams and bigrams onto a fixed number
// of signed buckets and L2-normalizes the result. It needs no model files, so it
// serves offline demos and tests; texts sharing vocabulary score high.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder returns a hashing embedder; non-positive dimensions default to 512.
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Embed returns the hashed bag-of-words vector for text. Text without any word
// yields the zero vector.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	words := Tokens(text)
	for i, w := range words {
		e.add(emb, w, 1)
		if i > 0 {
			e.add(emb, words[i-1]+" "+w, 0.5)
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

func (e *HashingEmbedder) add(emb []float32, feature string, weight float32) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum32()
	idx := int(sum % uint32(e.dimensions))
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	emb[idx] += weight
}

// EmbedBatch calls Embed for each text.
func (e *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *HashingEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns HashingModel.
func (e *HashingEmbedder) Model() string {
	return HashingModel
}

// Close is a no-op.
func (e *HashingEmbedder) Close() error {
	return nil
}
