package benchmark

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hyperjump/cmassist/internal/chunker"
	"github.com/hyperjump/cmassist/internal/embedding"
	"github.com/hyperjump/cmassist/internal/models"
	"github.com/hyperjump/cmassist/internal/vector"
)

func openIndex(b *testing.B, chunks int) *vector.Index {
	b.Helper()
	ix, err := vector.Open(context.Background(), filepath.Join(b.TempDir(), "index"), embedding.NewHashingEmbedder(384))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = ix.Close() })
	batch := make([]models.Chunk, chunks)
	for i := range batch {
		batch[i] = models.Chunk{
			ID:       fmt.Sprintf("c%d", i),
			Text:     fmt.Sprintf("change initiative %d covers stakeholder group %d and training wave %d", i, i%17, i%5),
			Metadata: map[string]string{models.MetaSource: fmt.Sprintf("doc%d.txt", i%50)},
		}
	}
	if _, err := ix.Add(context.Background(), batch); err != nil {
		b.Fatal(err)
	}
	return ix
}

func BenchmarkIndexSearch(b *testing.B) {
	ix := openIndex(b, 1000)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ix.Search(ctx, "stakeholder training wave", 5)
	}
}

func BenchmarkHashingEmbedder_Embed(b *testing.B) {
	e := embedding.NewHashingEmbedder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}

func BenchmarkChunkerSplit(b *testing.B) {
	c, err := chunker.New(1000, 200)
	if err != nil {
		b.Fatal(err)
	}
	text := ""
	for i := 0; i < 200; i++ {
		text += "Communicate the reason for change early and often. "
	}
	docs := []models.Document{{Text: text, Metadata: map[string]string{models.MetaSource: "bench.txt"}}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.Split(docs)
	}
}
