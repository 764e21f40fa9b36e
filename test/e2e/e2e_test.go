package e2e

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/cmassist/internal/chunker"
	"github.com/hyperjump/cmassist/internal/embedding"
	"github.com/hyperjump/cmassist/internal/knowledge"
	"github.com/hyperjump/cmassist/internal/loader"
	"github.com/hyperjump/cmassist/internal/models"
	"github.com/hyperjump/cmassist/internal/vector"
)

const e2eTopK = 3

func newService(t *testing.T, dir string) *knowledge.Service {
	t.Helper()
	ctx := context.Background()
	emb := embedding.NewHashingEmbedder(1024)
	ix, err := vector.Open(ctx, filepath.Join(dir, "index"), emb)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	split, err := chunker.New(500, 50)
	if err != nil {
		t.Fatal(err)
	}
	return knowledge.New(loader.New(), split, ix,
		knowledge.WithTopK(e2eTopK),
		knowledge.WithThreshold(0),
		knowledge.WithLedger(ix.Store()),
	)
}

func writeCorpus(t *testing.T, dir string) (string, []Document) {
	t.Helper()
	root := filepath.Join(dir, "knowledge")
	docs := BuildCorpus()
	if err := WriteCorpus(root, docs); err != nil {
		t.Fatal(err)
	}
	return root, docs
}

func TestE2E_EveryFormatIsRetrievable(t *testing.T) {
	dir := t.TempDir()
	root, docs := writeCorpus(t, dir)

	svc := newService(t, dir)
	ctx := context.Background()
	report, err := svc.IngestDirectory(ctx, root)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range report.Files {
		if f.Error != "" {
			t.Errorf("ingest %s: %s", f.Path, f.Error)
		}
	}
	if len(report.Files) != len(docs) || report.Failed != 0 {
		t.Errorf("files %d (want %d), failed %d", len(report.Files), len(docs), report.Failed)
	}
	if svc.ChunkCount() < len(docs) {
		t.Errorf("chunk count %d < %d documents", svc.ChunkCount(), len(docs))
	}

	for _, d := range docs {
		t.Run(d.Name+d.Ext, func(t *testing.T) {
			results, err := svc.Retrieve(ctx, models.RetrieveRequest{Query: d.Phrase})
			if err != nil {
				t.Fatal(err)
			}

			found := false
			for _, r := range results {
				if filepath.Base(r.Chunk.Source()) != d.Name+d.Ext {
					continue
				}
				found = true
				if got := r.Chunk.Metadata[models.MetaCategory]; got != d.Category {
					t.Errorf("category = %q, want %q", got, d.Category)
				}
				if got := r.Chunk.Metadata[models.MetaFilename]; got != d.Name+d.Ext {
					t.Errorf("filename = %q", got)
				}
			}
			if !found {
				t.Errorf("%s not in top %d for %q", d.Name+d.Ext, e2eTopK, d.Phrase)
			}
		})
	}
}

func TestE2E_RetrievedContextNamesSources(t *testing.T) {
	dir := t.TempDir()
	root, _ := writeCorpus(t, dir)

	svc := newService(t, dir)
	ctx := context.Background()
	if _, err := svc.IngestDirectory(ctx, root); err != nil {
		t.Fatal(err)
	}

	chunks := svc.RetrieveRelevant(ctx, "unfreeze change refreeze")
	if len(chunks) == 0 {
		t.Fatal("no chunks retrieved")
	}
	text := knowledge.BuildContext(chunks)
	if !strings.HasPrefix(text, "[Document 1] From ") || !strings.Contains(text, "lewin") {
		t.Errorf("context = %q", text)
	}
}

func TestE2E_ReingestChangedOnlySkipsEverything(t *testing.T) {
	dir := t.TempDir()
	root, docs := writeCorpus(t, dir)

	svc := newService(t, dir)
	ctx := context.Background()
	first, err := svc.IngestDirectory(ctx, root, knowledge.ChangedOnly())
	if err != nil {
		t.Fatal(err)
	}
	count := svc.ChunkCount()
	if first.Chunks != count {
		t.Errorf("report chunks %d, index holds %d", first.Chunks, count)
	}

	second, err := svc.IngestDirectory(ctx, root, knowledge.ChangedOnly())
	if err != nil {
		t.Fatal(err)
	}
	if second.Skipped != len(docs) || svc.ChunkCount() != count {
		t.Errorf("skipped %d of %d, chunk count %d -> %d", second.Skipped, len(docs), count, svc.ChunkCount())
	}
}
