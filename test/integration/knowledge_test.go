// Package integration exercises the wired knowledge base end to end against
// real SQLite storage and the HTTP API.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/cmassist/internal/chunker"
	"github.com/hyperjump/cmassist/internal/config"
	"github.com/hyperjump/cmassist/internal/embedding"
	"github.com/hyperjump/cmassist/internal/knowledge"
	"github.com/hyperjump/cmassist/internal/loader"
	"github.com/hyperjump/cmassist/internal/models"
	"github.com/hyperjump/cmassist/internal/server"
	"github.com/hyperjump/cmassist/internal/vector"
	"github.com/hyperjump/cmassist/internal/watcher"
)

type stack struct {
	dir string
	ix  *vector.Index
	kb  *knowledge.Service
}

func newStack(t *testing.T) *stack {
	t.Helper()
	dir := t.TempDir()
	emb, err := embedding.New(config.EmbeddingConfig{
		Provider:   config.ProviderHashing,
		Dimensions: 512,
		CacheSize:  100,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ix, err := vector.Open(context.Background(), filepath.Join(dir, "index"), emb)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	split, err := chunker.New(300, 30)
	if err != nil {
		t.Fatal(err)
	}
	kb := knowledge.New(loader.New(), split, ix,
		knowledge.WithThreshold(0.1),
		knowledge.WithLedger(ix.Store()),
	)
	return &stack{dir: dir, ix: ix, kb: kb}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func postJSON(t *testing.T, url string, body interface{}, out interface{}) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestIntegration_HTTPIngestAndRetrieve(t *testing.T) {
	s := newStack(t)
	kbDir := filepath.Join(s.dir, "knowledge")
	written, err := knowledge.SeedSamples(kbDir)
	if err != nil {
		t.Fatal(err)
	}

	srv := server.NewServer(s.kb, s.ix, &config.ServerConfig{TimeoutSeconds: 10}, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	var report models.IngestReport
	if code := postJSON(t, ts.URL+"/api/v1/knowledge/ingest", map[string]string{"path": kbDir}, &report); code != http.StatusOK {
		t.Fatalf("ingest status = %d", code)
	}
	if len(report.Files) != len(written) || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	var resp models.RetrieveResponse
	code := postJSON(t, ts.URL+"/api/v1/knowledge/retrieve", map[string]interface{}{
		"query": "Lewin unfreeze change refreeze",
		"top_k": 2,
	}, &resp)
	if code != http.StatusOK {
		t.Fatalf("retrieve status = %d", code)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	if len(resp.Results) > 2 {
		t.Errorf("top_k not honoured: %d results", len(resp.Results))
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Similarity > resp.Results[i-1].Similarity {
			t.Errorf("results not ordered by similarity: %+v", resp.Results)
		}
	}
	if resp.Results[0].Chunk.Metadata[models.MetaCategory] != "frameworks" {
		t.Errorf("top result category = %q", resp.Results[0].Chunk.Metadata[models.MetaCategory])
	}
	if resp.Context == "" || resp.ChunkCount != len(resp.Results) {
		t.Errorf("context=%q chunk_count=%d", resp.Context, resp.ChunkCount)
	}

	health, err := http.Get(ts.URL + "/api/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	defer health.Body.Close()
	var h map[string]interface{}
	if err := json.NewDecoder(health.Body).Decode(&h); err != nil {
		t.Fatal(err)
	}
	if h["status"] != "healthy" || h["chunk_count"].(float64) != float64(s.kb.ChunkCount()) {
		t.Errorf("health = %v", h)
	}
}

func TestIntegration_IndexSurvivesRestart(t *testing.T) {
	s := newStack(t)
	kbDir := filepath.Join(s.dir, "knowledge")
	writeFile(t, filepath.Join(kbDir, "frameworks", "kotter.txt"),
		"Kotter's first step is to create a sense of urgency around the change.")
	if _, err := s.kb.IngestDirectory(context.Background(), kbDir); err != nil {
		t.Fatal(err)
	}
	before := s.ix.Count()
	if err := s.ix.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := vector.Open(context.Background(), filepath.Join(s.dir, "index"), embedding.NewHashingEmbedder(512))
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if reopened.Count() != before {
		t.Fatalf("count after reopen = %d, want %d", reopened.Count(), before)
	}
	results, err := reopened.Search(context.Background(), "sense of urgency", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || filepath.Base(results[0].Chunk.Source()) != "kotter.txt" {
		t.Errorf("unexpected results after reopen: %+v", results)
	}
}

func TestIntegration_WatcherIngestsNewFiles(t *testing.T) {
	s := newStack(t)
	kbDir := filepath.Join(s.dir, "knowledge")

	done := make(chan models.IngestResult, 4)
	w := watcher.New([]string{kbDir}, []string{".md", ".txt"}, func(root, path string) {
		done <- s.kb.IngestFile(context.Background(), root, path, knowledge.ChangedOnly())
	}, watcher.WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	target := filepath.Join(kbDir, "best_practices", "sponsorship.md")
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, target, "# Sponsorship\n\nActive and visible executive sponsorship is the top success factor.")

	select {
	case res := <-done:
		if res.Err != nil {
			t.Fatalf("ingest failed: %v", res.Err)
		}
		if res.Chunks == 0 {
			t.Fatalf("expected chunks from %s", res.Path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the new file")
	}

	results, err := s.kb.Retrieve(context.Background(), models.RetrieveRequest{Query: "executive sponsorship"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].Chunk.Metadata[models.MetaCategory] != "best_practices" {
		t.Errorf("unexpected results: %+v", results)
	}
}
