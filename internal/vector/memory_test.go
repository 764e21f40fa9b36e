package vector

import (
	"math"
	"reflect"
	"testing"

	"github.com/hyperjump/cmassist/internal/models"
)

func rec(id string, v ...float32) models.EmbeddingRecord {
	return models.EmbeddingRecord{ID: id, Text: id, Vector: v}
}

func ids(results []models.SimilarityResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Chunk.ID
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMemoryIndex_searchOrdersByDistance(t *testing.T) {
	var m memoryIndex
	m.add(rec("far", 0, 1), rec("near", 1, 0.1), rec("exact", 2, 0))

	got := m.search([]float32{1, 0}, 10, nil)
	if want := []string{"exact", "near", "far"}; !reflect.DeepEqual(ids(got), want) {
		t.Fatalf("order = %v, want %v", ids(got), want)
	}
	if !near(got[0].Distance, 0) || !near(got[0].Similarity, 1) {
		t.Errorf("exact match: distance %v similarity %v", got[0].Distance, got[0].Similarity)
	}
	if !near(got[2].Distance, 1) {
		t.Errorf("orthogonal distance = %v, want 1", got[2].Distance)
	}
}

func TestMemoryIndex_searchCapsAtK(t *testing.T) {
	var m memoryIndex
	m.add(rec("a", 1, 0), rec("b", 1, 1), rec("c", 0, 1))
	if got := m.search([]float32{1, 0}, 2, nil); len(got) != 2 {
		t.Errorf("got %d results, want 2", len(got))
	}
	if m.len() != 3 {
		t.Errorf("len = %d, want 3", m.len())
	}
}

func TestMemoryIndex_tiesKeepInsertionOrder(t *testing.T) {
	var m memoryIndex
	m.add(rec("first", 1, 1), rec("second", 1, 1), rec("third", 1, 1))
	got := m.search([]float32{1, 1}, 3, nil)
	if want := []string{"first", "second", "third"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("order = %v, want %v", ids(got), want)
	}
}

func TestMemoryIndex_filterRunsBeforeK(t *testing.T) {
	var m memoryIndex
	stale := rec("stale", 1, 0)
	stale.Metadata = map[string]string{"state": "old"}
	m.add(stale, rec("fresh", 1, 0.5), rec("other", 0, 1))

	keep := func(md map[string]string) bool { return md["state"] != "old" }
	got := m.search([]float32{1, 0}, 2, keep)
	if want := []string{"fresh", "other"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("filtered = %v, want %v", ids(got), want)
	}
}

func TestMemoryIndex_degenerateInputs(t *testing.T) {
	var m memoryIndex
	if got := m.search([]float32{1, 0}, 3, nil); len(got) != 0 {
		t.Errorf("empty index returned %d results", len(got))
	}

	m.add(rec("a", 1, 0))
	for name, got := range map[string][]models.SimilarityResult{
		"k = 0":              m.search([]float32{1, 0}, 0, nil),
		"zero query":         m.search([]float32{0, 0}, 3, nil),
		"dimension mismatch": m.search([]float32{1, 0, 0}, 3, nil),
	} {
		if got == nil || len(got) != 0 {
			t.Errorf("%s: got %#v, want empty non-nil", name, got)
		}
	}
}

func TestMemoryIndex_oppositeVectors(t *testing.T) {
	var m memoryIndex
	m.add(rec("opposite", -1, 0))
	got := m.search([]float32{1, 0}, 1, nil)
	if len(got) != 1 {
		t.Fatalf("got %d results", len(got))
	}
	if !near(got[0].Distance, 2) || !near(got[0].Similarity, -1) || math.IsNaN(got[0].Similarity) {
		t.Errorf("distance %v similarity %v", got[0].Distance, got[0].Similarity)
	}
}
