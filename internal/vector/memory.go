package vector

import (
	"sort"

	"github.com/hyperjump/cmassist/internal/models"
	"github.com/hyperjump/cmassist/pkg/utils"
)

type entry struct {
	rec  models.EmbeddingRecord
	norm float64
}

// memoryIndex is the brute-force search side of Index: every persisted record
// with its precomputed L2 norm. It is not safe for concurrent use; Index guards it.
type memoryIndex struct {
	entries []entry
}

func (m *memoryIndex) add(records ...models.EmbeddingRecord) {
	for _, r := range records {
		m.entries = append(m.entries, entry{rec: r, norm: utils.Norm(r.Vector)})
	}
}

func (m *memoryIndex) len() int {
	return len(m.entries)
}

// search returns the k entries closest to query by cosine distance, ascending,
// among those keep accepts. Ties keep insertion order.
func (m *memoryIndex) search(query []float32, k int, keep models.MetadataFilter) []models.SimilarityResult {
	qnorm := utils.Norm(query)
	if k <= 0 || qnorm == 0 || len(m.entries) == 0 {
		return []models.SimilarityResult{}
	}
	type scored struct {
		idx      int
		distance float64
	}
	scores := make([]scored, 0, len(m.entries))
	for i, e := range m.entries {
		if e.norm == 0 || len(e.rec.Vector) != len(query) {
			continue
		}
		if keep != nil && !keep(e.rec.Metadata) {
			continue
		}
		cos := utils.ClampUnit(utils.Dot(query, e.rec.Vector) / (qnorm * e.norm))
		scores = append(scores, scored{idx: i, distance: 1 - cos})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].distance < scores[j].distance })
	if k > len(scores) {
		k = len(scores)
	}
	out := make([]models.SimilarityResult, k)
	for i := 0; i < k; i++ {
		rec := m.entries[scores[i].idx].rec
		out[i] = models.SimilarityResult{
			Chunk:      rec.Chunk(),
			Distance:   scores[i].distance,
			Similarity: Similarity(scores[i].distance),
		}
	}
	return out
}
