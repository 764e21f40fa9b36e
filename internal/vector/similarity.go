package vector

import "github.com/hyperjump/cmassist/pkg/utils"

// CosineDistance returns 1 - cos(a, b), in [0, 2]. It fails on mismatched
// dimensions or a zero-magnitude vector.
func CosineDistance(a, b []float32) (float64, error) {
	cos, err := utils.CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - cos, nil
}

// Similarity converts a cosine distance back to a similarity score. Scores are
// in [-1, 1]; only non-negative models keep them in [0, 1].
func Similarity(distance float64) float64 {
	return 1 - distance
}
