package domain

import (
	"fmt"
	"math"
	"sort"
)

// CosineDistance returns 1 - cosine similarity of two equal-length vectors.
// Zero vectors are maximally distant from everything.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// RelevanceFromDistance converts cosine distance to relevance, clamped to [0,1].
func RelevanceFromDistance(distance float64) float64 {
	r := 1 - distance
	switch {
	case math.IsNaN(r):
		return 0
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}

// ValidateBatch checks that the parallel sequences passed to an index add
// all have the same length.
func ValidateBatch(texts []string, embeddings [][]float32, metadatas []map[string]any, ids []string) error {
	n := len(texts)
	if len(embeddings) != n || len(metadatas) != n || len(ids) != n {
		return fmt.Errorf("%w: texts=%d embeddings=%d metadatas=%d ids=%d",
			ErrInvalidInput, n, len(embeddings), len(metadatas), len(ids))
	}
	return nil
}

// TopK sorts results by ascending distance, breaking ties by chunk id,
// and keeps at most k of them.
func TopK(results []RetrievalResult, k int) []RetrievalResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
