// Package similarity ranks catalog tracks by acoustic closeness to a query
// vector using cosine similarity over the fixed feature components.
package similarity

import (
	"math"
	"sort"

	"github.com/jmorel/kindred/internal/catalog"
	"github.com/jmorel/kindred/internal/feature"
)

// Match pairs a corpus track with its similarity score against the query.
type Match struct {
	TrackID int64
	Vector  feature.Vector
	Score   float64
}

// Cosine computes the cosine similarity between two vectors.
// Returns a value in [-1, 1] where 1 means identical direction.
// When either vector has zero magnitude the result is 0, not an error,
// so all-zero feature rows compare quietly instead of dividing by zero.
func Cosine(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// Rank scores every corpus track against the query vector and returns the
// matches in descending score order. The scan is O(n) over the corpus with
// no index; exact score ties break by ascending track id so the result does
// not depend on corpus iteration order.
func Rank(query feature.Vector, corpus []catalog.TrackFeatures) []Match {
	q := query.Components()

	matches := make([]Match, 0, len(corpus))
	for _, tf := range corpus {
		matches = append(matches, Match{
			TrackID: tf.TrackID,
			Vector:  tf.Vector,
			Score:   Cosine(q, tf.Vector.Components()),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].TrackID < matches[j].TrackID
	})
	return matches
}

// TopK returns the first k matches. A corpus smaller than k returns all of
// it; there is no padding and no error.
func TopK(matches []Match, k int) []Match {
	if k < 0 {
		k = 0
	}
	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}
