// Package feature defines the numeric descriptor used to compare tracks.
package feature

import "fmt"

// TempoScale is the divisor applied to tempo before comparison so BPM values
// land in the same order of magnitude as the unit-range components.
const TempoScale = 200

// Vector describes a track's acoustic character. Energy, danceability and
// valence are nominally in [0,1] but values outside that range are accepted
// and compared as-is; the underlying features are proxies, not guarantees.
type Vector struct {
	Tempo        float64 // beats per minute, > 0
	Energy       float64
	Danceability float64
	Valence      float64
}

// Components returns the vector in the fixed order used for comparison:
// [energy, valence, tempo/TempoScale, danceability]. The order is part of
// the ranking contract; changing it changes every similarity score.
func (v Vector) Components() []float64 {
	return []float64{v.Energy, v.Valence, v.Tempo / TempoScale, v.Danceability}
}

// Validate checks the one hard constraint on a vector: a positive tempo.
// The unit-range components are deliberately not clamped or rejected.
func (v Vector) Validate() error {
	if v.Tempo <= 0 {
		return fmt.Errorf("tempo must be positive, got %g", v.Tempo)
	}
	return nil
}

func (v Vector) String() string {
	return fmt.Sprintf("tempo=%.1f energy=%.3f danceability=%.3f valence=%.3f",
		v.Tempo, v.Energy, v.Danceability, v.Valence)
}
