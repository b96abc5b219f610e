// Package extract derives the acoustic feature vector from raw audio.
//
// The four features are proxies computed from signal statistics: RMS energy
// for intensity, zero-crossing rate for danceability, pitch-class band
// energy for valence, and onset autocorrelation for tempo. They approximate
// the qualities they are named after rather than measure them.
package extract

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jmorel/kindred/internal/feature"
)

const (
	// DefaultMaxSeconds bounds how much audio is analyzed per track.
	DefaultMaxSeconds = 30

	frameSize = 2048
	hopSize   = 512

	// Tempo search band in BPM.
	minBPM = 40
	maxBPM = 220
)

// ErrNoAudio is returned when the file decodes to silence or no samples.
var ErrNoAudio = errors.New("no usable audio in file")

// Extractor produces a feature vector from a local audio file.
type Extractor interface {
	Extract(ctx context.Context, path string) (feature.Vector, error)
}

// FileExtractor decodes MP3 or WAV files and computes the feature vector
// from the first MaxSeconds of audio.
type FileExtractor struct {
	MaxSeconds int
}

// New creates a FileExtractor with the default analysis window.
func New() *FileExtractor {
	return &FileExtractor{MaxSeconds: DefaultMaxSeconds}
}

// Extract analyzes the audio file at path.
func (e *FileExtractor) Extract(ctx context.Context, path string) (feature.Vector, error) {
	if err := ctx.Err(); err != nil {
		return feature.Vector{}, err
	}

	maxSeconds := e.MaxSeconds
	if maxSeconds <= 0 {
		maxSeconds = DefaultMaxSeconds
	}

	samples, rate, err := decodeFile(path, maxSeconds)
	if err != nil {
		return feature.Vector{}, err
	}
	if len(samples) < frameSize {
		return feature.Vector{}, ErrNoAudio
	}

	rms := frameRMS(samples)
	energy := mean(rms)
	if energy == 0 {
		return feature.Vector{}, ErrNoAudio
	}

	v := feature.Vector{
		Tempo:        estimateTempo(rms, rate),
		Energy:       energy,
		Danceability: meanZeroCrossingRate(samples),
		Valence:      chromaMean(samples, rate),
	}
	if err := v.Validate(); err != nil {
		return feature.Vector{}, fmt.Errorf("extracted vector invalid: %w", err)
	}
	return v, nil
}

// frameRMS computes the RMS energy of each analysis frame.
func frameRMS(samples []float64) []float64 {
	var out []float64
	for start := 0; start+frameSize <= len(samples); start += hopSize {
		var sum float64
		for _, s := range samples[start : start+frameSize] {
			sum += s * s
		}
		out = append(out, math.Sqrt(sum/frameSize))
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// meanZeroCrossingRate is the danceability proxy: percussive, rhythmic
// signals cross zero more often.
func meanZeroCrossingRate(samples []float64) float64 {
	var frames, total float64
	for start := 0; start+frameSize <= len(samples); start += hopSize {
		var crossings int
		frame := samples[start : start+frameSize]
		for i := 1; i < len(frame); i++ {
			if (frame[i-1] >= 0) != (frame[i] >= 0) {
				crossings++
			}
		}
		total += float64(crossings) / float64(frameSize)
		frames++
	}
	if frames == 0 {
		return 0
	}
	return total / frames
}

// estimateTempo finds the dominant period of the onset envelope (positive
// first difference of frame energy) by autocorrelation within the BPM band.
func estimateTempo(rms []float64, sampleRate int) float64 {
	onset := make([]float64, len(rms))
	for i := 1; i < len(rms); i++ {
		if d := rms[i] - rms[i-1]; d > 0 {
			onset[i] = d
		}
	}

	// Frames per second of the hop grid.
	frameRate := float64(sampleRate) / hopSize

	minLag := int(math.Ceil(frameRate * 60 / maxBPM))
	maxLag := int(frameRate * 60 / minBPM)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(onset) {
		maxLag = len(onset) - 1
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := lag; i < len(onset); i++ {
			corr += onset[i] * onset[i-lag]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	if bestLag == 0 {
		// No periodicity found (constant or silent envelope); fall back to
		// the band midpoint rather than failing the whole pipeline.
		return 120
	}
	return 60 * frameRate / float64(bestLag)
}

// chromaMean is the valence proxy: mean pitch-class band energy, each frame
// normalized by its strongest bin the way librosa chroma frames are.
func chromaMean(samples []float64, sampleRate int) float64 {
	// Pitch-class reference frequencies, C4 through B4.
	freqs := make([]float64, 12)
	for k := range freqs {
		freqs[k] = 261.626 * math.Pow(2, float64(k)/12)
	}

	var frames, total float64
	for start := 0; start+frameSize <= len(samples); start += hopSize {
		frame := samples[start : start+frameSize]

		var bins [12]float64
		var maxBin float64
		for k, f := range freqs {
			bins[k] = goertzelPower(frame, f, sampleRate)
			if bins[k] > maxBin {
				maxBin = bins[k]
			}
		}
		if maxBin == 0 {
			frames++
			continue
		}

		var frameMean float64
		for _, b := range bins {
			frameMean += b / maxBin
		}
		total += frameMean / 12
		frames++
	}
	if frames == 0 {
		return 0
	}
	return total / frames
}

// goertzelPower computes the normalized spectral power of frame at freq.
func goertzelPower(frame []float64, freq float64, sampleRate int) float64 {
	w := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(w)

	var s0, s1, s2 float64
	for _, x := range frame {
		s0 = x + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	power := s1*s1 + s2*s2 - coeff*s1*s2
	return power / float64(len(frame)*len(frame))
}
