package extract

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 8192 // hop grid divides evenly: 16 frames per second

// writeTestWAV writes mono 16-bit PCM samples to a temp WAV file.
func writeTestWAV(t *testing.T, name string, samples []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, testSampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: testSampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	return path
}

// beatTrain synthesizes seconds of audio with short 440 Hz bursts at the
// given BPM.
func beatTrain(seconds int, bpm float64) []int {
	n := seconds * testSampleRate
	samples := make([]int, n)

	beatPeriod := int(float64(testSampleRate) * 60 / bpm)
	burstLen := testSampleRate / 16

	for start := 0; start < n; start += beatPeriod {
		for i := range burstLen {
			if start+i >= n {
				break
			}
			decay := math.Exp(-4 * float64(i) / float64(burstLen))
			v := 0.8 * decay * math.Sin(2*math.Pi*440*float64(i)/testSampleRate)
			samples[start+i] = int(v * 32767)
		}
	}
	return samples
}

func TestExtractBeatTrain(t *testing.T) {
	path := writeTestWAV(t, "beats.wav", beatTrain(8, 120))

	v, err := New().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if v.Tempo < 100 || v.Tempo > 140 {
		t.Errorf("tempo = %.1f BPM, want ~120", v.Tempo)
	}
	if v.Energy <= 0 {
		t.Errorf("energy = %g, want > 0", v.Energy)
	}
	if v.Danceability <= 0 || v.Danceability >= 1 {
		t.Errorf("danceability = %g, want in (0, 1)", v.Danceability)
	}
	if v.Valence <= 0 || v.Valence > 1 {
		t.Errorf("valence = %g, want in (0, 1]", v.Valence)
	}
	if err := v.Validate(); err != nil {
		t.Errorf("extracted vector failed validation: %v", err)
	}
}

func TestExtractSilenceFails(t *testing.T) {
	path := writeTestWAV(t, "silence.wav", make([]int, 4*testSampleRate))

	_, err := New().Extract(context.Background(), path)
	if !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio for silent file, got %v", err)
	}
}

func TestExtractTooShortFails(t *testing.T) {
	path := writeTestWAV(t, "short.wav", make([]int, frameSize/2))

	_, err := New().Extract(context.Background(), path)
	if !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio for short file, got %v", err)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New().Extract(context.Background(), path); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestExtractMissingFile(t *testing.T) {
	if _, err := New().Extract(context.Background(), "/nonexistent/file.mp3"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExtractCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Extract(ctx, "whatever.mp3")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExtractTruncatesToMaxSeconds(t *testing.T) {
	// A 10-second file analyzed with a 2-second cap should behave like a
	// 2-second file, not error or hang.
	path := writeTestWAV(t, "long.wav", beatTrain(10, 120))

	e := &FileExtractor{MaxSeconds: 2}
	v, err := e.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if v.Energy <= 0 {
		t.Errorf("energy = %g, want > 0", v.Energy)
	}
}
