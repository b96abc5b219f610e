package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	mp3 "github.com/llehouerou/go-mp3"
)

// decodeFile reads an audio file into mono float64 samples in [-1, 1],
// truncated to at most maxSeconds of audio.
func decodeFile(path string, maxSeconds int) (samples []float64, sampleRate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return decodeMP3(f, maxSeconds)
	case ".wav":
		return decodeWAV(f, maxSeconds)
	default:
		return nil, 0, fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
	}
}

// decodeMP3 decodes MP3 to mono samples. The decoder always outputs
// 16-bit little-endian stereo, 4 bytes per frame.
func decodeMP3(r io.Reader, maxSeconds int) ([]float64, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("decode mp3: %w", err)
	}

	rate := dec.SampleRate()
	maxFrames := rate * maxSeconds
	samples := make([]float64, 0, maxFrames)

	buf := make([]byte, 8192)
	for len(samples) < maxFrames {
		n, err := dec.Read(buf)
		for i := 0; i+3 < n; i += 4 {
			left := int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
			right := int16(uint16(buf[i+2]) | uint16(buf[i+3])<<8)
			samples = append(samples, (float64(left)+float64(right))/2/32768)
			if len(samples) >= maxFrames {
				break
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read mp3: %w", err)
		}
	}
	return samples, rate, nil
}

// decodeWAV decodes WAV to mono samples.
func decodeWAV(f *os.File, maxSeconds int) ([]float64, int, error) {
	dec := wav.NewDecoder(f)

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, fmt.Errorf("decode wav: empty audio")
	}

	rate := buf.Format.SampleRate
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int(1) << (bitDepth - 1))

	maxFrames := rate * maxSeconds
	frames := len(buf.Data) / channels
	if frames > maxFrames {
		frames = maxFrames
	}

	samples := make([]float64, frames)
	for i := range frames {
		var sum float64
		for ch := range channels {
			sum += float64(buf.Data[i*channels+ch])
		}
		samples[i] = sum / float64(channels) / scale
	}
	return samples, rate, nil
}
