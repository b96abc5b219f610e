// Package acquire fetches raw preview audio for a track into a local cache.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoSource is returned when no audio source is available for the track.
var ErrNoSource = errors.New("no audio source available")

// Acquirer obtains a local audio file for the given track.
// previewURL may be empty; implementations decide whether they can acquire
// audio without one.
type Acquirer interface {
	Acquire(ctx context.Context, artist, title, previewURL string) (path string, err error)
}

// HTTPAcquirer downloads preview audio over HTTP into a cache directory.
// Files are cached as "<artist> - <title>.mp3"; a cached file short-circuits
// the download.
type HTTPAcquirer struct {
	cacheDir   string
	httpClient *http.Client
}

// New creates an HTTPAcquirer caching into dir.
func New(dir string) *HTTPAcquirer {
	return &HTTPAcquirer{
		cacheDir:   dir,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Acquire downloads the preview audio and returns the local file path.
func (a *HTTPAcquirer) Acquire(ctx context.Context, artist, title, previewURL string) (string, error) {
	if previewURL == "" {
		return "", ErrNoSource
	}

	if err := os.MkdirAll(a.cacheDir, 0o755); err != nil {
		return "", err
	}

	dest := filepath.Join(a.cacheDir, cacheFileName(artist, title))
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		return dest, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, previewURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("audio source returned status %d", resp.StatusCode)
	}

	// Download to a temp file first so a failed transfer never leaves a
	// truncated file behind to be picked up as a cache hit.
	tmp, err := os.CreateTemp(a.cacheDir, ".download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("download audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	return dest, nil
}

// cacheFileName builds the "<artist> - <title>.mp3" cache name with path
// separators stripped.
func cacheFileName(artist, title string) string {
	clean := func(s string) string {
		s = strings.ReplaceAll(s, "/", "_")
		return strings.ReplaceAll(s, string(filepath.Separator), "_")
	}
	return fmt.Sprintf("%s - %s.mp3", clean(artist), clean(title))
}
