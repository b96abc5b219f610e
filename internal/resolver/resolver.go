// Package resolver looks up song metadata by name against an external music
// catalog.
package resolver

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no catalog entry matches the song name.
var ErrNotFound = errors.New("no matching track found")

// TrackInfo is the metadata a resolver returns for a song.
type TrackInfo struct {
	Title      string
	Artist     string
	Album      string
	ExternalID string // catalog-scoped identifier, dedup key downstream
	PreviewURL string // optional 30-second preview, empty when unavailable
}

// Resolver resolves a song name to catalog metadata.
type Resolver interface {
	Resolve(ctx context.Context, songName string) (*TrackInfo, error)
}
