package resolver

import (
	"context"
	"fmt"

	"github.com/shkh/lastfm-go/lastfm"
)

// LastfmResolver resolves songs through the Last.fm API. It needs API
// credentials and returns no preview URL, so acquisition falls back to
// whatever the acquirer can do without one.
type LastfmResolver struct {
	api *lastfm.Api
}

// NewLastfmResolver creates a Last.fm resolver with the given credentials.
func NewLastfmResolver(apiKey, apiSecret string) *LastfmResolver {
	return &LastfmResolver{api: lastfm.New(apiKey, apiSecret)}
}

// Resolve searches Last.fm for the song and fills in the album from
// track.getInfo, since search results do not carry it.
func (r *LastfmResolver) Resolve(ctx context.Context, songName string) (*TrackInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := r.api.Track.Search(lastfm.P{"track": songName, "limit": 1})
	if err != nil {
		return nil, fmt.Errorf("track search: %w", err)
	}
	if len(result.Tracks) == 0 {
		return nil, ErrNotFound
	}

	match := result.Tracks[0]
	info := &TrackInfo{
		Title:      match.Name,
		Artist:     match.Artist,
		ExternalID: match.Mbid,
	}

	// Album is only available from track.getInfo; missing album data is
	// tolerated and filled with a placeholder so catalog invariants hold.
	detail, err := r.api.Track.GetInfo(lastfm.P{"track": match.Name, "artist": match.Artist})
	if err == nil && detail.Album.Title != "" {
		info.Album = detail.Album.Title
	} else {
		info.Album = "Unknown Album"
	}

	if info.ExternalID != "" {
		info.ExternalID = "mbid:" + info.ExternalID
	}
	return info, nil
}
