// Package ingest sequences the add-song pipeline: metadata resolution,
// audio acquisition, feature extraction, catalog write and similarity
// ranking. Every stage is fail-fast; a failure short-circuits the run with
// a stage-tagged error and leaves no partial catalog state behind.
package ingest

import (
	"context"
	"errors"

	"github.com/jmorel/kindred/internal/acquire"
	"github.com/jmorel/kindred/internal/catalog"
	"github.com/jmorel/kindred/internal/extract"
	"github.com/jmorel/kindred/internal/feature"
	"github.com/jmorel/kindred/internal/resolver"
	"github.com/jmorel/kindred/internal/similarity"
)

// DefaultTopK is the number of similar tracks reported per run.
const DefaultTopK = 5

// Pipeline wires the external collaborators and the catalog together.
// All dependencies are injected; there is no ambient store handle.
type Pipeline struct {
	resolver  resolver.Resolver
	acquirer  acquire.Acquirer
	extractor extract.Extractor
	catalog   *catalog.Catalog

	// TopK bounds the similar-track list. Zero means DefaultTopK.
	TopK int
}

// New creates a Pipeline.
func New(res resolver.Resolver, acq acquire.Acquirer, ext extract.Extractor, cat *catalog.Catalog) *Pipeline {
	return &Pipeline{resolver: res, acquirer: acq, extractor: ext, catalog: cat}
}

// Neighbor is one entry of the ranked similar-track list.
type Neighbor struct {
	TrackID  int64
	Title    string
	Artist   string
	Score    float64
	Features feature.Vector
}

// Result is the outcome of a successful run.
type Result struct {
	TrackID  int64
	Created  bool // false when the track was already cataloged
	Meta     catalog.TrackMeta
	Features feature.Vector
	Similar  []Neighbor
}

// Run ingests the named song and ranks the catalog against it.
//
// The duplicate check happens immediately after metadata resolution, before
// any audio is downloaded: acquisition and extraction are the expensive
// stages and a known external id makes them unnecessary. Cancellation or
// timeout of ctx surfaces as the failure of whichever stage was running.
func (p *Pipeline) Run(ctx context.Context, songName string) (*Result, error) {
	info, err := p.resolver.Resolve(ctx, songName)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			return nil, stageErr(StageResolve, ErrNotFound, err)
		}
		return nil, &StageError{Stage: StageResolve, Err: err}
	}

	meta := catalog.TrackMeta{
		Title:      info.Title,
		Artist:     info.Artist,
		Album:      info.Album,
		ExternalID: info.ExternalID,
		PreviewURL: info.PreviewURL,
	}

	if meta.ExternalID != "" {
		id, found, err := p.catalog.TrackByExternalID(meta.ExternalID)
		if err != nil {
			return nil, stageErr(StageCatalog, ErrStoreUnavailable, err)
		}
		if found {
			return p.finish(id, false, meta)
		}
	}

	audioPath, err := p.acquirer.Acquire(ctx, info.Artist, info.Title, info.PreviewURL)
	if err != nil {
		return nil, stageErr(StageAcquire, ErrAcquisitionFailed, err)
	}

	vec, err := p.extractor.Extract(ctx, audioPath)
	if err != nil {
		return nil, stageErr(StageExtract, ErrExtractionFailed, err)
	}

	id, created, err := p.catalog.AddTrack(meta, vec)
	if err != nil {
		return nil, stageErr(StageCatalog, ErrStoreUnavailable, err)
	}

	return p.finish(id, created, meta)
}

// finish ranks the corpus against the track's stored vector and assembles
// the result. It is shared by the fresh-ingest and duplicate paths.
func (p *Pipeline) finish(trackID int64, created bool, meta catalog.TrackMeta) (*Result, error) {
	vec, err := p.catalog.Features(trackID)
	if err != nil {
		return nil, stageErr(StageRank, ErrStoreUnavailable, err)
	}
	if vec == nil {
		// AddTrack's atomicity makes this unreachable for tracks it wrote;
		// guard anyway for catalogs populated by other means.
		return nil, &StageError{Stage: StageRank, Err: errors.New("track has no stored features")}
	}

	corpus, err := p.catalog.AllFeaturesExcept(trackID)
	if err != nil {
		return nil, stageErr(StageRank, ErrStoreUnavailable, err)
	}

	k := p.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	top := similarity.TopK(similarity.Rank(*vec, corpus), k)

	similar := make([]Neighbor, 0, len(top))
	for _, m := range top {
		title, artist, err := p.catalog.TrackDisplay(m.TrackID)
		if err != nil {
			return nil, stageErr(StageRank, ErrStoreUnavailable, err)
		}
		similar = append(similar, Neighbor{
			TrackID:  m.TrackID,
			Title:    title,
			Artist:   artist,
			Score:    m.Score,
			Features: m.Vector,
		})
	}

	return &Result{
		TrackID:  trackID,
		Created:  created,
		Meta:     meta,
		Features: *vec,
		Similar:  similar,
	}, nil
}
