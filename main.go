// kindred adds a song to the local catalog and prints the tracks that sound
// most like it.
//
// Usage:
//
//	kindred <song name>
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmorel/kindred/internal/acquire"
	"github.com/jmorel/kindred/internal/catalog"
	"github.com/jmorel/kindred/internal/config"
	"github.com/jmorel/kindred/internal/extract"
	"github.com/jmorel/kindred/internal/ingest"
	"github.com/jmorel/kindred/internal/resolver"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: kindred <song name>")
		os.Exit(2)
	}
	songName := strings.Join(os.Args[1:], " ")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cat, err := catalog.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open catalog at %s: %v", cfg.DatabasePath, err)
	}
	defer cat.Close()

	res, err := buildResolver(cfg)
	if err != nil {
		log.Fatalf("Failed to configure resolver: %v", err)
	}

	acquirer := &loggingAcquirer{next: acquire.New(cfg.CacheDir)}
	pipeline := ingest.New(res, acquirer, extract.New(), cat)
	pipeline.TopK = cfg.TopK

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.TimeoutSecs)*time.Second)
	defer cancel()

	log.Printf("Adding song: %s", songName)
	result, err := pipeline.Run(ctx, songName)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	if result.Created {
		log.Printf("Cataloged %q by %s (track %d)", result.Meta.Title, result.Meta.Artist, result.TrackID)
	} else {
		log.Printf("Already cataloged: %q by %s (track %d)", result.Meta.Title, result.Meta.Artist, result.TrackID)
	}
	log.Printf("Features: %s", result.Features)

	if len(result.Similar) == 0 {
		log.Println("No other tracks in the catalog yet; add more songs to see similarities.")
		return
	}

	log.Printf("Top %d similar tracks:", len(result.Similar))
	for i, n := range result.Similar {
		log.Printf("  %d. %s by %s (%.1f%% similar)", i+1, n.Title, n.Artist, n.Score*100)
		log.Printf("     %s", n.Features)
	}
}

func buildResolver(cfg *config.Config) (resolver.Resolver, error) {
	switch cfg.Resolver {
	case "deezer":
		return resolver.NewDeezerClient(), nil
	case "lastfm":
		if !cfg.HasLastfmConfig() {
			return nil, fmt.Errorf("resolver %q requires lastfm.api_key and lastfm.api_secret", cfg.Resolver)
		}
		return resolver.NewLastfmResolver(cfg.Lastfm.APIKey, cfg.Lastfm.APISecret), nil
	default:
		return nil, fmt.Errorf("unknown resolver %q", cfg.Resolver)
	}
}

// loggingAcquirer reports what was downloaded and how big it was.
type loggingAcquirer struct {
	next acquire.Acquirer
}

func (a *loggingAcquirer) Acquire(ctx context.Context, artist, title, previewURL string) (string, error) {
	path, err := a.next.Acquire(ctx, artist, title, previewURL)
	if err != nil {
		return "", err
	}
	if info, statErr := os.Stat(path); statErr == nil {
		log.Printf("Audio ready: %s (%s)", path, humanize.Bytes(uint64(info.Size())))
	}
	return path, nil
}
