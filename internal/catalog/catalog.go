// Package catalog is the relational store for artists, albums, tracks and
// their audio features. It is the single source of truth for the ranker's
// corpus and owns every entity lifecycle: find-or-create upserts, one
// feature row per track, no in-place updates.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	dbutil "github.com/jmorel/kindred/internal/db"
	"github.com/jmorel/kindred/internal/feature"
	_ "modernc.org/sqlite" // SQLite driver
)

// TrackMeta describes a track as returned by a metadata resolver.
type TrackMeta struct {
	Title      string
	Artist     string
	Album      string
	ExternalID string // natural dedup key when non-empty
	PreviewURL string
}

// TrackFeatures pairs a track id with its stored feature vector.
type TrackFeatures struct {
	TrackID int64
	Vector  feature.Vector
}

// Catalog provides database operations for the track catalog.
type Catalog struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*refLock
}

// Open opens (creating if needed) the catalog database at the given path.
func Open(path string) (*Catalog, error) {
	if !strings.Contains(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY under concurrent ingestion and keeps :memory:
	// databases from being split across pool connections.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{db: db, locks: make(map[string]*refLock)}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// UpsertArtist returns the id of the artist with the given name, creating it
// on first reference. Lookup is an exact, case-sensitive match on the raw
// string; existing rows are never updated.
func (c *Catalog) UpsertArtist(name string) (int64, error) {
	return upsertArtist(c.db, name)
}

// UpsertAlbum returns the id of the album with the given name under the
// given artist, creating it on first reference.
func (c *Catalog) UpsertAlbum(name string, artistID int64) (int64, error) {
	return upsertAlbum(c.db, name, artistID)
}

// UpsertTrack creates a track row, or returns the existing one when
// externalID is non-empty and already present (created=false). Tracks
// without an external id cannot be deduplicated and always create a row.
func (c *Catalog) UpsertTrack(name string, artistID, albumID int64, externalID, previewURL string) (int64, bool, error) {
	return upsertTrack(c.db, name, artistID, albumID, externalID, previewURL)
}

// PutFeatures inserts the feature row for a track. At most one call per
// track is allowed; a second insert fails on the primary key.
func (c *Catalog) PutFeatures(trackID int64, v feature.Vector) error {
	return putFeatures(c.db, trackID, v)
}

// TrackByExternalID returns the id of the track with the given external id,
// or found=false when no such track exists.
func (c *Catalog) TrackByExternalID(externalID string) (id int64, found bool, err error) {
	err = c.db.QueryRow(`SELECT id FROM tracks WHERE external_id = ?`, externalID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Features returns the stored vector for a track, or nil when absent.
func (c *Catalog) Features(trackID int64) (*feature.Vector, error) {
	var v feature.Vector
	err := c.db.QueryRow(`
		SELECT tempo, energy, danceability, valence
		FROM track_features
		WHERE track_id = ?
	`, trackID).Scan(&v.Tempo, &v.Energy, &v.Danceability, &v.Valence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// AllFeaturesExcept returns the feature vectors of every track other than
// the given one. Row order is arbitrary; the ranker imposes its own.
func (c *Catalog) AllFeaturesExcept(trackID int64) ([]TrackFeatures, error) {
	rows, err := c.db.Query(`
		SELECT track_id, tempo, energy, danceability, valence
		FROM track_features
		WHERE track_id != ?
	`, trackID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var corpus []TrackFeatures
	for rows.Next() {
		var tf TrackFeatures
		if err := rows.Scan(&tf.TrackID, &tf.Vector.Tempo, &tf.Vector.Energy,
			&tf.Vector.Danceability, &tf.Vector.Valence); err != nil {
			return nil, err
		}
		corpus = append(corpus, tf)
	}
	return corpus, rows.Err()
}

// TrackDisplay returns the track title and artist name for presentation.
func (c *Catalog) TrackDisplay(trackID int64) (title, artist string, err error) {
	err = c.db.QueryRow(`
		SELECT t.name, a.name
		FROM tracks t
		JOIN artists a ON a.id = t.artist_id
		WHERE t.id = ?
	`, trackID).Scan(&title, &artist)
	return title, artist, err
}

func (c *Catalog) TrackCount() (int, error) {
	var count int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&count)
	return count, err
}

func (c *Catalog) ArtistCount() (int, error) {
	var count int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM artists`).Scan(&count)
	return count, err
}

// AddTrack stores a track and its features in a single transaction: either
// the artist, album, track and feature rows all become visible together or
// none do. When the external id is already cataloged it returns the existing
// track id with created=false and writes nothing. Concurrent calls for the
// same external id are serialized so the check-then-insert cannot race.
func (c *Catalog) AddTrack(meta TrackMeta, v feature.Vector) (id int64, created bool, err error) {
	if meta.ExternalID != "" {
		unlock := c.lockExternalID(meta.ExternalID)
		defer unlock()
	}

	err = dbutil.WithTx(c.db, func(tx *sql.Tx) error {
		if meta.ExternalID != "" {
			dupErr := tx.QueryRow(`SELECT id FROM tracks WHERE external_id = ?`, meta.ExternalID).Scan(&id)
			if dupErr == nil {
				created = false
				return nil
			}
			if !errors.Is(dupErr, sql.ErrNoRows) {
				return dupErr
			}
		}

		if err := v.Validate(); err != nil {
			return err
		}

		artistID, err := upsertArtist(tx, meta.Artist)
		if err != nil {
			return err
		}
		albumID, err := upsertAlbum(tx, meta.Album, artistID)
		if err != nil {
			return err
		}
		id, _, err = upsertTrack(tx, meta.Title, artistID, albumID, meta.ExternalID, meta.PreviewURL)
		if err != nil {
			return err
		}
		created = true
		return putFeatures(tx, id, v)
	})
	if err != nil {
		return 0, false, err
	}
	return id, created, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx so the upsert helpers
// can run standalone or inside AddTrack's transaction.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Exec(query string, args ...any) (sql.Result, error)
}

func upsertArtist(q querier, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("artist name must not be empty")
	}

	var id int64
	err := q.QueryRow(`SELECT id FROM artists WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	res, err := q.Exec(`INSERT INTO artists (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func upsertAlbum(q querier, name string, artistID int64) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("album name must not be empty")
	}

	var id int64
	err := q.QueryRow(`SELECT id FROM albums WHERE name = ? AND artist_id = ?`, name, artistID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	res, err := q.Exec(`INSERT INTO albums (name, artist_id) VALUES (?, ?)`, name, artistID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func upsertTrack(q querier, name string, artistID, albumID int64, externalID, previewURL string) (int64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("track name must not be empty")
	}

	if externalID != "" {
		var id int64
		err := q.QueryRow(`SELECT id FROM tracks WHERE external_id = ?`, externalID).Scan(&id)
		if err == nil {
			return id, false, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, false, err
		}
	}

	res, err := q.Exec(`
		INSERT INTO tracks (name, artist_id, album_id, external_id, preview_url, added_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, name, artistID, albumID, dbutil.NullString(externalID), dbutil.NullString(previewURL), time.Now().Unix())
	if err != nil {
		return 0, false, err
	}
	id, err := res.LastInsertId()
	return id, true, err
}

func putFeatures(q querier, trackID int64, v feature.Vector) error {
	if err := v.Validate(); err != nil {
		return err
	}
	_, err := q.Exec(`
		INSERT INTO track_features (track_id, tempo, energy, danceability, valence)
		VALUES (?, ?, ?, ?, ?)
	`, trackID, v.Tempo, v.Energy, v.Danceability, v.Valence)
	return err
}

// refLock is a mutex with a reference count so per-key locks can be
// reclaimed once the last holder releases them.
type refLock struct {
	sync.Mutex
	refs int
}

func (c *Catalog) lockExternalID(key string) (unlock func()) {
	c.mu.Lock()
	l, ok := c.locks[key]
	if !ok {
		l = &refLock{}
		c.locks[key] = l
	}
	l.refs++
	c.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}
