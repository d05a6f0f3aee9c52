package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/errors"
)

// Analysis holds the artifacts computed for a track at import time.
type Analysis struct {
	Waveform []byte  `db:"waveform"`
	Energy   float64 `db:"energy"`
}

// TrackRepository is the catalog's track persistence contract.
type TrackRepository interface {
	Insert(ctx context.Context, track core.Track, analysis Analysis) error
	ByID(ctx context.Context, id string) (core.Track, error)
	ByFingerprint(ctx context.Context, fingerprint string) (core.Track, error)
	ByArtist(ctx context.Context, artistID string) ([]core.Track, error)
	ByIDs(ctx context.Context, ids []string) ([]core.Track, error)
	List(ctx context.Context) ([]core.Track, error)
	Search(ctx context.Context, query string) ([]core.Track, error)
	Analysis(ctx context.Context, id string) (Analysis, error)
	Delete(ctx context.Context, id string) error
}

type trackRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Artist      string    `db:"artist"`
	ArtistID    string    `db:"artist_id"`
	Album       string    `db:"album"`
	Genre       string    `db:"genre"`
	DurationMS  int64     `db:"duration_ms"`
	AudioPath   string    `db:"audio_path"`
	Fingerprint string    `db:"fingerprint"`
	AddedAt     time.Time `db:"added_at"`
}

func (r trackRow) toCore() core.Track {
	return core.Track{
		ID:          r.ID,
		Title:       r.Title,
		Artist:      r.Artist,
		ArtistID:    r.ArtistID,
		Album:       r.Album,
		Genre:       r.Genre,
		Duration:    time.Duration(r.DurationMS) * time.Millisecond,
		AudioPath:   r.AudioPath,
		Fingerprint: r.Fingerprint,
		AddedAt:     r.AddedAt,
	}
}

func rowsToTracks(rows []trackRow) []core.Track {
	tracks := make([]core.Track, len(rows))
	for i, r := range rows {
		tracks[i] = r.toCore()
	}
	return tracks
}

const trackColumns = `t.id, t.title, a.name AS artist, t.artist_id, t.album,
	t.genre, t.duration_ms, t.audio_path, t.fingerprint, t.added_at`

type sqlTracks struct {
	db *sqlx.DB
}

var _ TrackRepository = (*sqlTracks)(nil)

func (s *sqlTracks) Insert(ctx context.Context, track core.Track, analysis Analysis) error {
	query := s.db.Rebind(`INSERT INTO tracks
		(id, title, artist_id, album, genre, duration_ms, audio_path, fingerprint, waveform, energy, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		track.ID, track.Title, track.ArtistID, track.Album, track.Genre,
		track.Duration.Milliseconds(), track.AudioPath, track.Fingerprint,
		analysis.Waveform, analysis.Energy, track.AddedAt)
	if err != nil {
		return fmt.Errorf("inserting track %q: %w", track.Title, err)
	}
	return nil
}

func (s *sqlTracks) ByID(ctx context.Context, id string) (core.Track, error) {
	query := s.db.Rebind(`SELECT ` + trackColumns + `
		FROM tracks t JOIN artists a ON a.id = t.artist_id
		WHERE t.id = ?`)
	var row trackRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return core.Track{}, errors.ErrTrackNotFound
		}
		return core.Track{}, fmt.Errorf("fetching track %s: %w", id, err)
	}
	return row.toCore(), nil
}

func (s *sqlTracks) ByFingerprint(ctx context.Context, fingerprint string) (core.Track, error) {
	query := s.db.Rebind(`SELECT ` + trackColumns + `
		FROM tracks t JOIN artists a ON a.id = t.artist_id
		WHERE t.fingerprint = ?`)
	var row trackRow
	if err := s.db.GetContext(ctx, &row, query, fingerprint); err != nil {
		if err == sql.ErrNoRows {
			return core.Track{}, errors.ErrTrackNotFound
		}
		return core.Track{}, fmt.Errorf("fetching track by fingerprint: %w", err)
	}
	return row.toCore(), nil
}

func (s *sqlTracks) ByArtist(ctx context.Context, artistID string) ([]core.Track, error) {
	query := s.db.Rebind(`SELECT ` + trackColumns + `
		FROM tracks t JOIN artists a ON a.id = t.artist_id
		WHERE t.artist_id = ?
		ORDER BY t.added_at DESC`)
	var rows []trackRow
	if err := s.db.SelectContext(ctx, &rows, query, artistID); err != nil {
		return nil, fmt.Errorf("listing tracks for artist %s: %w", artistID, err)
	}
	return rowsToTracks(rows), nil
}

func (s *sqlTracks) ByIDs(ctx context.Context, ids []string) ([]core.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+trackColumns+`
		FROM tracks t JOIN artists a ON a.id = t.artist_id
		WHERE t.id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("building track id query: %w", err)
	}
	query = s.db.Rebind(query)
	var rows []trackRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("fetching tracks by id: %w", err)
	}

	// Preserve the caller's ordering.
	byID := make(map[string]core.Track, len(rows))
	for _, r := range rows {
		byID[r.ID] = r.toCore()
	}
	tracks := make([]core.Track, 0, len(rows))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

func (s *sqlTracks) List(ctx context.Context) ([]core.Track, error) {
	query := `SELECT ` + trackColumns + `
		FROM tracks t JOIN artists a ON a.id = t.artist_id
		ORDER BY a.name, t.album, t.title`
	var rows []trackRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	return rowsToTracks(rows), nil
}

func (s *sqlTracks) Search(ctx context.Context, q string) ([]core.Track, error) {
	pattern := "%" + q + "%"
	query := s.db.Rebind(`SELECT ` + trackColumns + `
		FROM tracks t JOIN artists a ON a.id = t.artist_id
		WHERE t.title LIKE ? OR a.name LIKE ? OR t.album LIKE ?
		ORDER BY a.name, t.title`)
	var rows []trackRow
	if err := s.db.SelectContext(ctx, &rows, query, pattern, pattern, pattern); err != nil {
		return nil, fmt.Errorf("searching tracks for %q: %w", q, err)
	}
	return rowsToTracks(rows), nil
}

func (s *sqlTracks) Analysis(ctx context.Context, id string) (Analysis, error) {
	query := s.db.Rebind(`SELECT waveform, energy FROM tracks WHERE id = ?`)
	var a Analysis
	if err := s.db.GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return Analysis{}, errors.ErrTrackNotFound
		}
		return Analysis{}, fmt.Errorf("fetching analysis for track %s: %w", id, err)
	}
	return a, nil
}

func (s *sqlTracks) Delete(ctx context.Context, id string) error {
	query := s.db.Rebind(`DELETE FROM tracks WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting track %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrTrackNotFound
	}
	return nil
}
