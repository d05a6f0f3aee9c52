package library

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/murexstreams/murex/internal/core"
)

// Play is one completed listen of a track.
type Play struct {
	ID       string    `db:"id"`
	TrackID  string    `db:"track_id"`
	UserID   string    `db:"user_id"`
	PlayedAt time.Time `db:"played_at"`
}

// TrackPlays pairs a track with its play count.
type TrackPlays struct {
	Track core.Track
	Plays int64
}

// PlayRepository records and aggregates listening history.
type PlayRepository interface {
	Record(ctx context.Context, trackID, userID string) (Play, error)
	CountForTrack(ctx context.Context, trackID string) (int64, error)
	CountsForTracks(ctx context.Context, trackIDs []string) (map[string]int64, error)
	Recent(ctx context.Context, limit int) ([]core.HistoryEntry, error)
	TopTracks(ctx context.Context, since time.Time, limit int) ([]TrackPlays, error)
}

type sqlPlays struct {
	db *sqlx.DB
}

var _ PlayRepository = (*sqlPlays)(nil)

func (s *sqlPlays) Record(ctx context.Context, trackID, userID string) (Play, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Play{}, fmt.Errorf("generating play id: %w", err)
	}
	play := Play{
		ID:       id.String(),
		TrackID:  trackID,
		UserID:   userID,
		PlayedAt: time.Now().UTC(),
	}
	query := s.db.Rebind(`INSERT INTO plays (id, track_id, user_id, played_at) VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, play.ID, play.TrackID, play.UserID, play.PlayedAt); err != nil {
		return Play{}, fmt.Errorf("recording play for track %s: %w", trackID, err)
	}
	return play, nil
}

func (s *sqlPlays) CountForTrack(ctx context.Context, trackID string) (int64, error) {
	query := s.db.Rebind(`SELECT COUNT(*) FROM plays WHERE track_id = ?`)
	var n int64
	if err := s.db.GetContext(ctx, &n, query, trackID); err != nil {
		return 0, fmt.Errorf("counting plays for track %s: %w", trackID, err)
	}
	return n, nil
}

func (s *sqlPlays) CountsForTracks(ctx context.Context, trackIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(trackIDs))
	if len(trackIDs) == 0 {
		return counts, nil
	}

	query, args, err := sqlx.In(`SELECT track_id, COUNT(*) AS plays
		FROM plays WHERE track_id IN (?) GROUP BY track_id`, trackIDs)
	if err != nil {
		return nil, fmt.Errorf("building play count query: %w", err)
	}
	query = s.db.Rebind(query)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting plays: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var trackID string
		var plays int64
		if err := rows.Scan(&trackID, &plays); err != nil {
			return nil, fmt.Errorf("scanning play count: %w", err)
		}
		counts[trackID] = plays
	}
	return counts, rows.Err()
}

func (s *sqlPlays) Recent(ctx context.Context, limit int) ([]core.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := s.db.Rebind(`SELECT ` + trackColumns + `, p.played_at AS played_at
		FROM plays p
		JOIN tracks t ON t.id = p.track_id
		JOIN artists a ON a.id = t.artist_id
		ORDER BY p.played_at DESC
		LIMIT ?`)

	type historyRow struct {
		trackRow
		PlayedAt time.Time `db:"played_at"`
	}
	var rows []historyRow
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("fetching recent plays: %w", err)
	}

	history := make([]core.HistoryEntry, len(rows))
	for i, r := range rows {
		history[i] = core.HistoryEntry{Track: r.toCore(), PlayedAt: r.PlayedAt}
	}
	return history, nil
}

func (s *sqlPlays) TopTracks(ctx context.Context, since time.Time, limit int) ([]TrackPlays, error) {
	if limit <= 0 {
		limit = 10
	}
	query := s.db.Rebind(`SELECT track_id, COUNT(*) AS plays
		FROM plays
		WHERE played_at >= ?
		GROUP BY track_id
		ORDER BY plays DESC
		LIMIT ?`)

	rows, err := s.db.QueryxContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("ranking tracks: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	counts := make(map[string]int64)
	for rows.Next() {
		var trackID string
		var plays int64
		if err := rows.Scan(&trackID, &plays); err != nil {
			return nil, fmt.Errorf("scanning track rank: %w", err)
		}
		ids = append(ids, trackID)
		counts[trackID] = plays
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tracks := &sqlTracks{db: s.db}
	ranked, err := tracks.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	top := make([]TrackPlays, len(ranked))
	for i, t := range ranked {
		top[i] = TrackPlays{Track: t, Plays: counts[t.ID]}
	}
	return top, nil
}
