package library

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/murexstreams/murex/internal/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS artists (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL UNIQUE,
		bio       TEXT NOT NULL DEFAULT '',
		joined_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tracks (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		artist_id   TEXT NOT NULL REFERENCES artists(id),
		album       TEXT NOT NULL DEFAULT '',
		genre       TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL,
		audio_path  TEXT NOT NULL,
		fingerprint TEXT NOT NULL UNIQUE,
		waveform    BYTEA,
		energy      REAL NOT NULL DEFAULT 0,
		added_at    TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS plays (
		id        TEXT PRIMARY KEY,
		track_id  TEXT NOT NULL REFERENCES tracks(id),
		user_id   TEXT NOT NULL DEFAULT '',
		played_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tracks_artist ON tracks(artist_id)`,
	`CREATE INDEX IF NOT EXISTS idx_plays_track ON plays(track_id)`,
	`CREATE INDEX IF NOT EXISTS idx_plays_played_at ON plays(played_at)`,
}

// Open connects to the catalog database named by a URL and ensures the
// schema exists. Supported schemes are sqlite:// (path follows, the
// default) and postgres:// (passed to the driver whole).
func Open(dbURL string) (*sqlx.DB, error) {
	var db *sqlx.DB
	var err error

	switch {
	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(dbURL, "sqlite://")
		db, err = sqlx.Connect("sqlite3", path)
		if err == nil && strings.Contains(path, ":memory:") {
			// Each pooled connection would otherwise get its own
			// empty in-memory database.
			db.SetMaxOpenConns(1)
		}
	case strings.HasPrefix(dbURL, "postgres://"):
		db, err = sqlx.Connect("postgres", dbURL)
	default:
		return nil, fmt.Errorf("database url %q: %w", dbURL, errors.ErrInvalidConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("bootstrapping schema: %w", err)
		}
	}
	return db, nil
}

// Store bundles the catalog repositories over one database handle.
type Store struct {
	db *sqlx.DB

	Tracks  TrackRepository
	Artists ArtistRepository
	Plays   PlayRepository
}

// NewStore wraps an open database in the repository set.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:      db,
		Tracks:  &sqlTracks{db: db},
		Artists: &sqlArtists{db: db},
		Plays:   &sqlPlays{db: db},
	}
}

// OpenStore opens the database at dbURL and returns its Store.
func OpenStore(dbURL string) (*Store, error) {
	db, err := Open(dbURL)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
