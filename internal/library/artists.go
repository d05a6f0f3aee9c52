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

// ArtistRepository is the catalog's artist persistence contract.
type ArtistRepository interface {
	Upsert(ctx context.Context, artist core.Artist) error
	ByID(ctx context.Context, id string) (core.Artist, error)
	ByName(ctx context.Context, name string) (core.Artist, error)
	List(ctx context.Context) ([]core.Artist, error)
}

type artistRow struct {
	ID       string    `db:"id"`
	Name     string    `db:"name"`
	Bio      string    `db:"bio"`
	JoinedAt time.Time `db:"joined_at"`
}

func (r artistRow) toCore() core.Artist {
	return core.Artist{ID: r.ID, Name: r.Name, Bio: r.Bio, JoinedAt: r.JoinedAt}
}

type sqlArtists struct {
	db *sqlx.DB
}

var _ ArtistRepository = (*sqlArtists)(nil)

// Upsert inserts the artist or, when the name already exists, refreshes
// the bio. The existing row keeps its id.
func (s *sqlArtists) Upsert(ctx context.Context, artist core.Artist) error {
	query := s.db.Rebind(`INSERT INTO artists (id, name, bio, joined_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET bio = excluded.bio`)
	_, err := s.db.ExecContext(ctx, query, artist.ID, artist.Name, artist.Bio, artist.JoinedAt)
	if err != nil {
		return fmt.Errorf("upserting artist %q: %w", artist.Name, err)
	}
	return nil
}

func (s *sqlArtists) ByID(ctx context.Context, id string) (core.Artist, error) {
	query := s.db.Rebind(`SELECT id, name, bio, joined_at FROM artists WHERE id = ?`)
	var row artistRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return core.Artist{}, errors.ErrArtistNotFound
		}
		return core.Artist{}, fmt.Errorf("fetching artist %s: %w", id, err)
	}
	return row.toCore(), nil
}

func (s *sqlArtists) ByName(ctx context.Context, name string) (core.Artist, error) {
	query := s.db.Rebind(`SELECT id, name, bio, joined_at FROM artists WHERE name = ?`)
	var row artistRow
	if err := s.db.GetContext(ctx, &row, query, name); err != nil {
		if err == sql.ErrNoRows {
			return core.Artist{}, errors.ErrArtistNotFound
		}
		return core.Artist{}, fmt.Errorf("fetching artist %q: %w", name, err)
	}
	return row.toCore(), nil
}

func (s *sqlArtists) List(ctx context.Context) ([]core.Artist, error) {
	var rows []artistRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, bio, joined_at FROM artists ORDER BY name`); err != nil {
		return nil, fmt.Errorf("listing artists: %w", err)
	}
	artists := make([]core.Artist, len(rows))
	for i, r := range rows {
		artists[i] = r.toCore()
	}
	return artists, nil
}
