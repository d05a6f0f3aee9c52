package kv

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS murex_kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// SQL is a Store backed by the catalog database. The upsert works on
// both sqlite and postgres.
type SQL struct {
	db *sqlx.DB
}

// NewSQL creates the backing table if needed and returns the store.
func NewSQL(db *sqlx.DB) (*SQL, error) {
	if _, err := db.Exec(sqlSchema); err != nil {
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}
	return &SQL{db: db}, nil
}

func (s *SQL) Get(key string) (string, bool, error) {
	var value string
	err := s.db.Get(&value, s.db.Rebind("SELECT value FROM murex_kv WHERE key = ?"), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQL) Set(key, value string) error {
	q := s.db.Rebind(`INSERT INTO murex_kv (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`)
	if _, err := s.db.Exec(q, key, value); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (s *SQL) Remove(key string) error {
	if _, err := s.db.Exec(s.db.Rebind("DELETE FROM murex_kv WHERE key = ?"), key); err != nil {
		return fmt.Errorf("kv remove %q: %w", key, err)
	}
	return nil
}

func (s *SQL) Clear() error {
	if _, err := s.db.Exec("DELETE FROM murex_kv"); err != nil {
		return fmt.Errorf("kv clear: %w", err)
	}
	return nil
}

var _ Store = (*SQL)(nil)
