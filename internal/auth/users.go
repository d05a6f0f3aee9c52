// Package auth manages local accounts, session tokens and the
// credential file.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/pbkdf2"

	"github.com/murexstreams/murex/internal/errors"
)

const (
	pbkdf2Iterations = 4096
	pbkdf2KeyLen     = 32
	saltLen          = 16

	minPasswordLen = 8
)

// User is a local account. Hash and Salt never leave the process.
type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Hash      []byte    `db:"pass_hash" json:"-"`
	Salt      []byte    `db:"pass_salt" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

var userSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		username   TEXT NOT NULL UNIQUE,
		pass_hash  BYTEA NOT NULL,
		pass_salt  BYTEA NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// Store keeps accounts in the catalog database.
type Store struct {
	db *sqlx.DB
}

// NewStore ensures the users schema and returns the store.
func NewStore(db *sqlx.DB) (*Store, error) {
	for _, stmt := range userSchema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("bootstrapping users schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Create registers a new account. The username is case-insensitive
// and must be unique.
func (s *Store) Create(ctx context.Context, username, password string) (User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return User{}, fmt.Errorf("username must not be empty")
	}
	if len(password) < minPasswordLen {
		return User{}, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	if _, err := s.ByUsername(ctx, username); err == nil {
		return User{}, errors.ErrUserExists
	}

	hash, salt, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generating user id: %w", err)
	}

	user := User{
		ID:        id.String(),
		Username:  username,
		Hash:      hash,
		Salt:      salt,
		CreatedAt: time.Now().UTC(),
	}
	query := s.db.Rebind(`INSERT INTO users (id, username, pass_hash, pass_salt, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Username, user.Hash, user.Salt, user.CreatedAt); err != nil {
		return User{}, fmt.Errorf("creating user %q: %w", username, err)
	}
	return user, nil
}

// Authenticate checks a username and password pair. Unknown users and
// wrong passwords fail the same way.
func (s *Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	user, err := s.ByUsername(ctx, username)
	if err != nil {
		return User{}, errors.ErrBadCredentials
	}
	if !verifyPassword(password, user.Salt, user.Hash) {
		return User{}, errors.ErrBadCredentials
	}
	return user, nil
}

// ByUsername fetches an account by its username.
func (s *Store) ByUsername(ctx context.Context, username string) (User, error) {
	var user User
	query := s.db.Rebind(`SELECT * FROM users WHERE username = ?`)
	if err := s.db.GetContext(ctx, &user, query, username); err != nil {
		if err == sql.ErrNoRows {
			return User{}, errors.ErrBadCredentials
		}
		return User{}, fmt.Errorf("fetching user %q: %w", username, err)
	}
	return user, nil
}

// ByID fetches an account by its id.
func (s *Store) ByID(ctx context.Context, id string) (User, error) {
	var user User
	query := s.db.Rebind(`SELECT * FROM users WHERE id = ?`)
	if err := s.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return User{}, errors.ErrNotAuthenticated
		}
		return User{}, fmt.Errorf("fetching user %s: %w", id, err)
	}
	return user, nil
}

func hashPassword(password string) (hash, salt []byte, err error) {
	salt = make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, fmt.Errorf("generating salt: %w", err)
	}
	hash = pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return hash, salt, nil
}

func verifyPassword(password string, salt, want []byte) bool {
	got := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}
