package auth

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/murexstreams/murex/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestCreateAndAuthenticate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	user, err := store.Create(ctx, "Ada", "correct horse battery")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.Username != "ada" {
		t.Errorf("Username = %q, want lowercased %q", user.Username, "ada")
	}
	if user.ID == "" {
		t.Error("Create() assigned no id")
	}
	if len(user.Hash) == 0 || len(user.Salt) == 0 {
		t.Error("Create() stored empty hash or salt")
	}
	if string(user.Hash) == "correct horse battery" {
		t.Error("password stored in the clear")
	}

	got, err := store.Authenticate(ctx, "ada", "correct horse battery")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Authenticate() id = %q, want %q", got.ID, user.ID)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, "ada", "correct horse battery"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := store.Authenticate(ctx, "ada", "wrong password!")
	if !stderrors.Is(err, errors.ErrBadCredentials) {
		t.Errorf("Authenticate() error = %v, want ErrBadCredentials", err)
	}
}

func TestAuthenticateUnknownUser(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Authenticate(context.Background(), "nobody", "whatever pass")
	if !stderrors.Is(err, errors.ErrBadCredentials) {
		t.Errorf("Authenticate() error = %v, want ErrBadCredentials", err)
	}
}

func TestCreateDuplicateUsername(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, "ada", "correct horse battery"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := store.Create(ctx, "ADA", "another password")
	if !stderrors.Is(err, errors.ErrUserExists) {
		t.Errorf("Create() error = %v, want ErrUserExists", err)
	}
}

func TestCreateValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"empty username", "", "long enough password"},
		{"blank username", "   ", "long enough password"},
		{"short password", "ada", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.username, tt.password); err == nil {
				t.Error("Create() error = nil, want error")
			}
		})
	}
}

func TestPasswordSaltsDiffer(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	u1, err := store.Create(ctx, "ada", "shared password")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	u2, err := store.Create(ctx, "grace", "shared password")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if bytes.Equal(u1.Salt, u2.Salt) {
		t.Error("two accounts share a salt")
	}
	if bytes.Equal(u1.Hash, u2.Hash) {
		t.Error("same password produced the same hash across salts")
	}
}

func TestByID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	user, err := store.Create(ctx, "ada", "correct horse battery")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := store.ByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if got.Username != "ada" {
		t.Errorf("Username = %q, want %q", got.Username, "ada")
	}

	if _, err := store.ByID(ctx, "missing"); !stderrors.Is(err, errors.ErrNotAuthenticated) {
		t.Errorf("ByID(missing) error = %v, want ErrNotAuthenticated", err)
	}
}
