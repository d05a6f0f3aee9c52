package kv

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// storeUnderTest runs the shared contract checks against any Store.
func storeUnderTest(t *testing.T, s Store) {
	t.Helper()

	// Missing key
	_, ok, err := s.Get("missing")
	if err != nil {
		t.Fatalf("Get(missing) error = %v", err)
	}
	if ok {
		t.Error("Get(missing) ok = true, want false")
	}

	// Set then get
	if err := s.Set("theme.active", "mocha"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := s.Get("theme.active")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok || v != "mocha" {
		t.Errorf("Get() = %q, %v, want %q, true", v, ok, "mocha")
	}

	// Overwrite
	if err := s.Set("theme.active", "latte"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	v, _, _ = s.Get("theme.active")
	if v != "latte" {
		t.Errorf("Get() after overwrite = %q, want %q", v, "latte")
	}

	// Remove
	if err := s.Remove("theme.active"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok, _ := s.Get("theme.active"); ok {
		t.Error("Get() after Remove ok = true, want false")
	}

	// Removing a missing key is not an error
	if err := s.Remove("never-set"); err != nil {
		t.Errorf("Remove(missing) error = %v, want nil", err)
	}

	// Clear
	_ = s.Set("a", "1")
	_ = s.Set("b", "2")
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := s.Get("a"); ok {
		t.Error("Get(a) after Clear ok = true, want false")
	}
	if _, ok, _ := s.Get("b"); ok {
		t.Error("Get(b) after Clear ok = true, want false")
	}
}

func TestMemoryStore(t *testing.T) {
	storeUnderTest(t, NewMemory())
}

func TestSQLStore(t *testing.T) {
	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	defer db.Close()

	s, err := NewSQL(db)
	if err != nil {
		t.Fatalf("NewSQL() error = %v", err)
	}
	storeUnderTest(t, s)
}
