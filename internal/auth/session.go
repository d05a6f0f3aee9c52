package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultSessionFileName is the default name for the session file.
	DefaultSessionFileName = "session.json"
)

// Session is the logged-in state persisted between CLI invocations.
type Session struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the session has expired or will expire
// within the next minute.
func (s *Session) IsExpired() bool {
	return time.Now().Add(60 * time.Second).After(s.ExpiresAt)
}

// SessionStorage handles persisting the session to disk.
type SessionStorage struct {
	path string
}

// NewSessionStorage creates a session storage at the specified path.
// If path is empty, uses the default location
// (~/.config/murex/session.json).
func NewSessionStorage(path string) (*SessionStorage, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		path = filepath.Join(configDir, "murex", DefaultSessionFileName)
	}

	return &SessionStorage{path: path}, nil
}

// Save persists a session to disk.
func (s *SessionStorage) Save(session *Session) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write with restricted permissions (owner only)
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Load reads the session from disk. A missing file means logged out
// and returns nil without error.
func (s *SessionStorage) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	return &session, nil
}

// Delete removes the stored session.
func (s *SessionStorage) Delete() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// Exists returns true if a session file exists.
func (s *SessionStorage) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the path to the session file.
func (s *SessionStorage) Path() string {
	return s.path
}
