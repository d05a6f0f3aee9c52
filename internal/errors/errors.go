package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for common failure scenarios.
var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrBadCredentials    = errors.New("invalid username or password")
	ErrUserExists        = errors.New("username already taken")
	ErrEmptyQueue        = errors.New("queue is empty")
	ErrNoCurrentTrack    = errors.New("no current track")
	ErrInvalidIndex      = errors.New("queue index out of range")
	ErrTrackNotFound     = errors.New("track not found")
	ErrArtistNotFound    = errors.New("artist not found")
	ErrDuplicateTrack    = errors.New("track already in library")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrAudioUnavailable  = errors.New("audio device unavailable")
	ErrInvalidAmount     = errors.New("invalid investment amount")
	ErrInvestmentMissing = errors.New("investment not found")
	ErrInvestmentSettled = errors.New("investment already settled")
	ErrNoChange          = errors.New("already in the requested state")
	ErrConfigNotFound    = errors.New("config file not found")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrRemoteUnreachable = errors.New("remote instance unreachable")
)

// MurexError wraps an error with a user-friendly suggestion.
type MurexError struct {
	Err        error
	Suggestion string
}

func (e *MurexError) Error() string {
	return e.Err.Error()
}

func (e *MurexError) Unwrap() error {
	return e.Err
}

// WithSuggestion wraps an error with a helpful suggestion.
func WithSuggestion(err error, suggestion string) error {
	return &MurexError{
		Err:        err,
		Suggestion: suggestion,
	}
}

// GetSuggestion returns a suggestion for the given error.
func GetSuggestion(err error) string {
	if err == nil {
		return ""
	}

	// Check if it's already a MurexError with suggestion
	var murexErr *MurexError
	if errors.As(err, &murexErr) && murexErr.Suggestion != "" {
		return murexErr.Suggestion
	}

	errStr := strings.ToLower(err.Error())

	// Authentication errors
	if errors.Is(err, ErrNotAuthenticated) || strings.Contains(errStr, "not authenticated") ||
		strings.Contains(errStr, "invalid token") || strings.Contains(errStr, "token is expired") {
		return "Run 'murex auth login' to sign in"
	}

	if errors.Is(err, ErrBadCredentials) {
		return "Check the username and password, or create an account with 'murex auth signup'"
	}

	if errors.Is(err, ErrUserExists) {
		return "Pick a different username, or log in with 'murex auth login'"
	}

	// Queue errors
	if errors.Is(err, ErrEmptyQueue) || strings.Contains(errStr, "queue is empty") {
		return "Queue tracks first, e.g. 'murex play <query>' or 'murex queue add <query>'"
	}

	if errors.Is(err, ErrNoCurrentTrack) {
		return "Nothing is loaded. Start playback with 'murex play'"
	}

	// Library errors
	if errors.Is(err, ErrTrackNotFound) || strings.Contains(errStr, "track not found") {
		return "Run 'murex library list' to see available tracks"
	}

	if errors.Is(err, ErrUnsupportedFormat) {
		return "Supported formats are mp3, wav, flac and ogg"
	}

	if errors.Is(err, ErrDuplicateTrack) {
		return "This audio file is already in the library (same fingerprint)"
	}

	// Audio device errors
	if errors.Is(err, ErrAudioUnavailable) || strings.Contains(errStr, "audio device") {
		return "No audio device found. Playback continues on the synthetic clock; set playback.engine = \"clock\" to silence this"
	}

	// Market errors
	if errors.Is(err, ErrInvalidAmount) {
		return "Amounts are whole cents and must be at least the configured minimum"
	}

	if errors.Is(err, ErrInvestmentSettled) {
		return "This investment was already committed or reverted"
	}

	// Remote errors
	if errors.Is(err, ErrRemoteUnreachable) || strings.Contains(errStr, "connection refused") {
		return "Start a server with 'murex serve' or check remote.listen in your config"
	}

	// Config errors
	if errors.Is(err, ErrConfigNotFound) || strings.Contains(errStr, "config") {
		return "Run 'murex config init' to create a starter configuration"
	}

	return ""
}

// Format returns a formatted error message with suggestion if available.
func Format(err error) string {
	if err == nil {
		return ""
	}

	suggestion := GetSuggestion(err)
	if suggestion != "" {
		return fmt.Sprintf("Error: %s\n\nSuggestion: %s", err.Error(), suggestion)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}

// PartialResult represents a result that may have partial failures.
type PartialResult[T any] struct {
	Data   T
	Errors []error
}

// HasErrors returns true if there were any errors.
func (p *PartialResult[T]) HasErrors() bool {
	return len(p.Errors) > 0
}

// AddError adds an error to the partial result.
func (p *PartialResult[T]) AddError(err error) {
	if err != nil {
		p.Errors = append(p.Errors, err)
	}
}

// ErrorSummary returns a summary of all errors.
func (p *PartialResult[T]) ErrorSummary() string {
	if len(p.Errors) == 0 {
		return ""
	}
	if len(p.Errors) == 1 {
		return p.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(p.Errors)))
	for i, err := range p.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}
