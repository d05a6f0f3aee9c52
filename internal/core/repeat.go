package core

import (
	"fmt"
	"strings"
)

// RepeatMode controls what happens when the end of a track is reached.
type RepeatMode string

const (
	// RepeatNone stops playback after the last track in the queue.
	RepeatNone RepeatMode = "none"
	// RepeatOne restarts the current track when it finishes.
	RepeatOne RepeatMode = "one"
	// RepeatAll wraps from the last track back to the first.
	RepeatAll RepeatMode = "all"
)

// Valid reports whether m is a known repeat mode.
func (m RepeatMode) Valid() bool {
	switch m {
	case RepeatNone, RepeatOne, RepeatAll:
		return true
	}
	return false
}

// Cycle returns the next mode in none -> all -> one -> none order.
func (m RepeatMode) Cycle() RepeatMode {
	switch m {
	case RepeatNone:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatNone
	}
}

// ParseRepeatMode converts user input into a RepeatMode.
func ParseRepeatMode(s string) (RepeatMode, error) {
	m := RepeatMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown repeat mode %q (expected none, one, or all)", s)
	}
	return m, nil
}
