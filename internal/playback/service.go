// Package playback implements the playback coordinator: the single
// owner of queue, transport, mode, and player-visibility state. It
// drives an audio.Engine and publishes typed events to subscribers.
package playback

import (
	"time"

	"github.com/murexstreams/murex/internal/core"
)

// State is the coarse transport state.
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// IsActive reports whether a track is loaded, playing or paused.
func (s State) IsActive() bool {
	return s == StatePlaying || s == StatePaused
}

// Service defines the playback coordinator contract.
type Service interface {
	// Playback control
	PlayQueue(tracks []core.Track, startIndex int) error
	Play() error
	Pause() error
	Stop() error
	Toggle() error
	Next() error
	Previous() error
	Seek(delta time.Duration) error
	SeekTo(position time.Duration) error
	SetVolume(v float64) error

	// Queue manipulation
	Add(tracks ...core.Track) error
	Clear() error
	JumpTo(index int) error

	// State queries
	State() core.PlaybackState
	TransportState() State
	Queue() core.Queue
	HasNext() bool
	HasPrevious() bool
	EngineName() string

	// Mode control
	RepeatMode() core.RepeatMode
	SetRepeatMode(mode core.RepeatMode)
	CycleRepeatMode() core.RepeatMode
	Shuffle() bool
	SetShuffle(enabled bool)
	ToggleShuffle() bool

	// Player visibility
	ShowMiniPlayer()
	HideMiniPlayer()
	OpenFullPlayer()
	CloseFullPlayer()

	// Event subscription
	Subscribe() *Subscription

	// Lifecycle
	Close() error
}
