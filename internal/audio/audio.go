// Package audio provides the playback engines behind the coordinator.
// An Engine is selected once at construction: "beep" drives the real
// sound device, "clock" is a synthetic playhead that keeps time without
// producing sound. The beep engine also degrades to the clock for a
// single track when its file cannot be decoded, so callers can treat
// every engine as always playable.
package audio

import (
	"fmt"
	"time"

	"github.com/murexstreams/murex/internal/core"
)

// Status is the uniform snapshot every engine reports, real or synthetic.
type Status struct {
	Loaded    bool
	Playing   bool
	Synthetic bool
	Position  time.Duration
	Duration  time.Duration
	Volume    float64
}

// Engine is a playback backend. Implementations must be safe for
// concurrent use, and callbacks must be invoked without holding
// internal locks so handlers can call back into the engine.
type Engine interface {
	// Name identifies the engine for status displays.
	Name() string

	// Initialize prepares the backend. Calling it twice is a no-op.
	Initialize() error

	// Load prepares a track for playback, always releasing the previous
	// handle first. When the file cannot be opened or decoded the
	// engine falls back to a synthetic clock for this track and returns
	// the underlying error; the engine remains usable either way.
	Load(track *core.Track) error

	Play() error
	Pause() error
	Stop() error
	SeekTo(pos time.Duration) error
	SetVolume(v float64) error

	// Status returns a snapshot. Valid in every mode.
	Status() Status

	// Unload releases the current handle and timers. Safe to call when
	// nothing is loaded.
	Unload()

	// Close shuts the engine down for good.
	Close() error

	OnStatus(fn func(Status))
	OnFinished(fn func())
	OnError(fn func(error))
}

// New returns the engine selected by name: "beep", "clock", or "auto"
// which tries the sound device and silently falls back to the clock.
func New(name string, tick time.Duration) (Engine, error) {
	switch name {
	case "clock":
		return NewClock(tick), nil
	case "beep":
		e := NewBeep(tick)
		if err := e.Initialize(); err != nil {
			return nil, err
		}
		return e, nil
	case "", "auto":
		e := NewBeep(tick)
		if err := e.Initialize(); err != nil {
			return NewClock(tick), nil
		}
		return e, nil
	}
	return nil, fmt.Errorf("unknown playback engine %q", name)
}

// clockState tracks a synthetic playhead advancing in wall time.
type clockState struct {
	playing  bool
	pos      time.Duration
	duration time.Duration
	last     time.Time
}

// advance moves the playhead and reports whether the track just
// completed. Completion requires a known duration.
func (c *clockState) advance(now time.Time) (completed bool) {
	if !c.playing {
		return false
	}
	c.pos += now.Sub(c.last)
	c.last = now
	if c.duration > 0 && c.pos >= c.duration {
		c.pos = c.duration
		c.playing = false
		return true
	}
	return false
}

func (c *clockState) start(now time.Time) {
	if c.duration > 0 && c.pos >= c.duration {
		c.pos = 0
	}
	c.playing = true
	c.last = now
}

func (c *clockState) seek(pos time.Duration) {
	if pos < 0 {
		pos = 0
	}
	if c.duration > 0 && pos > c.duration {
		pos = c.duration
	}
	c.pos = pos
	c.last = time.Now()
}

func (c *clockState) reset() {
	c.playing = false
	c.pos = 0
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
