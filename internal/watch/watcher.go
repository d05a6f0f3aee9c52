// Package watch turns playback snapshots into a typed event stream.
// It polls any state source, local coordinator or remote client, and
// diffs consecutive snapshots.
package watch

import (
	"context"
	"math"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/murexstreams/murex/internal/core"
)

// EventType represents the type of playback event.
type EventType int

const (
	EventTrackChange EventType = iota
	EventTrackComplete
	EventTrackSkip
	EventPause
	EventResume
	EventVolumeChange
	EventShuffleChange
	EventRepeatChange
	EventQueueChange
)

// Event represents a playback state change.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Previous  *core.PlaybackState
	Current   *core.PlaybackState

	// Queue is set on EventQueueChange.
	Queue *core.Queue
}

// Source supplies the snapshots the watcher polls.
type Source interface {
	PlayerState(ctx context.Context) (*core.PlaybackState, error)
	PlayerQueue(ctx context.Context) (*core.Queue, error)
}

// completeThreshold is the progress share above which a track change
// counts as a natural completion rather than a skip.
const completeThreshold = 0.95

// Watcher polls a source for state changes and emits events.
type Watcher struct {
	source   Source
	interval time.Duration
	events   chan Event
	done     chan struct{}
}

// NewWatcher creates a new state watcher.
func NewWatcher(source Source, interval time.Duration) *Watcher {
	if interval == 0 {
		interval = time.Second
	}
	return &Watcher{
		source:   source,
		interval: interval,
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
	}
}

// Events returns the channel of playback events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

type sample struct {
	state     *core.PlaybackState
	queue     *core.Queue
	queueHash uint64
}

// Start begins polling for state changes. It blocks until the context
// is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.events)

	prev := w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case <-ticker.C:
			curr := w.poll(ctx)
			if curr == nil {
				continue
			}

			for _, e := range diffSamples(prev, curr) {
				select {
				case w.events <- e:
				default:
					// Drop event if channel is full
				}
			}

			prev = curr
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
}

func (w *Watcher) poll(ctx context.Context) *sample {
	state, err := w.source.PlayerState(ctx)
	if err != nil {
		return nil
	}
	queue, err := w.source.PlayerQueue(ctx)
	if err != nil {
		queue = nil
	}
	return &sample{state: state, queue: queue, queueHash: queueIdentity(queue)}
}

// queueIdentity hashes queue membership and order. The current index
// is excluded so ordinary advancement does not look like an edit.
func queueIdentity(q *core.Queue) uint64 {
	if q == nil || len(q.Tracks) == 0 {
		return 0
	}
	ids := make([]string, len(q.Tracks))
	for i, t := range q.Tracks {
		ids[i] = t.ID
	}
	h, err := hashstructure.Hash(ids, hashstructure.FormatV2, nil)
	if err != nil {
		return 0
	}
	return h
}

// diffSamples compares two samples and returns detected events.
func diffSamples(prev, curr *sample) []Event {
	if curr == nil || curr.state == nil {
		return nil
	}

	now := time.Now()
	var events []Event

	// First poll - no previous state
	if prev == nil || prev.state == nil {
		if curr.state.HasTrack() {
			events = append(events, Event{
				Type:      EventTrackChange,
				Timestamp: now,
				Current:   curr.state,
			})
		}
		return events
	}

	ps, cs := prev.state, curr.state

	if trackChanged(ps, cs) {
		eventType := EventTrackChange
		if ps.HasTrack() && wasCompleted(ps) {
			eventType = EventTrackComplete
		} else if ps.HasTrack() {
			eventType = EventTrackSkip
		}
		events = append(events, Event{
			Type:      eventType,
			Timestamp: now,
			Previous:  ps,
			Current:   cs,
		})
	}

	if ps.IsPlaying && !cs.IsPlaying {
		events = append(events, Event{
			Type:      EventPause,
			Timestamp: now,
			Previous:  ps,
			Current:   cs,
		})
	} else if !ps.IsPlaying && cs.IsPlaying {
		events = append(events, Event{
			Type:      EventResume,
			Timestamp: now,
			Previous:  ps,
			Current:   cs,
		})
	}

	if math.Abs(ps.Volume-cs.Volume) > 0.001 {
		events = append(events, Event{
			Type:      EventVolumeChange,
			Timestamp: now,
			Previous:  ps,
			Current:   cs,
		})
	}

	if ps.Shuffle != cs.Shuffle {
		events = append(events, Event{
			Type:      EventShuffleChange,
			Timestamp: now,
			Previous:  ps,
			Current:   cs,
		})
	}

	if ps.Repeat != cs.Repeat {
		events = append(events, Event{
			Type:      EventRepeatChange,
			Timestamp: now,
			Previous:  ps,
			Current:   cs,
		})
	}

	if prev.queueHash != curr.queueHash {
		events = append(events, Event{
			Type:      EventQueueChange,
			Timestamp: now,
			Previous:  ps,
			Current:   cs,
			Queue:     curr.queue,
		})
	}

	return events
}

// trackChanged returns true if the track changed.
func trackChanged(prev, curr *core.PlaybackState) bool {
	if prev.Track == nil && curr.Track == nil {
		return false
	}
	if prev.Track == nil || curr.Track == nil {
		return true
	}
	return prev.Track.ID != curr.Track.ID
}

// wasCompleted returns true if the track likely completed naturally.
func wasCompleted(state *core.PlaybackState) bool {
	if state.Track == nil || state.Duration == 0 {
		return false
	}
	return float64(state.Position) >= float64(state.Duration)*completeThreshold
}
