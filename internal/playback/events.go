package playback

import (
	"sync"
	"time"

	"github.com/murexstreams/murex/internal/core"
)

// StateChange is emitted when the transport state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when the current track changes.
type TrackChange struct {
	Previous *core.Track
	Current  *core.Track
	Index    int
}

// QueueChange is emitted when the queue contents change.
type QueueChange struct {
	Tracks []core.Track
	Index  int
}

// ModeChange is emitted when repeat or shuffle mode changes.
type ModeChange struct {
	RepeatMode core.RepeatMode
	Shuffle    bool
}

// PositionChange is emitted on seeks and engine status ticks.
type PositionChange struct {
	Position time.Duration
	Duration time.Duration
}

// Subscription delivers playback events. Channels are buffered;
// events are dropped rather than blocking the coordinator when a
// subscriber falls behind.
type Subscription struct {
	StateChanged    chan StateChange
	TrackChanged    chan TrackChange
	QueueChanged    chan QueueChange
	ModeChanged     chan ModeChange
	PositionChanged chan PositionChange
	// Completed receives every track that plays to its natural end.
	Completed chan core.Track
	Errors    chan error
	Done      chan struct{}

	once   sync.Once
	cancel func(*Subscription)
}

const eventBuffer = 16

func newSubscription(cancel func(*Subscription)) *Subscription {
	return &Subscription{
		StateChanged:    make(chan StateChange, eventBuffer),
		TrackChanged:    make(chan TrackChange, eventBuffer),
		QueueChanged:    make(chan QueueChange, eventBuffer),
		ModeChanged:     make(chan ModeChange, eventBuffer),
		PositionChanged: make(chan PositionChange, eventBuffer),
		Completed:       make(chan core.Track, eventBuffer),
		Errors:          make(chan error, eventBuffer),
		Done:            make(chan struct{}),
		cancel:          cancel,
	}
}

// Cancel detaches the subscription. Done is closed exactly once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel(s)
		}
		close(s.Done)
	})
}
