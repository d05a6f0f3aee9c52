package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/murexstreams/murex/internal/core"
)

// DefaultTick is the status interval used when none is configured.
const DefaultTick = 200 * time.Millisecond

// Clock is the synthetic playback engine. Positions advance on a
// ticker while playing and the track completes when the playhead
// reaches the duration from track metadata.
type Clock struct {
	mu          sync.Mutex
	tick        time.Duration
	track       *core.Track
	clock       clockState
	volume      float64
	initialized bool
	closed      bool
	stop        chan struct{}

	onStatus   func(Status)
	onFinished func()
	onError    func(error)
}

// NewClock creates a synthetic engine ticking at the given interval.
func NewClock(tick time.Duration) *Clock {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Clock{
		tick:   tick,
		volume: 1.0,
		stop:   make(chan struct{}),
	}
}

func (c *Clock) Name() string { return "clock" }

// Initialize starts the ticker loop. It is idempotent.
func (c *Clock) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("engine is closed")
	}
	if c.initialized {
		return nil
	}
	c.initialized = true
	go c.run()
	return nil
}

func (c *Clock) run() {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			c.onTick(now)
		case <-c.stop:
			return
		}
	}
}

func (c *Clock) onTick(now time.Time) {
	c.mu.Lock()
	completed := c.clock.advance(now)
	status := c.statusLocked()
	finished := c.onFinished
	emit := c.onStatus
	c.mu.Unlock()

	if emit != nil {
		emit(status)
	}
	if completed && finished != nil {
		finished()
	}
}

// Load points the clock at a new track. There is no real handle to
// release, but the playhead and duration reset just the same.
func (c *Clock) Load(track *core.Track) error {
	if err := c.Initialize(); err != nil {
		return err
	}
	c.mu.Lock()
	c.track = track
	c.clock.reset()
	c.clock.duration = 0
	if track != nil {
		c.clock.duration = track.Duration
	}
	c.mu.Unlock()
	c.emit()
	return nil
}

func (c *Clock) Play() error {
	c.mu.Lock()
	if c.track == nil {
		c.mu.Unlock()
		return errors.New("no track loaded")
	}
	c.clock.start(time.Now())
	c.mu.Unlock()
	c.emit()
	return nil
}

func (c *Clock) Pause() error {
	c.mu.Lock()
	c.clock.advance(time.Now())
	c.clock.playing = false
	c.mu.Unlock()
	c.emit()
	return nil
}

func (c *Clock) Stop() error {
	c.mu.Lock()
	c.clock.reset()
	c.mu.Unlock()
	c.emit()
	return nil
}

func (c *Clock) SeekTo(pos time.Duration) error {
	c.mu.Lock()
	if c.track == nil {
		c.mu.Unlock()
		return errors.New("no track loaded")
	}
	c.clock.seek(pos)
	c.mu.Unlock()
	c.emit()
	return nil
}

func (c *Clock) SetVolume(v float64) error {
	c.mu.Lock()
	c.volume = clampVolume(v)
	c.mu.Unlock()
	c.emit()
	return nil
}

func (c *Clock) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock.advance(time.Now())
	return c.statusLocked()
}

func (c *Clock) statusLocked() Status {
	return Status{
		Loaded:    c.track != nil,
		Playing:   c.clock.playing,
		Synthetic: true,
		Position:  c.clock.pos,
		Duration:  c.clock.duration,
		Volume:    c.volume,
	}
}

func (c *Clock) Unload() {
	c.mu.Lock()
	c.track = nil
	c.clock.reset()
	c.clock.duration = 0
	c.mu.Unlock()
	c.emit()
}

// Close stops the ticker loop. The engine is unusable afterwards.
func (c *Clock) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.initialized {
		close(c.stop)
	}
	return nil
}

func (c *Clock) OnStatus(fn func(Status)) {
	c.mu.Lock()
	c.onStatus = fn
	c.mu.Unlock()
}

func (c *Clock) OnFinished(fn func()) {
	c.mu.Lock()
	c.onFinished = fn
	c.mu.Unlock()
}

func (c *Clock) OnError(fn func(error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

func (c *Clock) emit() {
	c.mu.Lock()
	status := c.statusLocked()
	fn := c.onStatus
	c.mu.Unlock()
	if fn != nil {
		fn(status)
	}
}

var _ Engine = (*Clock)(nil)
