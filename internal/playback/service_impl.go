package playback

import (
	"math/rand"
	"sync"
	"time"

	"github.com/murexstreams/murex/internal/audio"
	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/logging"
)

// Options configure a new Coordinator.
type Options struct {
	Repeat  core.RepeatMode
	Shuffle bool
	// Volume is the initial level in 0..1. Zero or less means full.
	Volume float64
	// Seed fixes the shuffle order for tests. Zero means time-based.
	Seed   int64
	Logger *logging.Logger
}

// Coordinator owns all playback state and drives the audio engine.
// Every mutation happens under one mutex; engine callbacks touching
// coordinator state run on engine goroutines and take the same mutex,
// while status callbacks stay lock-free so the engine can report from
// inside coordinator-initiated calls.
type Coordinator struct {
	mu     sync.Mutex
	engine audio.Engine
	log    *logging.Logger
	rng    *rand.Rand

	tracks  []core.Track
	order   playOrder
	current *core.Track
	repeat  core.RepeatMode
	shuffle bool

	state     State
	isLoading bool
	volume    float64
	loadGen   int

	mini bool
	full bool

	errMu   sync.Mutex
	lastErr error

	subsMu sync.Mutex
	subs   map[*Subscription]struct{}

	closed bool
}

// New creates a Coordinator over the given engine.
func New(engine audio.Engine, opts Options) (*Coordinator, error) {
	volume := opts.Volume
	if volume <= 0 {
		volume = 1.0
	}
	if volume > 1 {
		volume = 1
	}
	repeat := opts.Repeat
	if !repeat.Valid() {
		repeat = core.RepeatNone
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	c := &Coordinator{
		engine:  engine,
		log:     logger,
		rng:     rand.New(rand.NewSource(seed)),
		repeat:  repeat,
		shuffle: opts.Shuffle,
		volume:  volume,
		subs:    make(map[*Subscription]struct{}),
	}

	engine.OnStatus(c.onEngineStatus)
	engine.OnFinished(c.onTrackFinished)
	engine.OnError(c.onEngineError)

	if err := engine.Initialize(); err != nil {
		return nil, err
	}
	if err := engine.SetVolume(volume); err != nil {
		return nil, err
	}

	return c, nil
}

// pending collects events built under the mutex for publishing after
// it is released.
type pending struct {
	state []StateChange
	track *TrackChange
	queue *QueueChange
	mode  *ModeChange
}

func (c *Coordinator) publishPending(p *pending) {
	for _, e := range p.state {
		c.eachSub(func(s *Subscription) { nonBlocking(s.StateChanged, e) })
	}
	if p.track != nil {
		e := *p.track
		c.eachSub(func(s *Subscription) { nonBlocking(s.TrackChanged, e) })
	}
	if p.queue != nil {
		e := *p.queue
		c.eachSub(func(s *Subscription) { nonBlocking(s.QueueChanged, e) })
	}
	if p.mode != nil {
		e := *p.mode
		c.eachSub(func(s *Subscription) { nonBlocking(s.ModeChanged, e) })
	}
}

func nonBlocking[T any](ch chan T, e T) {
	select {
	case ch <- e:
	default:
	}
}

func (c *Coordinator) eachSub(fn func(*Subscription)) {
	c.subsMu.Lock()
	for s := range c.subs {
		fn(s)
	}
	c.subsMu.Unlock()
}

// transitionLocked moves the transport state and records the event.
func (c *Coordinator) transitionLocked(to State, p *pending) {
	if c.state == to {
		return
	}
	p.state = append(p.state, StateChange{Previous: c.state, Current: to})
	c.state = to
}

// currentTrackLocked copies the track at the playhead.
func (c *Coordinator) currentTrackLocked() *core.Track {
	idx := c.order.current()
	if idx < 0 || idx >= len(c.tracks) {
		return nil
	}
	t := c.tracks[idx]
	return &t
}

// loadCurrentLocked loads the playhead track into the engine. The
// mutex is released for the duration of the engine load; the returned
// bool is false when a newer load superseded this one, in which case
// the caller must not keep driving the engine. Last write wins.
func (c *Coordinator) loadCurrentLocked(p *pending) bool {
	track := c.currentTrackLocked()
	if track == nil {
		return false
	}
	prev := c.current
	c.current = track
	c.isLoading = true
	c.loadGen++
	gen := c.loadGen
	if !c.full {
		c.mini = true
	}
	p.track = &TrackChange{Previous: prev, Current: track, Index: c.order.current()}

	c.mu.Unlock()
	err := c.engine.Load(track)
	c.mu.Lock()

	if c.loadGen != gen {
		return false
	}
	c.isLoading = false
	if err != nil {
		// The engine degraded to its synthetic clock; keep going.
		c.setErr(err)
		c.log.Warnf("load %q degraded to synthetic clock: %v", track.Title, err)
	} else {
		c.setErr(nil)
	}
	return true
}

func (c *Coordinator) setErr(err error) {
	c.errMu.Lock()
	c.lastErr = err
	c.errMu.Unlock()
}

func (c *Coordinator) getErr() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

// Engine callbacks.

// onEngineStatus runs synchronously inside engine calls and must not
// take the coordinator mutex.
func (c *Coordinator) onEngineStatus(st audio.Status) {
	e := PositionChange{Position: st.Position, Duration: st.Duration}
	c.eachSub(func(s *Subscription) { nonBlocking(s.PositionChanged, e) })
}

func (c *Coordinator) onEngineError(err error) {
	c.setErr(err)
	c.eachSub(func(s *Subscription) { nonBlocking(s.Errors, err) })
}

// onTrackFinished handles natural track end: repeat one restarts,
// otherwise the queue advances, wrapping under repeat all and
// stopping at the end under repeat none.
func (c *Coordinator) onTrackFinished() {
	var p pending

	c.mu.Lock()
	finished := c.current
	var completed *core.Track
	if finished != nil {
		t := *finished
		completed = &t
	}

	switch {
	case c.repeat == core.RepeatOne:
		_ = c.engine.SeekTo(0)
		if err := c.engine.Play(); err != nil {
			c.log.Errorf("repeat one restart: %v", err)
		}
	case c.order.next(c.repeat == core.RepeatAll):
		if c.loadCurrentLocked(&p) {
			if err := c.engine.Play(); err != nil {
				c.log.Errorf("auto-advance play: %v", err)
			}
		}
	default:
		// End of queue under repeat none: keep the queue, stop.
		_ = c.engine.Stop()
		c.transitionLocked(StateStopped, &p)
	}
	c.mu.Unlock()

	if completed != nil {
		e := *completed
		c.eachSub(func(s *Subscription) { nonBlocking(s.Completed, e) })
	}
	c.publishPending(&p)
}

// Playback control.

// PlayQueue replaces the queue and starts playing from startIndex.
func (c *Coordinator) PlayQueue(tracks []core.Track, startIndex int) error {
	if len(tracks) == 0 {
		return errors.ErrEmptyQueue
	}
	if startIndex < 0 || startIndex >= len(tracks) {
		return errors.ErrInvalidIndex
	}

	var p pending
	c.mu.Lock()
	c.tracks = append([]core.Track(nil), tracks...)
	c.order.rebuild(len(c.tracks), startIndex, c.shuffle, c.rng)
	p.queue = &QueueChange{Tracks: append([]core.Track(nil), c.tracks...), Index: c.order.current()}

	if c.loadCurrentLocked(&p) {
		if err := c.engine.Play(); err != nil {
			c.mu.Unlock()
			c.publishPending(&p)
			return err
		}
		c.transitionLocked(StatePlaying, &p)
	}
	c.mu.Unlock()

	c.publishPending(&p)
	return nil
}

// Play starts or resumes playback of the current track.
func (c *Coordinator) Play() error {
	var p pending
	c.mu.Lock()
	if len(c.tracks) == 0 {
		c.mu.Unlock()
		return errors.ErrEmptyQueue
	}

	if c.current == nil {
		if !c.loadCurrentLocked(&p) {
			c.mu.Unlock()
			c.publishPending(&p)
			return nil
		}
	}

	if err := c.engine.Play(); err != nil {
		c.mu.Unlock()
		c.publishPending(&p)
		return err
	}
	c.transitionLocked(StatePlaying, &p)
	c.mu.Unlock()

	c.publishPending(&p)
	return nil
}

// Pause pauses playback, keeping the position.
func (c *Coordinator) Pause() error {
	var p pending
	c.mu.Lock()
	if c.state != StatePlaying {
		c.mu.Unlock()
		return nil
	}
	if err := c.engine.Pause(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.transitionLocked(StatePaused, &p)
	c.mu.Unlock()

	c.publishPending(&p)
	return nil
}

// Stop halts playback and rewinds to the start of the current track.
func (c *Coordinator) Stop() error {
	var p pending
	c.mu.Lock()
	if err := c.engine.Stop(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.transitionLocked(StateStopped, &p)
	c.mu.Unlock()

	c.publishPending(&p)
	return nil
}

// Toggle flips between playing and paused.
func (c *Coordinator) Toggle() error {
	c.mu.Lock()
	playing := c.state == StatePlaying
	c.mu.Unlock()

	if playing {
		return c.Pause()
	}
	return c.Play()
}

// Next advances to the following track in the active order. At the end
// of the queue it wraps under repeat all and otherwise stops playback
// while keeping the queue.
func (c *Coordinator) Next() error {
	var p pending
	c.mu.Lock()
	if len(c.tracks) == 0 {
		c.mu.Unlock()
		return errors.ErrEmptyQueue
	}

	wasPlaying := c.state == StatePlaying
	if !c.order.next(c.repeat == core.RepeatAll) {
		_ = c.engine.Stop()
		c.transitionLocked(StateStopped, &p)
		c.mu.Unlock()
		c.publishPending(&p)
		return nil
	}

	if c.loadCurrentLocked(&p) && wasPlaying {
		if err := c.engine.Play(); err != nil {
			c.mu.Unlock()
			c.publishPending(&p)
			return err
		}
	}
	c.mu.Unlock()

	c.publishPending(&p)
	return nil
}

// Previous steps back in the active order. At the first position it
// restarts the current track instead.
func (c *Coordinator) Previous() error {
	var p pending
	c.mu.Lock()
	if len(c.tracks) == 0 {
		c.mu.Unlock()
		return errors.ErrEmptyQueue
	}

	if !c.order.previous() {
		err := c.engine.SeekTo(0)
		c.mu.Unlock()
		return err
	}

	wasPlaying := c.state == StatePlaying
	if c.loadCurrentLocked(&p) && wasPlaying {
		if err := c.engine.Play(); err != nil {
			c.mu.Unlock()
			c.publishPending(&p)
			return err
		}
	}
	c.mu.Unlock()

	c.publishPending(&p)
	return nil
}

// JumpTo plays the track at the given canonical queue index.
func (c *Coordinator) JumpTo(index int) error {
	var p pending
	c.mu.Lock()
	if index < 0 || index >= len(c.tracks) {
		c.mu.Unlock()
		return errors.ErrInvalidIndex
	}
	c.order.jump(index)

	if c.loadCurrentLocked(&p) {
		if err := c.engine.Play(); err != nil {
			c.mu.Unlock()
			c.publishPending(&p)
			return err
		}
		c.transitionLocked(StatePlaying, &p)
	}
	c.mu.Unlock()

	c.publishPending(&p)
	return nil
}

// Seek moves the playhead by a signed delta.
func (c *Coordinator) Seek(delta time.Duration) error {
	pos := c.engine.Status().Position + delta
	if pos < 0 {
		pos = 0
	}
	return c.SeekTo(pos)
}

// SeekTo moves the playhead to an absolute position.
func (c *Coordinator) SeekTo(position time.Duration) error {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return errors.ErrNoCurrentTrack
	}
	err := c.engine.SeekTo(position)
	c.mu.Unlock()
	return err
}

// SetVolume sets the playback volume in 0..1.
func (c *Coordinator) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.mu.Lock()
	if err := c.engine.SetVolume(v); err != nil {
		c.mu.Unlock()
		return err
	}
	c.volume = v
	c.mu.Unlock()
	return nil
}

// Queue manipulation.

// Add appends tracks to the queue without interrupting playback.
func (c *Coordinator) Add(tracks ...core.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	var p pending
	c.mu.Lock()
	c.tracks = append(c.tracks, tracks...)
	c.order.extend(len(tracks))
	p.queue = &QueueChange{Tracks: append([]core.Track(nil), c.tracks...), Index: c.order.current()}
	c.mu.Unlock()

	c.publishPending(&p)
	return nil
}

// Clear empties the queue and unloads the engine.
func (c *Coordinator) Clear() error {
	var p pending
	c.mu.Lock()
	c.engine.Unload()
	prev := c.current
	c.tracks = nil
	c.current = nil
	c.order.rebuild(0, -1, false, c.rng)
	c.mini = false
	c.full = false
	c.transitionLocked(StateStopped, &p)
	p.queue = &QueueChange{Index: -1}
	if prev != nil {
		p.track = &TrackChange{Previous: prev, Current: nil, Index: -1}
	}
	c.mu.Unlock()

	c.publishPending(&p)
	return nil
}

// State queries.

// State returns a full snapshot for consumers.
func (c *Coordinator) State() core.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Coordinator) stateLocked() core.PlaybackState {
	st := c.engine.Status()

	var track *core.Track
	if c.current != nil {
		t := *c.current
		track = &t
	}

	var errText string
	if err := c.getErr(); err != nil {
		errText = err.Error()
	}

	return core.PlaybackState{
		Track:       track,
		IsPlaying:   c.state == StatePlaying,
		IsLoading:   c.isLoading,
		Err:         errText,
		Position:    st.Position,
		Duration:    st.Duration,
		Volume:      c.volume,
		Shuffle:     c.shuffle,
		Repeat:      c.repeat,
		HasNext:     c.order.hasNext(c.repeat == core.RepeatAll),
		HasPrevious: c.order.hasPrevious(),
		MiniPlayer:  c.mini,
		FullPlayer:  c.full,
	}
}

// TransportState returns the coarse stopped/playing/paused state.
func (c *Coordinator) TransportState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Queue returns a snapshot of the canonical queue.
func (c *Coordinator) Queue() core.Queue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return core.Queue{
		Tracks:       append([]core.Track(nil), c.tracks...),
		CurrentIndex: c.order.current(),
	}
}

// HasNext reports whether Next would move to another track.
func (c *Coordinator) HasNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.hasNext(c.repeat == core.RepeatAll)
}

// HasPrevious reports whether Previous would move to an earlier track.
func (c *Coordinator) HasPrevious() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.hasPrevious()
}

// EngineName identifies the active engine for status displays.
func (c *Coordinator) EngineName() string {
	return c.engine.Name()
}

// Mode control.

func (c *Coordinator) RepeatMode() core.RepeatMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repeat
}

// SetRepeatMode changes the repeat mode. Unknown modes are ignored.
func (c *Coordinator) SetRepeatMode(mode core.RepeatMode) {
	if !mode.Valid() {
		return
	}
	var p pending
	c.mu.Lock()
	if c.repeat == mode {
		c.mu.Unlock()
		return
	}
	c.repeat = mode
	p.mode = &ModeChange{RepeatMode: c.repeat, Shuffle: c.shuffle}
	c.mu.Unlock()

	c.publishPending(&p)
}

// CycleRepeatMode steps none -> all -> one -> none and returns the new
// mode.
func (c *Coordinator) CycleRepeatMode() core.RepeatMode {
	c.mu.Lock()
	next := c.repeat.Cycle()
	c.mu.Unlock()
	c.SetRepeatMode(next)
	return next
}

func (c *Coordinator) Shuffle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shuffle
}

// SetShuffle toggles shuffle. Enabling deals a fresh order with the
// current track first; disabling restores sequential order at the
// current track. The canonical queue is never reordered.
func (c *Coordinator) SetShuffle(enabled bool) {
	var p pending
	c.mu.Lock()
	if c.shuffle == enabled {
		c.mu.Unlock()
		return
	}
	c.shuffle = enabled
	c.order.rebuild(len(c.tracks), c.order.current(), enabled, c.rng)
	p.mode = &ModeChange{RepeatMode: c.repeat, Shuffle: c.shuffle}
	c.mu.Unlock()

	c.publishPending(&p)
}

// ToggleShuffle flips shuffle and returns the new value.
func (c *Coordinator) ToggleShuffle() bool {
	c.mu.Lock()
	next := !c.shuffle
	c.mu.Unlock()
	c.SetShuffle(next)
	return next
}

// Player visibility.

// ShowMiniPlayer makes the mini player visible.
func (c *Coordinator) ShowMiniPlayer() {
	c.mu.Lock()
	c.mini = true
	c.mu.Unlock()
}

// HideMiniPlayer hides the mini player.
func (c *Coordinator) HideMiniPlayer() {
	c.mu.Lock()
	c.mini = false
	c.mu.Unlock()
}

// OpenFullPlayer expands to the full player, hiding the mini player.
func (c *Coordinator) OpenFullPlayer() {
	c.mu.Lock()
	c.full = true
	c.mini = false
	c.mu.Unlock()
}

// CloseFullPlayer collapses the full player; the mini player returns
// while a track is loaded.
func (c *Coordinator) CloseFullPlayer() {
	c.mu.Lock()
	c.full = false
	c.mini = c.current != nil
	c.mu.Unlock()
}

// Subscribe registers an event subscription.
func (c *Coordinator) Subscribe() *Subscription {
	sub := newSubscription(func(s *Subscription) {
		c.subsMu.Lock()
		delete(c.subs, s)
		c.subsMu.Unlock()
	})
	c.subsMu.Lock()
	c.subs[sub] = struct{}{}
	c.subsMu.Unlock()
	return sub
}

// Close shuts down the coordinator and its engine.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.subsMu.Lock()
	subs := make([]*Subscription, 0, len(c.subs))
	for s := range c.subs {
		subs = append(subs, s)
	}
	c.subs = make(map[*Subscription]struct{})
	c.subsMu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}

	return c.engine.Close()
}

var _ Service = (*Coordinator)(nil)
