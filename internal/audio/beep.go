package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/errors"
)

// The speaker is process-wide. Every Beep engine shares one device at
// a fixed rate and resamples tracks to it.
var (
	speakerMu          sync.Mutex
	speakerInitialized bool
)

const speakerSampleRate = beep.SampleRate(44100)

func initSpeaker() error {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerInitialized {
		return nil
	}
	if err := speaker.Init(speakerSampleRate, speakerSampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrAudioUnavailable, err)
	}
	speakerInitialized = true
	return nil
}

// trackHandle bundles the resources for one loaded file.
type trackHandle struct {
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
}

func (h *trackHandle) close() {
	if h.streamer != nil {
		_ = h.streamer.Close()
	}
	if h.file != nil {
		_ = h.file.Close()
	}
}

// Beep plays audio through the sound device using gopxl/beep. When a
// file cannot be opened or decoded it borrows the synthetic clock for
// that track so transport controls keep working.
type Beep struct {
	mu          sync.Mutex
	tick        time.Duration
	initialized bool
	closed      bool
	stop        chan struct{}
	finishedCh  chan int

	track     *core.Track
	handle    *trackHandle
	synthetic bool
	clock     clockState
	gen       int
	volume    float64

	onStatus   func(Status)
	onFinished func()
	onError    func(error)
}

// NewBeep creates a sound-device engine reporting status at the given
// interval.
func NewBeep(tick time.Duration) *Beep {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Beep{
		tick:       tick,
		volume:     1.0,
		stop:       make(chan struct{}),
		finishedCh: make(chan int, 1),
	}
}

func (b *Beep) Name() string { return "beep" }

// Initialize opens the sound device and starts the status loop. It is
// idempotent.
func (b *Beep) Initialize() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("engine is closed")
	}
	if b.initialized {
		return nil
	}
	if err := initSpeaker(); err != nil {
		return err
	}
	b.initialized = true
	go b.run()
	return nil
}

func (b *Beep) run() {
	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			b.onTick(now)
		case gen := <-b.finishedCh:
			b.onNaturalEnd(gen)
		case <-b.stop:
			return
		}
	}
}

func (b *Beep) onTick(now time.Time) {
	b.mu.Lock()
	var completed bool
	if b.synthetic {
		completed = b.clock.advance(now)
	}
	status := b.statusLocked()
	emit := b.onStatus
	finished := b.onFinished
	b.mu.Unlock()

	if emit != nil {
		emit(status)
	}
	if completed && finished != nil {
		finished()
	}
}

// onNaturalEnd handles the speaker callback for a drained streamer.
// Ends from loads that have since been replaced are dropped.
func (b *Beep) onNaturalEnd(gen int) {
	b.mu.Lock()
	if gen != b.gen || b.track == nil {
		b.mu.Unlock()
		return
	}
	finished := b.onFinished
	b.mu.Unlock()
	if finished != nil {
		finished()
	}
}

// Load opens and decodes the track's file, releasing the previous
// handle first. On failure the synthetic clock takes over for this
// track and the decode error is both reported and returned.
func (b *Beep) Load(track *core.Track) error {
	if err := b.Initialize(); err != nil {
		return err
	}

	b.mu.Lock()
	b.unloadLocked()
	b.gen++
	gen := b.gen
	b.track = track
	volume := b.volume
	b.mu.Unlock()

	if track == nil {
		return nil
	}

	handle, err := openHandle(track.AudioPath, volume)
	if err != nil {
		b.mu.Lock()
		if b.gen == gen {
			b.synthetic = true
			b.clock.reset()
			b.clock.duration = track.Duration
		}
		report := b.onError
		b.mu.Unlock()
		loadErr := fmt.Errorf("failed to load %q: %w", track.Title, err)
		if report != nil {
			report(loadErr)
		}
		return loadErr
	}

	b.mu.Lock()
	if b.gen != gen {
		// A newer load won the race; this handle is already stale.
		b.mu.Unlock()
		handle.close()
		return nil
	}
	b.handle = handle
	b.synthetic = false
	b.mu.Unlock()

	speaker.Play(beep.Seq(handle.volume, beep.Callback(func() {
		select {
		case b.finishedCh <- gen:
		default:
		}
	})))

	b.emit()
	return nil
}

// openHandle opens and decodes an audio file into a paused play chain.
func openHandle(path string, volume float64) (*trackHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".ogg", ".oga":
		streamer, format, err = vorbis.Decode(f)
	default:
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	var source beep.Streamer = streamer
	if format.SampleRate != speakerSampleRate {
		source = beep.Resample(4, format.SampleRate, speakerSampleRate, streamer)
	}

	ctrl := &beep.Ctrl{Streamer: source, Paused: true}
	vol := &effects.Volume{Streamer: ctrl, Base: 2}
	applyVolume(vol, volume)

	return &trackHandle{
		file:     f,
		streamer: streamer,
		format:   format,
		ctrl:     ctrl,
		volume:   vol,
	}, nil
}

// applyVolume maps a linear 0..1 level onto the logarithmic volume
// effect. Base 2 with Volume = log2(level) yields a gain equal to the
// level itself.
func applyVolume(vol *effects.Volume, level float64) {
	if level <= 0 {
		vol.Silent = true
		vol.Volume = 0
		return
	}
	vol.Silent = false
	vol.Volume = math.Log2(level)
}

func (b *Beep) Play() error {
	b.mu.Lock()
	if b.track == nil {
		b.mu.Unlock()
		return fmt.Errorf("no track loaded")
	}
	if b.synthetic {
		b.clock.start(time.Now())
		b.mu.Unlock()
		b.emit()
		return nil
	}
	handle := b.handle
	b.mu.Unlock()

	speaker.Lock()
	handle.ctrl.Paused = false
	speaker.Unlock()
	b.emit()
	return nil
}

func (b *Beep) Pause() error {
	b.mu.Lock()
	if b.synthetic {
		b.clock.advance(time.Now())
		b.clock.playing = false
		b.mu.Unlock()
		b.emit()
		return nil
	}
	handle := b.handle
	b.mu.Unlock()

	if handle != nil {
		speaker.Lock()
		handle.ctrl.Paused = true
		speaker.Unlock()
	}
	b.emit()
	return nil
}

func (b *Beep) Stop() error {
	b.mu.Lock()
	if b.synthetic {
		b.clock.reset()
		b.mu.Unlock()
		b.emit()
		return nil
	}
	handle := b.handle
	b.mu.Unlock()

	if handle != nil {
		speaker.Lock()
		handle.ctrl.Paused = true
		err := handle.streamer.Seek(0)
		speaker.Unlock()
		if err != nil {
			return fmt.Errorf("failed to rewind: %w", err)
		}
	}
	b.emit()
	return nil
}

func (b *Beep) SeekTo(pos time.Duration) error {
	if pos < 0 {
		pos = 0
	}

	b.mu.Lock()
	if b.track == nil {
		b.mu.Unlock()
		return fmt.Errorf("no track loaded")
	}
	if b.synthetic {
		b.clock.seek(pos)
		b.mu.Unlock()
		b.emit()
		return nil
	}
	handle := b.handle
	b.mu.Unlock()

	speaker.Lock()
	n := handle.format.SampleRate.N(pos)
	if max := handle.streamer.Len(); n > max {
		n = max
	}
	err := handle.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	b.emit()
	return nil
}

func (b *Beep) SetVolume(v float64) error {
	v = clampVolume(v)

	b.mu.Lock()
	b.volume = v
	handle := b.handle
	b.mu.Unlock()

	if handle != nil {
		speaker.Lock()
		applyVolume(handle.volume, v)
		speaker.Unlock()
	}
	b.emit()
	return nil
}

func (b *Beep) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.synthetic {
		b.clock.advance(time.Now())
	}
	return b.statusLocked()
}

// statusLocked builds a snapshot. For real playback the position and
// duration come from the streamer under the speaker lock.
func (b *Beep) statusLocked() Status {
	s := Status{
		Loaded: b.track != nil,
		Volume: b.volume,
	}
	if b.synthetic {
		s.Synthetic = true
		s.Playing = b.clock.playing
		s.Position = b.clock.pos
		s.Duration = b.clock.duration
		return s
	}
	if b.handle != nil {
		speaker.Lock()
		s.Playing = !b.handle.ctrl.Paused
		s.Position = b.handle.format.SampleRate.D(b.handle.streamer.Position())
		s.Duration = b.handle.format.SampleRate.D(b.handle.streamer.Len())
		speaker.Unlock()
	}
	return s
}

func (b *Beep) Unload() {
	b.mu.Lock()
	b.unloadLocked()
	b.gen++
	b.mu.Unlock()
	b.emit()
}

// unloadLocked releases the current handle. Callers hold b.mu.
func (b *Beep) unloadLocked() {
	if b.handle != nil {
		speaker.Clear()
		b.handle.close()
		b.handle = nil
	}
	b.track = nil
	b.synthetic = false
	b.clock.reset()
	b.clock.duration = 0
}

func (b *Beep) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.unloadLocked()
	initialized := b.initialized
	b.mu.Unlock()

	if initialized {
		close(b.stop)
	}
	return nil
}

func (b *Beep) OnStatus(fn func(Status)) {
	b.mu.Lock()
	b.onStatus = fn
	b.mu.Unlock()
}

func (b *Beep) OnFinished(fn func()) {
	b.mu.Lock()
	b.onFinished = fn
	b.mu.Unlock()
}

func (b *Beep) OnError(fn func(error)) {
	b.mu.Lock()
	b.onError = fn
	b.mu.Unlock()
}

func (b *Beep) emit() {
	b.mu.Lock()
	status := b.statusLocked()
	fn := b.onStatus
	b.mu.Unlock()
	if fn != nil {
		fn(status)
	}
}

var _ Engine = (*Beep)(nil)
