package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/murexstreams/murex/internal/core"
)

// Mock is a scriptable Engine for tests. It mirrors the contract of
// the real engines, records every call, and lets tests drive time and
// track completion by hand.
type Mock struct {
	mu        sync.Mutex
	track     *core.Track
	playing   bool
	synthetic bool
	pos       time.Duration
	duration  time.Duration
	volume    float64

	nextLoadErr error

	loadCalls   []string
	seekCalls   []time.Duration
	volCalls    []float64
	playCalls   int
	pauseCalls  int
	stopCalls   int
	unloadCalls int

	onStatus   func(Status)
	onFinished func()
	onError    func(error)
}

// NewMock creates a mock engine with full volume and nothing loaded.
func NewMock() *Mock {
	return &Mock{volume: 1.0}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Initialize() error { return nil }

func (m *Mock) Load(track *core.Track) error {
	m.mu.Lock()
	m.track = track
	m.playing = false
	m.pos = 0
	m.synthetic = false
	m.duration = 0
	if track != nil {
		m.duration = track.Duration
		m.loadCalls = append(m.loadCalls, track.ID)
	}

	if err := m.nextLoadErr; err != nil {
		m.nextLoadErr = nil
		m.synthetic = true
		report := m.onError
		m.mu.Unlock()
		if report != nil {
			report(err)
		}
		return err
	}
	m.mu.Unlock()
	m.emit()
	return nil
}

func (m *Mock) Play() error {
	m.mu.Lock()
	if m.track == nil {
		m.mu.Unlock()
		return fmt.Errorf("no track loaded")
	}
	m.playCalls++
	m.playing = true
	m.mu.Unlock()
	m.emit()
	return nil
}

func (m *Mock) Pause() error {
	m.mu.Lock()
	m.pauseCalls++
	m.playing = false
	m.mu.Unlock()
	m.emit()
	return nil
}

func (m *Mock) Stop() error {
	m.mu.Lock()
	m.stopCalls++
	m.playing = false
	m.pos = 0
	m.mu.Unlock()
	m.emit()
	return nil
}

func (m *Mock) SeekTo(pos time.Duration) error {
	m.mu.Lock()
	if m.track == nil {
		m.mu.Unlock()
		return fmt.Errorf("no track loaded")
	}
	if pos < 0 {
		pos = 0
	}
	if m.duration > 0 && pos > m.duration {
		pos = m.duration
	}
	m.seekCalls = append(m.seekCalls, pos)
	m.pos = pos
	m.mu.Unlock()
	m.emit()
	return nil
}

func (m *Mock) SetVolume(v float64) error {
	m.mu.Lock()
	m.volume = clampVolume(v)
	m.volCalls = append(m.volCalls, m.volume)
	m.mu.Unlock()
	m.emit()
	return nil
}

func (m *Mock) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Loaded:    m.track != nil,
		Playing:   m.playing,
		Synthetic: m.synthetic,
		Position:  m.pos,
		Duration:  m.duration,
		Volume:    m.volume,
	}
}

func (m *Mock) Unload() {
	m.mu.Lock()
	m.unloadCalls++
	m.track = nil
	m.playing = false
	m.pos = 0
	m.duration = 0
	m.synthetic = false
	m.mu.Unlock()
	m.emit()
}

func (m *Mock) Close() error { return nil }

func (m *Mock) OnStatus(fn func(Status)) {
	m.mu.Lock()
	m.onStatus = fn
	m.mu.Unlock()
}

func (m *Mock) OnFinished(fn func()) {
	m.mu.Lock()
	m.onFinished = fn
	m.mu.Unlock()
}

func (m *Mock) OnError(fn func(error)) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

func (m *Mock) emit() {
	m.mu.Lock()
	fn := m.onStatus
	status := Status{
		Loaded:    m.track != nil,
		Playing:   m.playing,
		Synthetic: m.synthetic,
		Position:  m.pos,
		Duration:  m.duration,
		Volume:    m.volume,
	}
	m.mu.Unlock()
	if fn != nil {
		fn(status)
	}
}

// FailNextLoad makes the next Load degrade to synthetic mode with the
// given error, like a real decode failure.
func (m *Mock) FailNextLoad(err error) {
	m.mu.Lock()
	m.nextLoadErr = err
	m.mu.Unlock()
}

// SetPosition moves the playhead directly.
func (m *Mock) SetPosition(pos time.Duration) {
	m.mu.Lock()
	m.pos = pos
	m.mu.Unlock()
}

// SetDuration overrides the reported duration.
func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	m.duration = d
	m.mu.Unlock()
}

// SimulateFinished drives the track to its end and fires the finished
// callback, exactly as a drained streamer would.
func (m *Mock) SimulateFinished() {
	m.mu.Lock()
	m.playing = false
	m.pos = m.duration
	fn := m.onFinished
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// SimulateError fires the error callback.
func (m *Mock) SimulateError(err error) {
	m.mu.Lock()
	fn := m.onError
	m.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// LoadCalls returns the IDs passed to Load, in order.
func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

// SeekCalls returns every position passed to SeekTo.
func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

// VolumeCalls returns every level passed to SetVolume.
func (m *Mock) VolumeCalls() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.volCalls...)
}

// PlayCalls returns how many times Play was called.
func (m *Mock) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

// PauseCalls returns how many times Pause was called.
func (m *Mock) PauseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseCalls
}

// StopCalls returns how many times Stop was called.
func (m *Mock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

// UnloadCalls returns how many times Unload was called.
func (m *Mock) UnloadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unloadCalls
}

var _ Engine = (*Mock)(nil)
