package core

import "time"

// PlaybackState is a snapshot of the playback coordinator.
type PlaybackState struct {
	Track       *Track        `json:"track"`
	IsPlaying   bool          `json:"is_playing"`
	IsLoading   bool          `json:"is_loading"`
	Err         string        `json:"error,omitempty"`
	Position    time.Duration `json:"position"`
	Duration    time.Duration `json:"duration"`
	Volume      float64       `json:"volume"`
	Shuffle     bool          `json:"shuffle"`
	Repeat      RepeatMode    `json:"repeat"`
	HasNext     bool          `json:"has_next"`
	HasPrevious bool          `json:"has_previous"`
	MiniPlayer  bool          `json:"mini_player"`
	FullPlayer  bool          `json:"full_player"`
}

// HasTrack returns true if there is an active track.
func (s *PlaybackState) HasTrack() bool {
	return s != nil && s.Track != nil
}

// ProgressPercent returns playback progress as a percentage (0-100).
// The synthetic clock can briefly overshoot the duration between ticks,
// so the result is clamped.
func (s *PlaybackState) ProgressPercent() float64 {
	if s == nil || s.Duration == 0 {
		return 0
	}
	p := float64(s.Position) / float64(s.Duration) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Remaining returns the time left in the current track.
func (s *PlaybackState) Remaining() time.Duration {
	if s == nil || s.Duration == 0 || s.Position > s.Duration {
		return 0
	}
	return s.Duration - s.Position
}
