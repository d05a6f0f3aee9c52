package core

// Queue is a snapshot of the playback queue.
type Queue struct {
	Tracks       []Track `json:"tracks"`
	CurrentIndex int     `json:"current_index"`
}

// Current returns the currently playing track, or nil if the queue is empty.
func (q *Queue) Current() *Track {
	if q == nil || len(q.Tracks) == 0 || q.CurrentIndex < 0 || q.CurrentIndex >= len(q.Tracks) {
		return nil
	}
	return &q.Tracks[q.CurrentIndex]
}

// Upcoming returns tracks after the current position.
func (q *Queue) Upcoming() []Track {
	if q == nil || len(q.Tracks) == 0 || q.CurrentIndex < 0 || q.CurrentIndex >= len(q.Tracks)-1 {
		return nil
	}
	return q.Tracks[q.CurrentIndex+1:]
}

// Len returns the total number of tracks in the queue.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.Tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// HasNext reports whether playback can advance from the current position.
// Under repeat all, any non-empty queue can advance (wrapping to the start).
func (q *Queue) HasNext(mode RepeatMode) bool {
	if q.IsEmpty() {
		return false
	}
	if mode == RepeatAll {
		return true
	}
	return q.CurrentIndex < q.Len()-1
}

// HasPrevious reports whether there is a track before the current position.
func (q *Queue) HasPrevious() bool {
	return q.Len() > 0 && q.CurrentIndex > 0
}
