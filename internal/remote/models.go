package remote

import (
	"fmt"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/market"
)

// Credentials is the signup and login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TrackInfo is a catalog track with its social and market standing.
type TrackInfo struct {
	core.Track
	Plays         int64 `json:"plays"`
	Likes         int64 `json:"likes"`
	InvestedCents int64 `json:"invested_cents"`
	Liked         bool  `json:"liked"`
}

// ArtistInfo is an artist with follower standing.
type ArtistInfo struct {
	core.Artist
	Followers int64 `json:"followers"`
	Following bool  `json:"following"`
}

// PlayRequest starts playback. With TrackIDs it replaces the queue,
// otherwise it resumes the current track.
type PlayRequest struct {
	TrackIDs []string `json:"track_ids,omitempty"`
	Index    int      `json:"index"`
}

// SeekRequest moves the play position. Exactly one field is used;
// PositionMillis wins when both are set.
type SeekRequest struct {
	PositionMillis *int64 `json:"position_ms,omitempty"`
	DeltaMillis    *int64 `json:"delta_ms,omitempty"`
}

// VolumeRequest sets the volume in the 0.0 to 1.0 range.
type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

// ShuffleRequest toggles shuffle.
type ShuffleRequest struct {
	Enabled bool `json:"enabled"`
}

// RepeatRequest sets the repeat mode: none, one or all.
type RepeatRequest struct {
	Mode string `json:"mode"`
}

// QueueAddRequest appends catalog tracks to the queue.
type QueueAddRequest struct {
	TrackIDs []string `json:"track_ids"`
}

// JumpRequest jumps to a queue position.
type JumpRequest struct {
	Index int `json:"index"`
}

// InvestRequest stakes an amount on a track.
type InvestRequest struct {
	TrackID     string `json:"track_id"`
	AmountCents int64  `json:"amount_cents"`
}

// InvestResponse reports the settled investment and the track's new
// visible total.
type InvestResponse struct {
	Investment      market.Investment `json:"investment"`
	TrackTotalCents int64             `json:"track_total_cents"`
}

// APIError is the error body every endpoint returns on failure.
type APIError struct {
	Status     int    `json:"-"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return e.Message
}
