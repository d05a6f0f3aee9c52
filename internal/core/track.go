package core

import "time"

// Track represents a playable audio track in the Murex catalog.
type Track struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Artist      string        `json:"artist"`
	ArtistID    string        `json:"artist_id"`
	Album       string        `json:"album"`
	Genre       string        `json:"genre"`
	Duration    time.Duration `json:"duration"`
	AudioPath   string        `json:"audio_path"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	AddedAt     time.Time     `json:"added_at"`
}

// Artist represents a publishing artist.
type Artist struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Bio      string    `json:"bio,omitempty"`
	JoinedAt time.Time `json:"joined_at"`
}

// HistoryEntry represents a completed play.
type HistoryEntry struct {
	Track    Track     `json:"track"`
	PlayedAt time.Time `json:"played_at"`
}
