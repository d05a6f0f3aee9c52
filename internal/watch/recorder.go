package watch

import (
	"context"

	"github.com/murexstreams/murex/internal/logging"
)

// PlayJournal accepts completed plays.
type PlayJournal interface {
	Record(ctx context.Context, trackID, userID string) error
}

// Recorder journals naturally completed tracks from a watcher's event
// stream. Skips are not counted as plays.
type Recorder struct {
	journal PlayJournal
	userID  string
	log     *logging.Logger
}

// NewRecorder creates a play recorder writing plays for userID.
func NewRecorder(journal PlayJournal, userID string, log *logging.Logger) *Recorder {
	if log == nil {
		log = logging.Discard()
	}
	return &Recorder{journal: journal, userID: userID, log: log}
}

// Run consumes events until the channel closes or the context is
// cancelled.
func (r *Recorder) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Type != EventTrackComplete {
				continue
			}
			if e.Previous == nil || e.Previous.Track == nil {
				continue
			}
			track := e.Previous.Track
			if err := r.journal.Record(ctx, track.ID, r.userID); err != nil {
				r.log.Warnf("recording play of %q: %v", track.Title, err)
				continue
			}
			r.log.Debugf("recorded play of %q", track.Title)
		}
	}
}
