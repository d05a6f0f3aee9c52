package watch

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/logging"
)

type fakeJournal struct {
	mu       sync.Mutex
	recorded []string
	fail     bool
}

func (f *fakeJournal) Record(_ context.Context, trackID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return stderrors.New("journal unavailable")
	}
	f.recorded = append(f.recorded, trackID+"/"+userID)
	return nil
}

func (f *fakeJournal) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.recorded...)
}

func TestRecorderJournalsCompletions(t *testing.T) {
	journal := &fakeJournal{}
	recorder := NewRecorder(journal, "u1", logging.Discard())

	events := make(chan Event, 4)
	events <- Event{Type: EventTrackComplete, Previous: playingState("t1", 0.99)}
	events <- Event{Type: EventTrackSkip, Previous: playingState("t2", 0.10)}
	events <- Event{Type: EventPause, Previous: playingState("t3", 0.50)}
	events <- Event{Type: EventTrackComplete, Previous: playingState("t4", 0.97)}
	close(events)

	recorder.Run(context.Background(), events)

	got := journal.calls()
	if len(got) != 2 {
		t.Fatalf("recorded %d plays, want 2: %v", len(got), got)
	}
	if got[0] != "t1/u1" || got[1] != "t4/u1" {
		t.Errorf("recorded = %v, want [t1/u1 t4/u1]", got)
	}
}

func TestRecorderIgnoresEmptyCompletions(t *testing.T) {
	journal := &fakeJournal{}
	recorder := NewRecorder(journal, "u1", logging.Discard())

	events := make(chan Event, 2)
	events <- Event{Type: EventTrackComplete}
	events <- Event{Type: EventTrackComplete, Previous: &core.PlaybackState{}}
	close(events)

	recorder.Run(context.Background(), events)

	if got := journal.calls(); len(got) != 0 {
		t.Errorf("recorded %v for events without tracks, want none", got)
	}
}

func TestRecorderSurvivesJournalErrors(t *testing.T) {
	journal := &fakeJournal{fail: true}
	recorder := NewRecorder(journal, "u1", logging.Discard())

	events := make(chan Event, 2)
	events <- Event{Type: EventTrackComplete, Previous: playingState("t1", 0.99)}
	events <- Event{Type: EventTrackComplete, Previous: playingState("t2", 0.99)}
	close(events)

	// Must drain both events and return despite the failures.
	recorder.Run(context.Background(), events)
}

func TestRecorderStopsOnContextCancel(t *testing.T) {
	journal := &fakeJournal{}
	recorder := NewRecorder(journal, "u1", logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event)

	done := make(chan struct{})
	go func() {
		defer close(done)
		recorder.Run(ctx, events)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after context cancel")
	}
}
