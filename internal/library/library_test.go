package library

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore("sqlite://:memory:")
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedArtist(t *testing.T, store *Store, id, name string) core.Artist {
	t.Helper()
	artist := core.Artist{
		ID:       id,
		Name:     name,
		JoinedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	if err := store.Artists.Upsert(context.Background(), artist); err != nil {
		t.Fatalf("Upsert(%q) error = %v", name, err)
	}
	return artist
}

func seedTrack(t *testing.T, store *Store, id, title, artistID string) core.Track {
	t.Helper()
	track := core.Track{
		ID:          id,
		Title:       title,
		ArtistID:    artistID,
		Album:       "Test Album",
		Genre:       "electronic",
		Duration:    3 * time.Minute,
		AudioPath:   "/music/" + id + ".wav",
		Fingerprint: "mx1:" + id,
		AddedAt:     time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	analysis := Analysis{Waveform: []byte{1, 2, 3}, Energy: 0.5}
	if err := store.Tracks.Insert(context.Background(), track, analysis); err != nil {
		t.Fatalf("Insert(%q) error = %v", title, err)
	}
	return track
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open("mysql://localhost/murex")
	if !stderrors.Is(err, errors.ErrInvalidConfig) {
		t.Errorf("Open() error = %v, want ErrInvalidConfig", err)
	}
}

func TestTrackInsertAndFetch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	artist := seedArtist(t, store, "a1", "Neon Tide")
	want := seedTrack(t, store, "t1", "Electric Sunrise", artist.ID)

	got, err := store.Tracks.ByID(ctx, "t1")
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if got.Title != want.Title {
		t.Errorf("Title = %q, want %q", got.Title, want.Title)
	}
	if got.Artist != "Neon Tide" {
		t.Errorf("Artist = %q, want %q", got.Artist, "Neon Tide")
	}
	if got.Duration != want.Duration {
		t.Errorf("Duration = %v, want %v", got.Duration, want.Duration)
	}
	if got.Fingerprint != want.Fingerprint {
		t.Errorf("Fingerprint = %q, want %q", got.Fingerprint, want.Fingerprint)
	}

	byFP, err := store.Tracks.ByFingerprint(ctx, want.Fingerprint)
	if err != nil {
		t.Fatalf("ByFingerprint() error = %v", err)
	}
	if byFP.ID != want.ID {
		t.Errorf("ByFingerprint().ID = %q, want %q", byFP.ID, want.ID)
	}
}

func TestTrackByIDMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Tracks.ByID(context.Background(), "nope")
	if err != errors.ErrTrackNotFound {
		t.Errorf("ByID() error = %v, want ErrTrackNotFound", err)
	}
}

func TestTrackAnalysisRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	artist := seedArtist(t, store, "a1", "Neon Tide")
	track := core.Track{
		ID: "t1", Title: "Undertow", ArtistID: artist.ID,
		Duration: time.Minute, AudioPath: "/music/undertow.wav",
		Fingerprint: "mx1:undertow", AddedAt: time.Now().UTC(),
	}
	waveform := []byte{0, 10, 200, 255, 90}
	if err := store.Tracks.Insert(ctx, track, Analysis{Waveform: waveform, Energy: 0.73}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := store.Tracks.Analysis(ctx, "t1")
	if err != nil {
		t.Fatalf("Analysis() error = %v", err)
	}
	if string(got.Waveform) != string(waveform) {
		t.Errorf("Waveform = %v, want %v", got.Waveform, waveform)
	}
	if got.Energy != 0.73 {
		t.Errorf("Energy = %v, want 0.73", got.Energy)
	}
}

func TestTrackDuplicateFingerprintRejected(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	artist := seedArtist(t, store, "a1", "Neon Tide")
	seedTrack(t, store, "t1", "Original", artist.ID)

	dup := core.Track{
		ID: "t2", Title: "Copy", ArtistID: artist.ID,
		Duration: time.Minute, AudioPath: "/music/copy.wav",
		Fingerprint: "mx1:t1", AddedAt: time.Now().UTC(),
	}
	if err := store.Tracks.Insert(ctx, dup, Analysis{}); err == nil {
		t.Error("Insert() with duplicate fingerprint succeeded, want unique violation")
	}
}

func TestTrackSearch(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	neon := seedArtist(t, store, "a1", "Neon Tide")
	velvet := seedArtist(t, store, "a2", "Velvet Static")
	seedTrack(t, store, "t1", "Electric Sunrise", neon.ID)
	seedTrack(t, store, "t2", "Midnight Drive", neon.ID)
	seedTrack(t, store, "t3", "Static Bloom", velvet.ID)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "by title word", query: "Midnight", want: []string{"t2"}},
		{name: "by artist name", query: "Velvet", want: []string{"t3"}},
		{name: "no match", query: "polka", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Tracks.Search(ctx, tt.query)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Search() returned %d tracks, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Search()[%d].ID = %q, want %q", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestTrackByIDsPreservesOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	artist := seedArtist(t, store, "a1", "Neon Tide")
	seedTrack(t, store, "t1", "One", artist.ID)
	seedTrack(t, store, "t2", "Two", artist.ID)
	seedTrack(t, store, "t3", "Three", artist.ID)

	got, err := store.Tracks.ByIDs(ctx, []string{"t3", "t1", "missing"})
	if err != nil {
		t.Fatalf("ByIDs() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ByIDs() returned %d tracks, want 2", len(got))
	}
	if got[0].ID != "t3" || got[1].ID != "t1" {
		t.Errorf("ByIDs() order = [%s %s], want [t3 t1]", got[0].ID, got[1].ID)
	}
}

func TestTrackDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	artist := seedArtist(t, store, "a1", "Neon Tide")
	seedTrack(t, store, "t1", "Doomed", artist.ID)

	if err := store.Tracks.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Tracks.ByID(ctx, "t1"); err != errors.ErrTrackNotFound {
		t.Errorf("ByID() after delete error = %v, want ErrTrackNotFound", err)
	}
	if err := store.Tracks.Delete(ctx, "t1"); err != errors.ErrTrackNotFound {
		t.Errorf("Delete() twice error = %v, want ErrTrackNotFound", err)
	}
}

func TestArtistUpsertKeepsID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seedArtist(t, store, "a1", "Neon Tide")

	// Same name under a new id refreshes the bio but keeps the row.
	again := core.Artist{ID: "a9", Name: "Neon Tide", Bio: "synthwave duo", JoinedAt: time.Now().UTC()}
	if err := store.Artists.Upsert(ctx, again); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := store.Artists.ByName(ctx, "Neon Tide")
	if err != nil {
		t.Fatalf("ByName() error = %v", err)
	}
	if got.ID != "a1" {
		t.Errorf("ID = %q after upsert, want original a1", got.ID)
	}
	if got.Bio != "synthwave duo" {
		t.Errorf("Bio = %q, want refreshed bio", got.Bio)
	}
}

func TestArtistByNameMissing(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Artists.ByName(context.Background(), "Nobody")
	if err != errors.ErrArtistNotFound {
		t.Errorf("ByName() error = %v, want ErrArtistNotFound", err)
	}
}

func TestPlaysRecordAndCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	artist := seedArtist(t, store, "a1", "Neon Tide")
	seedTrack(t, store, "t1", "One", artist.ID)
	seedTrack(t, store, "t2", "Two", artist.ID)

	for i := 0; i < 3; i++ {
		if _, err := store.Plays.Record(ctx, "t1", "u1"); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if _, err := store.Plays.Record(ctx, "t2", "u1"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	n, err := store.Plays.CountForTrack(ctx, "t1")
	if err != nil {
		t.Fatalf("CountForTrack() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountForTrack(t1) = %d, want 3", n)
	}

	counts, err := store.Plays.CountsForTracks(ctx, []string{"t1", "t2", "t3"})
	if err != nil {
		t.Fatalf("CountsForTracks() error = %v", err)
	}
	if counts["t1"] != 3 || counts["t2"] != 1 {
		t.Errorf("CountsForTracks() = %v, want t1:3 t2:1", counts)
	}
	if _, ok := counts["t3"]; ok {
		t.Error("CountsForTracks() invented a count for an unplayed track")
	}
}

func TestPlaysRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	artist := seedArtist(t, store, "a1", "Neon Tide")
	for i := 1; i <= 3; i++ {
		seedTrack(t, store, fmt.Sprintf("t%d", i), fmt.Sprintf("Track %d", i), artist.ID)
		if _, err := store.Plays.Record(ctx, fmt.Sprintf("t%d", i), ""); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	history, err := store.Plays.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Recent(2) returned %d entries, want 2", len(history))
	}
	if history[0].Track.ID != "t3" {
		t.Errorf("Recent()[0].Track.ID = %q, want most recent t3", history[0].Track.ID)
	}
}

func TestPlaysTopTracks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	artist := seedArtist(t, store, "a1", "Neon Tide")
	seedTrack(t, store, "t1", "Hit", artist.ID)
	seedTrack(t, store, "t2", "Sleeper", artist.ID)

	for i := 0; i < 5; i++ {
		if _, err := store.Plays.Record(ctx, "t1", ""); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	if _, err := store.Plays.Record(ctx, "t2", ""); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	top, err := store.Plays.TopTracks(ctx, time.Time{}, 10)
	if err != nil {
		t.Fatalf("TopTracks() error = %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("TopTracks() returned %d entries, want 2", len(top))
	}
	if top[0].Track.ID != "t1" || top[0].Plays != 5 {
		t.Errorf("TopTracks()[0] = %s/%d, want t1/5", top[0].Track.ID, top[0].Plays)
	}
	if top[1].Track.ID != "t2" || top[1].Plays != 1 {
		t.Errorf("TopTracks()[1] = %s/%d, want t2/1", top[1].Track.ID, top[1].Plays)
	}
}
