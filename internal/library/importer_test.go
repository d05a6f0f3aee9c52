package library

import (
	"context"
	stderrors "errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/murexstreams/murex/internal/errors"
)

// writeTestWAV renders a mono 16-bit sine to path. One second at 8kHz
// keeps test files small.
func writeTestWAV(t *testing.T, path string, freq float64, seconds float64) {
	t.Helper()

	const rate = 8000
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer f.Close()

	n := int(float64(rate) * seconds)
	data := make([]int, n)
	for i := range data {
		data[i] = int(12000 * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encoding wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("closing wav encoder: %v", err)
	}
}

func newTestImporter(t *testing.T) (*Importer, *Store) {
	t.Helper()
	store := openTestStore(t)
	return NewImporter(store, nil), store
}

func TestImportFile(t *testing.T) {
	imp, store := newTestImporter(t)
	ctx := context.Background()

	dir := filepath.Join(t.TempDir(), "Neon Tide")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "electric_sunrise.wav")
	writeTestWAV(t, path, 440, 1.0)

	res, err := imp.ImportFile(ctx, path, ImportOptions{})
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}

	track := res.Track
	if track.Title != "electric sunrise" {
		t.Errorf("Title = %q, want %q", track.Title, "electric sunrise")
	}
	if track.Artist != "Neon Tide" {
		t.Errorf("Artist = %q, want parent directory name", track.Artist)
	}
	if track.Duration != time.Second {
		t.Errorf("Duration = %v, want 1s", track.Duration)
	}
	if !strings.HasPrefix(track.Fingerprint, "mx1:") {
		t.Errorf("Fingerprint = %q, want mx1: prefix", track.Fingerprint)
	}

	analysis, err := store.Tracks.Analysis(ctx, track.ID)
	if err != nil {
		t.Fatalf("Analysis() error = %v", err)
	}
	if len(analysis.Waveform) == 0 {
		t.Error("stored waveform is empty, want RMS preview")
	}

	all, err := store.Tracks.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List() returned %d tracks, want 1", len(all))
	}
}

func TestImportFileDuplicate(t *testing.T) {
	imp, _ := newTestImporter(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "song.wav")
	writeTestWAV(t, path, 440, 0.5)

	first, err := imp.ImportFile(ctx, path, ImportOptions{Artist: "Neon Tide"})
	if err != nil {
		t.Fatalf("first ImportFile() error = %v", err)
	}

	second, err := imp.ImportFile(ctx, path, ImportOptions{Artist: "Neon Tide"})
	if err != errors.ErrDuplicateTrack {
		t.Fatalf("second ImportFile() error = %v, want ErrDuplicateTrack", err)
	}
	if !second.Duplicate {
		t.Error("Duplicate = false on re-import, want true")
	}
	if second.Track.ID != first.Track.ID {
		t.Errorf("duplicate resolved to track %q, want original %q", second.Track.ID, first.Track.ID)
	}
}

func TestImportFileDuplicateContentDifferentName(t *testing.T) {
	imp, store := newTestImporter(t)
	ctx := context.Background()

	dir := t.TempDir()
	original := filepath.Join(dir, "original.wav")
	writeTestWAV(t, original, 440, 0.5)

	data, err := os.ReadFile(original)
	if err != nil {
		t.Fatal(err)
	}
	renamed := filepath.Join(dir, "renamed copy.wav")
	if err := os.WriteFile(renamed, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := imp.ImportFile(ctx, original, ImportOptions{Artist: "Neon Tide"}); err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if _, err := imp.ImportFile(ctx, renamed, ImportOptions{Artist: "Neon Tide"}); err != errors.ErrDuplicateTrack {
		t.Errorf("renamed copy import error = %v, want ErrDuplicateTrack", err)
	}

	all, err := store.Tracks.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("catalog holds %d tracks, want 1 (content dedupe)", len(all))
	}
}

func TestImportFileExplicitOptions(t *testing.T) {
	imp, _ := newTestImporter(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "track.wav")
	writeTestWAV(t, path, 440, 0.5)

	res, err := imp.ImportFile(ctx, path, ImportOptions{
		Artist: "Velvet Static",
		Album:  "Night Drive",
		Genre:  "synthwave",
	})
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if res.Track.Artist != "Velvet Static" {
		t.Errorf("Artist = %q, want explicit option", res.Track.Artist)
	}
	if res.Track.Album != "Night Drive" || res.Track.Genre != "synthwave" {
		t.Errorf("Album/Genre = %q/%q, want options applied", res.Track.Album, res.Track.Genre)
	}
}

func TestImportDir(t *testing.T) {
	imp, _ := newTestImporter(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeTestWAV(t, filepath.Join(dir, "one.wav"), 440, 0.5)
	writeTestWAV(t, filepath.Join(dir, "two.wav"), 880, 0.5)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.wav"), []byte("garbage bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := imp.ImportDir(ctx, dir, ImportOptions{Artist: "Neon Tide"})
	if err != nil {
		t.Fatalf("ImportDir() error = %v", err)
	}
	if len(result.Data) != 2 {
		t.Errorf("imported %d tracks, want 2", len(result.Data))
	}
	if !result.HasErrors() {
		t.Error("HasErrors() = false, want the broken file reported")
	}
	if len(result.Errors) != 1 {
		t.Errorf("len(Errors) = %d, want 1", len(result.Errors))
	}
}

func TestImportDirSkipsDuplicates(t *testing.T) {
	imp, _ := newTestImporter(t)
	ctx := context.Background()

	dir := t.TempDir()
	writeTestWAV(t, filepath.Join(dir, "one.wav"), 440, 0.5)

	if _, err := imp.ImportDir(ctx, dir, ImportOptions{Artist: "Neon Tide"}); err != nil {
		t.Fatalf("first ImportDir() error = %v", err)
	}
	result, err := imp.ImportDir(ctx, dir, ImportOptions{Artist: "Neon Tide"})
	if err != nil {
		t.Fatalf("second ImportDir() error = %v", err)
	}
	if len(result.Data) != 0 {
		t.Errorf("rescan imported %d tracks, want 0", len(result.Data))
	}
	if result.HasErrors() {
		t.Errorf("rescan reported errors: %v", result.Errors)
	}
}

func TestProbeFileUnsupported(t *testing.T) {
	_, err := ProbeFile("liner-notes.txt")
	if !stderrors.Is(err, errors.ErrUnsupportedFormat) {
		t.Errorf("ProbeFile() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSupportedExt(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{path: "a.mp3", want: true},
		{path: "b.WAV", want: true},
		{path: "c.flac", want: true},
		{path: "d.ogg", want: true},
		{path: "e.oga", want: true},
		{path: "f.txt", want: false},
		{path: "g.m4a", want: false},
		{path: "noext", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := SupportedExt(tt.path); got != tt.want {
				t.Errorf("SupportedExt(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
