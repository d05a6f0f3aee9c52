package library

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/logging"
)

// ImportOptions override metadata inferred from the file path.
type ImportOptions struct {
	Artist string
	Album  string
	Genre  string
}

// ImportResult reports one file's trip through the pipeline.
type ImportResult struct {
	Track     core.Track
	Duplicate bool
}

// Importer runs the ingest pipeline: probe, fingerprint, dedupe,
// analyze, persist.
type Importer struct {
	store *Store
	log   *logging.Logger
}

// NewImporter wires an importer over the catalog store.
func NewImporter(store *Store, log *logging.Logger) *Importer {
	if log == nil {
		log = logging.Discard()
	}
	return &Importer{store: store, log: log}
}

// ImportFile ingests a single audio file. When the audio content is
// already in the catalog the existing track is returned with
// Duplicate set and ErrDuplicateTrack.
func (imp *Importer) ImportFile(ctx context.Context, path string, opts ImportOptions) (*ImportResult, error) {
	probe, err := ProbeFile(path)
	if err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(probe.PCM)
	if existing, err := imp.store.Tracks.ByFingerprint(ctx, fingerprint); err == nil {
		imp.log.Infof("skipping %s: already imported as %q", filepath.Base(path), existing.Title)
		return &ImportResult{Track: existing, Duplicate: true}, errors.ErrDuplicateTrack
	} else if err != errors.ErrTrackNotFound {
		return nil, err
	}

	artist, err := imp.ensureArtist(ctx, artistName(path, opts))
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating track id: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	track := core.Track{
		ID:          id.String(),
		Title:       titleFromPath(path),
		Artist:      artist.Name,
		ArtistID:    artist.ID,
		Album:       opts.Album,
		Genre:       opts.Genre,
		Duration:    probe.Duration,
		AudioPath:   abs,
		Fingerprint: fingerprint,
		AddedAt:     time.Now().UTC(),
	}
	analysis := Analysis{
		Waveform: WaveformPreview(probe.PCM),
		Energy:   EnergyScore(probe.PCM),
	}

	if err := imp.store.Tracks.Insert(ctx, track, analysis); err != nil {
		return nil, err
	}
	imp.log.Infof("imported %q by %q (%s)", track.Title, track.Artist, core.FormatClock(track.Duration))
	return &ImportResult{Track: track}, nil
}

// ImportDir walks a directory tree and imports every supported audio
// file. Duplicates are skipped silently; other failures are collected
// so one bad file never aborts the scan.
func (imp *Importer) ImportDir(ctx context.Context, dir string, opts ImportOptions) (*errors.PartialResult[[]core.Track], error) {
	result := &errors.PartialResult[[]core.Track]{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !SupportedExt(path) {
			return nil
		}

		res, err := imp.ImportFile(ctx, path, opts)
		switch {
		case err == errors.ErrDuplicateTrack:
			return nil
		case err != nil:
			result.AddError(fmt.Errorf("%s: %w", filepath.Base(path), err))
			return nil
		}
		result.Data = append(result.Data, res.Track)
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("scanning %s: %w", dir, err)
	}
	return result, nil
}

// ensureArtist returns the named artist, creating it on first sight.
func (imp *Importer) ensureArtist(ctx context.Context, name string) (core.Artist, error) {
	if existing, err := imp.store.Artists.ByName(ctx, name); err == nil {
		return existing, nil
	} else if err != errors.ErrArtistNotFound {
		return core.Artist{}, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return core.Artist{}, fmt.Errorf("generating artist id: %w", err)
	}
	artist := core.Artist{
		ID:       id.String(),
		Name:     name,
		JoinedAt: time.Now().UTC(),
	}
	if err := imp.store.Artists.Upsert(ctx, artist); err != nil {
		return core.Artist{}, err
	}
	return artist, nil
}

// artistName prefers the explicit option, then the parent directory.
func artistName(path string, opts ImportOptions) string {
	if opts.Artist != "" {
		return opts.Artist
	}
	parent := filepath.Base(filepath.Dir(path))
	if parent == "." || parent == string(filepath.Separator) || parent == "" {
		return "Unknown Artist"
	}
	return cleanPathWord(parent)
}

// titleFromPath turns "my_cool-track.mp3" into "my cool track".
func titleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return cleanPathWord(base)
}

func cleanPathWord(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}
