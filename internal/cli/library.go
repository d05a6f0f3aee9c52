package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/errors"
	"github.com/murexstreams/murex/internal/library"
)

var (
	importArtist string
	importAlbum  string
	importGenre  string
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the local catalog",
	Long:  `Import audio files into the catalog and browse what is there.`,
}

var libraryListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List catalog tracks",
	Long:  `List catalog tracks, optionally filtered by a title, artist or album search.`,
	RunE:  runLibraryList,
}

var libraryImportCmd = &cobra.Command{
	Use:   "import <path>...",
	Short: "Import audio files",
	Long: `Import audio files or directories into the catalog.

Each file is probed, fingerprinted and analyzed for its waveform
preview. A file whose audio is already in the catalog is skipped as
a duplicate.

Examples:
  murex library import ~/Music
  murex library import take1.wav --artist "Neon Tide" --album "Undertow"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLibraryImport,
}

var libraryRescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Re-import the library directory",
	Long:  `Walk the configured library directory and import anything new.`,
	RunE:  runLibraryRescan,
}

func init() {
	libraryImportCmd.Flags().StringVar(&importArtist, "artist", "", "Artist for the imported tracks")
	libraryImportCmd.Flags().StringVar(&importAlbum, "album", "", "Album for the imported tracks")
	libraryImportCmd.Flags().StringVar(&importGenre, "genre", "", "Genre for the imported tracks")

	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryImportCmd)
	libraryCmd.AddCommand(libraryRescanCmd)
	rootCmd.AddCommand(libraryCmd)
}

func runLibraryList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer store.Close()

	var tracks []core.Track
	if len(args) > 0 {
		tracks, err = store.Tracks.Search(ctx, strings.Join(args, " "))
	} else {
		tracks, err = store.Tracks.List(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}

	if len(tracks) == 0 {
		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode([]interface{}{})
		}
		fmt.Println("No tracks found. Import some with 'murex library import <path>'.")
		return nil
	}

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	counts, err := store.Plays.CountsForTracks(ctx, ids)
	if err != nil {
		counts = map[string]int64{}
	}

	if JSONOutput() {
		type row struct {
			core.Track
			Plays int64 `json:"plays"`
		}
		out := make([]row, len(tracks))
		for i, t := range tracks {
			out[i] = row{Track: t, Plays: counts[t.ID]}
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	table := NewTable("TITLE", "ARTIST", "ALBUM", "LENGTH", "PLAYS")
	for _, t := range tracks {
		table.Row(
			TruncateString(t.Title, 40),
			TruncateString(t.Artist, 30),
			TruncateString(t.Album, 30),
			core.FormatClock(t.Duration),
			fmt.Sprintf("%d", counts[t.ID]),
		)
	}
	table.Flush()

	if Verbose() {
		fmt.Printf("\n%d tracks\n", len(tracks))
	}
	return nil
}

func runLibraryImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer store.Close()

	log, err := openLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	imp := library.NewImporter(store, log)
	opts := library.ImportOptions{Artist: importArtist, Album: importAlbum, Genre: importGenre}

	var imported []core.Track
	var duplicates int
	var importErrors []error

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			importErrors = append(importErrors, err)
			continue
		}

		if info.IsDir() {
			result, err := imp.ImportDir(ctx, path, opts)
			if result != nil {
				imported = append(imported, result.Data...)
				importErrors = append(importErrors, result.Errors...)
			}
			if err != nil {
				importErrors = append(importErrors, err)
			}
			continue
		}

		res, err := imp.ImportFile(ctx, path, opts)
		switch {
		case stderrors.Is(err, errors.ErrDuplicateTrack):
			duplicates++
			if !JSONOutput() {
				fmt.Printf("≈ Already in catalog: %s\n", res.Track.Title)
			}
		case err != nil:
			importErrors = append(importErrors, fmt.Errorf("%s: %w", path, err))
		default:
			imported = append(imported, res.Track)
			if !JSONOutput() {
				fmt.Printf("+ %s — %s (%s)\n", res.Track.Title, res.Track.Artist, core.FormatClock(res.Track.Duration))
			}
		}
	}

	return printImportSummary(imported, duplicates, importErrors)
}

func runLibraryRescan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	dir, err := cfg.Library.ResolveDir()
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer store.Close()

	log, err := openLogger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Close() }()

	imp := library.NewImporter(store, log)

	result, err := imp.ImportDir(ctx, dir, library.ImportOptions{})
	if err != nil {
		return err
	}

	if !JSONOutput() {
		for _, t := range result.Data {
			fmt.Printf("+ %s — %s (%s)\n", t.Title, t.Artist, core.FormatClock(t.Duration))
		}
	}
	return printImportSummary(result.Data, 0, result.Errors)
}

func printImportSummary(imported []core.Track, duplicates int, importErrors []error) error {
	if JSONOutput() {
		msgs := make([]string, len(importErrors))
		for i, err := range importErrors {
			msgs[i] = err.Error()
		}
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"imported":   len(imported),
			"duplicates": duplicates,
			"errors":     msgs,
		})
	}

	fmt.Printf("\nImported %d tracks", len(imported))
	if duplicates > 0 {
		fmt.Printf(", %d duplicates skipped", duplicates)
	}
	if len(importErrors) > 0 {
		fmt.Printf(", %d failed", len(importErrors))
	}
	fmt.Println()

	for _, err := range importErrors {
		fmt.Fprintf(os.Stderr, "  ✗ %v\n", err)
	}
	if len(importErrors) > 0 {
		return fmt.Errorf("%d files failed to import", len(importErrors))
	}
	return nil
}
