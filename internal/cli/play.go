package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/murexstreams/murex/internal/core"
)

var playByID bool

var playCmd = &cobra.Command{
	Use:   "play [query]",
	Short: "Start or resume playback",
	Long: `Start playing tracks from the catalog. Without arguments, resumes
current playback.

With a query the catalog is searched across title, artist and album.
One match plays immediately; several matches open a picker on a
terminal, and playback continues down the result list from the pick.

Examples:
  murex play                  # Resume playback
  murex play glass harbor     # Search and play
  murex play --id 0198f2ab    # Play an exact track id`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().BoolVar(&playByID, "id", false, "Treat arguments as exact track ids")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		state, err := c.Play(ctx, nil, 0)
		if err != nil {
			return fmt.Errorf("failed to resume playback: %w", err)
		}
		return printTransport("▶ Resumed", state)
	}

	if playByID {
		state, err := c.Play(ctx, args, 0)
		if err != nil {
			return fmt.Errorf("failed to play: %w", err)
		}
		return printTransport("▶ Playing", state)
	}

	query := strings.Join(args, " ")
	tracks, err := c.Tracks(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(tracks) == 0 {
		return fmt.Errorf("no tracks match %q", query)
	}

	index := 0
	if len(tracks) > 1 && isTerminal() && !JSONOutput() {
		index, err = pickTrack("Play which track?", tracks)
		if err != nil {
			return err
		}
	}

	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}

	state, err := c.Play(ctx, ids, index)
	if err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}
	return printTransport("▶ Playing", state)
}

// pickTrack shows a selector over the matches and returns the chosen
// index.
func pickTrack(title string, tracks []core.Track) (int, error) {
	options := make([]huh.Option[int], len(tracks))
	for i, t := range tracks {
		label := fmt.Sprintf("%s — %s", t.Title, t.Artist)
		if t.Album != "" {
			label = fmt.Sprintf("%s (%s)", label, t.Album)
		}
		options[i] = huh.NewOption(label, i)
	}

	var index int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(title).
				Options(options...).
				Value(&index),
		),
	)
	if err := form.Run(); err != nil {
		return 0, fmt.Errorf("selection cancelled: %w", err)
	}
	return index, nil
}
