package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/murexstreams/murex/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current playback status",
	Long:  `Shows what the station is playing, the transport modes and queue depth.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	state, err := c.PlayerState(ctx)
	if err != nil {
		return fmt.Errorf("failed to get playback state: %w", err)
	}

	queue, err := c.PlayerQueue(ctx)
	if err != nil {
		return fmt.Errorf("failed to get queue: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"state":        state,
			"queue_length": queue.Len(),
		})
	}

	if !state.HasTrack() {
		fmt.Println("Nothing playing")
		if queue.Len() > 0 {
			fmt.Printf("%d tracks queued\n", queue.Len())
		}
		return nil
	}

	icon := "▶"
	if !state.IsPlaying {
		icon = "⏸"
	}

	fmt.Printf("%s %s\n", icon, state.Track.Title)
	if state.Track.Album != "" {
		fmt.Printf("  %s — %s\n", state.Track.Artist, state.Track.Album)
	} else {
		fmt.Printf("  %s\n", state.Track.Artist)
	}

	fmt.Printf("  %s %s\n",
		FormatProgress(state.ProgressPercent(), 30),
		core.FormatClockRange(state.Position, state.Duration))

	fmt.Printf("  🔊 %d%%  🔀 %s  🔁 %s", volumePercent(state.Volume), onOff(state.Shuffle), state.Repeat)
	if queue.Len() > 1 {
		fmt.Printf("  •  %d/%d in queue", queue.CurrentIndex+1, queue.Len())
	}
	fmt.Println()

	if state.Err != "" {
		fmt.Printf("  ⚠ %s\n", state.Err)
	}

	return nil
}
