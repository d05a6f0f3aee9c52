package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/murexstreams/murex/internal/remote"
	"github.com/murexstreams/murex/internal/watch"
)

var (
	tailNoEmoji   bool
	tailTimestamp bool
	tailFormat    string
	tailInterval  time.Duration
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow station playback in real-time",
	Long: `Watch the running station for playback changes and print them as
they happen.

Events tracked:
  - Track changes (new song started)
  - Track completions (song finished)
  - Track skips (song skipped before completion)
  - Pause/Resume
  - Volume, shuffle and repeat changes
  - Queue edits

The --format template sees {{.Type}}, {{.Emoji}}, {{.Time}}, {{.Title}},
{{.Artist}}, {{.Album}}, {{.Volume}}, {{.Position}} and {{.Duration}}.`,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().BoolVar(&tailNoEmoji, "no-emoji", false, "disable emoji output")
	tailCmd.Flags().BoolVarP(&tailTimestamp, "timestamp", "t", false, "show timestamps")
	tailCmd.Flags().StringVarP(&tailFormat, "format", "f", "", "custom format template")
	tailCmd.Flags().DurationVarP(&tailInterval, "interval", "i", 0, "poll interval (default from config)")

	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	formatter := watch.NewFormatter(
		watch.WithEmoji(!tailNoEmoji),
		watch.WithTimestamp(tailTimestamp),
		watch.WithTemplate(tailFormat),
	)

	interval := tailInterval
	if interval == 0 {
		interval = time.Duration(cfg.Tail.Interval) * time.Millisecond
	}

	// Handle Ctrl+C gracefully
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	// Show recent plays and the current song on startup
	showInitialState(ctx, c, formatter)

	watcher := watch.NewWatcher(c, interval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- watcher.Start(ctx)
	}()

	// Print events as they arrive
	for {
		select {
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			fmt.Println(formatter.Format(event))

		case err := <-errCh:
			if err == context.Canceled {
				return nil
			}
			return err
		}
	}
}

// showInitialState displays recent plays and the current song on startup.
func showInitialState(ctx context.Context, c *remote.Client, formatter *watch.Formatter) {
	// Show the last 5 plays, oldest first so the newest sits at the bottom
	history, err := c.History(ctx, 5)
	if err == nil {
		for i := len(history) - 1; i >= 0; i-- {
			entry := history[i]
			timestamp := ""
			if tailTimestamp {
				timestamp = entry.PlayedAt.Local().Format("15:04:05") + " "
			}
			emoji := ""
			if !tailNoEmoji {
				emoji = "⏪ "
			}
			fmt.Printf("%s%s%s — %s\n", timestamp, emoji, entry.Track.Artist, entry.Track.Title)
		}
	}

	state, err := c.PlayerState(ctx)
	if err == nil && state.HasTrack() {
		event := watch.Event{
			Type:      watch.EventTrackChange,
			Timestamp: time.Now(),
			Current:   state,
		}
		fmt.Println(formatter.Format(event))
	}
}
