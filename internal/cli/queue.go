package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/murexstreams/murex/internal/core"
)

var queueLimit int

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the playback queue",
	Long:  `View and manage the playback queue.`,
	RunE:  runQueueList,
}

var queueAddByID bool

var queueAddCmd = &cobra.Command{
	Use:   "add <query>",
	Short: "Add tracks to the queue",
	Long: `Search the catalog and append every match to the queue.

Examples:
  murex queue add "glass harbor"
  murex queue add --id 0198f2ab 0198f3cd`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQueueAdd,
}

var queueClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the queue",
	Long:  `Remove every track from the queue and stop playback.`,
	RunE:  runQueueClear,
}

var queueJumpCmd = &cobra.Command{
	Use:   "jump <position>",
	Short: "Jump to a queue position",
	Long:  `Jump playback to the 1-based position shown by 'murex queue'.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueJump,
}

func init() {
	queueCmd.Flags().IntVarP(&queueLimit, "limit", "l", 20, "Maximum number of tracks to show")
	queueAddCmd.Flags().BoolVar(&queueAddByID, "id", false, "Treat arguments as exact track ids")

	queueCmd.AddCommand(queueAddCmd)
	queueCmd.AddCommand(queueClearCmd)
	queueCmd.AddCommand(queueJumpCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	queue, err := c.PlayerQueue(ctx)
	if err != nil {
		return fmt.Errorf("failed to get queue: %w", err)
	}

	if queue.IsEmpty() {
		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
				"queue": []interface{}{},
				"total": 0,
			})
		}
		fmt.Println("Queue is empty")
		return nil
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"queue":   queue.Tracks,
			"total":   queue.Len(),
			"current": queue.CurrentIndex,
		})
	}

	tracks := queue.Tracks
	if queueLimit > 0 && len(tracks) > queueLimit {
		tracks = tracks[:queueLimit]
	}

	fmt.Println("Queue:")
	for i, t := range tracks {
		prefix := "  "
		if i == queue.CurrentIndex {
			prefix = "▶ "
		}
		fmt.Printf("%s%d. %s — %s (%s)\n", prefix, i+1,
			TruncateString(t.Title, 40), t.Artist, core.FormatClock(t.Duration))
	}

	if queue.Len() > len(tracks) {
		fmt.Printf("\n... and %d more tracks\n", queue.Len()-len(tracks))
	}

	return nil
}

func runQueueAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	var ids []string
	var label string

	if queueAddByID {
		ids = args
		label = fmt.Sprintf("%d tracks", len(ids))
	} else {
		query := strings.Join(args, " ")
		tracks, err := c.Tracks(ctx, query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(tracks) == 0 {
			return fmt.Errorf("no tracks match %q", query)
		}
		ids = make([]string, len(tracks))
		for i, t := range tracks {
			ids[i] = t.ID
		}
		if len(tracks) == 1 {
			label = fmt.Sprintf("%s — %s", tracks[0].Title, tracks[0].Artist)
		} else {
			label = fmt.Sprintf("%d tracks matching %q", len(tracks), query)
		}
	}

	queue, err := c.QueueAdd(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"status": "added",
			"added":  len(ids),
			"total":  queue.Len(),
		})
	}
	fmt.Printf("Added to queue: %s (%d total)\n", label, queue.Len())
	return nil
}

func runQueueClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	if _, err := c.QueueClear(ctx); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{"status": "cleared"})
	}
	fmt.Println("Queue cleared")
	return nil
}

func runQueueJump(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	position, err := strconv.Atoi(args[0])
	if err != nil || position < 1 {
		return fmt.Errorf("invalid queue position: %s", args[0])
	}

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	state, err := c.QueueJump(ctx, position-1)
	if err != nil {
		return fmt.Errorf("failed to jump: %w", err)
	}

	return printTransport("▶ Playing", state)
}
