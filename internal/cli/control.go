package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/murexstreams/murex/internal/core"
)

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	Long:  `Pause playback on the running station.`,
	RunE:  runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume playback",
	Long:  `Resume paused playback on the running station.`,
	RunE:  runResume,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle play/pause",
	RunE:  runToggle,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop playback",
	Long:  `Stop playback and rewind the current track to the start.`,
	RunE:  runStop,
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Skip to next track",
	Long:  `Skip to the next track in the queue.`,
	RunE:  runNext,
}

var prevCmd = &cobra.Command{
	Use:     "prev",
	Aliases: []string{"previous"},
	Short:   "Go to previous track",
	Long:    `Restart the current track, or go back one when near the start.`,
	RunE:    runPrev,
}

var seekCmd = &cobra.Command{
	Use:   "seek <position>",
	Short: "Seek within the current track",
	Long: `Seek to a position, or by a relative amount with a leading + or -.
Positions are mm:ss or plain seconds.

Examples:
  murex seek 1:30     # Jump to 1:30
  murex seek 90       # Same thing
  murex seek +10      # Forward 10 seconds
  murex seek -- -10   # Back 10 seconds`,
	Args: cobra.ExactArgs(1),
	RunE: runSeek,
}

var (
	volumeUp   bool
	volumeDown bool
)

var volumeCmd = &cobra.Command{
	Use:   "volume [level]",
	Short: "Show, set or adjust volume",
	Long: `Set the playback volume (0-100) or adjust it up/down.
Without arguments, shows the current volume.

Examples:
  murex volume 50      # Set volume to 50%
  murex volume --up    # Increase volume by 10%
  murex volume --down  # Decrease volume by 10%`,
	RunE: runVolume,
}

var shuffleCmd = &cobra.Command{
	Use:   "shuffle [on|off]",
	Short: "Show or set shuffle",
	Long:  `Show the shuffle state, or set it with on/off.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShuffle,
}

var repeatCmd = &cobra.Command{
	Use:   "repeat [none|one|all]",
	Short: "Show or set the repeat mode",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRepeat,
}

func init() {
	volumeCmd.Flags().BoolVar(&volumeUp, "up", false, "Increase volume by 10%")
	volumeCmd.Flags().BoolVar(&volumeDown, "down", false, "Decrease volume by 10%")

	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(prevCmd)
	rootCmd.AddCommand(seekCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(shuffleCmd)
	rootCmd.AddCommand(repeatCmd)
}

func runPause(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	state, err := c.Pause(ctx)
	if err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	return printTransport("⏸ Paused", state)
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	state, err := c.Play(ctx, nil, 0)
	if err != nil {
		return fmt.Errorf("failed to resume: %w", err)
	}

	return printTransport("▶ Resumed", state)
}

func runToggle(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	state, err := c.Toggle(ctx)
	if err != nil {
		return fmt.Errorf("failed to toggle: %w", err)
	}

	label := "⏸ Paused"
	if state.IsPlaying {
		label = "▶ Playing"
	}
	return printTransport(label, state)
}

func runStop(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	state, err := c.Stop(ctx)
	if err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}

	return printTransport("⏹ Stopped", state)
}

func runNext(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	state, err := c.Next(ctx)
	if err != nil {
		return fmt.Errorf("failed to skip: %w", err)
	}

	return printTransport("⏭ Skipped", state)
}

func runPrev(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	state, err := c.Previous(ctx)
	if err != nil {
		return fmt.Errorf("failed to go back: %w", err)
	}

	return printTransport("⏮ Previous", state)
}

func runSeek(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	pos, delta, err := parseSeek(args[0])
	if err != nil {
		return err
	}

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	var state *core.PlaybackState
	if delta != 0 {
		state, err = c.SeekBy(ctx, delta)
	} else {
		state, err = c.SeekTo(ctx, pos)
	}
	if err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(state)
	}
	fmt.Printf("⏩ %s\n", core.FormatClockRange(state.Position, state.Duration))
	return nil
}

func runVolume(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	state, err := c.PlayerState(ctx)
	if err != nil {
		return fmt.Errorf("failed to get playback state: %w", err)
	}
	current := volumePercent(state.Volume)

	if !volumeUp && !volumeDown && len(args) == 0 {
		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"volume": current})
		}
		fmt.Printf("🔊 Volume: %d%%\n", current)
		return nil
	}

	target := current
	switch {
	case volumeUp:
		target += 10
	case volumeDown:
		target -= 10
	default:
		val, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid volume level: %s", args[0])
		}
		target = val
	}
	if target < 0 {
		target = 0
	}
	if target > 100 {
		target = 100
	}

	if _, err := c.SetVolume(ctx, float64(target)/100); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"volume":   target,
			"previous": current,
		})
	}
	fmt.Printf("🔊 Volume: %d%% (was %d%%)\n", target, current)
	return nil
}

func runShuffle(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		state, err := c.PlayerState(ctx)
		if err != nil {
			return fmt.Errorf("failed to get playback state: %w", err)
		}
		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"shuffle": state.Shuffle})
		}
		fmt.Printf("🔀 Shuffle: %s\n", onOff(state.Shuffle))
		return nil
	}

	enabled, err := parseOnOff(args[0])
	if err != nil {
		return err
	}

	state, err := c.SetShuffle(ctx, enabled)
	if err != nil {
		return fmt.Errorf("failed to set shuffle: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"shuffle": state.Shuffle})
	}
	fmt.Printf("🔀 Shuffle: %s\n", onOff(state.Shuffle))
	return nil
}

func runRepeat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		state, err := c.PlayerState(ctx)
		if err != nil {
			return fmt.Errorf("failed to get playback state: %w", err)
		}
		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"repeat": state.Repeat})
		}
		fmt.Printf("🔁 Repeat: %s\n", state.Repeat)
		return nil
	}

	mode, err := core.ParseRepeatMode(args[0])
	if err != nil {
		return err
	}

	state, err := c.SetRepeat(ctx, string(mode))
	if err != nil {
		return fmt.Errorf("failed to set repeat: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{"repeat": state.Repeat})
	}
	fmt.Printf("🔁 Repeat: %s\n", state.Repeat)
	return nil
}

// printTransport reports a transport change, echoing the current track
// when one is loaded.
func printTransport(label string, state *core.PlaybackState) error {
	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(state)
	}
	if state.HasTrack() {
		fmt.Printf("%s  %s — %s\n", label, state.Track.Title, state.Track.Artist)
	} else {
		fmt.Println(label)
	}
	return nil
}

// parseSeek reads "1:30", "90" or "+10". A leading sign makes the
// amount relative and is returned in delta.
func parseSeek(arg string) (pos, delta time.Duration, err error) {
	relative := strings.HasPrefix(arg, "+") || strings.HasPrefix(arg, "-")
	negative := strings.HasPrefix(arg, "-")

	d, err := parseClock(strings.TrimLeft(arg, "+-"))
	if err != nil {
		return 0, 0, err
	}

	if relative {
		if negative {
			d = -d
		}
		if d == 0 {
			// +0 means "to the start", not "stay put".
			return 0, 0, nil
		}
		return 0, d, nil
	}
	return d, 0, nil
}

// parseClock reads "mm:ss" or plain seconds.
func parseClock(s string) (time.Duration, error) {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		m, err1 := strconv.Atoi(s[:i])
		sec, err2 := strconv.Atoi(s[i+1:])
		if err1 != nil || err2 != nil || m < 0 || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("bad position %q (use mm:ss or seconds)", s)
		}
		return time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
	}
	sec, err := strconv.Atoi(s)
	if err != nil || sec < 0 {
		return 0, fmt.Errorf("bad position %q (use mm:ss or seconds)", s)
	}
	return time.Duration(sec) * time.Second, nil
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

// volumePercent converts the engine's 0..1 volume to the CLI's 0-100.
func volumePercent(v float64) int {
	return int(v*100 + 0.5)
}
