package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/tui/styles"
)

// NowPlaying displays the currently playing track
type NowPlaying struct{}

// NewNowPlaying creates a new NowPlaying component
func NewNowPlaying() *NowPlaying {
	return &NowPlaying{}
}

// Render renders the now playing panel
func (n *NowPlaying) Render(state *core.PlaybackState, width, height int, focused bool) string {
	title := styles.PanelTitle("Now Playing", focused)

	var content string
	if !state.HasTrack() {
		content = styles.Muted.Render("Nothing playing. Pick a track and press Enter.")
	} else {
		content = n.renderTrack(state, width-4)
	}

	panel := styles.Panel(focused).
		Width(width).
		Height(height)

	return panel.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		content,
	))
}

// RenderMini renders the collapsed one-line player bar.
func (n *NowPlaying) RenderMini(state *core.PlaybackState, width int) string {
	var line string
	if !state.HasTrack() {
		line = styles.Muted.Render("Nothing playing")
	} else {
		track := state.Track
		icon := styles.StatusIcon(state.IsPlaying)
		clock := styles.Dim.Render(core.FormatClockRange(state.Position, state.Duration))
		line = fmt.Sprintf("%s %s %s  %s  %s",
			icon,
			styles.Title.Render(truncate(track.Title, width/3)),
			styles.Muted.Render("— "+truncate(track.Artist, width/4)),
			clock,
			n.modeIcons(state))
	}

	return styles.BorderStyle.
		Padding(0, 1).
		Width(width).
		Render(line)
}

func (n *NowPlaying) renderTrack(state *core.PlaybackState, width int) string {
	track := state.Track

	icon := styles.StatusIcon(state.IsPlaying)
	if state.IsLoading {
		icon = styles.Dim.Render("…")
	}
	titleStyle := styles.Title.Copy().Width(width - 4)
	title := titleStyle.Render(track.Title)

	artist := styles.Subtitle.Render(track.Artist)
	album := styles.Dim.Render(track.Album)

	// Account for the clocks on either side of the bar.
	progressWidth := width - 14
	if progressWidth < 10 {
		progressWidth = 10
	}
	progressBar := styles.ProgressBar(state.ProgressPercent(), progressWidth)
	progress := fmt.Sprintf("%s %s %s",
		core.FormatClock(state.Position),
		progressBar,
		core.FormatClock(state.Duration))

	modeLine := n.modeIcons(state)
	if state.Err != "" {
		modeLine += "  " + styles.Paused.Render("⚠ "+state.Err)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		icon+" "+title,
		"  "+artist,
		"  "+album,
		"",
		progress,
		"",
		modeLine,
	)
}

func (n *NowPlaying) modeIcons(state *core.PlaybackState) string {
	vol := styles.Muted.Render(fmt.Sprintf("🔊 %d%%", int(state.Volume*100+0.5)))

	shuffle := styles.Dim.Render("🔀 off")
	if state.Shuffle {
		shuffle = styles.Playing.Render("🔀 on")
	}

	repeat := styles.Dim.Render("🔁 " + string(state.Repeat))
	if state.Repeat != core.RepeatNone {
		repeat = styles.Playing.Render("🔁 " + string(state.Repeat))
	}

	return fmt.Sprintf("%s  %s  %s", vol, shuffle, repeat)
}
