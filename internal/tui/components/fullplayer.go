package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/tui/styles"
)

// FullPlayer is the immersive view with the waveform preview.
type FullPlayer struct{}

// NewFullPlayer creates a new FullPlayer component
func NewFullPlayer() *FullPlayer {
	return &FullPlayer{}
}

// Render renders the full-screen player.
func (f *FullPlayer) Render(state *core.PlaybackState, preview []byte, width, height int) string {
	var content string
	if !state.HasTrack() {
		content = styles.Muted.Render("Nothing playing")
	} else {
		content = f.renderTrack(state, preview, width)
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (f *FullPlayer) renderTrack(state *core.PlaybackState, preview []byte, width int) string {
	track := state.Track

	waveWidth := width * 3 / 4
	if waveWidth > 100 {
		waveWidth = 100
	}
	if waveWidth < 20 {
		waveWidth = 20
	}

	center := lipgloss.NewStyle().Width(waveWidth).Align(lipgloss.Center)

	title := center.Render(styles.Highlight.Render(track.Title))
	artist := center.Render(styles.Subtitle.Render(track.Artist))
	album := center.Render(styles.Dim.Render(track.Album))

	wave := renderWaveform(preview, waveWidth, state.ProgressPercent())

	clock := center.Render(fmt.Sprintf("%s %s",
		styles.StatusIcon(state.IsPlaying),
		styles.Muted.Render(core.FormatClockRange(state.Position, state.Duration))))

	np := NowPlaying{}
	modes := center.Render(np.modeIcons(state))

	hint := center.Render(styles.Dim.Render("esc: back  space: play/pause  ←/→: seek"))

	return lipgloss.JoinVertical(lipgloss.Center,
		title,
		artist,
		album,
		"",
		wave,
		"",
		clock,
		modes,
		"",
		hint,
	)
}

var waveformRunes = []rune("▁▂▃▄▅▆▇█")

// renderWaveform scales the stored amplitude preview to the given
// width and colors the already-played columns.
func renderWaveform(preview []byte, width int, percent float64) string {
	if width < 1 {
		return ""
	}
	if len(preview) == 0 {
		return styles.Dim.Render(styles.Repeat("▁", width))
	}

	cols := make([]rune, width)
	for i := range cols {
		start := i * len(preview) / width
		end := (i + 1) * len(preview) / width
		if end <= start {
			end = start + 1
		}
		if end > len(preview) {
			end = len(preview)
		}

		var peak byte
		for _, v := range preview[start:end] {
			if v > peak {
				peak = v
			}
		}
		cols[i] = waveformRunes[int(peak)*len(waveformRunes)/256]
	}

	played := int(percent / 100 * float64(width))
	if played > width {
		played = width
	}
	if played < 0 {
		played = 0
	}

	playedStyle := lipgloss.NewStyle().Foreground(styles.Primary)
	restStyle := lipgloss.NewStyle().Foreground(styles.Border)

	return playedStyle.Render(string(cols[:played])) +
		restStyle.Render(string(cols[played:]))
}
