package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/tui/styles"
)

// Library displays the track catalog
type Library struct {
	offset   int
	selected int
}

// NewLibrary creates a new Library component
func NewLibrary() *Library {
	return &Library{}
}

// SelectNext moves the selection down
func (l *Library) SelectNext() {
	l.selected++
}

// SelectPrev moves the selection up
func (l *Library) SelectPrev() {
	if l.selected > 0 {
		l.selected--
	}
}

// Selected returns the selected track index
func (l *Library) Selected() int {
	return l.selected
}

// Render renders the library panel
func (l *Library) Render(tracks []core.Track, currentID string, width, height int, focused bool) string {
	title := styles.PanelTitle(fmt.Sprintf("Library (%d)", len(tracks)), focused)

	var content string
	if len(tracks) == 0 {
		content = styles.Muted.Render("Library is empty. Import tracks with 'murex library import'.")
	} else {
		content = l.renderTracks(tracks, currentID, width-4, height-4, focused)
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

func (l *Library) renderTracks(tracks []core.Track, currentID string, width, maxLines int, focused bool) string {
	if l.selected >= len(tracks) {
		l.selected = len(tracks) - 1
	}
	if l.selected < 0 {
		l.selected = 0
	}

	visibleCount := maxLines - 1
	if visibleCount < 1 {
		visibleCount = 1
	}
	if l.selected < l.offset {
		l.offset = l.selected
	}
	if l.selected >= l.offset+visibleCount {
		l.offset = l.selected - visibleCount + 1
	}

	start := l.offset
	end := start + visibleCount
	if end > len(tracks) {
		end = len(tracks)
	}

	lines := make([]string, 0, end-start+1)

	// Fixed overhead: selector (2) + " — " (3) + clock with gap (7)
	const overhead = 12

	for i := start; i < end; i++ {
		track := tracks[i]

		selector := "  "
		if focused && i == l.selected {
			selector = "▸ "
		}

		clock := core.FormatClock(track.Duration)
		title, artist := fitTitleArtist(track.Title, track.Artist, width-overhead)

		line := fmt.Sprintf("%s%s — %s", selector, title, styles.Muted.Render(artist))
		if track.ID == currentID {
			line = selector + styles.Playing.Render(fmt.Sprintf("%s — %s ♪", title, artist))
		} else if focused && i == l.selected {
			line = selector + styles.Highlight.Render(title) + " — " + styles.Muted.Render(artist)
		}

		lines = append(lines, line+"  "+styles.Dim.Render(clock))
	}

	if end < len(tracks) {
		more := styles.Dim.Render(fmt.Sprintf("    ... and %d more", len(tracks)-end))
		lines = append(lines, more)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
