package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/murexstreams/murex/internal/core"
	"github.com/murexstreams/murex/internal/tui/styles"
)

// Queue displays the playback queue
type Queue struct {
	offset   int
	selected int
}

// NewQueue creates a new Queue component
func NewQueue() *Queue {
	return &Queue{}
}

// SelectNext moves the selection down
func (q *Queue) SelectNext() {
	q.selected++
}

// SelectPrev moves the selection up
func (q *Queue) SelectPrev() {
	if q.selected > 0 {
		q.selected--
	}
}

// Selected returns the selected index
func (q *Queue) Selected() int {
	return q.selected
}

// Render renders the queue panel
func (q *Queue) Render(queue *core.Queue, width, height int, focused bool) string {
	title := styles.PanelTitle("Queue", focused)

	var content string
	if queue == nil || queue.IsEmpty() {
		content = styles.Muted.Render("Queue is empty")
	} else {
		content = q.renderQueue(queue, width-4, height-4, focused)
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

func (q *Queue) renderQueue(queue *core.Queue, width, maxLines int, focused bool) string {
	tracks := queue.Tracks

	// Clamp selection and keep it inside the visible window.
	if q.selected >= len(tracks) {
		q.selected = len(tracks) - 1
	}
	if q.selected < 0 {
		q.selected = 0
	}

	visibleCount := maxLines - 1 // Leave room for "more" indicator
	if visibleCount < 1 {
		visibleCount = 1
	}
	if q.selected < q.offset {
		q.offset = q.selected
	}
	if q.selected >= q.offset+visibleCount {
		q.offset = q.selected - visibleCount + 1
	}

	start := q.offset
	end := start + visibleCount
	if end > len(tracks) {
		end = len(tracks)
	}

	lines := make([]string, 0, end-start+1)

	// Fixed overhead: selector (2) + "XX. " (4) + marker (2) + " — " (3)
	const overhead = 11

	for i := start; i < end; i++ {
		track := tracks[i]

		num := fmt.Sprintf("%2d.", i+1)

		title, artist := fitTitleArtist(track.Title, track.Artist, width-overhead)

		selector := "  "
		if focused && i == q.selected {
			selector = "▸ "
		}

		var line string
		if i == queue.CurrentIndex {
			line = selector + styles.Playing.Render(fmt.Sprintf("%s ▶ %s — %s", num, title, artist))
		} else {
			line = fmt.Sprintf("%s%s   %s — %s",
				selector,
				styles.Dim.Render(num),
				title,
				styles.Muted.Render(artist))
		}

		lines = append(lines, line)
	}

	if end < len(tracks) {
		more := styles.Dim.Render(fmt.Sprintf("    ... and %d more", len(tracks)-end))
		lines = append(lines, more)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// fitTitleArtist shares the available width between a title and an
// artist, giving the artist at least a third.
func fitTitleArtist(title, artist string, available int) (string, string) {
	if len(title)+len(artist) <= available {
		return title, artist
	}

	minArtist := available / 3
	if minArtist < 10 {
		minArtist = 10
	}
	if minArtist > available-10 {
		minArtist = available - 10
	}

	artistSpace := minArtist
	if len(artist) < artistSpace {
		artistSpace = len(artist)
	}
	titleSpace := available - artistSpace

	return truncate(title, titleSpace), truncate(artist, artistSpace)
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
