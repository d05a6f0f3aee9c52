package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/murexstreams/murex/internal/theme"
)

// Colors - filled from the active palette, mocha until Apply runs
var (
	Primary   = lipgloss.Color("#cba6f7")
	Secondary = lipgloss.Color("#f5c2e7")
	Accent    = lipgloss.Color("#94e2d5")

	Success = lipgloss.Color("#a6e3a1")
	Warning = lipgloss.Color("#f9e2af")
	Error   = lipgloss.Color("#f38ba8")
	Info    = lipgloss.Color("#89b4fa")

	Border    = lipgloss.Color("#313244")
	Text      = lipgloss.Color("#cdd6f4")
	TextMuted = lipgloss.Color("#a6adc8")
	TextDim   = lipgloss.Color("#6c7086")
)

// Text styles
var (
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Label     lipgloss.Style
	Highlight lipgloss.Style
	Muted     lipgloss.Style
	Dim       lipgloss.Style
	Playing   lipgloss.Style
	Paused    lipgloss.Style
	Alert     lipgloss.Style
	Money     lipgloss.Style
)

// Border styles
var (
	BorderStyle   lipgloss.Style
	FocusedBorder lipgloss.Style
)

func init() {
	rebuild()
}

// Apply recolors every style from the palette. Call it before the
// program starts; styles are plain package vars, not synchronized.
func Apply(p theme.Palette) {
	Primary = p.Primary
	Secondary = p.Secondary
	Accent = p.Accent
	Success = p.Success
	Warning = p.Warning
	Error = p.Error
	Info = p.Info
	Border = p.Surface
	Text = p.Text
	TextMuted = p.Subtle
	TextDim = p.Overlay
	rebuild()
}

func rebuild() {
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Text)

	Subtitle = lipgloss.NewStyle().
		Foreground(TextMuted)

	Label = lipgloss.NewStyle().
		Foreground(TextDim)

	Highlight = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Muted = lipgloss.NewStyle().
		Foreground(TextMuted)

	Dim = lipgloss.NewStyle().
		Foreground(TextDim)

	Playing = lipgloss.NewStyle().
		Foreground(Success)

	Paused = lipgloss.NewStyle().
		Foreground(Warning)

	Alert = lipgloss.NewStyle().
		Foreground(Error)

	Money = lipgloss.NewStyle().
		Foreground(Accent)

	BorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border)

	FocusedBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary)
}

// Panel creates a styled panel with optional focus
func Panel(focused bool) lipgloss.Style {
	if focused {
		return FocusedBorder.Padding(0, 1)
	}
	return BorderStyle.Padding(0, 1)
}

// PanelTitle creates a styled panel title
func PanelTitle(title string, focused bool) string {
	style := Label
	if focused {
		style = Highlight
	}
	return style.Render(" " + title + " ")
}

// ProgressBar creates a progress bar string
func ProgressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	filledStyle := lipgloss.NewStyle().Foreground(Primary)
	emptyStyle := lipgloss.NewStyle().Foreground(Border)

	return filledStyle.Render(Repeat("━", filled)) +
		emptyStyle.Render(Repeat("─", width-filled))
}

// StatusIcon returns an icon for playback status
func StatusIcon(playing bool) string {
	if playing {
		return Playing.Render("▶")
	}
	return Paused.Render("⏸")
}

// Repeat repeats a string n times
func Repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(s, n)
}
