package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/murexstreams/murex/internal/market"
	"github.com/murexstreams/murex/internal/tui/styles"
)

// PortfolioRow is a valued position with its track title resolved.
type PortfolioRow struct {
	Title    string
	Position market.Position
}

// Portfolio displays the user's stakes and their returns
type Portfolio struct {
	offset int
}

// NewPortfolio creates a new Portfolio component
func NewPortfolio() *Portfolio {
	return &Portfolio{}
}

// ScrollDown scrolls the portfolio down
func (p *Portfolio) ScrollDown() {
	p.offset++
}

// ScrollUp scrolls the portfolio up
func (p *Portfolio) ScrollUp() {
	if p.offset > 0 {
		p.offset--
	}
}

// Render renders the portfolio panel
func (p *Portfolio) Render(rows []PortfolioRow, loggedIn bool, width, height int, focused bool) string {
	title := styles.PanelTitle("Portfolio", focused)

	var content string
	switch {
	case !loggedIn:
		content = styles.Muted.Render("Log in to invest: murex auth login")
	case len(rows) == 0:
		content = styles.Muted.Render("No stakes yet. Press $ on a track to invest.")
	default:
		content = p.renderRows(rows, width-4, height-4)
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

func (p *Portfolio) renderRows(rows []PortfolioRow, width, maxLines int) string {
	if p.offset >= len(rows) {
		p.offset = 0
	}

	// Keep one line for the totals.
	visibleCount := maxLines - 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := p.offset
	end := start + visibleCount
	if end > len(rows) {
		end = len(rows)
	}

	lines := make([]string, 0, end-start+2)

	for i := start; i < end; i++ {
		row := rows[i]
		pos := row.Position

		returns := market.FormatCents(pos.ReturnCents)
		returnStr := styles.Dim.Render(returns)
		if pos.ReturnCents > 0 {
			returnStr = styles.Playing.Render("+" + returns)
		}

		stake := market.FormatCents(pos.StakeCents)
		stats := fmt.Sprintf("%s · %d plays · ", stake, pos.Plays)

		// Right-align the return column.
		titleSpace := width - len(stats) - len(returns) - 4
		title := truncate(row.Title, titleSpace)

		padding := width - len(title) - len(stats) - len(returns) - 2
		if pos.ReturnCents > 0 {
			padding-- // leading "+"
		}
		if padding < 1 {
			padding = 1
		}

		line := fmt.Sprintf("%s%s%s%s",
			title,
			lipgloss.NewStyle().Width(padding).Render(""),
			styles.Money.Render(stats),
			returnStr)

		lines = append(lines, line)
	}

	if end < len(rows) {
		lines = append(lines, styles.Dim.Render(fmt.Sprintf("    ... and %d more", len(rows)-end)))
	}

	var stakeTotal, returnTotal int64
	for _, row := range rows {
		stakeTotal += row.Position.StakeCents
		returnTotal += row.Position.ReturnCents
	}
	lines = append(lines, "", styles.Subtitle.Render(
		fmt.Sprintf("Total %s staked, %s earned",
			market.FormatCents(stakeTotal), market.FormatCents(returnTotal))))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
