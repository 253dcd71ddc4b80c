package components

import (
	"github.com/theirongolddev/tburn/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom bar: key hints on the left, state on
// the right, padded to width.
func RenderStatusBar(width int, state string, autoRefresh bool) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface)

	left := " [r]efresh  [d]ays  [a]uto  [t]heme  [q]uit"
	right := state
	if autoRefresh {
		right += "  auto"
	}
	right += " "

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	filler := lipgloss.NewStyle().Background(t.Surface).Width(gap).Render("")
	return style.Render(left) + filler + style.Render(right)
}
