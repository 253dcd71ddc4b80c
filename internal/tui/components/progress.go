package components

import (
	"fmt"

	"github.com/theirongolddev/tburn/internal/cli"
	"github.com/theirongolddev/tburn/internal/model"
	"github.com/theirongolddev/tburn/internal/pipeline"
	"github.com/theirongolddev/tburn/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ColorForPct returns green/yellow/orange/red based on utilization level.
func ColorForPct(pct float64) lipgloss.Color {
	t := theme.Active
	switch {
	case pct >= 0.9:
		return t.Red
	case pct >= 0.7:
		return t.Orange
	case pct >= 0.5:
		return t.Yellow
	default:
		return t.Green
	}
}

// QuotaBar renders one entitlement quota as "label [bar] used/limit pct".
// Unlimited quotas get no bar.
func QuotaBar(q model.QuotaStats, labelW, barWidth int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	space := lipgloss.NewStyle().Background(t.Surface).Render(" ")

	label := labelStyle.Render(fmt.Sprintf("%-*s", labelW, q.Name))

	if q.Unlimited() {
		return label + space +
			countStyle.Render(cli.FormatAmount(q.Used)) +
			space + labelStyle.Render("used, unlimited")
	}

	pct := q.UsedPercent()
	shown := pct
	if shown < 0 {
		shown = 0
	}
	if shown > 1 {
		shown = 1
	}

	bar := progress.New(
		progress.WithSolidFill(string(ColorForPct(pct))),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(ColorForPct(pct)).Background(t.Surface).Bold(true)

	return label + space +
		bar.ViewAs(shown) + space +
		countStyle.Render(fmt.Sprintf("%s/%s", cli.FormatAmount(q.Used), cli.FormatLimit(q.Limit))) +
		space + pctStyle.Render(fmt.Sprintf("%4.0f%%", pct*100))
}

// CollectProgress renders the page progress of a running collection.
func CollectProgress(p pipeline.Progress, width int) string {
	t := theme.Active
	if p.TotalPages <= 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Render("resolving session...")
	}
	bar := progress.New(
		progress.WithSolidFill(string(t.Accent)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)
	pct := float64(p.Page) / float64(p.TotalPages)
	return bar.ViewAs(pct) + " " +
		lipgloss.NewStyle().Foreground(t.TextPrimary).
			Render(fmt.Sprintf("page %d/%d, %d new", p.Page, p.TotalPages, p.Collected))
}
