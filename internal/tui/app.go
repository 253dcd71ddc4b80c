// Package tui provides the interactive Bubble Tea dashboard for tburn.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/tburn/internal/cli"
	"github.com/theirongolddev/tburn/internal/model"
	"github.com/theirongolddev/tburn/internal/pipeline"
	"github.com/theirongolddev/tburn/internal/tui/components"
	"github.com/theirongolddev/tburn/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Collector is the part of pipeline.Collector the dashboard drives.
type Collector interface {
	Collect(ctx context.Context) (pipeline.Result, error)
	Store(ctx context.Context) (*model.UsageStore, error)
}

// Options configures the dashboard.
type Options struct {
	Days            int // 0 shows everything stored
	AutoRefresh     bool
	RefreshInterval time.Duration
	Progress        <-chan pipeline.Progress
}

// CollectDoneMsg is sent when a collection cycle and the follow-up
// summary have finished.
type CollectDoneMsg struct {
	Result  pipeline.Result
	Err     error
	Summary model.Summary
	Stored  bool // Summary came from the store
	Cycle   bool // false for a summary-only refresh
	Took    time.Duration
}

// ProgressMsg reports page progress of the running collection.
type ProgressMsg pipeline.Progress

type tickMsg struct{}

var dayChoices = []int{7, 30, 90, 0}

// App is the root Bubble Tea model.
type App struct {
	ctx       context.Context
	collector Collector
	progSub   <-chan pipeline.Progress

	// Data
	loaded     bool
	summary    model.Summary
	quotas     []model.QuotaStats
	window     *model.SubscriptionWindow
	lastResult pipeline.Result
	lastErr    error
	took       time.Duration

	// Refresh state
	collecting      bool
	progress        pipeline.Progress
	autoRefresh     bool
	refreshInterval time.Duration
	lastRefresh     time.Time

	// UI state
	width   int
	height  int
	days    int
	spinner spinner.Model
}

const (
	minTerminalWidth = 60
	maxContentWidth  = 140
	minContentHeight = 5
	tickInterval     = time.Second
)

// NewApp creates the dashboard model.
func NewApp(ctx context.Context, c Collector, opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)

	interval := opts.RefreshInterval
	if interval < 30*time.Second {
		interval = 5 * time.Minute
	}

	return App{
		ctx:             ctx,
		collector:       c,
		progSub:         opts.Progress,
		days:            opts.Days,
		autoRefresh:     opts.AutoRefresh,
		refreshInterval: interval,
		spinner:         sp,
		collecting:      true,
	}
}

// ProgressSink returns a collector progress callback feeding ch. Sends never
// block; a dropped update is superseded by the next page.
func ProgressSink(ch chan<- pipeline.Progress) func(pipeline.Progress) {
	return func(p pipeline.Progress) {
		select {
		case ch <- p:
		default:
		}
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		collectCmd(a.ctx, a.collector, a.days),
		waitForProgress(a.progSub),
		a.spinner.Tick,
		tickCmd(),
	)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "r":
			return a.startCollect()
		case "a":
			a.autoRefresh = !a.autoRefresh
			return a, nil
		case "t":
			theme.Active = theme.Next()
			a.spinner.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent)
			return a, nil
		case "d":
			a.days = nextDays(a.days)
			if a.collecting {
				return a, nil
			}
			return a, summarizeCmd(a.ctx, a.collector, a.days)
		}
		return a, nil

	case ProgressMsg:
		a.progress = pipeline.Progress(msg)
		return a, waitForProgress(a.progSub)

	case spinner.TickMsg:
		if !a.collecting {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.autoRefresh && !a.collecting && time.Since(a.lastRefresh) >= a.refreshInterval {
			next, cmd := a.startCollect()
			a = next.(App)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case CollectDoneMsg:
		return a.applyDone(msg), nil
	}

	return a, nil
}

func (a App) startCollect() (tea.Model, tea.Cmd) {
	if a.collecting {
		return a, nil
	}
	a.collecting = true
	a.progress = pipeline.Progress{}
	return a, tea.Batch(collectCmd(a.ctx, a.collector, a.days), a.spinner.Tick)
}

// applyDone folds a finished cycle into the model. A summary-only refresh
// (from changing the day filter) leaves the collection state alone.
func (a App) applyDone(msg CollectDoneMsg) App {
	if msg.Stored {
		a.summary = msg.Summary
		a.loaded = true
	}
	if !msg.Cycle {
		if msg.Err != nil {
			a.lastErr = msg.Err
		}
		return a
	}

	a.collecting = false
	a.lastRefresh = time.Now()
	a.took = msg.Took
	a.lastErr = msg.Err
	a.lastResult = msg.Result
	if msg.Err == nil && msg.Result.Entitlements != nil {
		a.window = msg.Result.Entitlements.Window()
		a.quotas = nil
		if len(msg.Result.Entitlements.Packs) > 0 {
			a.quotas = msg.Result.Entitlements.Packs[0].Quotas
		}
	}
	return a
}

func nextDays(days int) int {
	for i, d := range dayChoices {
		if d == days {
			return dayChoices[(i+1)%len(dayChoices)]
		}
	}
	return dayChoices[0]
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  tburn needs at least %d columns.\n",
		a.width, minTerminalWidth,
	)
	h := max(a.height, 5)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Padding(1, 3)
	logo := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true)
	sub := lipgloss.NewStyle().Foreground(t.TextMuted)

	var b strings.Builder
	b.WriteString(logo.Render("◈ tburn"))
	b.WriteString(sub.Render(" · Trae usage"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	b.WriteString(" ")
	b.WriteString(components.CollectProgress(a.progress, 30))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
		cardStyle.Render(b.String()))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()

	header := a.renderHeader(w)
	statusBar := components.RenderStatusBar(w, a.statusText(), a.autoRefresh)

	contentH := a.height - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	var sections []string
	if a.lastErr != nil {
		sections = append(sections, lipgloss.NewStyle().Foreground(t.Red).
			Render(" ✗ "+cli.Explain(a.lastErr)))
	} else if a.lastResult.Skipped {
		sections = append(sections, lipgloss.NewStyle().Foreground(t.Orange).
			Render(" no session configured, run `tburn setup`"))
	}

	s := a.summary
	sections = append(sections, components.MetricCardRow([]components.Metric{
		{Label: "Requests", Value: cli.FormatNumber(int64(s.TotalSessions))},
		{Label: "Amount", Value: cli.FormatAmount(s.TotalAmount)},
		{Label: "Cost", Value: cli.FormatCost(s.TotalCost)},
		{Label: "Tokens", Value: cli.FormatTokens(s.Tokens.Total()),
			Note: cli.FormatTokens(s.Tokens.CacheRead) + " cache read"},
	}, cw))

	if len(a.quotas) > 0 {
		sections = append(sections, a.renderQuotas(cw))
	}

	half := components.LayoutRow(cw, 2)
	sections = append(sections, components.CardRow([]string{
		components.ContentCard("Top models", a.renderModels(components.CardInnerWidth(half[0])), half[0]),
		components.ContentCard("Modes", a.renderModes(components.CardInnerWidth(half[1])), half[1]),
	}))
	sections = append(sections, components.ContentCard("Daily amount", a.renderDays(components.CardInnerWidth(cw)), cw))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	content = padHeight(truncateHeight(content, contentH), contentH)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

func (a App) renderHeader(w int) string {
	t := theme.Active
	logo := lipgloss.NewStyle().Foreground(t.AccentBright).Bold(true).Render(" ◈ tburn")
	pill := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	dim := lipgloss.NewStyle().Foreground(t.TextDim)

	filter := "all"
	if a.days > 0 {
		filter = fmt.Sprintf("%dd", a.days)
	}
	line := logo + dim.Render("  │ ") + pill.Render(filter)
	if a.window != nil {
		line += dim.Render("  │ cycle ") +
			pill.Render(cli.FormatUnix(a.window.StartTime)) +
			dim.Render(" → ") +
			pill.Render(cli.FormatUnix(a.window.EndTime))
	}
	return lipgloss.NewStyle().Width(w).Render(line)
}

func (a App) renderQuotas(cw int) string {
	inner := components.CardInnerWidth(cw)
	labelW := 0
	for _, q := range a.quotas {
		labelW = max(labelW, len(q.Name))
	}
	barW := max(inner-labelW-24, 10)

	lines := make([]string, len(a.quotas))
	for i, q := range a.quotas {
		lines[i] = components.QuotaBar(q, labelW, barW)
	}
	return components.ContentCard("Quotas", strings.Join(lines, "\n"), cw)
}

func (a App) renderModels(width int) string {
	models := pipeline.SortedModels(a.summary)
	if len(models) == 0 {
		return mutedLine("no usage yet")
	}
	var lines []string
	for i, m := range models {
		if i == 6 {
			break
		}
		lines = append(lines, row(truncStr(m.Model, width-14), cli.FormatAmount(m.Amount), width))
	}
	return strings.Join(lines, "\n")
}

func (a App) renderModes(width int) string {
	modes := pipeline.SortedModes(a.summary)
	if len(modes) == 0 {
		return mutedLine("no usage yet")
	}
	var lines []string
	for i, m := range modes {
		if i == 6 {
			break
		}
		lines = append(lines, row(truncStr(m.Mode, width-14), cli.FormatAmount(m.Amount), width))
	}
	return strings.Join(lines, "\n")
}

func (a App) renderDays(width int) string {
	days := pipeline.SortedDays(a.summary)
	if len(days) == 0 {
		return mutedLine("no usage yet")
	}
	if len(days) > width {
		days = days[:width]
	}
	// SortedDays is newest first; the sparkline reads left to right.
	values := make([]float64, len(days))
	for i, d := range days {
		values[len(days)-1-i] = d.Amount
	}
	t := theme.Active
	spark := lipgloss.NewStyle().Foreground(t.Accent).Render(cli.RenderSparkline(values))
	caption := fmt.Sprintf("%s → %s, peak %s",
		days[len(days)-1].Date, days[0].Date, cli.FormatAmount(peak(values)))
	return spark + "\n" + mutedLine(caption)
}

func (a App) statusText() string {
	if a.collecting {
		if a.progress.TotalPages > 0 {
			return fmt.Sprintf("%s page %d/%d", a.spinner.View(), a.progress.Page, a.progress.TotalPages)
		}
		return a.spinner.View() + " collecting"
	}
	if a.lastRefresh.IsZero() {
		return ""
	}
	status := "updated " + cli.FormatAgo(a.lastRefresh, time.Now())
	if a.lastErr == nil && !a.lastResult.Skipped {
		status += fmt.Sprintf(", %d new in %s", a.lastResult.Collected, cli.FormatDuration(a.took))
	}
	return status
}

// ─── Commands ───────────────────────────────────────────────────

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// collectCmd runs one cycle, then summarizes whatever the store holds so a
// failed cycle still shows previously collected usage.
func collectCmd(ctx context.Context, c Collector, days int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		res, err := c.Collect(ctx)
		if errors.Is(err, pipeline.ErrAlreadyCollecting) {
			err = nil
		}
		msg := CollectDoneMsg{Result: res, Err: err, Cycle: true, Took: time.Since(start)}

		sum, serr := summarize(ctx, c, days)
		if serr != nil {
			if msg.Err == nil {
				msg.Err = serr
			}
			return msg
		}
		msg.Summary = sum
		msg.Stored = true
		return msg
	}
}

func summarizeCmd(ctx context.Context, c Collector, days int) tea.Cmd {
	return func() tea.Msg {
		sum, err := summarize(ctx, c, days)
		if err != nil {
			return CollectDoneMsg{Err: err}
		}
		return CollectDoneMsg{Summary: sum, Stored: true}
	}
}

func summarize(ctx context.Context, c Collector, days int) (model.Summary, error) {
	st, err := c.Store(ctx)
	if err != nil {
		return model.Summary{}, err
	}
	records := st.List()
	if days > 0 {
		records = pipeline.FilterSince(records, time.Now().AddDate(0, 0, -days))
	}
	return pipeline.Summarize(records), nil
}

// waitForProgress blocks until the collector reports the next page.
func waitForProgress(sub <-chan pipeline.Progress) tea.Cmd {
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		p, ok := <-sub
		if !ok {
			return nil
		}
		return ProgressMsg(p)
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func row(label, value string, width int) string {
	t := theme.Active
	l := lipgloss.NewStyle().Foreground(t.TextPrimary).Render(label)
	v := lipgloss.NewStyle().Foreground(t.Accent).Render(value)
	gap := max(width-lipgloss.Width(l)-lipgloss.Width(v), 1)
	return l + strings.Repeat(" ", gap) + v
}

func mutedLine(s string) string {
	return lipgloss.NewStyle().Foreground(theme.Active.TextMuted).Render(s)
}

func peak(values []float64) float64 {
	var p float64
	for _, v := range values {
		p = max(p, v)
	}
	return p
}

func truncStr(s string, limit int) string {
	if limit < 2 {
		limit = 2
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Count(s, "\n") + 1
	if lines >= h {
		return s
	}
	return s + strings.Repeat("\n", h-lines)
}
