package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/tburn/internal/model"
	"github.com/theirongolddev/tburn/internal/pipeline"
	"github.com/theirongolddev/tburn/internal/trae"
)

type fakeCollector struct {
	res     pipeline.Result
	err     error
	records []model.UsageRecord
	calls   int
}

func (f *fakeCollector) Collect(context.Context) (pipeline.Result, error) {
	f.calls++
	return f.res, f.err
}

func (f *fakeCollector) Store(context.Context) (*model.UsageStore, error) {
	s := model.NewUsageStore()
	for _, r := range f.records {
		s.Records[r.SessionID] = r
	}
	return s, nil
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newFake() *fakeCollector {
	now := time.Now().Unix()
	return &fakeCollector{
		res: pipeline.Result{
			CycleID:   "c1",
			Collected: 2,
			Entitlements: &trae.Entitlements{Packs: []trae.EntitlementPack{{
				StartTime: now - 86400,
				EndTime:   now + 86400,
				Quotas:    []model.QuotaStats{{Name: "premium fast", Limit: 600, Used: 2}},
			}}},
		},
		records: []model.UsageRecord{
			{SessionID: "a", UsageTime: now - 60, ModelName: "claude-4-sonnet", Mode: "agent", Amount: 1},
			{SessionID: "b", UsageTime: now - 120, ModelName: "gpt-4.1", Mode: "chat", Amount: 1},
			{SessionID: "old", UsageTime: now - 40*86400, ModelName: "gpt-4.1", Mode: "chat", Amount: 5},
		},
	}
}

func run(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

func TestCollectFillsDashboard(t *testing.T) {
	fc := newFake()
	app := NewApp(context.Background(), fc, Options{Days: 30})

	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	app = m.(App)
	if !strings.Contains(app.View(), "tburn") {
		t.Fatal("loading view should show the logo")
	}

	m, _ = app.Update(run(t, collectCmd(app.ctx, fc, app.days)))
	app = m.(App)

	if app.collecting || !app.loaded {
		t.Fatalf("collecting=%v loaded=%v after done", app.collecting, app.loaded)
	}
	if app.summary.TotalSessions != 2 {
		t.Errorf("TotalSessions = %d, want 2 (30 day filter)", app.summary.TotalSessions)
	}
	if len(app.quotas) != 1 || app.window == nil {
		t.Errorf("quotas = %v window = %v", app.quotas, app.window)
	}

	view := app.View()
	for _, want := range []string{"claude-4-sonnet", "premium fast", "agent", "Requests"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestRefreshIgnoredWhileCollecting(t *testing.T) {
	app := NewApp(context.Background(), newFake(), Options{})
	if _, cmd := app.Update(key('r')); cmd != nil {
		t.Fatal("refresh during the initial collection should be a no-op")
	}
}

func TestRefreshAfterDone(t *testing.T) {
	fc := newFake()
	app := NewApp(context.Background(), fc, Options{})
	m, _ := app.Update(run(t, collectCmd(app.ctx, fc, 0)))
	app = m.(App)

	m, cmd := app.Update(key('r'))
	app = m.(App)
	if cmd == nil || !app.collecting {
		t.Fatal("refresh should start a collection")
	}
}

func TestCollectErrorKeepsStoredSummary(t *testing.T) {
	fc := newFake()
	fc.err = errors.New("network unstable")
	app := NewApp(context.Background(), fc, Options{})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	app = m.(App)

	m, _ = app.Update(run(t, collectCmd(app.ctx, fc, 0)))
	app = m.(App)

	if app.lastErr == nil || app.summary.TotalSessions != 3 {
		t.Fatalf("lastErr=%v sessions=%d", app.lastErr, app.summary.TotalSessions)
	}
	if !strings.Contains(app.View(), "network unstable") {
		t.Error("view should show the error")
	}
}

func TestBusyCollectorIsNotAnError(t *testing.T) {
	fc := newFake()
	fc.err = pipeline.ErrAlreadyCollecting
	app := NewApp(context.Background(), fc, Options{})

	m, _ := app.Update(run(t, collectCmd(app.ctx, fc, 0)))
	app = m.(App)
	if app.lastErr != nil || app.collecting {
		t.Fatalf("lastErr=%v collecting=%v", app.lastErr, app.collecting)
	}
}

func TestDaysKeyCyclesFilter(t *testing.T) {
	fc := newFake()
	app := NewApp(context.Background(), fc, Options{Days: 7})
	m, _ := app.Update(run(t, collectCmd(app.ctx, fc, 7)))
	app = m.(App)

	m, cmd := app.Update(key('d'))
	app = m.(App)
	if app.days != 30 {
		t.Fatalf("days = %d, want 30", app.days)
	}
	m, _ = app.Update(run(t, cmd))
	app = m.(App)
	if app.collecting {
		t.Fatal("summary refresh must not touch collection state")
	}

	for range 2 {
		m, cmd = app.Update(key('d'))
		app = m.(App)
	}
	if app.days != 0 {
		t.Fatalf("days = %d, want 0 (all)", app.days)
	}
	m, _ = app.Update(run(t, cmd))
	app = m.(App)
	if app.summary.TotalSessions != 3 {
		t.Errorf("TotalSessions = %d, want 3 with no filter", app.summary.TotalSessions)
	}
	if fc.calls != 1 {
		t.Errorf("Collect calls = %d, want 1", fc.calls)
	}
}

func TestProgressSinkNeverBlocks(t *testing.T) {
	ch := make(chan pipeline.Progress, 1)
	sink := ProgressSink(ch)
	sink(pipeline.Progress{Page: 1})
	sink(pipeline.Progress{Page: 2})

	if p := <-ch; p.Page != 1 {
		t.Fatalf("first progress page = %d, want 1", p.Page)
	}

	app := NewApp(context.Background(), newFake(), Options{Progress: ch})
	ch <- pipeline.Progress{Page: 3, TotalPages: 5}
	m, next := app.Update(run(t, waitForProgress(ch)))
	app = m.(App)
	if app.progress.Page != 3 || next == nil {
		t.Fatalf("progress = %+v, next cmd = %v", app.progress, next)
	}
}

func TestNarrowTerminal(t *testing.T) {
	app := NewApp(context.Background(), newFake(), Options{})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	if !strings.Contains(m.(App).View(), "too narrow") {
		t.Fatal("expected narrow-terminal message")
	}
}
