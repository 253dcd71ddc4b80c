package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/tburn/internal/config"
	"github.com/theirongolddev/tburn/internal/logging"
	"github.com/theirongolddev/tburn/internal/pipeline"
	"github.com/theirongolddev/tburn/internal/tui"
	"github.com/theirongolddev/tburn/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var (
	flagTUIAuto     bool
	flagTUIInterval int
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&flagTUIAuto, "auto", true, "Collect again on an interval")
	tuiCmd.Flags().IntVar(&flagTUIInterval, "interval", 0, "Auto-refresh interval in seconds (default: daemon interval)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	theme.SetActive(appCfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	// Logs would draw over the alt screen.
	closeLog := redirectLogs(filepath.Join(config.CacheDir(), "tui.log"))
	defer closeLog()

	progress := make(chan pipeline.Progress, 1)
	return withRuntime(cmd.Context(), tui.ProgressSink(progress), func(rt *runtime) error {
		interval := appCfg.DaemonInterval()
		if flagTUIInterval > 0 {
			interval = time.Duration(flagTUIInterval) * time.Second
		}
		app := tui.NewApp(cmd.Context(), rt.collector, tui.Options{
			Days:            flagDays,
			AutoRefresh:     flagTUIAuto,
			RefreshInterval: interval,
			Progress:        progress,
		})
		p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("TUI error: %w", err)
		}
		return nil
	})
}

// redirectLogs points the logger at a JSON file, or discards logs when the
// file cannot be opened.
func redirectLogs(path string) func() {
	logger = logging.Discard()
	closer := func() {}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err == nil {
		//nolint:gosec // log path is under the user's cache directory
		if f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600); err == nil {
			logger = logging.New(f, logLevel, "json")
			closer = func() { _ = f.Close() }
		}
	}
	slog.SetDefault(logger)
	return closer
}
