package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/theirongolddev/tburn/internal/config"
	"github.com/theirongolddev/tburn/internal/tui/theme"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	// Start from the file alone so env overrides are not written back.
	cfg, err := config.ReadFile(flagConfig)
	if err != nil {
		return err
	}

	sessionID := ""
	themeName := cfg.Appearance.Theme
	backend := cfg.Storage.Backend
	redisURL := cfg.Storage.RedisURL

	sessionHint := "Paste the X-Cloudide-Session cookie from trae.ai."
	if cfg.Trae.SessionID != "" {
		sessionHint += " Leave blank to keep " + maskSecret(cfg.Trae.SessionID) + "."
	}

	themeOpts := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themeOpts = append(themeOpts, huh.NewOption(t.Name, t.Name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trae session id").
				Description(sessionHint).
				EchoMode(huh.EchoModePassword).
				Value(&sessionID).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" && cfg.Trae.SessionID == "" {
						return errors.New("a session id is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Storage backend").
				Options(
					huh.NewOption("SQLite (default)", "sqlite"),
					huh.NewOption("JSON file", "file"),
					huh.NewOption("Redis", "redis"),
				).
				Value(&backend),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Redis URL").
				Placeholder("redis://localhost:6379/0").
				Value(&redisURL),
		).WithHideFunc(func() bool { return backend != "redis" }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themeOpts...).
				Value(&themeName),
		),
	)

	if err = form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(cmd.OutOrStdout(), "\n  Setup cancelled, nothing saved.")
			return nil
		}
		return err
	}

	if s := strings.TrimSpace(sessionID); s != "" {
		cfg.Trae.SessionID = s
		// A new session may belong to the other region.
		cfg.Trae.Host = ""
	}
	cfg.Storage.Backend = backend
	cfg.Storage.RedisURL = strings.TrimSpace(redisURL)
	cfg.Appearance.Theme = themeName

	if err := config.SaveTo(flagConfig, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Saved to %s\n", flagConfig)
	fmt.Fprintln(w, "  Run `tburn collect` to fetch usage, `tburn setup` anytime to reconfigure.")
	fmt.Fprintln(w)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
