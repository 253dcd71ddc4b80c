package cmd

import (
	"fmt"

	"github.com/theirongolddev/tburn/internal/config"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	cfg := appCfg

	fmt.Fprintf(w, "  Config file: %s\n", flagConfig)
	if fileExists(flagConfig) {
		fmt.Fprintln(w, "  Status: loaded")
	} else {
		fmt.Fprintln(w, "  Status: using defaults (no config file)")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  [Trae]")
	if id := config.GetSessionID(cfg); id != "" {
		fmt.Fprintf(w, "    Session id:     %s\n", maskSecret(id))
	} else {
		fmt.Fprintln(w, "    Session id:     not configured")
	}
	host := cfg.Trae.Host
	if host == "" {
		host = "(primary)"
	}
	fmt.Fprintf(w, "    Current host:   %s\n", host)
	if cfg.Trae.PrimaryHost != "" {
		fmt.Fprintf(w, "    Primary host:   %s\n", cfg.Trae.PrimaryHost)
	}
	if cfg.Trae.AlternateHost != "" {
		fmt.Fprintf(w, "    Alternate host: %s\n", cfg.Trae.AlternateHost)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  [Collector]")
	fmt.Fprintf(w, "    Page size:      %d\n", cfg.Collector.PageSize)
	fmt.Fprintf(w, "    Page delay:     %s\n", cfg.PageDelay())
	fmt.Fprintf(w, "    Retries:        %d every %s\n", cfg.Collector.RetryMax, cfg.RetryDelay())
	fmt.Fprintf(w, "    Timeout:        %s\n", cfg.RequestTimeout())
	fmt.Fprintf(w, "    Overlap:        %s\n", cfg.Overlap())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  [Storage]")
	fmt.Fprintf(w, "    Backend:        %s\n", cfg.Storage.Backend)
	if cfg.Storage.Backend == "redis" {
		fmt.Fprintf(w, "    Redis:          %s\n", maskSecret(cfg.Storage.RedisURL))
	} else {
		fmt.Fprintf(w, "    Path:           %s\n", cfg.StoragePath())
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  [Daemon]")
	fmt.Fprintf(w, "    Address:        %s\n", cfg.Daemon.Addr)
	fmt.Fprintf(w, "    Interval:       %s\n", cfg.DaemonInterval())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  [Log / Appearance]")
	fmt.Fprintf(w, "    Log:            %s (%s)\n", cfg.Log.Level, cfg.Log.Format)
	fmt.Fprintf(w, "    Theme:          %s\n", cfg.Appearance.Theme)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  Run `tburn setup` to reconfigure.")
	return nil
}
