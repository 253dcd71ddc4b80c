// Package cmd implements the tburn CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/theirongolddev/tburn/internal/cli"
	"github.com/theirongolddev/tburn/internal/config"
	"github.com/theirongolddev/tburn/internal/logging"
	"github.com/theirongolddev/tburn/internal/model"
	"github.com/theirongolddev/tburn/internal/pipeline"
	"github.com/theirongolddev/tburn/internal/store"
	"github.com/theirongolddev/tburn/internal/trae"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagDays     int
	flagLogLevel string
	flagQuiet    bool
)

// Set by PersistentPreRunE.
var (
	appCfg   config.Config
	logger   *slog.Logger
	logLevel slog.Level
)

var rootCmd = &cobra.Command{
	Use:   "tburn",
	Short: "Trae usage quota monitor",
	Long:  "Collect Trae billing usage incrementally and report requests, tokens, costs and quotas.",
	RunE:  runSummary,

	SilenceErrors: true,
	SilenceUsage:  true,

	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initRuntime()
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderError(cli.Explain(err)))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.ConfigPath(), "Config file path")
	rootCmd.PersistentFlags().IntVarP(&flagDays, "days", "n", 30, "Time window in days (0 = everything stored)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// initRuntime loads .env, the config file and the logger.
func initRuntime() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.LoadFrom(flagConfig)
	if err != nil {
		return err
	}
	appCfg = cfg

	levelName := cfg.Log.Level
	if flagLogLevel != "" {
		levelName = flagLogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	if flagQuiet && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	logLevel = level
	logger = logging.New(os.Stderr, level, cfg.Log.Format)
	slog.SetDefault(logger)
	return nil
}

// runtime bundles everything a collecting command needs.
type runtime struct {
	settings  *config.Settings
	client    *trae.Client
	resolver  *trae.Resolver
	blobs     store.Blobs
	runs      store.RunLog // nil when the backend keeps no history
	collector *pipeline.Collector
}

// openRuntime wires the client, resolver, store and collector from appCfg.
// onProgress may be nil.
func openRuntime(ctx context.Context, onProgress func(pipeline.Progress)) (*runtime, error) {
	settings := config.NewSettings(flagConfig, appCfg)

	client := trae.NewClient(trae.Options{
		Timeout:    appCfg.RequestTimeout(),
		RetryMax:   appCfg.Collector.RetryMax,
		RetryDelay: appCfg.RetryDelay(),
		Logger:     logger,
	})
	resolver := trae.NewResolver(client, settings, appCfg.Trae.PrimaryHost, appCfg.Trae.AlternateHost, logger)

	blobs, err := store.Open(ctx, store.Config{
		Backend:   appCfg.Storage.Backend,
		Path:      appCfg.StoragePath(),
		RedisURL:  appCfg.Storage.RedisURL,
		KeyPrefix: appCfg.Storage.RedisKeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	opts := pipeline.Options{
		PageSize:   appCfg.Collector.PageSize,
		PageDelay:  appCfg.PageDelay(),
		Overlap:    appCfg.Overlap(),
		Logger:     logger,
		OnProgress: onProgress,
	}
	runs, err := store.History(blobs)
	if err == nil {
		opts.Runs = runs
	}

	return &runtime{
		settings:  settings,
		client:    client,
		resolver:  resolver,
		blobs:     blobs,
		runs:      runs,
		collector: pipeline.NewCollector(settings, resolver, client, blobs, opts),
	}, nil
}

func (r *runtime) Close() error {
	return r.blobs.Close()
}

// withRuntime opens a runtime for the duration of fn.
func withRuntime(ctx context.Context, onProgress func(pipeline.Progress), fn func(*runtime) error) error {
	rt, err := openRuntime(ctx, onProgress)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()
	return fn(rt)
}

type storeView struct {
	Store   *model.UsageStore
	Summary model.Summary
}

func daysCutoff() time.Time {
	return time.Now().AddDate(0, 0, -flagDays)
}

// loadRecords returns the stored records inside the --days window.
func loadRecords(ctx context.Context, rt *runtime) (*storeView, error) {
	st, err := rt.collector.Store(ctx)
	if err != nil {
		return nil, err
	}
	records := st.List()
	if flagDays > 0 {
		records = pipeline.FilterSince(records, daysCutoff())
	}
	return &storeView{Store: st, Summary: pipeline.Summarize(records)}, nil
}
