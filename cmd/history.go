package cmd

import (
	"fmt"
	"io"

	"github.com/theirongolddev/tburn/internal/cli"
	"github.com/theirongolddev/tburn/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagHistoryLimit  int
	flagHistoryFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent collection runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Number of runs to show")
	historyCmd.Flags().StringVarP(&flagHistoryFormat, "format", "f", formatTable, "Output format: table, json, yaml")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if err := validFormat(flagHistoryFormat); err != nil {
		return err
	}
	return withRuntime(cmd.Context(), nil, func(rt *runtime) error {
		if rt.runs == nil {
			return fmt.Errorf("%w (backend %q)", store.ErrNoHistory, appCfg.Storage.Backend)
		}
		runs, err := rt.runs.RecentRuns(cmd.Context(), flagHistoryLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagHistoryFormat != formatTable {
			return writeStructured(out, flagHistoryFormat, runs)
		}
		renderHistory(out, runs)
		return nil
	})
}

func renderHistory(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "\n  No collection runs recorded yet.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.RenderTitle("COLLECTION RUNS"))
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		result := "ok"
		if r.Error != "" {
			result = r.Error
		}
		rows = append(rows, []string{
			formatTime(r.StartedAt),
			cli.FormatDuration(r.FinishedAt.Sub(r.StartedAt)),
			cli.FormatNumber(int64(r.Pages)),
			cli.FormatNumber(int64(r.Collected)),
			cli.FormatNumber(int64(r.Updated)),
			cli.FormatNumber(int64(r.Total)),
			result,
		})
	}
	fmt.Fprint(w, cli.RenderTable(cli.Table{
		Headers: []string{"Started", "Took", "Pages", "New", "Updated", "Total", "Result"},
		Rows:    rows,
	}))
}
