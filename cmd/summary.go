package cmd

import (
	"fmt"
	"io"

	"github.com/theirongolddev/tburn/internal/cli"
	"github.com/theirongolddev/tburn/internal/model"
	"github.com/theirongolddev/tburn/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagFormat string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Usage summary from the local store",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVarP(&flagFormat, "format", "f", formatTable, "Output format: table, json, yaml")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	if err := validFormat(flagFormat); err != nil {
		return err
	}
	return withRuntime(cmd.Context(), nil, func(rt *runtime) error {
		view, err := loadRecords(cmd.Context(), rt)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagFormat != formatTable {
			return writeStructured(out, flagFormat, view.Summary)
		}
		if len(view.Store.Records) == 0 {
			fmt.Fprintln(out, "\n  No usage stored yet. Run `tburn collect` first.")
			return nil
		}
		renderSummary(out, view.Summary, view.Store)
		return nil
	})
}

func renderSummary(w io.Writer, s model.Summary, st *model.UsageStore) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.RenderTitle("TRAE USAGE  "+windowLabel()))
	fmt.Fprintln(w)

	if s.TotalSessions == 0 {
		fmt.Fprintln(w, "  No usage in the selected time range.")
		return
	}

	rows := [][]string{
		{"Requests", cli.FormatNumber(int64(s.TotalSessions))},
		{"Amount", cli.FormatAmount(s.TotalAmount)},
		{"Cost", cli.FormatCost(s.TotalCost)},
		{"---"},
		{"Input Tokens", cli.FormatTokens(s.Tokens.Input)},
		{"Output Tokens", cli.FormatTokens(s.Tokens.Output)},
		{"Cache Read", cli.FormatTokens(s.Tokens.CacheRead)},
		{"Cache Write", cli.FormatTokens(s.Tokens.CacheWrite)},
		{"Total Tokens", cli.FormatTokens(s.Tokens.Total())},
		{"---"},
		{"Models", cli.FormatNumber(int64(len(s.PerModel)))},
		{"Active Days", cli.FormatNumber(int64(len(s.PerDay)))},
	}
	if models := pipeline.SortedModels(s); len(models) > 0 {
		rows = append(rows, []string{"Top Model", shortModel(models[0].Model)})
	}
	if st != nil && st.LastUpdateTime > 0 {
		rows = append(rows, []string{"Last Collected", cli.FormatUnix(st.LastUpdateTime)})
	}

	fmt.Fprint(w, cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))
}
