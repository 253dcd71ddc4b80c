package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/theirongolddev/tburn/internal/cli"
	"github.com/theirongolddev/tburn/internal/model"
	"github.com/theirongolddev/tburn/internal/pipeline"

	"github.com/spf13/cobra"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily usage table",
	RunE:  runDaily,
}

var flagDailyFormat string

func init() {
	dailyCmd.Flags().StringVarP(&flagDailyFormat, "format", "f", formatTable, "Output format: table, json, yaml")
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(cmd *cobra.Command, _ []string) error {
	if err := validFormat(flagDailyFormat); err != nil {
		return err
	}
	return withRuntime(cmd.Context(), nil, func(rt *runtime) error {
		view, err := loadRecords(cmd.Context(), rt)
		if err != nil {
			return err
		}
		if flagDailyFormat != formatTable {
			return writeStructured(cmd.OutOrStdout(), flagDailyFormat, pipeline.SortedDays(view.Summary))
		}
		renderDaily(cmd.OutOrStdout(), view.Summary)
		return nil
	})
}

func renderDaily(w io.Writer, s model.Summary) {
	days := pipeline.SortedDays(s)
	if len(days) == 0 {
		fmt.Fprintln(w, "\n  No data for the selected period.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.RenderTitle("DAILY USAGE  "+windowLabel()))
	fmt.Fprintln(w)

	// Oldest first for the sparkline.
	values := make([]float64, len(days))
	for i, d := range days {
		values[len(days)-1-i] = d.Amount
	}
	fmt.Fprintf(w, "  %s  %s → %s\n\n", cli.RenderSparkline(values), days[len(days)-1].Date, days[0].Date)

	rows := make([][]string, 0, len(days))
	for _, d := range days {
		models := make([]string, len(d.Models))
		for i, m := range d.Models {
			models[i] = shortModel(m)
		}
		rows = append(rows, []string{
			d.Date,
			cli.FormatNumber(int64(d.Count)),
			cli.FormatAmount(d.Amount),
			cli.FormatCost(d.Cost),
			strings.Join(models, ", "),
		})
	}
	fmt.Fprint(w, cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Requests", "Amount", "Cost", "Models"},
		Rows:    rows,
	}))
}
