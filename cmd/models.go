package cmd

import (
	"fmt"
	"io"

	"github.com/theirongolddev/tburn/internal/cli"
	"github.com/theirongolddev/tburn/internal/model"
	"github.com/theirongolddev/tburn/internal/pipeline"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Usage by model",
	RunE:  runModels,
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "Usage by request mode",
	RunE:  runModes,
}

var flagBreakdownFormat string

func init() {
	for _, c := range []*cobra.Command{modelsCmd, modesCmd} {
		c.Flags().StringVarP(&flagBreakdownFormat, "format", "f", formatTable, "Output format: table, json, yaml")
		rootCmd.AddCommand(c)
	}
}

func runModels(cmd *cobra.Command, _ []string) error {
	if err := validFormat(flagBreakdownFormat); err != nil {
		return err
	}
	return withRuntime(cmd.Context(), nil, func(rt *runtime) error {
		view, err := loadRecords(cmd.Context(), rt)
		if err != nil {
			return err
		}
		if flagBreakdownFormat != formatTable {
			return writeStructured(cmd.OutOrStdout(), flagBreakdownFormat, pipeline.SortedModels(view.Summary))
		}
		renderModels(cmd.OutOrStdout(), view.Summary)
		return nil
	})
}

func runModes(cmd *cobra.Command, _ []string) error {
	if err := validFormat(flagBreakdownFormat); err != nil {
		return err
	}
	return withRuntime(cmd.Context(), nil, func(rt *runtime) error {
		view, err := loadRecords(cmd.Context(), rt)
		if err != nil {
			return err
		}
		if flagBreakdownFormat != formatTable {
			return writeStructured(cmd.OutOrStdout(), flagBreakdownFormat, pipeline.SortedModes(view.Summary))
		}
		renderModes(cmd.OutOrStdout(), view.Summary)
		return nil
	})
}

func share(part, total float64) string {
	if total <= 0 {
		return "-"
	}
	return cli.FormatPercent(part / total)
}

func renderModels(w io.Writer, s model.Summary) {
	models := pipeline.SortedModels(s)
	if len(models) == 0 {
		fmt.Fprintln(w, "\n  No model data in the selected time range.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.RenderTitle("MODEL USAGE  "+windowLabel()))
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(models))
	for _, m := range models {
		rows = append(rows, []string{
			shortModel(m.Model),
			cli.FormatNumber(int64(m.Count)),
			cli.FormatAmount(m.Amount),
			cli.FormatTokens(m.Tokens.Input),
			cli.FormatTokens(m.Tokens.Output),
			cli.FormatCost(m.Cost),
			share(m.Amount, s.TotalAmount),
		})
	}
	fmt.Fprint(w, cli.RenderTable(cli.Table{
		Headers: []string{"Model", "Requests", "Amount", "Input", "Output", "Cost", "Share"},
		Rows:    rows,
	}))
}

func renderModes(w io.Writer, s model.Summary) {
	modes := pipeline.SortedModes(s)
	if len(modes) == 0 {
		fmt.Fprintln(w, "\n  No mode data in the selected time range.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.RenderTitle("MODE USAGE  "+windowLabel()))
	fmt.Fprintln(w)

	rows := make([][]string, 0, len(modes))
	for _, m := range modes {
		rows = append(rows, []string{
			m.Mode,
			cli.FormatNumber(int64(m.Count)),
			cli.FormatAmount(m.Amount),
			cli.FormatCost(m.Cost),
			share(m.Amount, s.TotalAmount),
		})
	}
	fmt.Fprint(w, cli.RenderTable(cli.Table{
		Headers: []string{"Mode", "Requests", "Amount", "Cost", "Share"},
		Rows:    rows,
	}))
}
