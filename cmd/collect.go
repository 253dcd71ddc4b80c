package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/theirongolddev/tburn/internal/cli"
	"github.com/theirongolddev/tburn/internal/pipeline"

	"github.com/spf13/cobra"
)

var flagCollectFormat string

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch new usage records into the local store",
	Long: "Run one incremental collection cycle: resolve the session token, read the " +
		"subscription window, page through usage since the last run and save the store " +
		"only if every page succeeded.",
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().StringVarP(&flagCollectFormat, "format", "f", formatTable, "Output format: table, json, yaml")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, _ []string) error {
	if err := validFormat(flagCollectFormat); err != nil {
		return err
	}

	var onProgress func(pipeline.Progress)
	if !flagQuiet && flagCollectFormat == formatTable {
		onProgress = func(p pipeline.Progress) {
			fmt.Fprintf(os.Stderr, "\r  Fetching [%d/%d] %d new, %d updated", p.Page, p.TotalPages, p.Collected, p.Updated)
			if p.Page == p.TotalPages {
				fmt.Fprintln(os.Stderr)
			}
		}
	}

	return withRuntime(cmd.Context(), onProgress, func(rt *runtime) error {
		res, err := rt.collector.Collect(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagCollectFormat != formatTable {
			return writeStructured(out, flagCollectFormat, res)
		}
		renderCollect(out, res)
		return nil
	})
}

func renderCollect(w io.Writer, res pipeline.Result) {
	if res.Skipped {
		fmt.Fprintln(w)
		fmt.Fprintln(w, cli.RenderNote("No session configured, nothing collected."))
		fmt.Fprintln(w, cli.RenderNote("Run `tburn setup` or set TRAE_SESSION_ID."))
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.RenderTitle("COLLECTION"))
	fmt.Fprintln(w)

	rows := [][]string{
		{"Cycle", res.CycleID},
		{"Host", res.Host},
		{"Window", cli.FormatUnix(res.Window.Start) + " → " + cli.FormatUnix(res.Window.End)},
		{"Pages", cli.FormatNumber(int64(res.Pages))},
		{"---"},
		{"New Records", cli.FormatNumber(int64(res.Collected))},
		{"Updated", cli.FormatNumber(int64(res.Updated))},
		{"Stored Total", cli.FormatNumber(int64(res.Total))},
	}
	fmt.Fprint(w, cli.RenderTable(cli.Table{Headers: []string{"Field", "Value"}, Rows: rows}))

	if res.Entitlements != nil && len(res.Entitlements.Packs) > 0 {
		fmt.Fprintln(w)
		for _, q := range res.Entitlements.Packs[0].Quotas {
			fmt.Fprintf(w, "  %-14s %s\n", q.Name, cli.RenderQuotaBar(q.Used, q.Limit, 24))
		}
	}
}
