package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/theirongolddev/tburn/internal/cli"
	"github.com/theirongolddev/tburn/internal/model"

	"github.com/spf13/cobra"
)

var flagStoreDump bool

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Show local store metadata",
	RunE:  runStore,
}

func init() {
	storeCmd.Flags().BoolVar(&flagStoreDump, "dump", false, "Print the whole store as JSON")
	rootCmd.AddCommand(storeCmd)
}

func runStore(cmd *cobra.Command, _ []string) error {
	return withRuntime(cmd.Context(), nil, func(rt *runtime) error {
		st, err := rt.collector.Store(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagStoreDump {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		renderStore(out, st)
		return nil
	})
}

func renderStore(w io.Writer, st *model.UsageStore) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.RenderTitle("LOCAL STORE"))
	fmt.Fprintln(w)

	location := appCfg.StoragePath()
	if appCfg.Storage.Backend == "redis" {
		location = maskSecret(appCfg.Storage.RedisURL)
	}

	rows := [][]string{
		{"Backend", appCfg.Storage.Backend},
		{"Location", location},
		{"---"},
		{"Records", cli.FormatNumber(int64(len(st.Records)))},
		{"Last Update", unixOrNever(st.LastUpdateTime)},
		{"Covered From", unixOrNever(st.CoveredStart)},
		{"Covered To", unixOrNever(st.CoveredEnd)},
	}
	if records := st.List(); len(records) > 0 {
		rows = append(rows,
			[]string{"Oldest Record", cli.FormatUnix(records[0].UsageTime)},
			[]string{"Newest Record", cli.FormatUnix(records[len(records)-1].UsageTime)},
		)
	}
	fmt.Fprint(w, cli.RenderTable(cli.Table{Headers: []string{"Field", "Value"}, Rows: rows}))
}

func unixOrNever(ts int64) string {
	if ts == 0 {
		return "never"
	}
	return cli.FormatUnix(ts)
}
