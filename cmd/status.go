package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/theirongolddev/tburn/internal/cli"
	"github.com/theirongolddev/tburn/internal/config"
	"github.com/theirongolddev/tburn/internal/trae"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show subscription entitlements and quota usage",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	sessionID := config.GetSessionID(appCfg)
	if sessionID == "" {
		printSessionHelp(out)
		return nil
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Fetching entitlements...\n")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	return withRuntime(ctx, nil, func(rt *runtime) error {
		ent, err := fetchEntitlements(ctx, rt, sessionID)
		if err != nil {
			return err
		}
		renderStatus(out, ent, rt.resolver.Host(), time.Now())
		return nil
	})
}

// fetchEntitlements resolves a token and reads the entitlement list,
// re-resolving once if the token has expired.
func fetchEntitlements(ctx context.Context, rt *runtime, sessionID string) (*trae.Entitlements, error) {
	token, err := rt.resolver.Token(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ent, err := rt.client.Entitlements(ctx, rt.resolver.Host(), token)
	if errors.Is(err, trae.ErrTokenExpired) {
		rt.resolver.ClearCache()
		if token, err = rt.resolver.Token(ctx, sessionID); err != nil {
			return nil, err
		}
		ent, err = rt.client.Entitlements(ctx, rt.resolver.Host(), token)
	}
	return ent, err
}

func printSessionHelp(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  No session configured.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  To get your session id:")
	fmt.Fprintln(w, "    1. Sign in at trae.ai in your browser")
	fmt.Fprintln(w, "    2. DevTools (F12) > Application > Cookies")
	fmt.Fprintln(w, "    3. Copy the 'X-Cloudide-Session' value")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Then configure it:")
	fmt.Fprintln(w, "    tburn setup                              (interactive)")
	fmt.Fprintln(w, "    TRAE_SESSION_ID=... tburn status         (one-shot)")
	fmt.Fprintln(w)
}

func renderStatus(w io.Writer, ent *trae.Entitlements, host string, now time.Time) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, cli.RenderTitle("TRAE SUBSCRIPTION"))
	fmt.Fprintln(w)

	if len(ent.Packs) == 0 {
		fmt.Fprintln(w, cli.RenderNote("No entitlement packs on this account."))
		return
	}

	for i, p := range ent.Packs {
		resets := "-"
		if end := time.Unix(p.EndTime, 0); end.After(now) {
			resets = "in " + cli.FormatDuration(end.Sub(now))
		}

		title := fmt.Sprintf("Pack %d  product type %d", i+1, p.ProductType)
		if i == 0 {
			title += "  (current window)"
		}
		fmt.Fprint(w, cli.RenderTable(cli.Table{
			Title:   title,
			Headers: []string{"Field", "Value"},
			Rows: [][]string{
				{"Status", strconv.Itoa(p.Status)},
				{"Starts", cli.FormatUnix(p.StartTime)},
				{"Ends", cli.FormatUnix(p.EndTime)},
				{"Resets", resets},
			},
		}))

		rows := make([][]string, 0, len(p.Quotas))
		for _, q := range p.Quotas {
			remaining := "-"
			if !q.Unlimited() {
				remaining = cli.FormatAmount(q.Remaining())
			}
			rows = append(rows, []string{
				q.Name,
				cli.FormatAmount(q.Used),
				cli.FormatLimit(q.Limit),
				remaining,
				cli.RenderQuotaBar(q.Used, q.Limit, 20),
			})
		}
		if len(rows) > 0 {
			fmt.Fprint(w, cli.RenderTable(cli.Table{
				Headers: []string{"Quota", "Used", "Limit", "Left", "Usage"},
				Rows:    rows,
			}))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "  Host %s, fetched at %s\n\n", host, ent.FetchedAt.Local().Format("3:04:05 PM"))
}
