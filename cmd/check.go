package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify credentials and reachability of both platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shopClient, finClient, err := initClients("check")
		if err != nil {
			return err
		}

		results := make([]checkResult, 2)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			start := time.Now()
			name, err := shopClient.Ping(gctx)
			results[0] = checkResult{Source: "shopify", Detail: name, Latency: time.Since(start), Err: err}
			return nil // report both sources even when one fails
		})
		g.Go(func() error {
			start := time.Now()
			err := finClient.Ping(gctx)
			results[1] = checkResult{Source: "finale", Detail: cfg.Finale.Account, Latency: time.Since(start), Err: err}
			return nil
		})
		_ = g.Wait()

		failed := formatCheckResults(os.Stdout, results)
		if failed > 0 {
			return eris.Errorf("check: %d of %d sources unreachable", failed, len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// checkResult holds the outcome of one preflight ping.
type checkResult struct {
	Source  string
	Detail  string
	Latency time.Duration
	Err     error
}

// formatCheckResults writes a tabular status report to w and returns the
// number of failed sources.
func formatCheckResults(out io.Writer, results []checkResult) int {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tSTATUS\tLATENCY\tDETAIL")

	failed := 0
	for _, r := range results {
		status := "ok"
		detail := r.Detail
		if r.Err != nil {
			failed++
			status = "fail"
			detail = r.Err.Error()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Source, status, r.Latency.Round(time.Millisecond), detail)
	}
	_ = w.Flush()
	return failed
}
