package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/harbor-supply/costsync/internal/sync"
)

var (
	syncDryRun   bool
	syncFamilies string
	syncInterval time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Derive per-unit costs and write them to Shopify",
	Long: `Run one synchronization pass.

Lists every Shopify variant, downloads the Finale supplier catalog, groups
variants into pack-size families by SKU, derives each variant's cost from
the family's single-unit baseline price, and writes the costs to the
matching inventory items. Families without a supplier entry are skipped.
Individual update failures are logged and counted, never fatal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shopClient, finClient, err := initClients("sync")
		if err != nil {
			return err
		}

		interval := time.Duration(cfg.Sync.UpdateIntervalMS) * time.Millisecond
		if cmd.Flags().Changed("interval") {
			interval = syncInterval
		}

		runner := sync.NewRunner(shopClient, finClient, shopClient, sync.Options{
			DryRun:         syncDryRun,
			Families:       splitFamilies(syncFamilies),
			UpdateInterval: interval,
			TempDir:        cfg.Sync.TempDir,
		})

		report, err := runner.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "cost sync")
		}

		if report.DryRun {
			fmt.Printf("Dry run: %d updates across %d families, nothing written\n",
				report.Updates, report.MatchedFamilies)
			return nil
		}
		fmt.Printf("Sync complete: %d updates, %d failed, %d of %d families matched (%s)\n",
			report.Updates, report.Failed, report.MatchedFamilies, report.Families,
			report.Elapsed.Round(time.Millisecond))
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "log every update without writing to Shopify")
	syncCmd.Flags().StringVar(&syncFamilies, "families", "", "comma-separated family prefixes to sync (e.g., FR320,BT14)")
	syncCmd.Flags().DurationVar(&syncInterval, "interval", 150*time.Millisecond, "pause between cost writes (0 disables)")
	rootCmd.AddCommand(syncCmd)
}

// splitFamilies parses the comma-separated --families flag value.
func splitFamilies(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
