package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harbor-supply/costsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "costsync",
	Short: "Sync per-unit costs from Finale inventory to Shopify",
	Long:  "Reads the Finale supplier catalog, groups Shopify variants into pack-size families by SKU, derives each variant's per-unit cost from the family baseline, and writes the costs to Shopify inventory items.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
