package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/harbor-supply/costsync/internal/sync"
)

var planOut string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute the cost update plan without writing anything",
	Long: `Build the full update plan a sync run would apply and export it for
review. With --out the plan is written to a YAML or XLSX file, chosen by
extension; otherwise a table is printed to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shopClient, finClient, err := initClients("plan")
		if err != nil {
			return err
		}

		runner := sync.NewRunner(shopClient, finClient, shopClient, sync.Options{
			TempDir: cfg.Sync.TempDir,
		})

		plan, err := runner.BuildPlan(ctx)
		if err != nil {
			return eris.Wrap(err, "build plan")
		}

		if planOut != "" {
			if err := sync.WritePlanFile(plan, planOut); err != nil {
				return eris.Wrap(err, "write plan")
			}
			fmt.Printf("Plan written to %s (%d updates)\n", planOut, plan.Updates())
			return nil
		}

		sync.RenderPlanTable(os.Stdout, plan)
		return nil
	},
}

func init() {
	planCmd.Flags().StringVar(&planOut, "out", "", "write the plan to this file (.yaml or .xlsx) instead of stdout")
	rootCmd.AddCommand(planCmd)
}
