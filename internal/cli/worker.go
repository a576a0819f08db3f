package cli

import (
	"github.com/spf13/cobra"

	"github.com/renderfarm/framefarm/internal/farm"
)

func newWorkerCmd(a *App) *cobra.Command {
	var pool string
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Inspect render farm workers",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List workers and their current status",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/workers"
			if pool != "" {
				path += "?pool=" + pool
			}
			var workers []*farm.Worker
			if err := a.client().get(cmd.Context(), path, &workers); err != nil {
				return err
			}
			printWorkerTable(cmd.OutOrStdout(), workers)
			return nil
		},
	}
	list.Flags().StringVar(&pool, "pool", "", "filter by pool")
	cmd.AddCommand(list)
	return cmd
}
