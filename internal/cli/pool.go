package cli

import (
	"github.com/spf13/cobra"

	"github.com/renderfarm/framefarm/internal/farm"
)

func newPoolCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Manage render pools",
	}
	cmd.AddCommand(newPoolCreateCmd(a), newPoolListCmd(a), newPoolDeleteCmd(a))
	return cmd
}

func newPoolCreateCmd(a *App) *cobra.Command {
	var name, description string
	var priority int
	cmd := &cobra.Command{
		Use:   "create <pool-id>",
		Short: "Create a new pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := farm.Pool{ID: args[0], Name: name, Description: description, Priority: priority}
			return a.client().post(cmd.Context(), "/api/pools", p, nil)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority 0-100")
	return cmd
}

func newPoolListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pools",
		RunE: func(cmd *cobra.Command, args []string) error {
			var pools []*farm.Pool
			if err := a.client().get(cmd.Context(), "/api/pools", &pools); err != nil {
				return err
			}
			printPoolTable(cmd.OutOrStdout(), pools)
			return nil
		},
	}
}

func newPoolDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pool-id>",
		Short: "Delete a pool, migrating its jobs and workers to default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.client().delete(cmd.Context(), "/api/pools/"+args[0])
		},
	}
}
