package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/renderfarm/framefarm/internal/cli/tui"
	"github.com/renderfarm/framefarm/internal/farm"
)

func newDashboardCmd(a *App) *cobra.Command {
	var pool string
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Live terminal dashboard of jobs and workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()
			model := tui.NewModel(func() tui.Snapshot {
				return fetchSnapshot(cmd.Context(), client, pool)
			}, interval)
			p := tea.NewProgram(model)
			_, err := p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&pool, "pool", "", "filter by pool")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval")
	return cmd
}

// fetchSnapshot polls the Control API for the dashboard's table data.
// Errors degrade to a partial snapshot with the error recorded (no
// rows if the job fetch fails, jobs but no workers if the worker fetch
// fails), rather than crashing the TUI on a transient connection hiccup.
func fetchSnapshot(ctx context.Context, c *Client, pool string) tui.Snapshot {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var snap tui.Snapshot

	jobPath := "/api/jobs?"
	if pool != "" {
		jobPath += "pool=" + pool
	}
	var views []jobView
	if err := c.get(ctx, jobPath, &views); err != nil {
		snap.Err = err
		return snap
	}
	for _, v := range views {
		snap.Jobs = append(snap.Jobs, tui.JobRow{
			ID: v.ID, Pool: v.PoolID, Status: string(v.ComputedStatus),
			Completed: v.Completed, Total: v.Total, Priority: v.Priority,
		})
	}

	workerPath := "/api/workers"
	if pool != "" {
		workerPath += "?pool=" + pool
	}
	var workers []*farm.Worker
	if err := c.get(ctx, workerPath, &workers); err != nil {
		snap.Err = err
		return snap
	}
	for _, w := range workers {
		snap.Workers = append(snap.Workers, tui.WorkerRow{
			ID: w.ID, Pool: w.PoolID, Status: string(w.Status),
			CurrentJobID: w.CurrentJobID, FramesCompleted: w.FramesCompleted,
		})
	}

	return snap
}
