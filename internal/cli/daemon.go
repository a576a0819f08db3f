package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/renderfarm/framefarm/internal/config"
	"github.com/renderfarm/framefarm/internal/daemon"
)

func newDaemonCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control the farmd coordinator process",
	}
	cmd.AddCommand(newDaemonStartCmd(a), newDaemonStopCmd(a), newDaemonStatusCmd(a))
	return cmd
}

func newDaemonStartCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run farmd in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			d, err := daemon.New(cfg, a.pidPath)
			if err != nil {
				return fmt.Errorf("initialize daemon: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			go waitForSignal(cancel)

			return d.Start(ctx)
		},
	}
}

func newDaemonStopCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Signal a running farmd to shut down gracefully",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := daemon.ReadPID(a.pidPath)
			if err != nil {
				return fmt.Errorf("read pid file %s: %w", a.pidPath, err)
			}
			if !daemon.IsProcessRunning(pid) {
				return fmt.Errorf("no running farmd process for pid %d", pid)
			}
			return terminate(pid)
		},
	}
}

func newDaemonStatusCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether farmd is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := daemon.ReadPID(a.pidPath)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "stopped")
				return nil
			}
			if daemon.IsProcessRunning(pid) {
				fmt.Fprintf(cmd.OutOrStdout(), "running (pid %d)\n", pid)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "stopped (stale pid file)")
			}
			return nil
		},
	}
}
