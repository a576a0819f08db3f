package cli

import (
	"github.com/spf13/cobra"
)

// App is the farmctl CLI application, wiring the Control API client
// and the daemon lifecycle commands under one root Cobra command
// (mirrors the teacher's own cli.App shape in internal/cli/cli.go).
type App struct {
	rootCmd *cobra.Command

	apiAddr   string
	apiSocket string
	configPath string
	pidPath   string
	noColor   bool

	version, commit, date string
}

// New builds the farmctl command tree.
func New() *App {
	a := &App{}
	a.setupRootCmd()
	return a
}

func (a *App) Execute() error {
	return a.rootCmd.Execute()
}

func (a *App) SetVersion(version, commit, date string) {
	a.version, a.commit, a.date = version, commit, date
}

func (a *App) client() *Client {
	return NewClient(a.apiAddr, a.apiSocket)
}

func (a *App) useColor() bool {
	return !a.noColor && isTerminalStdout()
}

func (a *App) setupRootCmd() {
	a.rootCmd = &cobra.Command{
		Use:           "farmctl",
		Short:         "Operator CLI for the render farm coordinator",
		Long:          "farmctl submits and inspects render jobs, manages pools, and controls the farmd daemon via its Control API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	a.rootCmd.PersistentFlags().StringVar(&a.apiAddr, "api-addr", "127.0.0.1:8090", "Control API TCP address")
	a.rootCmd.PersistentFlags().StringVar(&a.apiSocket, "api-socket", "", "Control API unix socket path (overrides --api-addr when set)")
	a.rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "farmd config file (daemon subcommand only)")
	a.rootCmd.PersistentFlags().StringVar(&a.pidPath, "pid-file", "/var/run/framefarm/farmd.pid", "farmd PID file path")
	a.rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	a.rootCmd.AddCommand(
		newJobsCmd(a),
		newPoolCmd(a),
		newWorkerCmd(a),
		newDaemonCmd(a),
		newDashboardCmd(a),
		newVersionCmd(a),
	)
}

func newVersionCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			version := a.version
			if version == "" {
				version = "dev"
			}
			cmd.Println(version)
			return nil
		},
	}
}
