package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/renderfarm/framefarm/internal/farm"
)

// isTerminalStdout reports whether stdout is a TTY, gating ANSI color
// output the way the teacher's run.go decides whether to launch its
// TUI (term.IsTerminal(int(os.Stdout.Fd()))).
func isTerminalStdout() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

const (
	colorReset  = "\x1b[0m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorRed    = "\x1b[31m"
	colorBlue   = "\x1b[34m"
)

func statusColor(status farm.JobStatus) string {
	switch status {
	case farm.JobCompleted:
		return colorGreen
	case farm.JobInProgress:
		return colorBlue
	case farm.JobFailed:
		return colorRed
	case farm.JobExcluded, farm.JobPaused:
		return colorYellow
	default:
		return ""
	}
}

func colorize(useColor bool, code, s string) string {
	if !useColor || code == "" {
		return s
	}
	return code + s + colorReset
}

// printJobTable renders jobs list output, the frame counts formatted
// with go-humanize so large counts stay readable (e.g. "12,480"
// instead of "12480") and the percentage as a whole number.
func printJobTable(w io.Writer, views []jobView, useColor bool) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPOOL\tSTATUS\tPROGRESS\tPRIORITY\tCLIP")
	for _, v := range views {
		pct := "0%"
		if v.Total > 0 {
			pct = fmt.Sprintf("%.0f%%", float64(v.Completed)/float64(v.Total)*100)
		}
		progress := fmt.Sprintf("%s/%s (%s)", humanize.Comma(int64(v.Completed)), humanize.Comma(int64(v.Total)), pct)
		status := colorize(useColor, statusColor(v.ComputedStatus), string(v.ComputedStatus))
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", v.ID, v.PoolID, status, progress, v.Priority, v.ClipPath)
	}
	tw.Flush()
}

// printProgress renders a single job's frame-status breakdown as a
// compact ASCII bar plus counts.
func printProgress(w io.Writer, p farm.JobProgress, useColor bool) {
	const width = 40
	filled := 0
	if p.Total > 0 {
		filled = p.Completed * width / p.Total
	}
	bar := "[" + repeat("#", filled) + repeat("-", width-filled) + "]"
	fmt.Fprintf(w, "%s %s/%s completed (%s pending, %s claimed, %s failed)\n",
		colorize(useColor, colorGreen, bar),
		humanize.Comma(int64(p.Completed)), humanize.Comma(int64(p.Total)),
		humanize.Comma(int64(p.Pending)), humanize.Comma(int64(p.Claimed)), humanize.Comma(int64(p.Failed)))
}

func printEyeProgress(w io.Writer, progress farm.EyeProgress) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "EYE\tPENDING\tCLAIMED\tCOMPLETED\tFAILED\tTOTAL")
	for eye, p := range progress {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", eye, p.Pending, p.Claimed, p.Completed, p.Failed, p.Total)
	}
	tw.Flush()
}

func printWorkerTable(w io.Writer, workers []*farm.Worker) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPOOL\tSTATUS\tCURRENT JOB\tCOMPLETED\tLAST HEARTBEAT")
	for _, wkr := range workers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", wkr.ID, wkr.PoolID, wkr.Status, wkr.CurrentJobID,
			humanize.Comma(wkr.FramesCompleted), humanize.Time(wkr.LastHeartbeat))
	}
	tw.Flush()
}

func printPoolTable(w io.Writer, pools []*farm.Pool) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRIORITY\tCREATED")
	for _, p := range pools {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Priority, humanize.Time(p.CreatedAt))
	}
	tw.Flush()
}

func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
