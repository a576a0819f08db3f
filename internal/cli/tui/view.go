package tui

import (
	"fmt"
	"strings"
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render("framefarm dashboard"))
	b.WriteString("\n\n")

	if m.snapshot.Err != nil {
		b.WriteString(m.styles.Error.Render("control api error: " + m.snapshot.Err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(m.styles.Header.Render(fmt.Sprintf("%-16s %-10s %-12s %10s %8s", "JOB", "POOL", "STATUS", "PROGRESS", "PRIORITY")))
	b.WriteString("\n")
	for _, j := range m.snapshot.Jobs {
		status := m.styles.statusStyle(j.Status).Render(j.Status)
		b.WriteString(fmt.Sprintf("%-16s %-10s %-12s %10s %8d\n", j.ID, j.Pool, status, progressFraction(j.Completed, j.Total), j.Priority))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Header.Render(fmt.Sprintf("%-16s %-10s %-10s %-16s %10s", "WORKER", "POOL", "STATUS", "CURRENT JOB", "COMPLETED")))
	b.WriteString("\n")
	for _, w := range m.snapshot.Workers {
		status := m.styles.statusStyle(w.Status).Render(w.Status)
		b.WriteString(fmt.Sprintf("%-16s %-10s %-10s %-16s %10d\n", w.ID, w.Pool, status, w.CurrentJobID, w.FramesCompleted))
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render("q to quit"))
	return b.String()
}

func progressFraction(completed, total int) string {
	return fmt.Sprintf("%d/%d", completed, total)
}
