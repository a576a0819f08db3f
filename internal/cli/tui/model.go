// Package tui is a bubbletea dashboard for farmctl, polling the
// Control API on an interval and rendering job and worker tables —
// the terminal stand-in for the operator GUI collaborator spec.md
// describes only by contract (modeled on the teacher's internal/cli/tui).
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// JobRow is one line of the jobs table.
type JobRow struct {
	ID        string
	Pool      string
	Status    string
	Completed int
	Total     int
	Priority  int
}

// WorkerRow is one line of the workers table.
type WorkerRow struct {
	ID              string
	Pool            string
	Status          string
	CurrentJobID    string
	FramesCompleted int64
}

// Snapshot is one poll's worth of dashboard data.
type Snapshot struct {
	Jobs    []JobRow
	Workers []WorkerRow
	Err     error
}

// Fetch retrieves a fresh Snapshot; supplied by the caller so this
// package never imports the Control API client directly.
type Fetch func() Snapshot

// Model is the bubbletea model driving the dashboard.
type Model struct {
	fetch    Fetch
	interval time.Duration
	styles   Styles

	snapshot Snapshot
	width    int
	height   int
	quitting bool
}

// NewModel builds a dashboard Model that calls fetch every interval.
func NewModel(fetch Fetch, interval time.Duration) *Model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Model{fetch: fetch, interval: interval, styles: DefaultStyles()}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), tickCmd(m.interval))
}

type snapshotMsg Snapshot
type tickMsg struct{}

func (m *Model) pollCmd() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(m.fetch())
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return tickMsg{} })
}
