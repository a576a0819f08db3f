package daemon

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile enforces a single farmd instance per host by tracking the
// running process's PID on disk.
type PIDFile struct {
	path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Acquire writes the current process's PID to the file, first
// clearing out a stale file left by a process that is no longer
// running. Returns an error if another farmd is already alive.
func (p *PIDFile) Acquire() error {
	if _, err := os.Stat(p.path); err == nil {
		existingPID, err := ReadPID(p.path)
		if err != nil {
			return fmt.Errorf("read existing pid file: %w", err)
		}
		if existingPID > 0 && IsProcessRunning(existingPID) {
			return fmt.Errorf("farmd already running with pid %d", existingPID)
		}
		if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale pid file: %w", err)
		}
	}

	pidStr := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(p.path, []byte(pidStr), 0644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// Release removes the PID file. Safe to call multiple times.
func (p *PIDFile) Release() error {
	err := os.Remove(p.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsProcessRunning reports whether a process with the given PID
// exists, using the signal-0 probe.
func IsProcessRunning(pid int) bool {
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}

// ReadPID reads the PID recorded in path.
func ReadPID(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pidStr := strings.TrimSpace(string(content))
	if pidStr == "" {
		return 0, fmt.Errorf("pid file %s is empty", path)
	}
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("invalid pid in %s: %w", path, err)
	}
	return pid, nil
}
