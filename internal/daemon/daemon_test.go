package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/renderfarm/framefarm/internal/config"
)

func TestDaemonStartAcquiresPIDAndShutsDownCleanly(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.StorePath = filepath.Join(dir, "farm.db")
	cfg.APIAddr = "127.0.0.1:0"
	cfg.APISocket = filepath.Join(dir, "farmd.sock")
	cfg.HeartbeatPeriod = 20 * time.Millisecond
	cfg.CleanupPeriod = 20 * time.Millisecond
	cfg.OutputPollPeriod = 20 * time.Millisecond

	d, err := New(cfg, filepath.Join(dir, "farmd.pid"))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- d.Start(context.Background()) }()

	// Give Start a moment to acquire the PID file and open listeners.
	time.Sleep(50 * time.Millisecond)

	d.Shutdown()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not shut down in time")
	}
}
