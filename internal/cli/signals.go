package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

// terminate sends SIGTERM to pid, the signal a running farmd treats
// as a graceful shutdown request (internal/daemon.Daemon.Shutdown is
// wired to it from cmd/farmd's own signal handler).
func terminate(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}

// waitForSignal blocks until SIGINT or SIGTERM, then calls cancel —
// used by `farmctl daemon start` to run farmd in the foreground, the
// same interrupt-to-cancel shape as the teacher's SignalHandler.
func waitForSignal(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("farmctl: received signal %v, shutting down", sig)
	cancel()
}
