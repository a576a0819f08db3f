package daemon

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/renderfarm/framefarm/internal/api"
	"github.com/renderfarm/framefarm/internal/config"
	"github.com/renderfarm/framefarm/internal/converter"
	"github.com/renderfarm/framefarm/internal/events"
	"github.com/renderfarm/framefarm/internal/store"
	"github.com/renderfarm/framefarm/internal/verify"
	"github.com/renderfarm/framefarm/internal/worker"
)

// Daemon is the farmd process: it owns the coordination store, one
// local Worker, and the Control API, and coordinates their startup
// and graceful shutdown (modeled on the teacher's Daemon in
// internal/daemon/daemon.go, minus the gRPC server it used for the
// same role).
type Daemon struct {
	cfg      *config.Config
	store    *store.Store
	worker   *worker.Worker
	api      *api.Server
	bus      *events.Bus
	pidFile  *PIDFile
	verifier *verify.Coordinator

	shutdownCh chan struct{}
	wg         sync.WaitGroup
}

// New wires a Daemon from cfg. It does not open the store or start
// anything yet — call Start for that.
func New(cfg *config.Config, pidPath string) (*Daemon, error) {
	s, err := store.Open(cfg.StorePath, store.WithClaimTimeout(cfg.ClaimTimeout), store.WithHeartbeatTimeout(cfg.HeartbeatTimeout))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	bus := events.NewBus(256)
	bus.Subscribe(events.LogHandler(events.LogConfig{Writer: os.Stderr}))

	hostname, _ := os.Hostname()
	workerCfg := worker.Config{
		ID:                hostname + "_" + localIP(),
		PoolID:            cfg.PoolID,
		Hostname:          hostname,
		IP:                localIP(),
		Parallelism:       cfg.WorkerParallelism,
		BatchSize:         cfg.BatchSize,
		HeartbeatPeriod:   cfg.HeartbeatPeriod,
		CleanupPeriod:     cfg.CleanupPeriod,
		OutputPollPeriod:  cfg.OutputPollPeriod,
		ConverterBase:     cfg.ConverterTimeoutBase,
		ConverterPerFrame: cfg.ConverterTimeoutPerFrame,
		ClaimTimeout:      cfg.ClaimTimeout,
	}
	w := worker.New(workerCfg, s, converter.NewRunner(cfg.ConverterPath), bus, worker.OSChecker{})

	apiServer := api.New(api.Config{Addr: cfg.APIAddr, Socket: cfg.APISocket}, s, bus)

	d := &Daemon{
		cfg:        cfg,
		store:      s,
		worker:     w,
		api:        apiServer,
		bus:        bus,
		pidFile:    NewPIDFile(pidPath),
		verifier:   verify.NewCoordinator(),
		shutdownCh: make(chan struct{}),
	}
	// The re-render hook (spec.md §4.4): once a range completion brings
	// a job to 100%, check its output against the sequence checker and
	// resubmit a repair job for anything it flags.
	bus.Subscribe(d.onRangeCompleted)

	return d, nil
}

// Start acquires the PID file, starts the Control API, and runs the
// worker loop until ctx is cancelled or Shutdown is called. It blocks
// until shutdown completes.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.pidFile.Acquire(); err != nil {
		return fmt.Errorf("acquire pid file: %w", err)
	}
	defer d.pidFile.Release()

	if err := worker.ProbeStorePath(filepath.Dir(d.cfg.StorePath)); err != nil {
		log.Printf("farmd: store path probe failed, continuing anyway: %v", err)
	}

	if err := d.api.Start(); err != nil {
		return fmt.Errorf("start control api: %w", err)
	}
	log.Printf("farmd: control api listening addr=%q socket=%q", d.api.Addr(), d.api.SocketPath())

	workerCtx, cancelWorker := context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.worker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("farmd: worker loop exited: %v", err)
		}
	}()

	select {
	case <-ctx.Done():
	case <-d.shutdownCh:
	}

	log.Println("farmd: shutting down")
	d.worker.Stop()
	// cancelWorker only stops the claim loop from claiming further work;
	// in-flight dispatch tasks are rooted in context.Background (see
	// internal/worker/loop.go), so this does not touch them. The worker
	// loop's own ctx.Done() handler waits for them (w.g.Wait()) before
	// Start returns, which is what the wait below blocks on.
	cancelWorker()

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(d.cfg.ShutdownGracePeriod):
		log.Printf("farmd: soft stop did not drain within %s, hard-stopping in-flight ranges", d.cfg.ShutdownGracePeriod)
		d.worker.HardStop()
		<-drained
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.api.Stop(shutdownCtx); err != nil {
		log.Printf("farmd: control api shutdown: %v", err)
	}

	return d.store.Close()
}

// Shutdown requests a graceful stop; Start returns once it completes.
func (d *Daemon) Shutdown() {
	select {
	case <-d.shutdownCh:
	default:
		close(d.shutdownCh)
	}
}

// localIP best-effort resolves an outbound IP for the worker identity
// (hostname_ip per spec.md §3); falls back to "0.0.0.0" if none found.
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "0.0.0.0"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

