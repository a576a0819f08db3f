// Package worker implements the per-host render farm worker runtime
// (spec.md §4.3): a loop that sizes its own parallelism, claims frame
// ranges, dispatches them to the external converter, and reconciles
// outcomes back into the coordination store.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/renderfarm/framefarm/internal/converter"
	"github.com/renderfarm/framefarm/internal/events"
	"github.com/renderfarm/framefarm/internal/farm"
	"github.com/renderfarm/framefarm/internal/scheduler"
)

// Store is the subset of *store.Store the worker runtime depends on.
type Store interface {
	scheduler.Store
	GetJob(id string) (*farm.Job, error)
	CompleteFrames(jobID string, startFrame, endFrame int, eye farm.Eye, workerID string) error
	ReleaseFrames(jobID string, startFrame, endFrame int, eye farm.Eye, workerID string) error
	RegisterWorker(w *farm.Worker) error
	UpdateHeartbeat(workerID string, status farm.WorkerStatus, currentJobID string, completed int64) error
	CleanupOfflineWorkers() (int, error)
}

// Config controls a Worker's cadence and resource limits.
type Config struct {
	ID                string
	PoolID            string
	Hostname          string
	IP                string
	Parallelism       int
	BatchSize         int
	HeartbeatPeriod   time.Duration
	CleanupPeriod     time.Duration
	OutputPollPeriod  time.Duration
	ConverterBase     time.Duration
	ConverterPerFrame time.Duration
	ClaimTimeout      time.Duration
}

// Worker runs the main claim/dispatch/reconcile loop on one host.
type Worker struct {
	cfg      Config
	store    Store
	claimer  *scheduler.Claimer
	runner   Converter
	bus      *events.Bus
	fs       OutputChecker

	mu        sync.Mutex
	inFlight  map[string]context.CancelFunc // range key -> cancel for hard stop
	soft      atomic.Bool
	hard      atomic.Bool
	completed atomic.Int64

	// g replaces a raw sync.WaitGroup for range-dispatch tasks: same
	// fan-out/fan-in shape, but ready to surface a first-error if a
	// future caller wants g.Wait()'s return value instead of the
	// events bus.
	g errgroup.Group
}

// OutputChecker abstracts filesystem existence checks so tests can
// substitute an in-memory fake instead of touching real disk.
type OutputChecker interface {
	Exists(path string) bool
	MkdirAll(path string) error
}

// Converter abstracts the external frame-conversion binary so tests
// can substitute a fake instead of spawning a real process.
// *converter.Runner satisfies this.
type Converter interface {
	Run(ctx context.Context, o converter.Options) error
}

// New builds a Worker. runner executes the converter binary; fs
// performs the output-existence checks the dispatch task needs.
func New(cfg Config, store Store, runner Converter, bus *events.Bus, fs OutputChecker) *Worker {
	return &Worker{
		cfg:      cfg,
		store:    store,
		claimer:  scheduler.NewClaimer(store),
		runner:   runner,
		bus:      bus,
		fs:       fs,
		inFlight: make(map[string]context.CancelFunc),
	}
}

// Start registers the worker row as active and runs the main loop
// until ctx is cancelled. Stop and HardStop do not end the loop; they
// only stop it claiming new ranges. It blocks until the loop has fully
// drained.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.store.RegisterWorker(&farm.Worker{
		ID: w.cfg.ID, PoolID: w.cfg.PoolID, Hostname: w.cfg.Hostname, IP: w.cfg.IP,
		Status: farm.WorkerActive, LastHeartbeat: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("register worker: %w", err)
	}
	return w.loop(ctx)
}

// ID returns the worker's identity string (hostname_ip), the same ID
// it registers and heartbeats under.
func (w *Worker) ID() string {
	return w.cfg.ID
}

// Stop requests a soft stop: no new ranges are claimed, but in-flight
// ranges are allowed to finish. Call HardStop to also cancel them.
func (w *Worker) Stop() {
	w.soft.Store(true)
}

// HardStop performs a soft stop, cancels every in-flight dispatch
// task's context (which terminates its converter child process), and
// marks the worker offline immediately. No guarantees are made about
// in-flight outputs after a hard stop (spec.md §4.3) — their claims
// simply expire and become reclaimable.
func (w *Worker) HardStop() {
	w.soft.Store(true)
	w.hard.Store(true)
	w.mu.Lock()
	for _, cancel := range w.inFlight {
		cancel()
	}
	w.mu.Unlock()
	_ = w.store.UpdateHeartbeat(w.cfg.ID, farm.WorkerOffline, "", w.completed.Load())
}

func (w *Worker) trackInFlight(key string, cancel context.CancelFunc) {
	w.mu.Lock()
	w.inFlight[key] = cancel
	w.mu.Unlock()
}

func (w *Worker) untrackInFlight(key string) {
	w.mu.Lock()
	delete(w.inFlight, key)
	w.mu.Unlock()
}

func (w *Worker) inFlightCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inFlight)
}
