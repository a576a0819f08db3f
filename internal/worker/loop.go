package worker

import (
	"context"
	"time"

	"github.com/renderfarm/framefarm/internal/events"
	"github.com/renderfarm/framefarm/internal/farm"
	"github.com/renderfarm/framefarm/internal/scheduler"
)

// tickPeriod is how often the loop re-evaluates parallelism and
// opportunistically runs cleanup, independent of the heartbeat cadence.
const tickPeriod = 2 * time.Second

// loop is the worker's single control goroutine (spec.md §4.3): it
// claims ranges up to the effective parallelism, dispatches each to
// its own goroutine, and heartbeats while work is outstanding.
func (w *Worker) loop(ctx context.Context) error {
	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()

	heartbeat := time.NewTicker(w.cfg.HeartbeatPeriod)
	defer heartbeat.Stop()

	cleanup := time.NewTicker(w.cfg.CleanupPeriod)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			w.g.Wait()
			return ctx.Err()

		case <-cleanup.C:
			if _, err := w.store.CleanupOfflineWorkers(); err != nil {
				w.bus.Publish(events.New(events.WorkerOffline).WithError(err))
			}

		case <-heartbeat.C:
			status := farm.WorkerIdle
			if w.inFlightCount() > 0 {
				status = farm.WorkerActive
			}
			if err := w.store.UpdateHeartbeat(w.cfg.ID, status, "", w.completed.Load()); err != nil {
				w.bus.Publish(events.New(events.WorkerHeartbeat).WithError(err))
			}

		case <-ticker.C:
			if w.soft.Load() {
				continue
			}
			if err := w.fillToCapacity(ctx); err != nil {
				w.bus.Publish(events.New(events.ClaimNone).WithError(err))
			}
		}
	}
}

// fillToCapacity claims and dispatches ranges until in-flight work
// reaches the effective parallelism spec.md §4.2 computes from the
// pool's current pending-frame count, or there is nothing left to claim.
func (w *Worker) fillToCapacity(ctx context.Context) error {
	pending, err := w.claimer.PendingFrameCount(w.cfg.PoolID)
	if err != nil {
		return err
	}
	target := scheduler.EffectiveParallelism(w.cfg.Parallelism, pending, w.cfg.BatchSize)

	for w.inFlightCount() < target {
		r, err := w.claimer.Claim(ctx, w.cfg.PoolID, w.cfg.ID, w.cfg.BatchSize)
		if err != nil {
			return err
		}
		if r == nil {
			return nil
		}
		// Dispatched ranges are deliberately rooted in context.Background,
		// not ctx: a soft stop (loop's ctx cancelled) must let in-flight
		// ranges run to completion (spec.md §4.3), so cancelling the loop
		// must not cascade into taskCtx. Only HardStop cancels a range's
		// context directly, via the per-range cancel func in w.inFlight.
		w.dispatch(context.Background(), *r)
	}
	return nil
}
