package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/renderfarm/framefarm/internal/converter"
	"github.com/renderfarm/framefarm/internal/events"
	"github.com/renderfarm/framefarm/internal/farm"
)

// rangeKey identifies an in-flight dispatch for cancellation bookkeeping.
func rangeKey(r farm.ClaimedRange) string {
	return fmt.Sprintf("%s:%d-%d:%s", r.JobID, r.StartFrame, r.EndFrame, r.Eye)
}

// dispatch creates the output directory, spawns the converter for r,
// polls for progress, and reconciles the outcome — all in its own
// goroutine so the main loop can keep claiming up to its parallelism
// target (spec.md §4.3 "per-range dispatch task").
func (w *Worker) dispatch(parent context.Context, r farm.ClaimedRange) {
	key := rangeKey(r)
	taskCtx, cancel := context.WithCancel(parent)
	w.trackInFlight(key, cancel)

	w.g.Go(func() error {
		defer w.untrackInFlight(key)
		defer cancel()
		w.runRange(taskCtx, r)
		return nil
	})
}

func (w *Worker) runRange(ctx context.Context, r farm.ClaimedRange) {
	w.bus.Publish(events.New(events.RangeStarted).WithRange(r, w.cfg.ID))

	job, err := w.store.GetJob(r.JobID)
	if err != nil {
		w.release(r, fmt.Errorf("load job: %w", err))
		return
	}

	if subdir := farm.OutputSubdir(job, r.Eye); subdir != "" {
		if err := w.fs.MkdirAll(filepath.Join(job.OutputDir, subdir)); err != nil {
			w.release(r, fmt.Errorf("create output dir: %w", err))
			return
		}
	} else if err := w.fs.MkdirAll(job.OutputDir); err != nil {
		w.release(r, fmt.Errorf("create output dir: %w", err))
		return
	}

	frameCount := r.FrameCount()
	timeout := converter.Timeout(frameCount, r.Eye, w.cfg.ConverterBase, w.cfg.ConverterPerFrame, w.cfg.ClaimTimeout)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pollDone := make(chan struct{})
	go w.pollProgress(runCtx, job, r, pollDone)

	opts := converter.Options{
		ClipPath: job.ClipPath, OutputDir: job.OutputDir,
		StartFrame: r.StartFrame, EndFrame: r.EndFrame, Eye: r.Eye,
		Format: job.Format, SeparateFolders: job.SeparateFolders,
		UseACES: job.UseACES, ColorInputSpace: job.ColorInputSpace, ColorOutputSpace: job.ColorOutputSpace,
		UseSTMap: job.UseSTMap, STMapPath: job.STMapPath,
	}
	runErr := w.runner.Run(runCtx, opts)
	close(pollDone)

	firstOutput := farm.OutputPath(job, r.StartFrame, r.Eye)
	if runErr == nil && w.fs.Exists(firstOutput) {
		w.complete(r)
		return
	}

	// A hard stop cancels taskCtx directly rather than letting the
	// converter finish or time out. Per spec.md §4.3/§5, a hard-stopped
	// range must not call release_frames — it stays claimed and becomes
	// eligible for another worker only once its claim times out.
	if errors.Is(runCtx.Err(), context.Canceled) && w.hard.Load() {
		reason := runErr
		if reason == nil {
			reason = runCtx.Err()
		}
		w.bus.Publish(events.New(events.RangeFailed).WithRange(r, w.cfg.ID).WithError(fmt.Errorf("range hard-stopped, claim left to expire: %w", reason)))
		return
	}

	if runErr == nil {
		runErr = fmt.Errorf("%w: expected output %s missing", farm.ErrConverterFailed, firstOutput)
	} else if runCtx.Err() != nil {
		runErr = fmt.Errorf("%w: %v", farm.ErrConverterTimedOut, runErr)
	}
	w.release(r, runErr)
}

// pollProgress periodically checks how many of r's expected output
// files exist, emitting a progress event each time (spec.md §4.3).
// It never mutates store state — only complete/release do that.
func (w *Worker) pollProgress(ctx context.Context, job *farm.Job, r farm.ClaimedRange, done <-chan struct{}) {
	period := w.cfg.OutputPollPeriod
	if period <= 0 {
		period = 2 * time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			count := 0
			for idx := r.StartFrame; idx <= r.EndFrame; idx++ {
				if w.fs.Exists(farm.OutputPath(job, idx, r.Eye)) {
					count++
				}
			}
			w.bus.Publish(events.New(events.RangeProgress).WithRange(r, w.cfg.ID).WithProgress(count, r.FrameCount()))
		}
	}
}

func (w *Worker) complete(r farm.ClaimedRange) {
	if err := w.store.CompleteFrames(r.JobID, r.StartFrame, r.EndFrame, r.Eye, w.cfg.ID); err != nil {
		w.bus.Publish(events.New(events.RangeFailed).WithRange(r, w.cfg.ID).WithError(err))
		return
	}
	w.completed.Add(int64(r.FrameCount()))
	w.bus.Publish(events.New(events.RangeCompleted).WithRange(r, w.cfg.ID))
}

func (w *Worker) release(r farm.ClaimedRange, reason error) {
	w.bus.Publish(events.New(events.RangeFailed).WithRange(r, w.cfg.ID).WithError(reason))
	if err := w.store.ReleaseFrames(r.JobID, r.StartFrame, r.EndFrame, r.Eye, w.cfg.ID); err != nil {
		w.bus.Publish(events.New(events.RangeFailed).WithRange(r, w.cfg.ID).WithError(err))
	}
}
