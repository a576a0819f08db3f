package daemon

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/renderfarm/framefarm/internal/events"
	"github.com/renderfarm/framefarm/internal/verify"
)

// onRangeCompleted is the re-render hook spec.md §4.4 describes: once
// a completed range brings a job to 100%, it runs the sequence
// checker against the job's output and resubmits a repair job for
// whatever frames it flags (the complete_frames -> integrity check ->
// re-render hook pipeline). Fired synchronously by events.Bus.Publish,
// so it only decides whether verification is warranted here and does
// the actual (checker-binary-shelling-out) work in its own goroutine.
func (d *Daemon) onRangeCompleted(e events.Event) {
	if e.Type != events.RangeCompleted || e.JobID == "" {
		return
	}
	go d.verifyJob(e.JobID)
}

// verifyJob runs the single-flight verification pipeline for jobID:
// claim -> scan -> either mark verified or resubmit a repair job ->
// release. Safe to call redundantly for the same job from multiple
// completed ranges: each call claims under its own holder ID, so
// Coordinator.Claim lets only one call at a time proceed for a job.
func (d *Daemon) verifyJob(jobID string) {
	progress, err := d.store.GetJobProgress(jobID)
	if err != nil {
		log.Printf("farmd: verify %s: get progress: %v", jobID, err)
		return
	}
	if progress.Total == 0 || progress.Completed < progress.Total {
		return
	}

	holder := d.worker.ID() + "/" + uuid.NewString()
	if !d.verifier.Claim(jobID, holder) {
		return
	}
	defer d.verifier.Release(jobID, holder)

	if d.cfg.CheckerPath == "" {
		// No sequence checker configured: nothing to verify against,
		// so trust complete_frames and stop re-checking this job.
		d.verifier.MarkVerified(jobID)
		return
	}

	job, err := d.store.GetJob(jobID)
	if err != nil {
		log.Printf("farmd: verify %s: get job: %v", jobID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	scan := &verify.RepairScan{CheckerPath: d.cfg.CheckerPath}
	badIndices, err := scan.Run(ctx, job.OutputDir)
	if err != nil {
		log.Printf("farmd: verify %s: sequence checker: %v", jobID, err)
		return
	}
	if len(badIndices) == 0 {
		d.verifier.MarkVerified(jobID)
		log.Printf("farmd: verify %s: output passed integrity check", jobID)
		return
	}

	repair, err := verify.BuildRepairJob(job, uuid.NewString(), badIndices)
	if err != nil {
		log.Printf("farmd: verify %s: build repair job: %v", jobID, err)
		return
	}
	if err := d.store.SubmitJob(repair); err != nil {
		log.Printf("farmd: verify %s: submit repair job %s: %v", jobID, repair.ID, err)
		return
	}
	d.bus.Publish(events.New(events.JobSubmitted).WithJob(repair.PoolID, repair.ID))
	log.Printf("farmd: verify %s: resubmitted %d bad frame(s) as repair job %s (priority %d)",
		jobID, len(badIndices), repair.ID, repair.Priority)
}

