package daemon

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/renderfarm/framefarm/internal/config"
	"github.com/renderfarm/framefarm/internal/events"
	"github.com/renderfarm/framefarm/internal/farm"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.StorePath = filepath.Join(dir, "farm.db")
	cfg.APIAddr = ""
	cfg.APISocket = ""
	cfg.CheckerPath = "" // no sequence checker: verifyJob must not shell out

	d, err := New(cfg, filepath.Join(dir, "farmd.pid"))
	require.NoError(t, err)
	return d
}

func TestVerifyJobMarksVerifiedWhenJobComplete(t *testing.T) {
	d := newTestDaemon(t)

	job := &farm.Job{
		ID: "job1", PoolID: farm.DefaultPoolID, ClipPath: "/clip.braw", OutputDir: t.TempDir(),
		StartFrame: 0, EndFrame: 2, Eyes: []farm.Eye{farm.EyeLeft}, Format: farm.FormatEXR,
	}
	require.NoError(t, d.store.SubmitJob(job))
	require.NoError(t, d.store.CompleteFrames(job.ID, 0, 2, farm.EyeLeft, "w1"))

	d.verifyJob(job.ID)

	require.True(t, d.verifier.IsVerified(job.ID))
}

func TestVerifyJobSkipsIncompleteJob(t *testing.T) {
	d := newTestDaemon(t)

	job := &farm.Job{
		ID: "job1", PoolID: farm.DefaultPoolID, ClipPath: "/clip.braw", OutputDir: t.TempDir(),
		StartFrame: 0, EndFrame: 2, Eyes: []farm.Eye{farm.EyeLeft}, Format: farm.FormatEXR,
	}
	require.NoError(t, d.store.SubmitJob(job))
	require.NoError(t, d.store.CompleteFrames(job.ID, 0, 1, farm.EyeLeft, "w1"))

	d.verifyJob(job.ID)

	require.False(t, d.verifier.IsVerified(job.ID))
}

func TestOnRangeCompletedTriggersVerification(t *testing.T) {
	d := newTestDaemon(t)

	job := &farm.Job{
		ID: "job1", PoolID: farm.DefaultPoolID, ClipPath: "/clip.braw", OutputDir: t.TempDir(),
		StartFrame: 0, EndFrame: 2, Eyes: []farm.Eye{farm.EyeLeft}, Format: farm.FormatEXR,
	}
	require.NoError(t, d.store.SubmitJob(job))
	require.NoError(t, d.store.CompleteFrames(job.ID, 0, 2, farm.EyeLeft, "w1"))

	d.bus.Publish(events.New(events.RangeCompleted).WithRange(farm.ClaimedRange{
		JobID: job.ID, StartFrame: 0, EndFrame: 2, Eye: farm.EyeLeft,
	}, "w1"))

	deadline := time.Now().Add(time.Second)
	for !d.verifier.IsVerified(job.ID) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, d.verifier.IsVerified(job.ID))
}
