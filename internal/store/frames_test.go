package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/renderfarm/framefarm/internal/farm"
)

func TestClaimFramesReturnsContiguousPrefix(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SubmitJob(sampleJob("j1")))

	r, err := s.ClaimFrames(farm.DefaultPoolID, "w1", 4)
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, 0, r.StartFrame)
	require.Equal(t, 3, r.EndFrame)
	require.Equal(t, 4, r.FrameCount())

	j, err := s.GetJob("j1")
	require.NoError(t, err)
	require.Equal(t, farm.JobInProgress, j.Status)
}

func TestClaimFramesBatchSizeOneReturnsSingleton(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SubmitJob(sampleJob("j1")))

	r, err := s.ClaimFrames(farm.DefaultPoolID, "w1", 1)
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, r.StartFrame, r.EndFrame)
	require.Equal(t, 1, r.FrameCount())
}

func TestClaimFramesNothingPendingReturnsNil(t *testing.T) {
	s := newTestStore(t)
	r, err := s.ClaimFrames(farm.DefaultPoolID, "w1", 4)
	require.NoError(t, err)
	require.Nil(t, r)
}

func TestClaimFramesStopsAtGapAcrossEyes(t *testing.T) {
	s := newTestStore(t)
	j := sampleJob("j1")
	j.Eyes = []farm.Eye{farm.EyeLeft, farm.EyeRight}
	j.StartFrame, j.EndFrame = 0, 2
	require.NoError(t, s.SubmitJob(j))

	r, err := s.ClaimFrames(farm.DefaultPoolID, "w1", 100)
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, 3, r.FrameCount())
	require.Equal(t, farm.EyeLeft, r.Eye)
}

func TestCompleteFramesIgnoresWorkerMismatch(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SubmitJob(sampleJob("j1")))

	r, err := s.ClaimFrames(farm.DefaultPoolID, "w1", 10)
	require.NoError(t, err)
	require.NotNil(t, r)

	// A different worker reports completion for the same range — this
	// must still land (spec.md §9 orphan-prevention), not be rejected
	// for lacking a worker match.
	require.NoError(t, s.CompleteFrames(r.JobID, r.StartFrame, r.EndFrame, r.Eye, "w2"))

	progress, err := s.GetJobProgress("j1")
	require.NoError(t, err)
	require.Equal(t, progress.Total, progress.Completed)

	j, err := s.GetJob("j1")
	require.NoError(t, err)
	require.Equal(t, farm.JobCompleted, j.Status)
}

func TestReleaseFramesRequiresWorkerMatch(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SubmitJob(sampleJob("j1")))

	r, err := s.ClaimFrames(farm.DefaultPoolID, "w1", 10)
	require.NoError(t, err)
	require.NotNil(t, r)

	require.NoError(t, s.ReleaseFrames(r.JobID, r.StartFrame, r.EndFrame, r.Eye, "w2"))

	progress, err := s.GetJobProgress("j1")
	require.NoError(t, err)
	require.Equal(t, 0, progress.Pending, "release from a non-owning worker must not affect claimed rows")
}

func TestExpiredClaimIsReclaimedByAnotherWorker(t *testing.T) {
	s := newTestStore(t)
	s.ClaimTimeout = 10 * time.Millisecond
	require.NoError(t, s.SubmitJob(sampleJob("j1")))

	r1, err := s.ClaimFrames(farm.DefaultPoolID, "w1", 10)
	require.NoError(t, err)
	require.NotNil(t, r1)

	time.Sleep(30 * time.Millisecond)

	r2, err := s.ClaimFrames(farm.DefaultPoolID, "w2", 10)
	require.NoError(t, err)
	require.NotNil(t, r2)
	require.Equal(t, r1.StartFrame, r2.StartFrame)
	require.Equal(t, r1.EndFrame, r2.EndFrame)
}

func TestConcurrentClaimsNeverOverlap(t *testing.T) {
	s := newTestStore(t)
	j := sampleJob("j1")
	j.StartFrame, j.EndFrame = 0, 99
	require.NoError(t, s.SubmitJob(j))

	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	claimed := make(map[int]string)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		workerID := workerIDFor(i)
		go func(workerID string) {
			defer wg.Done()
			for {
				r, err := s.ClaimFrames(farm.DefaultPoolID, workerID, 3)
				if err != nil {
					// Transient SQLITE_BUSY is possible under contention
					// even with IMMEDIATE transactions serialized by the
					// single-connection pool; anything else is fatal.
					require.ErrorIs(t, err, farm.ErrContention)
					continue
				}
				if r == nil {
					return
				}
				mu.Lock()
				for f := r.StartFrame; f <= r.EndFrame; f++ {
					prior, ok := claimed[f]
					require.Falsef(t, ok, "frame %d claimed twice: by %s and %s", f, prior, workerID)
					claimed[f] = workerID
				}
				mu.Unlock()
				require.NoError(t, s.CompleteFrames(r.JobID, r.StartFrame, r.EndFrame, r.Eye, workerID))
			}
		}(workerID)
	}
	wg.Wait()

	require.Len(t, claimed, 100)

	progress, err := s.GetJobProgress("j1")
	require.NoError(t, err)
	require.Equal(t, 100, progress.Completed)

	j2, err := s.GetJob("j1")
	require.NoError(t, err)
	require.Equal(t, farm.JobCompleted, j2.Status)
}

func workerIDFor(i int) string {
	return "worker-" + string(rune('a'+i))
}
