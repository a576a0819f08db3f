package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/renderfarm/framefarm/internal/farm"
)

func TestRegisterWorkerUpserts(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.RegisterWorker(&farm.Worker{ID: "w1", PoolID: farm.DefaultPoolID, Hostname: "host-a", Status: farm.WorkerIdle}))
	require.NoError(t, s.RegisterWorker(&farm.Worker{ID: "w1", PoolID: farm.DefaultPoolID, Hostname: "host-a", Status: farm.WorkerActive}))

	workers, err := s.ListWorkers(farm.DefaultPoolID)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	require.Equal(t, farm.WorkerActive, workers[0].Status)
}

func TestUpdateHeartbeatUnknownWorkerNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateHeartbeat("ghost", farm.WorkerIdle, "", 0)
	require.ErrorIs(t, err, farm.ErrNotFound)
}

func TestListWorkersReportsStaleAsOffline(t *testing.T) {
	s := newTestStore(t)
	s.HeartbeatTimeout = 10 * time.Millisecond
	require.NoError(t, s.RegisterWorker(&farm.Worker{ID: "w1", PoolID: farm.DefaultPoolID, Hostname: "host-a", Status: farm.WorkerActive}))

	time.Sleep(30 * time.Millisecond)

	workers, err := s.ListWorkers(farm.DefaultPoolID)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	require.Equal(t, farm.WorkerOffline, workers[0].Status)
}

func TestCleanupOfflineWorkersReclaimsFrames(t *testing.T) {
	s := newTestStore(t)
	s.HeartbeatTimeout = 10 * time.Millisecond
	require.NoError(t, s.SubmitJob(sampleJob("j1")))
	require.NoError(t, s.RegisterWorker(&farm.Worker{ID: "w1", PoolID: farm.DefaultPoolID, Hostname: "host-a", Status: farm.WorkerActive}))

	r, err := s.ClaimFrames(farm.DefaultPoolID, "w1", 10)
	require.NoError(t, err)
	require.NotNil(t, r)

	time.Sleep(30 * time.Millisecond)

	n, err := s.CleanupOfflineWorkers()
	require.NoError(t, err)
	require.Equal(t, 1, n)

	progress, err := s.GetJobProgress("j1")
	require.NoError(t, err)
	require.Equal(t, progress.Total, progress.Pending)
	require.Zero(t, progress.Claimed)

	workers, err := s.ListWorkers(farm.DefaultPoolID)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	require.Equal(t, farm.WorkerOffline, workers[0].Status)
}
