package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/renderfarm/framefarm/internal/farm"
)

func TestDeleteDefaultPoolRejected(t *testing.T) {
	s := newTestStore(t)
	err := s.DeletePool(farm.DefaultPoolID)
	require.ErrorIs(t, err, farm.ErrInvalidArgument)
}

func TestDeletePoolMigratesChildren(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreatePool(&farm.Pool{ID: "gpu-farm", Name: "GPU Farm", Priority: 60}))

	job := &farm.Job{
		ID: "j1", PoolID: "gpu-farm", ClipPath: "/clips/a.braw", OutputDir: "/out",
		StartFrame: 0, EndFrame: 9, Eyes: []farm.Eye{farm.EyeLeft}, Format: farm.FormatEXR,
	}
	require.NoError(t, s.SubmitJob(job))
	require.NoError(t, s.RegisterWorker(&farm.Worker{ID: "w1", PoolID: "gpu-farm", Hostname: "host1"}))

	require.NoError(t, s.DeletePool("gpu-farm"))

	_, err := s.GetPool("gpu-farm")
	require.ErrorIs(t, err, farm.ErrNotFound)

	got, err := s.GetJob("j1")
	require.NoError(t, err)
	require.Equal(t, farm.DefaultPoolID, got.PoolID)

	workers, err := s.ListWorkers(farm.DefaultPoolID)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	require.Equal(t, "w1", workers[0].ID)
}

func TestCreatePoolDuplicateConflicts(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.CreatePool(&farm.Pool{ID: "p1", Name: "Pool 1"}))
	err := s.CreatePool(&farm.Pool{ID: "p1", Name: "Pool 1 again"})
	require.ErrorIs(t, err, farm.ErrConflict)
}
