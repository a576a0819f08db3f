package verify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/renderfarm/framefarm/internal/farm"
)

func TestCoordinatorClaimIsExclusive(t *testing.T) {
	c := NewCoordinator()
	require.True(t, c.Claim("j1", "w1"))
	require.False(t, c.Claim("j1", "w2"))
	// The same worker re-claiming its own job is fine (retry after a
	// transient error in the same process).
	require.True(t, c.Claim("j1", "w1"))
}

func TestCoordinatorReleaseThenReclaim(t *testing.T) {
	c := NewCoordinator()
	require.True(t, c.Claim("j1", "w1"))
	c.Release("j1", "w1")
	require.True(t, c.Claim("j1", "w2"))
}

func TestCoordinatorMarkVerifiedBlocksFutureClaims(t *testing.T) {
	c := NewCoordinator()
	require.True(t, c.Claim("j1", "w1"))
	c.MarkVerified("j1")
	require.True(t, c.IsVerified("j1"))
	require.False(t, c.Claim("j1", "w2"))
}

func TestGroupConsecutive(t *testing.T) {
	got := GroupConsecutive([]int{1, 2, 3, 7, 8, 10})
	require.Equal(t, [][2]int{{1, 3}, {7, 8}, {10, 10}}, got)
}

func TestGroupConsecutiveEmpty(t *testing.T) {
	require.Nil(t, GroupConsecutive(nil))
}

func TestUnionRange(t *testing.T) {
	min, max, ok := UnionRange([]int{5, 1, 9, 3})
	require.True(t, ok)
	require.Equal(t, 1, min)
	require.Equal(t, 9, max)
}

func TestRepairPriorityCapsAt100(t *testing.T) {
	require.Equal(t, 100, RepairPriority(95))
	require.Equal(t, 60, RepairPriority(50))
}

func TestBuildRepairJobCoversUnionRange(t *testing.T) {
	source := &farm.Job{
		ID: "j1", PoolID: farm.DefaultPoolID, ClipPath: "/c", OutputDir: "/o",
		StartFrame: 0, EndFrame: 99, Eyes: []farm.Eye{farm.EyeLeft}, Format: farm.FormatEXR,
		Priority: 50, Status: farm.JobCompleted,
	}
	repair, err := BuildRepairJob(source, "j1-repair", []int{10, 11, 20})
	require.NoError(t, err)
	require.Equal(t, "j1-repair", repair.ID)
	require.Equal(t, 10, repair.StartFrame)
	require.Equal(t, 20, repair.EndFrame)
	require.Equal(t, 60, repair.Priority)
	require.Equal(t, farm.JobPending, repair.Status)
}

func TestBuildRepairJobRejectsEmptyBadList(t *testing.T) {
	source := &farm.Job{ID: "j1"}
	_, err := BuildRepairJob(source, "j1-repair", nil)
	require.Error(t, err)
}
