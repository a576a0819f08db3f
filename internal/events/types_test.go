package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/renderfarm/framefarm/internal/farm"
)

func TestNewAssignsIDAndTime(t *testing.T) {
	e := New(RangeStarted)
	require.NotEmpty(t, e.ID)
	require.False(t, e.Time.IsZero())
	require.Equal(t, RangeStarted, e.Type)
}

func TestWithRangeSetsFields(t *testing.T) {
	e := New(RangeCompleted).WithRange(farm.ClaimedRange{JobID: "j1", StartFrame: 3, EndFrame: 7, Eye: farm.EyeLeft}, "w1")
	require.Equal(t, "j1", e.JobID)
	require.Equal(t, 3, e.Start)
	require.Equal(t, 7, e.End)
	require.Equal(t, farm.EyeLeft, e.Eye)
	require.Equal(t, "w1", e.WorkerID)
}

func TestWithErrorNilLeavesEmpty(t *testing.T) {
	e := New(RangeFailed).WithError(nil)
	require.Empty(t, e.Error)
}

func TestIsFailure(t *testing.T) {
	require.True(t, New(RangeFailed).IsFailure())
	require.True(t, New(RangeTimedOut).IsFailure())
	require.False(t, New(RangeCompleted).IsFailure())
}

func TestStringIncludesRangeAndError(t *testing.T) {
	e := New(RangeFailed).
		WithRange(farm.ClaimedRange{JobID: "j1", StartFrame: 0, EndFrame: 3, Eye: farm.EyeSBS}, "w1").
		WithError(errors.New("exit status 1"))
	s := e.String()
	require.Contains(t, s, "[range.failed]")
	require.Contains(t, s, "j1")
	require.Contains(t, s, "worker=w1")
	require.Contains(t, s, "frames=0-3/sbs")
	require.Contains(t, s, "error=exit status 1")
}
