package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPIDFileAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmd.pid")
	p := NewPIDFile(path)

	require.NoError(t, p.Acquire())

	got, err := ReadPID(path)
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), got)

	require.NoError(t, p.Release())
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestPIDFileAcquireRemovesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmd.pid")
	// A PID that is very unlikely to be running.
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(999999)), 0644))

	p := NewPIDFile(path)
	require.NoError(t, p.Acquire())

	got, err := ReadPID(path)
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), got)
}

func TestReleaseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farmd.pid")
	p := NewPIDFile(path)
	require.NoError(t, p.Release())
	require.NoError(t, p.Release())
}
