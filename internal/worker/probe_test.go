package worker

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProbeStorePathSucceedsForExistingDir(t *testing.T) {
	require.NoError(t, ProbeStorePath(t.TempDir()))
}

func TestProbeStorePathFailsForMissingDir(t *testing.T) {
	err := ProbeStorePath(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}
