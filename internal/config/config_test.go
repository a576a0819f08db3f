package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store_path: /mnt/shared/farm.db
worker_parallelism: 4
batch_size: 5
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/mnt/shared/farm.db", cfg.StorePath)
	require.Equal(t, 4, cfg.WorkerParallelism)
	require.Equal(t, 5, cfg.BatchSize)
	// Untouched fields keep their defaults.
	require.Equal(t, DefaultConverterPath, cfg.ConverterPath)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("worker_parallelism: 0\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsEmptyAPISurface(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIAddr = ""
	cfg.APISocket = ""
	err := validate(cfg)
	require.Error(t, err)
}

func TestValidateRejectsHeartbeatTimeoutNotExceedingPeriod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeartbeatPeriod = time.Minute
	cfg.HeartbeatTimeout = time.Minute
	err := validate(cfg)
	require.Error(t, err)
}
