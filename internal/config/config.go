// Package config loads farmd/farmctl configuration from a YAML file,
// applying defaults and validating the result.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds daemon and worker configuration, loaded from the YAML
// file named by --config; a missing file yields the defaults.
type Config struct {
	// StorePath is the shared coordination database file. On a shared
	// filesystem this is how every worker/daemon on every host finds
	// the same store.
	StorePath string `yaml:"store_path"`

	// ConverterPath is the external frame-conversion binary.
	ConverterPath string `yaml:"converter_path"`

	// CheckerPath is the sequence-checker binary invoked by the
	// re-render hook (spec.md §6 sequence-checker contract).
	CheckerPath string `yaml:"checker_path"`

	PoolID string `yaml:"pool_id"`

	WorkerParallelism int `yaml:"worker_parallelism"`
	BatchSize         int `yaml:"batch_size"`

	ClaimTimeout     time.Duration `yaml:"claim_timeout"`
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
	HeartbeatPeriod  time.Duration `yaml:"heartbeat_period"`
	CleanupPeriod    time.Duration `yaml:"cleanup_period"`
	OutputPollPeriod time.Duration `yaml:"output_poll_period"`

	// ShutdownGracePeriod bounds how long a soft stop waits for
	// in-flight ranges to finish on their own before the daemon
	// escalates to a hard stop (spec.md §4.3).
	ShutdownGracePeriod time.Duration `yaml:"shutdown_grace_period"`

	ConverterTimeoutBase     time.Duration `yaml:"converter_timeout_base"`
	ConverterTimeoutPerFrame time.Duration `yaml:"converter_timeout_per_frame"`

	APIAddr   string `yaml:"api_addr"`   // TCP address, empty disables TCP
	APISocket string `yaml:"api_socket"` // unix socket path, empty disables

	LogLevel string `yaml:"log_level"`
}

// Load reads path, applying DefaultConfig for any field the file
// doesn't set, then validates the result. A missing file is not an
// error: it yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, validate(cfg)
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, validate(cfg)
}
