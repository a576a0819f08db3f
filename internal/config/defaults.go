package config

import "time"

const (
	DefaultStorePath     = "/var/lib/framefarm/farm.db"
	DefaultConverterPath = "frameconv"
	DefaultCheckerPath   = "seqcheck"
	DefaultPoolID        = "default"

	DefaultWorkerParallelism = 16
	DefaultBatchSize         = 10

	DefaultClaimTimeout        = 3 * time.Minute
	DefaultHeartbeatTimeout    = 5 * time.Minute
	DefaultHeartbeatPeriod     = 30 * time.Second
	DefaultCleanupPeriod       = 30 * time.Second
	DefaultOutputPollPeriod    = 2 * time.Second
	DefaultShutdownGracePeriod = 30 * time.Second

	DefaultConverterTimeoutBase     = 30 * time.Second
	DefaultConverterTimeoutPerFrame = 5 * time.Second

	DefaultAPIAddr   = ""
	DefaultAPISocket = "/var/run/framefarm/farmd.sock"

	DefaultLogLevel = "info"
)

// DefaultConfig returns a Config with every field set to its default
// value; Load unmarshals the YAML file on top of this.
func DefaultConfig() *Config {
	return &Config{
		StorePath:                DefaultStorePath,
		ConverterPath:            DefaultConverterPath,
		CheckerPath:              DefaultCheckerPath,
		PoolID:                   DefaultPoolID,
		WorkerParallelism:        DefaultWorkerParallelism,
		BatchSize:                DefaultBatchSize,
		ClaimTimeout:             DefaultClaimTimeout,
		HeartbeatTimeout:         DefaultHeartbeatTimeout,
		HeartbeatPeriod:          DefaultHeartbeatPeriod,
		CleanupPeriod:            DefaultCleanupPeriod,
		OutputPollPeriod:         DefaultOutputPollPeriod,
		ShutdownGracePeriod:      DefaultShutdownGracePeriod,
		ConverterTimeoutBase:     DefaultConverterTimeoutBase,
		ConverterTimeoutPerFrame: DefaultConverterTimeoutPerFrame,
		APIAddr:                  DefaultAPIAddr,
		APISocket:                DefaultAPISocket,
		LogLevel:                 DefaultLogLevel,
	}
}
