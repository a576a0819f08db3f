package config

import (
	"errors"
	"fmt"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config.%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// validate checks cfg for internally-inconsistent or out-of-range
// values, joining every failure found rather than stopping at the
// first.
func validate(cfg *Config) error {
	var errs []error

	if cfg.StorePath == "" {
		errs = append(errs, &ValidationError{Field: "store_path", Value: cfg.StorePath, Message: "must not be empty"})
	}
	if cfg.ConverterPath == "" {
		errs = append(errs, &ValidationError{Field: "converter_path", Value: cfg.ConverterPath, Message: "must not be empty"})
	}
	if cfg.PoolID == "" {
		errs = append(errs, &ValidationError{Field: "pool_id", Value: cfg.PoolID, Message: "must not be empty"})
	}
	if cfg.WorkerParallelism < 1 {
		errs = append(errs, &ValidationError{Field: "worker_parallelism", Value: cfg.WorkerParallelism, Message: "must be at least 1"})
	}
	if cfg.BatchSize < 1 {
		errs = append(errs, &ValidationError{Field: "batch_size", Value: cfg.BatchSize, Message: "must be at least 1"})
	}
	if cfg.ClaimTimeout <= 0 {
		errs = append(errs, &ValidationError{Field: "claim_timeout", Value: cfg.ClaimTimeout, Message: "must be positive"})
	}
	if cfg.ShutdownGracePeriod <= 0 {
		errs = append(errs, &ValidationError{Field: "shutdown_grace_period", Value: cfg.ShutdownGracePeriod, Message: "must be positive"})
	}
	if cfg.HeartbeatTimeout <= cfg.HeartbeatPeriod {
		errs = append(errs, &ValidationError{Field: "heartbeat_timeout", Value: cfg.HeartbeatTimeout, Message: "must exceed heartbeat_period"})
	}
	if cfg.APIAddr == "" && cfg.APISocket == "" {
		errs = append(errs, &ValidationError{Field: "api_addr", Value: "", Message: "at least one of api_addr or api_socket must be set"})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.LogLevel] {
		errs = append(errs, &ValidationError{Field: "log_level", Value: cfg.LogLevel, Message: "must be one of: debug, info, warn, error"})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
