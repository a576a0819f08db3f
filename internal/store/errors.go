package store

import (
	"fmt"
	"strings"

	"github.com/renderfarm/framefarm/internal/farm"
)

// classifyErr maps a raw driver error onto the farm error taxonomy
// (spec.md §7) so callers can use errors.Is against farm.Err*
// regardless of which SQLite driver produced the failure.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint") || strings.Contains(msg, "primary key"):
		return fmt.Errorf("%w: %v", farm.ErrConflict, err)
	case strings.Contains(msg, "busy") || strings.Contains(msg, "locked"):
		return fmt.Errorf("%w: %v", farm.ErrContention, err)
	case strings.Contains(msg, "no such file") || strings.Contains(msg, "disk i/o error") ||
		strings.Contains(msg, "unable to open database file"):
		return fmt.Errorf("%w: %v", farm.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", farm.ErrStoreUnavailable, err)
	}
}
