package farm

import "fmt"

// ValidatePriority reports ErrInvalidArgument if p is outside [0,100].
func ValidatePriority(p int) error {
	if p < 0 || p > 100 {
		return fmt.Errorf("%w: priority %d out of range [0,100]", ErrInvalidArgument, p)
	}
	return nil
}

// ValidateJobSpec checks the invariants a submitted job must satisfy
// before any frame rows are materialized (spec.md §8 boundary
// behaviors: zero-frame jobs are rejected at submission).
func ValidateJobSpec(j *Job) error {
	if j.ID == "" {
		return fmt.Errorf("%w: job id is required", ErrInvalidArgument)
	}
	if j.PoolID == "" {
		return fmt.Errorf("%w: pool id is required", ErrInvalidArgument)
	}
	if j.ClipPath == "" {
		return fmt.Errorf("%w: clip path is required", ErrInvalidArgument)
	}
	if j.OutputDir == "" {
		return fmt.Errorf("%w: output dir is required", ErrInvalidArgument)
	}
	if j.StartFrame > j.EndFrame {
		return fmt.Errorf("%w: start_frame %d > end_frame %d", ErrInvalidArgument, j.StartFrame, j.EndFrame)
	}
	if len(j.Eyes) == 0 {
		return fmt.Errorf("%w: job must request at least one eye", ErrInvalidArgument)
	}
	seen := make(map[Eye]bool, len(j.Eyes))
	for _, e := range j.Eyes {
		if !e.Valid() {
			return fmt.Errorf("%w: unrecognized eye %q", ErrInvalidArgument, e)
		}
		if seen[e] {
			return fmt.Errorf("%w: duplicate eye %q", ErrInvalidArgument, e)
		}
		seen[e] = true
	}
	if !j.Format.Valid() {
		return fmt.Errorf("%w: unrecognized format %q", ErrInvalidArgument, j.Format)
	}
	if j.UseSTMap && j.STMapPath == "" {
		return fmt.Errorf("%w: use_stmap set without stmap_path", ErrInvalidArgument)
	}
	return ValidatePriority(j.Priority)
}
