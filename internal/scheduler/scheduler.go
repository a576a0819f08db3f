// Package scheduler computes a worker's dynamic claim parallelism and
// wraps the store's claim_frames call with the retry/back-off policy
// spec.md §7 requires for transient store contention.
package scheduler

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/renderfarm/framefarm/internal/farm"
)

// EffectiveParallelism computes how many concurrent range tasks a
// worker should keep in flight given the pool's current pending-frame
// count, per spec.md §4.2: min(worker_parallelism, ceil(pending/batch_size)).
// This keeps the last few frames of a job from being spread thin across
// more workers than there is work to fill.
func EffectiveParallelism(workerParallelism, pending, batchSize int) int {
	if workerParallelism < 1 {
		workerParallelism = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}
	if pending <= 0 {
		return 0
	}
	need := int(math.Ceil(float64(pending) / float64(batchSize)))
	if need < workerParallelism {
		return need
	}
	return workerParallelism
}

// Store is the subset of *store.Store the scheduler needs. Declared
// here so the scheduler package doesn't import the store package
// directly, matching the teacher's scheduler/events split.
type Store interface {
	ClaimFrames(poolID, workerID string, batchSize int) (*farm.ClaimedRange, error)
	PendingFrameCount(poolID string) (int, error)
}

// Claimer wraps a Store's claim_frames with the back-off policy for
// Contention (store lock held beyond busy timeout) spec.md §7 assigns
// to callers: retry with exponential back-off (the wait doubles up to
// backoffMax, without jitter), never propagate it as a fatal error.
type Claimer struct {
	store        Store
	backoffBase  time.Duration
	backoffMax   time.Duration
	maxAttempts  int
}

// NewClaimer builds a Claimer with sensible defaults for the backoff
// envelope around repeated SQLITE_BUSY-class contention.
func NewClaimer(s Store) *Claimer {
	return &Claimer{
		store:       s,
		backoffBase: 20 * time.Millisecond,
		backoffMax:  2 * time.Second,
		maxAttempts: 8,
	}
}

// Claim attempts claim_frames, retrying on farm.ErrContention with
// exponential back-off up to maxAttempts. Any other error (including
// ErrStoreUnavailable) is returned immediately — callers apply their
// own retry policy for that case per spec.md §7.
func (c *Claimer) Claim(ctx context.Context, poolID, workerID string, batchSize int) (*farm.ClaimedRange, error) {
	wait := c.backoffBase
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		r, err := c.store.ClaimFrames(poolID, workerID, batchSize)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, farm.ErrContention) {
			return nil, err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
		if wait > c.backoffMax {
			wait = c.backoffMax
		}
	}
	return nil, lastErr
}

// PendingFrameCount delegates to the underlying store.
func (c *Claimer) PendingFrameCount(poolID string) (int, error) {
	return c.store.PendingFrameCount(poolID)
}
