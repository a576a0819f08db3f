package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/renderfarm/framefarm/internal/farm"
)

// PendingFrameCount returns the number of still-pending frames across
// every non-terminal, non-excluded, non-paused job in pool. Used by
// workers to size their effective parallelism before claiming
// (spec.md §4.2).
func (s *Store) PendingFrameCount(poolID string) (int, error) {
	var n int
	err := s.conn.QueryRow(`
		SELECT COUNT(*)
		FROM frames f
		JOIN jobs j ON f.job_id = j.id
		WHERE j.pool_id = ? AND j.status NOT IN ('excluded', 'paused', 'completed')
		  AND f.status = 'pending'
	`, poolID).Scan(&n)
	if err != nil {
		return 0, classifyErr(err)
	}
	return n, nil
}

// ClaimFrames is the critical operation of the claim scheduler
// (spec.md §4.2). Within a single immediate-exclusive transaction it:
//
//  1. reclaims frames whose claim has exceeded the claim-timeout
//     (dead-worker progress guarantee);
//  2. selects the highest-priority, oldest, lowest-index pending frame
//     in pool among non-terminal/non-excluded/non-paused jobs;
//  3. extends that selection forward into the longest same-job,
//     same-eye run of pending frames, capped at batchSize;
//  4. marks the selected rows claimed by workerID and, if the owning
//     job was pending, bumps it to in_progress.
//
// Returns (nil, nil) when there is nothing to do — "nothing to claim"
// is a distinguished empty result, not an error (spec.md §7).
func (s *Store) ClaimFrames(poolID, workerID string, batchSize int) (*farm.ClaimedRange, error) {
	if batchSize < 1 {
		batchSize = 1
	}

	var result *farm.ClaimedRange
	err := s.withTx(func(conn *sql.DB) error {
		now := time.Now().UTC()
		claimDeadline := now.Add(-s.ClaimTimeout)

		if _, err := conn.Exec(`
			UPDATE frames SET status = 'pending', worker_id = NULL, claimed_at = NULL
			WHERE status = 'claimed' AND claimed_at < ?
		`, claimDeadline); err != nil {
			return classifyErr(err)
		}

		var jobID string
		var startFrame int
		var eye string
		row := conn.QueryRow(`
			SELECT f.job_id, f.frame_index, f.eye
			FROM frames f
			JOIN jobs j ON f.job_id = j.id
			WHERE j.pool_id = ? AND j.status NOT IN ('excluded', 'paused', 'completed')
			  AND f.status = 'pending'
			ORDER BY j.priority DESC, j.created_at ASC, f.frame_index ASC, f.eye ASC
			LIMIT 1
		`, poolID)
		if err := row.Scan(&jobID, &startFrame, &eye); err == sql.ErrNoRows {
			return nil
		} else if err != nil {
			return classifyErr(err)
		}

		rows, err := conn.Query(`
			SELECT frame_index FROM frames
			WHERE job_id = ? AND eye = ? AND status = 'pending' AND frame_index >= ?
			ORDER BY frame_index ASC
			LIMIT ?
		`, jobID, eye, startFrame, batchSize)
		if err != nil {
			return classifyErr(err)
		}
		var indices []int
		for rows.Next() {
			var idx int
			if err := rows.Scan(&idx); err != nil {
				rows.Close()
				return fmt.Errorf("scan candidate frame: %w", err)
			}
			// Range extension requires a contiguous run; stop at the
			// first gap rather than skipping ahead to later pending
			// frames of the same eye.
			if len(indices) > 0 && idx != indices[len(indices)-1]+1 {
				break
			}
			indices = append(indices, idx)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate candidate frames: %w", err)
		}
		if len(indices) == 0 {
			return nil
		}
		endFrame := indices[len(indices)-1]

		if _, err := conn.Exec(`
			UPDATE frames SET status = 'claimed', worker_id = ?, claimed_at = ?
			WHERE job_id = ? AND eye = ? AND frame_index BETWEEN ? AND ?
		`, workerID, now, jobID, eye, startFrame, endFrame); err != nil {
			return classifyErr(err)
		}

		if _, err := conn.Exec(`
			UPDATE jobs SET status = 'in_progress' WHERE id = ? AND status = 'pending'
		`, jobID); err != nil {
			return classifyErr(err)
		}

		result = &farm.ClaimedRange{JobID: jobID, StartFrame: startFrame, EndFrame: endFrame, Eye: farm.Eye(eye)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompleteFrames marks a contiguous range completed regardless of
// which worker currently holds the claim — the reclaim race described
// in spec.md §9 means a late report from a worker whose claim already
// expired must still land, or the job orphans forever. If the job then
// has zero non-completed frames, its status flips to completed in the
// same transaction.
func (s *Store) CompleteFrames(jobID string, startFrame, endFrame int, eye farm.Eye, workerID string) error {
	return s.withTx(func(conn *sql.DB) error {
		now := time.Now().UTC()
		if _, err := conn.Exec(`
			UPDATE frames SET status = 'completed', completed_at = ?
			WHERE job_id = ? AND eye = ? AND frame_index BETWEEN ? AND ?
			  AND status IN ('claimed', 'pending')
		`, now, jobID, string(eye), startFrame, endFrame); err != nil {
			return classifyErr(err)
		}

		var remaining int
		if err := conn.QueryRow(`
			SELECT COUNT(*) FROM frames WHERE job_id = ? AND status != 'completed'
		`, jobID).Scan(&remaining); err != nil {
			return classifyErr(err)
		}
		if remaining == 0 {
			if _, err := conn.Exec(`UPDATE jobs SET status = 'completed' WHERE id = ?`, jobID); err != nil {
				return classifyErr(err)
			}
		}
		return nil
	})
}

// ReleaseFrames reverts workerID's rows in range back to pending and
// increments each row's retry count (worker-reported failure).
func (s *Store) ReleaseFrames(jobID string, startFrame, endFrame int, eye farm.Eye, workerID string) error {
	_, err := s.conn.Exec(`
		UPDATE frames SET status = 'pending', worker_id = NULL, claimed_at = NULL,
			retry_count = retry_count + 1
		WHERE job_id = ? AND eye = ? AND frame_index BETWEEN ? AND ? AND worker_id = ?
	`, jobID, string(eye), startFrame, endFrame, workerID)
	if err != nil {
		return classifyErr(err)
	}
	return nil
}
