package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/renderfarm/framefarm/internal/farm"
)

// RegisterWorker upserts a worker row: insert on first contact, or
// update pool/hostname/ip/status/heartbeat if the worker id already
// exists (a worker restarting with the same identity).
func (s *Store) RegisterWorker(w *farm.Worker) error {
	if w.LastHeartbeat.IsZero() {
		w.LastHeartbeat = time.Now().UTC()
	}
	_, err := s.conn.Exec(`
		INSERT INTO workers (id, pool_id, hostname, ip, status, current_job_id, frames_completed, last_heartbeat)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pool_id = excluded.pool_id,
			hostname = excluded.hostname,
			ip = excluded.ip,
			status = excluded.status,
			last_heartbeat = excluded.last_heartbeat
	`, w.ID, w.PoolID, w.Hostname, w.IP, string(w.Status), w.CurrentJobID, w.FramesCompleted, w.LastHeartbeat)
	if err != nil {
		return classifyErr(err)
	}
	return nil
}

// UpdateHeartbeat refreshes a worker's liveness row. currentJobID may
// be empty when the worker is idle.
func (s *Store) UpdateHeartbeat(workerID string, status farm.WorkerStatus, currentJobID string, completed int64) error {
	res, err := s.conn.Exec(`
		UPDATE workers SET last_heartbeat = ?, status = ?, current_job_id = ?, frames_completed = ?
		WHERE id = ?
	`, time.Now().UTC(), string(status), currentJobID, completed, workerID)
	if err != nil {
		return classifyErr(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: worker %q", farm.ErrNotFound, workerID)
	}
	return nil
}

func scanWorker(row interface {
	Scan(dest ...any) error
}, heartbeatDeadline time.Time) (*farm.Worker, error) {
	w := &farm.Worker{}
	var status string
	if err := row.Scan(&w.ID, &w.PoolID, &w.Hostname, &w.IP, &status, &w.CurrentJobID, &w.FramesCompleted, &w.LastHeartbeat); err != nil {
		return nil, err
	}
	w.Status = farm.WorkerStatus(status)
	if w.LastHeartbeat.Before(heartbeatDeadline) {
		w.Status = farm.WorkerOffline
	}
	return w, nil
}

const workerColumns = `id, pool_id, hostname, ip, status, current_job_id, frames_completed, last_heartbeat`

// ListWorkers returns workers (optionally filtered by pool), reporting
// any worker whose heartbeat is older than the heartbeat-timeout as
// offline regardless of its stored status (spec.md §3 invariant).
func (s *Store) ListWorkers(poolID string) ([]*farm.Worker, error) {
	deadline := time.Now().UTC().Add(-s.HeartbeatTimeout)
	query := `SELECT ` + workerColumns + ` FROM workers`
	var args []any
	if poolID != "" {
		query += ` WHERE pool_id = ?`
		args = append(args, poolID)
	}
	query += ` ORDER BY pool_id, hostname`

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()

	var workers []*farm.Worker
	for rows.Next() {
		w, err := scanWorker(rows, deadline)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// CleanupOfflineWorkers reassigns any frames held by workers whose
// last_heartbeat predates the heartbeat-timeout back to pending, then
// marks those workers offline — all atomically per worker (spec.md
// §4.1). Returns the number of workers transitioned.
func (s *Store) CleanupOfflineWorkers() (int, error) {
	deadline := time.Now().UTC().Add(-s.HeartbeatTimeout)

	rows, err := s.conn.Query(`
		SELECT id FROM workers WHERE last_heartbeat < ? AND status != 'offline'
	`, deadline)
	if err != nil {
		return 0, classifyErr(err)
	}
	var staleIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan stale worker: %w", err)
		}
		staleIDs = append(staleIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, id := range staleIDs {
		err := s.withTx(func(conn *sql.DB) error {
			if _, err := conn.Exec(`
				UPDATE frames SET status = 'pending', worker_id = NULL, claimed_at = NULL
				WHERE worker_id = ? AND status = 'claimed'
			`, id); err != nil {
				return classifyErr(err)
			}
			if _, err := conn.Exec(`UPDATE workers SET status = 'offline' WHERE id = ?`, id); err != nil {
				return classifyErr(err)
			}
			return nil
		})
		if err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
