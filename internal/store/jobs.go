package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/renderfarm/framefarm/internal/farm"
)

func eyesToString(eyes []farm.Eye) string {
	ss := make([]string, len(eyes))
	for i, e := range eyes {
		ss[i] = string(e)
	}
	return strings.Join(ss, ",")
}

func eyesFromString(s string) []farm.Eye {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	eyes := make([]farm.Eye, len(parts))
	for i, p := range parts {
		eyes[i] = farm.Eye(p)
	}
	return eyes
}

// SubmitJob inserts the job row and every derived pending frame row in
// one atomic unit (spec.md §4.1). Fails with farm.ErrConflict on a
// duplicate job id, farm.ErrInvalidArgument if the job spec is
// malformed (e.g. start_frame > end_frame).
func (s *Store) SubmitJob(j *farm.Job) error {
	if err := farm.ValidateJobSpec(j); err != nil {
		return err
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	if j.Status == "" {
		j.Status = farm.JobPending
	}

	return s.withTx(func(conn *sql.DB) error {
		_, err := conn.Exec(`
			INSERT INTO jobs (
				id, pool_id, clip_path, output_dir, start_frame, end_frame, eyes,
				format, separate_folders, use_aces, color_input_space, color_output_space,
				use_stmap, stmap_path, status, priority, created_at, submitted_by
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, j.ID, j.PoolID, j.ClipPath, j.OutputDir, j.StartFrame, j.EndFrame, eyesToString(j.Eyes),
			string(j.Format), j.SeparateFolders, j.UseACES, j.ColorInputSpace, j.ColorOutputSpace,
			j.UseSTMap, j.STMapPath, string(j.Status), j.Priority, j.CreatedAt, j.SubmittedBy)
		if err != nil {
			return classifyErr(err)
		}

		stmt, err := conn.Prepare(`
			INSERT INTO frames (job_id, frame_index, eye, status)
			VALUES (?, ?, ?, 'pending')
		`)
		if err != nil {
			return classifyErr(err)
		}
		defer stmt.Close()

		for _, eye := range j.Eyes {
			for idx := j.StartFrame; idx <= j.EndFrame; idx++ {
				if _, err := stmt.Exec(j.ID, idx, string(eye)); err != nil {
					return classifyErr(err)
				}
			}
		}
		return nil
	})
}

func scanJob(row interface {
	Scan(dest ...any) error
}) (*farm.Job, error) {
	j := &farm.Job{}
	var eyes, format, status string
	err := row.Scan(
		&j.ID, &j.PoolID, &j.ClipPath, &j.OutputDir, &j.StartFrame, &j.EndFrame, &eyes,
		&format, &j.SeparateFolders, &j.UseACES, &j.ColorInputSpace, &j.ColorOutputSpace,
		&j.UseSTMap, &j.STMapPath, &status, &j.Priority, &j.CreatedAt, &j.SubmittedBy,
	)
	if err != nil {
		return nil, err
	}
	j.Eyes = eyesFromString(eyes)
	j.Format = farm.Format(format)
	j.Status = farm.JobStatus(status)
	return j, nil
}

const jobColumns = `id, pool_id, clip_path, output_dir, start_frame, end_frame, eyes,
	format, separate_folders, use_aces, color_input_space, color_output_space,
	use_stmap, stmap_path, status, priority, created_at, submitted_by`

// GetJob returns one job by id, or farm.ErrNotFound.
func (s *Store) GetJob(id string) (*farm.Job, error) {
	row := s.conn.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: job %q", farm.ErrNotFound, id)
	}
	if err != nil {
		return nil, classifyErr(err)
	}
	return j, nil
}

// ListJobsOptions filters ListJobs.
type ListJobsOptions struct {
	PoolID          string // empty = all pools
	IncludeExcluded bool   // include excluded/paused jobs
}

// ListJobs returns jobs matching the given filters, highest priority
// first and oldest first within equal priority.
func (s *Store) ListJobs(opts ListJobsOptions) ([]*farm.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	var args []any
	if opts.PoolID != "" {
		query += ` AND pool_id = ?`
		args = append(args, opts.PoolID)
	}
	if !opts.IncludeExcluded {
		query += ` AND status NOT IN ('excluded', 'paused')`
	}
	query += ` ORDER BY priority DESC, created_at ASC`

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()

	var jobs []*farm.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *Store) setJobStatusRaw(id string, status farm.JobStatus) error {
	res, err := s.conn.Exec(`UPDATE jobs SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return classifyErr(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: job %q", farm.ErrNotFound, id)
	}
	return nil
}

// SetJobStatus sets a job's stored status directly. Used by operator
// actions (exclude/activate/pause) per spec.md §3 transitions.
func (s *Store) SetJobStatus(id string, status farm.JobStatus) error {
	return s.setJobStatusRaw(id, status)
}

// SetJobPriority updates a job's priority, validated to [0,100].
func (s *Store) SetJobPriority(id string, priority int) error {
	if err := farm.ValidatePriority(priority); err != nil {
		return err
	}
	res, err := s.conn.Exec(`UPDATE jobs SET priority = ? WHERE id = ?`, priority, id)
	if err != nil {
		return classifyErr(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: job %q", farm.ErrNotFound, id)
	}
	return nil
}

// MoveJobToPool reassigns a job to a different pool.
func (s *Store) MoveJobToPool(id, poolID string) error {
	res, err := s.conn.Exec(`UPDATE jobs SET pool_id = ? WHERE id = ?`, poolID, id)
	if err != nil {
		return classifyErr(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: job %q", farm.ErrNotFound, id)
	}
	return nil
}

// ResetJob returns every frame to pending (clearing assignment, claim
// timestamp, completion timestamp, and retry count) and the job itself
// to pending, atomically. It is the only operation that resets retry
// counts. Never touches output files on disk (spec.md §3).
func (s *Store) ResetJob(id string) error {
	return s.withTx(func(conn *sql.DB) error {
		res, err := conn.Exec(`
			UPDATE frames SET status = 'pending', worker_id = NULL,
				claimed_at = NULL, completed_at = NULL, retry_count = 0
			WHERE job_id = ?
		`, id)
		if err != nil {
			return classifyErr(err)
		}
		if _, err := res.RowsAffected(); err != nil {
			return classifyErr(err)
		}
		jres, err := conn.Exec(`UPDATE jobs SET status = 'pending' WHERE id = ?`, id)
		if err != nil {
			return classifyErr(err)
		}
		n, _ := jres.RowsAffected()
		if n == 0 {
			return fmt.Errorf("%w: job %q", farm.ErrNotFound, id)
		}
		return nil
	})
}

// DeleteJob removes a job and all of its frame rows atomically (spec.md
// §3 invariant: deleting a job deletes all its frames).
func (s *Store) DeleteJob(id string) error {
	return s.withTx(func(conn *sql.DB) error {
		if _, err := conn.Exec(`DELETE FROM frames WHERE job_id = ?`, id); err != nil {
			return classifyErr(err)
		}
		res, err := conn.Exec(`DELETE FROM jobs WHERE id = ?`, id)
		if err != nil {
			return classifyErr(err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return fmt.Errorf("%w: job %q", farm.ErrNotFound, id)
		}
		return nil
	})
}

// GetJobProgress aggregates frame counts per status for a job.
func (s *Store) GetJobProgress(id string) (farm.JobProgress, error) {
	rows, err := s.conn.Query(`SELECT status, COUNT(*) FROM frames WHERE job_id = ? GROUP BY status`, id)
	if err != nil {
		return farm.JobProgress{}, classifyErr(err)
	}
	defer rows.Close()

	var p farm.JobProgress
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return farm.JobProgress{}, fmt.Errorf("scan progress: %w", err)
		}
		switch farm.FrameStatus(status) {
		case farm.FramePending:
			p.Pending = n
		case farm.FrameClaimed:
			p.Claimed = n
		case farm.FrameCompleted:
			p.Completed = n
		case farm.FrameFailed:
			p.Failed = n
		}
		p.Total += n
	}
	return p, rows.Err()
}

// GetJobEyeProgress aggregates frame counts per status, partitioned by eye.
func (s *Store) GetJobEyeProgress(id string) (farm.EyeProgress, error) {
	rows, err := s.conn.Query(`SELECT eye, status, COUNT(*) FROM frames WHERE job_id = ? GROUP BY eye, status`, id)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()

	result := make(farm.EyeProgress)
	for rows.Next() {
		var eye, status string
		var n int
		if err := rows.Scan(&eye, &status, &n); err != nil {
			return nil, fmt.Errorf("scan eye progress: %w", err)
		}
		p := result[farm.Eye(eye)]
		switch farm.FrameStatus(status) {
		case farm.FramePending:
			p.Pending = n
		case farm.FrameClaimed:
			p.Claimed = n
		case farm.FrameCompleted:
			p.Completed = n
		case farm.FrameFailed:
			p.Failed = n
		}
		p.Total += n
		result[farm.Eye(eye)] = p
	}
	return result, rows.Err()
}

// ComputedStatusFor resolves a job's computed status per spec.md §4.4.
func (s *Store) ComputedStatusFor(j *farm.Job) (farm.JobStatus, error) {
	progress, err := s.GetJobProgress(j.ID)
	if err != nil {
		return "", err
	}
	return farm.ComputedStatus(j.Status, progress), nil
}
