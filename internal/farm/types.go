// Package farm defines the core entities of the render farm coordinator:
// pools, jobs, frames, and workers, along with their state machines.
package farm

import "time"

// Eye identifies which stereo channel a frame belongs to.
type Eye string

const (
	EyeLeft  Eye = "left"
	EyeRight Eye = "right"
	EyeSBS   Eye = "sbs"
)

// Valid reports whether e is one of the recognized eye values.
func (e Eye) Valid() bool {
	switch e {
	case EyeLeft, EyeRight, EyeSBS:
		return true
	}
	return false
}

// Format is the output image format a job renders to.
type Format string

const (
	FormatEXR Format = "exr"
	FormatPPM Format = "ppm"
)

// Valid reports whether f is a recognized output format.
func (f Format) Valid() bool {
	return f == FormatEXR || f == FormatPPM
}

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobExcluded   JobStatus = "excluded"
	JobPaused     JobStatus = "paused"
	JobFailed     JobStatus = "failed"
)

// FrameStatus is the lifecycle state of a single Frame.
type FrameStatus string

const (
	FramePending   FrameStatus = "pending"
	FrameClaimed   FrameStatus = "claimed"
	FrameCompleted FrameStatus = "completed"
	FrameFailed    FrameStatus = "failed"
)

// WorkerStatus is the reported liveness state of a Worker.
type WorkerStatus string

const (
	WorkerIdle    WorkerStatus = "idle"
	WorkerActive  WorkerStatus = "active"
	WorkerOffline WorkerStatus = "offline"
)

// DefaultPoolID is the distinguished pool that always exists and can
// never be deleted. Deleting any other pool migrates its jobs and
// workers here.
const DefaultPoolID = "default"

// Pool groups workers and jobs under a shared priority.
type Pool struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Priority    int       `json:"priority"` // 0-100, higher orders first when multi-homed
	CreatedAt   time.Time `json:"created_at"`
}

// Job describes one clip conversion request.
type Job struct {
	ID               string    `json:"id"`
	PoolID           string    `json:"pool_id"`
	ClipPath         string    `json:"clip_path"`
	OutputDir        string    `json:"output_dir"`
	StartFrame       int       `json:"start_frame"`
	EndFrame         int       `json:"end_frame"`
	Eyes             []Eye     `json:"eyes"`
	Format           Format    `json:"format"`
	SeparateFolders  bool      `json:"separate_folders,omitempty"`
	UseACES          bool      `json:"use_aces,omitempty"`
	ColorInputSpace  string    `json:"color_input_space,omitempty"`
	ColorOutputSpace string    `json:"color_output_space,omitempty"`
	UseSTMap         bool      `json:"use_stmap,omitempty"`
	STMapPath        string    `json:"stmap_path,omitempty"`
	Priority         int       `json:"priority"`
	Status           JobStatus `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	SubmittedBy      string    `json:"submitted_by,omitempty"`
}

// TotalFrames returns the job's logical size: the inclusive frame
// count times the number of eyes requested.
func (j *Job) TotalFrames() int {
	if j.EndFrame < j.StartFrame {
		return 0
	}
	return (j.EndFrame - j.StartFrame + 1) * len(j.Eyes)
}

// Frame is exactly one row per (job, frame index, eye) triple.
type Frame struct {
	JobID        string
	Index        int
	Eye          Eye
	Status       FrameStatus
	WorkerID     string // empty when unassigned
	ClaimedAt    *time.Time
	CompletedAt  *time.Time
	RetryCount   int
}

// Worker is one render-host process that claims and processes ranges.
type Worker struct {
	ID              string       `json:"id"`
	PoolID          string       `json:"pool_id"`
	Hostname        string       `json:"hostname"`
	IP              string       `json:"ip"`
	Status          WorkerStatus `json:"status"`
	CurrentJobID    string       `json:"current_job_id,omitempty"`
	FramesCompleted int64        `json:"frames_completed"`
	LastHeartbeat   time.Time    `json:"last_heartbeat"`
}

// JobProgress is the per-status frame count breakdown for a job.
type JobProgress struct {
	Pending   int `json:"pending"`
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}

// EyeProgress maps an eye to its own JobProgress breakdown.
type EyeProgress map[Eye]JobProgress

// ClaimedRange is the result of a successful claim_frames call: a
// contiguous, eye-uniform range of frames reserved for one worker.
type ClaimedRange struct {
	JobID      string
	StartFrame int
	EndFrame   int
	Eye        Eye
}

// FrameCount returns the number of frames covered by the range.
func (c ClaimedRange) FrameCount() int {
	if c.EndFrame < c.StartFrame {
		return 0
	}
	return c.EndFrame - c.StartFrame + 1
}

// ComputedStatus mirrors a job's stored status unless frame rows show
// progress the stored status doesn't reflect (spec.md §4.4,
// list_jobs_with_status rule).
func ComputedStatus(stored JobStatus, progress JobProgress) JobStatus {
	switch stored {
	case JobExcluded, JobPaused:
		return stored
	}
	if progress.Total > 0 && progress.Completed == progress.Total {
		return JobCompleted
	}
	if progress.Completed > 0 || progress.Claimed > 0 {
		return JobInProgress
	}
	return JobPending
}
