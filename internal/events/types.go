// Package events carries structured progress and lifecycle events from
// the worker runtime and control API to log sinks and the Control
// API's server-sent event stream.
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/renderfarm/framefarm/internal/farm"
)

// Type identifies what happened.
type Type string

const (
	ClaimAcquired    Type = "claim.acquired"
	ClaimNone        Type = "claim.none"
	RangeStarted     Type = "range.started"
	RangeProgress    Type = "range.progress"
	RangeCompleted   Type = "range.completed"
	RangeFailed      Type = "range.failed"
	RangeTimedOut    Type = "range.timed_out"
	WorkerRegistered Type = "worker.registered"
	WorkerHeartbeat  Type = "worker.heartbeat"
	WorkerOffline    Type = "worker.offline"
	JobSubmitted     Type = "job.submitted"
	JobCompleted     Type = "job.completed"
	JobReset         Type = "job.reset"
	PoolDeleted      Type = "pool.deleted"
)

// Event is a single occurrence in the render farm's lifecycle.
type Event struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Type      Type      `json:"type"`
	PoolID    string    `json:"pool_id,omitempty"`
	JobID     string    `json:"job_id,omitempty"`
	WorkerID  string    `json:"worker_id,omitempty"`
	Eye       farm.Eye  `json:"eye,omitempty"`
	Start     int       `json:"start,omitempty"`
	End       int       `json:"end,omitempty"`
	Completed int       `json:"completed,omitempty"`
	Total     int       `json:"total,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// New creates an event with a fresh ULID and the current time.
func New(t Type) Event {
	return Event{ID: ulid.Make().String(), Time: time.Now().UTC(), Type: t}
}

// WithJob returns a copy of e scoped to pool/job.
func (e Event) WithJob(poolID, jobID string) Event {
	e.PoolID = poolID
	e.JobID = jobID
	return e
}

// WithRange returns a copy of e describing a claimed/dispatched range.
func (e Event) WithRange(r farm.ClaimedRange, workerID string) Event {
	e.JobID = r.JobID
	e.Start = r.StartFrame
	e.End = r.EndFrame
	e.Eye = r.Eye
	e.WorkerID = workerID
	return e
}

// WithProgress returns a copy of e carrying a completed/total tally.
func (e Event) WithProgress(completed, total int) Event {
	e.Completed = completed
	e.Total = total
	return e
}

// WithError returns a copy of e with its error message set. A nil err
// leaves the event unchanged.
func (e Event) WithError(err error) Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// IsFailure reports whether e represents a failure outcome.
func (e Event) IsFailure() bool {
	return strings.HasSuffix(string(e.Type), "failed") || strings.HasSuffix(string(e.Type), "timed_out")
}

// String renders a human-readable one-line summary, the shape logged
// by the default handler and sent as the data line of the Control
// API's server-sent events.
func (e Event) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Type))
	if e.JobID != "" {
		parts = append(parts, e.JobID)
	}
	if e.WorkerID != "" {
		parts = append(parts, "worker="+e.WorkerID)
	}
	if e.Eye != "" {
		parts = append(parts, fmt.Sprintf("frames=%d-%d/%s", e.Start, e.End, e.Eye))
	}
	if e.Total > 0 {
		parts = append(parts, fmt.Sprintf("progress=%d/%d", e.Completed, e.Total))
	}
	if e.Error != "" {
		parts = append(parts, "error="+e.Error)
	}
	return strings.Join(parts, " ")
}
