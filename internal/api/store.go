// Package api implements the Control API (spec.md §4.4): JSON-over-HTTP
// handlers for job/pool administration and progress inspection, served
// over both a TCP listener and a Unix domain socket so the operator UI
// and the re-render hook can reach the daemon however it's deployed.
package api

import (
	"github.com/renderfarm/framefarm/internal/farm"
	"github.com/renderfarm/framefarm/internal/store"
)

// Store is the subset of internal/store.Store the Control API drives.
// Kept as an interface so handlers can be tested against a fake.
type Store interface {
	CreatePool(p *farm.Pool) error
	ListPools() ([]*farm.Pool, error)
	GetPool(id string) (*farm.Pool, error)
	DeletePool(id string) error

	SubmitJob(j *farm.Job) error
	GetJob(id string) (*farm.Job, error)
	ListJobs(opts ListJobsOptions) ([]*farm.Job, error)
	SetJobPriority(id string, priority int) error
	SetJobStatus(id string, status farm.JobStatus) error
	MoveJobToPool(id, poolID string) error
	ResetJob(id string) error
	DeleteJob(id string) error
	GetJobProgress(id string) (farm.JobProgress, error)
	GetJobEyeProgress(id string) (farm.EyeProgress, error)
	ComputedStatusFor(j *farm.Job) (farm.JobStatus, error)

	ListWorkers(poolID string) ([]*farm.Worker, error)
	PendingFrameCount(poolID string) (int, error)
}

// ListJobsOptions is store.ListJobsOptions, aliased so handlers can
// name it without every caller importing internal/store directly.
type ListJobsOptions = store.ListJobsOptions
