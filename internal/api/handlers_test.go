package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/renderfarm/framefarm/internal/events"
	"github.com/renderfarm/framefarm/internal/farm"
)

// fakeStore is a minimal in-memory Store good enough to drive the
// handlers without a real sqlite-backed store.
type fakeStore struct {
	pools    map[string]*farm.Pool
	jobs     map[string]*farm.Job
	progress map[string]farm.JobProgress
	workers  []*farm.Worker
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pools:    make(map[string]*farm.Pool),
		jobs:     make(map[string]*farm.Job),
		progress: make(map[string]farm.JobProgress),
	}
}

func (f *fakeStore) CreatePool(p *farm.Pool) error {
	if _, ok := f.pools[p.ID]; ok {
		return farm.ErrConflict
	}
	f.pools[p.ID] = p
	return nil
}

func (f *fakeStore) ListPools() ([]*farm.Pool, error) {
	var out []*farm.Pool
	for _, p := range f.pools {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) GetPool(id string) (*farm.Pool, error) {
	p, ok := f.pools[id]
	if !ok {
		return nil, farm.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) DeletePool(id string) error {
	if id == farm.DefaultPoolID {
		return farm.ErrInvalidArgument
	}
	if _, ok := f.pools[id]; !ok {
		return farm.ErrNotFound
	}
	delete(f.pools, id)
	return nil
}

func (f *fakeStore) SubmitJob(j *farm.Job) error {
	if _, ok := f.jobs[j.ID]; ok {
		return farm.ErrConflict
	}
	f.jobs[j.ID] = j
	f.progress[j.ID] = farm.JobProgress{Pending: j.TotalFrames(), Total: j.TotalFrames()}
	return nil
}

func (f *fakeStore) GetJob(id string) (*farm.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return nil, farm.ErrNotFound
	}
	return j, nil
}

func (f *fakeStore) ListJobs(opts ListJobsOptions) ([]*farm.Job, error) {
	var out []*farm.Job
	for _, j := range f.jobs {
		if opts.PoolID != "" && j.PoolID != opts.PoolID {
			continue
		}
		if !opts.IncludeExcluded && (j.Status == farm.JobExcluded || j.Status == farm.JobPaused) {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func (f *fakeStore) SetJobPriority(id string, priority int) error {
	j, ok := f.jobs[id]
	if !ok {
		return farm.ErrNotFound
	}
	if priority < 0 || priority > 100 {
		return farm.ErrInvalidArgument
	}
	j.Priority = priority
	return nil
}

func (f *fakeStore) SetJobStatus(id string, status farm.JobStatus) error {
	j, ok := f.jobs[id]
	if !ok {
		return farm.ErrNotFound
	}
	j.Status = status
	return nil
}

func (f *fakeStore) MoveJobToPool(id, poolID string) error {
	j, ok := f.jobs[id]
	if !ok {
		return farm.ErrNotFound
	}
	j.PoolID = poolID
	return nil
}

func (f *fakeStore) ResetJob(id string) error {
	j, ok := f.jobs[id]
	if !ok {
		return farm.ErrNotFound
	}
	j.Status = farm.JobPending
	f.progress[id] = farm.JobProgress{Pending: j.TotalFrames(), Total: j.TotalFrames()}
	return nil
}

func (f *fakeStore) DeleteJob(id string) error {
	if _, ok := f.jobs[id]; !ok {
		return farm.ErrNotFound
	}
	delete(f.jobs, id)
	delete(f.progress, id)
	return nil
}

func (f *fakeStore) GetJobProgress(id string) (farm.JobProgress, error) {
	p, ok := f.progress[id]
	if !ok {
		return farm.JobProgress{}, farm.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) GetJobEyeProgress(id string) (farm.EyeProgress, error) {
	if _, ok := f.jobs[id]; !ok {
		return nil, farm.ErrNotFound
	}
	return farm.EyeProgress{}, nil
}

func (f *fakeStore) ComputedStatusFor(j *farm.Job) (farm.JobStatus, error) {
	p := f.progress[j.ID]
	return farm.ComputedStatus(j.Status, p), nil
}

func (f *fakeStore) ListWorkers(poolID string) ([]*farm.Worker, error) {
	return f.workers, nil
}

func (f *fakeStore) PendingFrameCount(poolID string) (int, error) {
	return 0, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeStore, *events.Bus) {
	t.Helper()
	fs := newFakeStore()
	fs.pools[farm.DefaultPoolID] = &farm.Pool{ID: farm.DefaultPoolID, Name: "default"}
	bus := events.NewBus(16)
	h := newHub()
	bus.Subscribe(h.onEvent)
	go h.run()
	t.Cleanup(h.stop)
	mux := newMux(fs, bus, h)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, fs, bus
}

func TestSubmitJobThenListIncludesComputedStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)

	job := farm.Job{
		ID: "j1", PoolID: farm.DefaultPoolID, ClipPath: "/c", OutputDir: "/o",
		StartFrame: 0, EndFrame: 9, Eyes: []farm.Eye{farm.EyeLeft}, Format: farm.FormatEXR,
		Priority: 50, Status: farm.JobPending,
	}
	body, _ := json.Marshal(job)
	resp, err := http.Post(srv.URL+"/api/jobs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/jobs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var views []jobView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&views))
	require.Len(t, views, 1)
	require.Equal(t, farm.JobPending, views[0].ComputedStatus)
	require.Equal(t, 10, views[0].Total)
}

func TestSubmitJobDuplicateIDReturnsConflict(t *testing.T) {
	srv, fs, _ := newTestServer(t)
	fs.jobs["dup"] = &farm.Job{ID: "dup"}

	body, _ := json.Marshal(farm.Job{ID: "dup"})
	resp, err := http.Post(srv.URL+"/api/jobs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestExcludeThenActivateJob(t *testing.T) {
	srv, fs, _ := newTestServer(t)
	fs.jobs["j1"] = &farm.Job{ID: "j1", PoolID: farm.DefaultPoolID, Status: farm.JobPending}

	resp, err := http.Post(srv.URL+"/api/jobs/j1/exclude", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, farm.JobExcluded, fs.jobs["j1"].Status)

	resp, err = http.Post(srv.URL+"/api/jobs/j1/activate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, farm.JobPending, fs.jobs["j1"].Status)
}

func TestSetPriorityRejectsOutOfRange(t *testing.T) {
	srv, fs, _ := newTestServer(t)
	fs.jobs["j1"] = &farm.Job{ID: "j1", Priority: 10}

	body, _ := json.Marshal(map[string]int{"priority": 999})
	resp, err := http.Post(srv.URL+"/api/jobs/j1/priority", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteDefaultPoolRejected(t *testing.T) {
	srv, _, _ := newTestServer(t)
	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/pools/"+farm.DefaultPoolID, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUnknownJobReturnsNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/jobs/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEventsStreamDeliversPublishedEvent(t *testing.T) {
	srv, _, bus := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Give the handler a moment to register with the hub before publishing.
	time.Sleep(20 * time.Millisecond)
	bus.Publish(events.New(events.JobSubmitted).WithJob(farm.DefaultPoolID, "j1"))

	buf := make([]byte, 4096)
	resp.Body.Read(buf) // ": connected" comment
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "job.submitted")
}
