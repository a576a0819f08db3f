package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/renderfarm/framefarm/internal/events"
	"github.com/renderfarm/framefarm/internal/farm"
)

// jobView is the wire representation list_jobs_with_status returns:
// the job plus its computed status and frame counts (spec.md §4.4).
type jobView struct {
	*farm.Job
	ComputedStatus farm.JobStatus `json:"computed_status"`
	Completed      int            `json:"completed_count"`
	Total          int            `json:"total_count"`
}

func newMux(s Store, bus *events.Bus, h *hub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/pools", createPoolHandler(s, bus))
	mux.HandleFunc("GET /api/pools", listPoolsHandler(s))
	mux.HandleFunc("DELETE /api/pools/{id}", deletePoolHandler(s, bus))

	mux.HandleFunc("POST /api/jobs", submitJobHandler(s, bus))
	mux.HandleFunc("GET /api/jobs", listJobsHandler(s))
	mux.HandleFunc("GET /api/jobs/{id}", getJobHandler(s))
	mux.HandleFunc("DELETE /api/jobs/{id}", deleteJobHandler(s, bus))
	mux.HandleFunc("POST /api/jobs/{id}/exclude", setStatusHandler(s, bus, farm.JobExcluded))
	mux.HandleFunc("POST /api/jobs/{id}/activate", activateJobHandler(s, bus))
	mux.HandleFunc("POST /api/jobs/{id}/pause", setStatusHandler(s, bus, farm.JobPaused))
	mux.HandleFunc("POST /api/jobs/{id}/priority", setPriorityHandler(s, bus))
	mux.HandleFunc("POST /api/jobs/{id}/move", moveJobHandler(s, bus))
	mux.HandleFunc("POST /api/jobs/{id}/reset", resetJobHandler(s, bus))
	mux.HandleFunc("GET /api/jobs/{id}/progress", jobProgressHandler(s))
	mux.HandleFunc("GET /api/jobs/{id}/eye-progress", jobEyeProgressHandler(s))

	mux.HandleFunc("GET /api/workers", listWorkersHandler(s))

	mux.HandleFunc("GET /api/events", eventsHandler(h))

	return mux
}

func createPoolHandler(s Store, bus *events.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p farm.Pool
		if err := decodeJSON(r, &p); err != nil {
			writeError(w, fmt.Errorf("%w: %v", farm.ErrInvalidArgument, err))
			return
		}
		if err := s.CreatePool(&p); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, &p)
	}
}

func listPoolsHandler(s Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pools, err := s.ListPools()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, pools)
	}
}

func deletePoolHandler(s Store, bus *events.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.DeletePool(id); err != nil {
			writeError(w, err)
			return
		}
		bus.Publish(events.New(events.PoolDeleted).WithJob(id, ""))
		w.WriteHeader(http.StatusNoContent)
	}
}

func submitJobHandler(s Store, bus *events.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var j farm.Job
		if err := decodeJSON(r, &j); err != nil {
			writeError(w, fmt.Errorf("%w: %v", farm.ErrInvalidArgument, err))
			return
		}
		if err := s.SubmitJob(&j); err != nil {
			writeError(w, err)
			return
		}
		bus.Publish(events.New(events.JobSubmitted).WithJob(j.PoolID, j.ID))
		writeJSON(w, http.StatusCreated, map[string]string{"job_id": j.ID})
	}
}

func listJobsHandler(s Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := ListJobsOptions{
			PoolID:          r.URL.Query().Get("pool"),
			IncludeExcluded: r.URL.Query().Get("include_excluded") == "true",
		}
		jobs, err := s.ListJobs(opts)
		if err != nil {
			writeError(w, err)
			return
		}
		views := make([]jobView, 0, len(jobs))
		for _, j := range jobs {
			progress, err := s.GetJobProgress(j.ID)
			if err != nil {
				writeError(w, err)
				return
			}
			views = append(views, jobView{
				Job:            j,
				ComputedStatus: farm.ComputedStatus(j.Status, progress),
				Completed:      progress.Completed,
				Total:          progress.Total,
			})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func getJobHandler(s Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		j, err := s.GetJob(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, j)
	}
}

func deleteJobHandler(s Store, bus *events.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.DeleteJob(id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func setStatusHandler(s Store, bus *events.Bus, status farm.JobStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.SetJobStatus(id, status); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// activateJobHandler moves a job from excluded/paused back to
// pending — "activate" has no single target status since a job could
// already have partial progress; reuse the computed-status rule by
// setting the stored status to pending and letting progress speak for
// itself (spec.md §4.4 computed_status rule).
func activateJobHandler(s Store, bus *events.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.SetJobStatus(id, farm.JobPending); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func setPriorityHandler(s Store, bus *events.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var body struct {
			Priority int `json:"priority"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, fmt.Errorf("%w: %v", farm.ErrInvalidArgument, err))
			return
		}
		if err := s.SetJobPriority(id, body.Priority); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func moveJobHandler(s Store, bus *events.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var body struct {
			PoolID string `json:"pool_id"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, fmt.Errorf("%w: %v", farm.ErrInvalidArgument, err))
			return
		}
		if err := s.MoveJobToPool(id, body.PoolID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func resetJobHandler(s Store, bus *events.Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := s.ResetJob(id); err != nil {
			writeError(w, err)
			return
		}
		bus.Publish(events.New(events.JobReset).WithJob("", id))
		w.WriteHeader(http.StatusNoContent)
	}
}

func jobProgressHandler(s Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		progress, err := s.GetJobProgress(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, progress)
	}
}

func jobEyeProgressHandler(s Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		progress, err := s.GetJobEyeProgress(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, progress)
	}
}

func listWorkersHandler(s Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workers, err := s.ListWorkers(r.URL.Query().Get("pool"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, workers)
	}
}

// eventsHandler streams bus events to the operator UI / re-render
// hook as Server-Sent Events (grounded on the teacher's web.Hub/SSE
// pattern).
func eventsHandler(h *hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		c := &client{id: strconv.FormatInt(time.Now().UnixNano(), 36), events: make(chan events.Event, 64)}
		h.register <- c
		defer func() { h.unregister <- c }()

		fmt.Fprintf(w, ": connected\n\n")
		flusher.Flush()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-c.events:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, e.String())
				flusher.Flush()
			}
		}
	}
}
