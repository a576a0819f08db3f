package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/renderfarm/framefarm/internal/farm"
)

// writeError maps the farm error taxonomy (spec.md §7) onto HTTP
// status codes and writes a JSON error body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, farm.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, farm.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, farm.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, farm.ErrContention):
		status = http.StatusServiceUnavailable
	case errors.Is(err, farm.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
