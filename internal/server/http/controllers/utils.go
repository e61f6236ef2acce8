package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/rzbill/stateflo/internal/catalog"
	"github.com/rzbill/stateflo/internal/partition"
	"github.com/rzbill/stateflo/internal/state"
)

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps state and storage errors to HTTP status codes.
func statusFor(err error) int {
	var serr *state.SerializationError
	switch {
	case errors.As(err, &serr),
		errors.Is(err, partition.ErrInvalidColumnFamily),
		errors.Is(err, catalog.ErrBackendMismatch),
		errors.Is(err, catalog.ErrInvalidStoreName):
		return http.StatusBadRequest
	case errors.Is(err, state.ErrInvalidChangelogOffset):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// parseLimit parses a positive limit, returning def for empty or invalid values.
func parseLimit(limitStr string, def int) int {
	if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
		return limit
	}
	return def
}

// parseTarget reads store and partition from the query string.
func parseTarget(q url.Values) (store string, part int32, err error) {
	store = q.Get("store")
	if err := catalog.ValidateStoreName(store); err != nil {
		return "", 0, err
	}
	if s := q.Get("partition"); s != "" {
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil || v < 0 {
			return "", 0, errors.New("invalid partition")
		}
		part = int32(v)
	}
	return store, part, nil
}

// writers serializes writes per store partition; transactions on one
// partition must not overlap.
type writers struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newWriters() *writers {
	return &writers{locks: make(map[string]*sync.Mutex)}
}

func (w *writers) lock(store string, part int32) func() {
	k := store + "/" + strconv.Itoa(int(part))
	w.mu.Lock()
	m, ok := w.locks[k]
	if !ok {
		m = &sync.Mutex{}
		w.locks[k] = m
	}
	w.mu.Unlock()
	m.Lock()
	return m.Unlock
}
