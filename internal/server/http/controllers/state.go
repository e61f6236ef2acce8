package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rzbill/stateflo/internal/partition"
	"github.com/rzbill/stateflo/internal/runtime"
	"github.com/rzbill/stateflo/internal/state"
	logpkg "github.com/rzbill/stateflo/pkg/log"
)

// StateController serves point reads and writes on partition state. Writes
// run as full transactions: prepare with the processed offset, then flush.
type StateController struct {
	rt      *runtime.Runtime
	logger  logpkg.Logger
	writers *writers
}

// NewStateController creates a new state controller.
func NewStateController(rt *runtime.Runtime, logger logpkg.Logger, w *writers) *StateController {
	return &StateController{rt: rt, logger: logger, writers: w}
}

// RegisterRoutes registers state routes with the given mux.
func (c *StateController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/state/get", c.handleGet)
	mux.HandleFunc("/v1/state/set", c.handleSet)
	mux.HandleFunc("/v1/state/delete", c.handleDelete)
	mux.HandleFunc("/v1/state/scan", c.handleScan)
	mux.HandleFunc("/v1/state/offsets", c.handleOffsets)
	mux.HandleFunc("/v1/state/recover", c.handleRecover)
}

func cfOrDefault(cf string) string {
	if cf == "" {
		return state.DefaultColumnFamily
	}
	return cf
}

func prefixOf(p string) any {
	if p == "" {
		return nil
	}
	return p
}

// handleGet reads one key. Query: store, partition, cf, prefix, key.
func (c *StateController) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	q := r.URL.Query()
	store, part, err := parseTarget(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := c.rt.Begin(store, part)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	view, err := tx.AsState(prefixOf(q.Get("prefix")))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	var raw json.RawMessage
	found, err := tx.Get(q.Get("key"), view.Prefix(), cfOrDefault(q.Get("cf")), &raw)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	resp := getResp{Key: q.Get("key"), Found: found}
	if found {
		resp.Value = raw
	}
	writeJSON(w, resp)
}

func (c *StateController) handleSet(w http.ResponseWriter, r *http.Request) {
	c.handleWrite(w, r, false)
}

func (c *StateController) handleDelete(w http.ResponseWriter, r *http.Request) {
	c.handleWrite(w, r, true)
}

func (c *StateController) handleWrite(w http.ResponseWriter, r *http.Request, del bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req writeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := partition.ValidateColumnFamily(cfOrDefault(req.CF)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !del && len(req.Value) == 0 {
		writeError(w, http.StatusBadRequest, "value is required")
		return
	}
	unlock := c.writers.lock(req.Store, req.Partition)
	defer unlock()

	h, err := c.rt.OpenPartition(req.Store, req.Partition)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	err = h.Update(r.Context(), req.ProcessedOffset, func(tx *state.PartitionTransaction) error {
		view, err := tx.AsState(prefixOf(req.Prefix))
		if err != nil {
			return err
		}
		cf := cfOrDefault(req.CF)
		if del {
			return tx.Delete(req.Key, view.Prefix(), cf)
		}
		return tx.Set(req.Key, req.Value, view.Prefix(), cf)
	})
	if err != nil {
		c.logger.Warn("state write failed", logpkg.Store(req.Store), logpkg.Partition(req.Partition), logpkg.Err(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleScan lists stored entries. Query: store, partition, cf, prefix, limit.
func (c *StateController) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	q := r.URL.Query()
	store, part, err := parseTarget(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h, err := c.rt.OpenPartition(store, part)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	view, err := h.Begin().AsState(prefixOf(q.Get("prefix")))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	var scanPrefix []byte
	if p := view.Prefix(); p != nil {
		scanPrefix = append(p, state.PrefixSeparator)
	}
	limit := parseLimit(q.Get("limit"), 100)
	items := make([]scanRespItem, 0)
	err = h.Partition.Scan(r.Context(), cfOrDefault(q.Get("cf")), scanPrefix, func(key, value []byte) error {
		if len(items) >= limit {
			return errStop
		}
		items = append(items, scanRespItem{Key: key, Value: value})
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, map[string]any{"store": store, "partition": part, "items": items})
}

// handleOffsets reports the processed and changelog offsets of a partition.
func (c *StateController) handleOffsets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	store, part, err := parseTarget(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h, err := c.rt.OpenPartition(store, part)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	resp := offsetsResp{Store: store, Partition: part}
	if off, ok, err := h.Partition.ProcessedOffset(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	} else if ok {
		resp.ProcessedOffset = &off
	}
	if off, ok, err := h.Partition.ChangelogOffset(); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	} else if ok {
		resp.ChangelogOffset = &off
	}
	l, err := c.rt.OpenChangelog(store, part)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	resp.ChangelogLast = l.LastSeq()
	writeJSON(w, resp)
}

// handleRecover replays the changelog into the partition. Query: store, partition.
func (c *StateController) handleRecover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	store, part, err := parseTarget(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	unlock := c.writers.lock(store, part)
	defer unlock()
	n, err := c.rt.Recover(r.Context(), store, part)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, countResp{Count: n})
}
