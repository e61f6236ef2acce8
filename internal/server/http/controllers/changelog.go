package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rzbill/stateflo/internal/changelog"
	"github.com/rzbill/stateflo/internal/eventlog"
	"github.com/rzbill/stateflo/internal/runtime"
	"github.com/rzbill/stateflo/internal/state"
	logpkg "github.com/rzbill/stateflo/pkg/log"
)

var errStop = errors.New("stop")

// maxFilterLen bounds CEL expressions accepted from clients.
const maxFilterLen = 2048

// ChangelogController lists, tails and compacts partition changelogs.
type ChangelogController struct {
	rt      *runtime.Runtime
	logger  logpkg.Logger
	writers *writers
}

// NewChangelogController creates a new changelog controller.
func NewChangelogController(rt *runtime.Runtime, logger logpkg.Logger, w *writers) *ChangelogController {
	return &ChangelogController{rt: rt, logger: logger, writers: w}
}

// RegisterRoutes registers changelog routes with the given mux.
func (c *ChangelogController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/changelog/records", c.handleRecords)
	mux.HandleFunc("/v1/changelog/tail", c.handleTailSSE)
	mux.HandleFunc("/v1/changelog/compact", c.handleCompact)
}

func toRespItem(it eventlog.Item) changelogRespItem {
	out := changelogRespItem{
		Offset:    it.Seq,
		CF:        it.Headers[state.HeaderColumnFamily],
		Key:       it.Key,
		Tombstone: it.Tombstone,
		Headers:   it.Headers,
	}
	if !it.Tombstone {
		out.Value = it.Value
	}
	return out
}

func parseFilter(expr string) (changelog.Filter, error) {
	if len(expr) > maxFilterLen {
		return changelog.Filter{}, errors.New("filter too long")
	}
	return changelog.NewFilter(expr)
}

// parseFrom reads the first offset to return; 0 means the earliest record.
func parseFrom(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

// handleRecords pages through a changelog.
// Query: store, partition, from, limit (default 100), filter.
// next_offset is 0 when the end was reached.
func (c *ChangelogController) handleRecords(w http.ResponseWriter, r *http.Request) {
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
	from, err := parseFrom(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from")
		return
	}
	f, err := parseFilter(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	l, err := c.rt.OpenChangelog(store, part)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	limit := parseLimit(q.Get("limit"), 100)

	items := make([]changelogRespItem, 0, limit)
	tok := eventlog.TokenFromSeq(from)
	var nextOffset uint64
scan:
	for {
		batch, next, err := l.Read(eventlog.ReadOptions{Start: tok, Limit: 256})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to read changelog: "+err.Error())
			return
		}
		for _, it := range batch {
			if len(items) == limit {
				nextOffset = it.Seq
				break scan
			}
			if f.Match(it) {
				items = append(items, toRespItem(it))
			}
		}
		if next == (eventlog.Token{}) {
			break
		}
		if len(items) == limit {
			nextOffset = next.Seq()
			break
		}
		tok = next
	}
	writeJSON(w, map[string]any{
		"store":       store,
		"partition":   part,
		"items":       items,
		"next_offset": nextOffset,
	})
}

// handleTailSSE streams changelog records as Server-Sent Events, waiting for
// new appends once the existing records are sent.
// Query: store, partition, from, filter, limit (0 = until the client leaves).
func (c *ChangelogController) handleTailSSE(w http.ResponseWriter, r *http.Request) {
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
	from, err := parseFrom(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from")
		return
	}
	f, err := parseFilter(q.Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	l, err := c.rt.OpenChangelog(store, part)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	limit := parseLimit(q.Get("limit"), 0)

	ctx := r.Context()
	sink := startSSE(w)
	sink.Flush()
	next := from
	if next == 0 {
		next = 1
	}
	sent := 0
	for {
		notify := l.AppendNotify()
		items, _, err := l.Read(eventlog.ReadOptions{Start: eventlog.TokenFromSeq(next), Limit: 256})
		if err != nil {
			c.logger.Warn("changelog tail read failed", logpkg.Store(store), logpkg.Partition(part), logpkg.Err(err))
			return
		}
		for _, it := range items {
			next = it.Seq + 1
			if !f.Match(it) {
				continue
			}
			if err := sink.Send(toRespItem(it)); err != nil {
				return
			}
			sent++
			if limit > 0 && sent >= limit {
				sink.Flush()
				return
			}
		}
		sink.Flush()
		if len(items) > 0 {
			continue
		}
		select {
		case <-notify:
		case <-ctx.Done():
			return
		}
	}
}

// handleCompact compacts a partition changelog. Query: store, partition.
func (c *ChangelogController) handleCompact(w http.ResponseWriter, r *http.Request) {
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
	n, err := c.rt.CompactChangelog(r.Context(), store, part)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, countResp{Count: n})
}
