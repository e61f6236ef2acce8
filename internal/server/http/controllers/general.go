package controllers

import (
	"net/http"

	"github.com/rzbill/stateflo/internal/runtime"
)

// GeneralController handles health, catalog and metrics endpoints.
type GeneralController struct {
	rt      *runtime.Runtime
	metrics http.Handler
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime, metrics http.Handler) *GeneralController {
	return &GeneralController{rt: rt, metrics: metrics}
}

// RegisterRoutes registers general routes with the given mux.
//
// This method sets up HTTP endpoints for:
// - Health checks (/v1/healthz)
// - The store catalog (/v1/stores)
// - Prometheus metrics (/metrics), when enabled
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/stores", c.handleListStores)
	if c.metrics != nil {
		mux.Handle("/metrics", c.metrics)
	}
}

// handleHealth returns 200 OK with {"status": "ok"} if healthy, 503 otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (c *GeneralController) handleListStores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	stores, err := c.rt.Stores()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list stores")
		return
	}
	writeJSON(w, map[string]any{"backend": c.rt.Backend(), "stores": stores})
}
