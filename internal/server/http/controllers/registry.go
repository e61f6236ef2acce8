package controllers

import (
	"net/http"

	"github.com/rzbill/stateflo/internal/runtime"
	logpkg "github.com/rzbill/stateflo/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general   *GeneralController
	state     *StateController
	changelog *ChangelogController
}

// NewControllerRegistry creates the controllers for rt. metrics may be nil.
func NewControllerRegistry(rt *runtime.Runtime, logger logpkg.Logger, metrics http.Handler) *ControllerRegistry {
	w := newWriters()
	return &ControllerRegistry{
		general:   NewGeneralController(rt, metrics),
		state:     NewStateController(rt, logger, w),
		changelog: NewChangelogController(rt, logger, w),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.state.RegisterRoutes(mux)
	r.changelog.RegisterRoutes(mux)
}
