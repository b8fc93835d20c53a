// Package health exposes liveness and readiness probes.
package health

import (
	"net/http"

	"github.com/wenpaihq/wenpai/internal/http/helpers"
)

type Controller struct {
	// Ready reports whether dependencies are usable; nil means always ready.
	Ready func() bool
}

// Healthz handles GET /healthz: process liveness.
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz handles GET /readyz: dependency readiness.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	if c.Ready != nil && !c.Ready() {
		helpers.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
