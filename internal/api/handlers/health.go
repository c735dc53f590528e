package handlers

import (
	"net/http"
	"time"
)

// SimClock reports how far the simulation has run.
type SimClock interface {
	Now() time.Time
	Ticks() uint64
}

// HealthHandler provides a minimal liveness check endpoint.
type HealthHandler struct {
	Clock SimClock
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	res := map[string]any{"status": "ok"}
	if h.Clock != nil {
		res["clock"] = h.Clock.Now()
		res["tick"] = h.Clock.Ticks()
	}
	writeJSON(w, r, http.StatusOK, res)
}
