package handlers

import (
	"fleet-agent-service/internal/api/dto"
	"fleet-agent-service/internal/ports"
	"net/http"
)

// StateHandler serves the polled read boundary.
type StateHandler struct {
	World ports.FleetBoundary
}

func (h *StateHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromWorldState(h.World.Snapshot()))
}
