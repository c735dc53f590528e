package handlers

import (
	"fleet-agent-service/internal/api/dto"
	"fleet-agent-service/internal/domain"
	"net/http"
)

// RoadMap is the static road network drawn by dashboards.
type RoadMap interface {
	Nodes() []domain.Node
	Edges() []domain.Edge
}

type NetworkHandler struct {
	Roads RoadMap
}

func (h *NetworkHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromNetwork(h.Roads.Nodes(), h.Roads.Edges()))
}
