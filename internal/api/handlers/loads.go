package handlers

import (
	"fleet-agent-service/internal/api/dto"
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/ports"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type LoadHandler struct {
	World ports.FleetBoundary
}

// Loads lists loads on GET and offers a new one on POST.
func (h *LoadHandler) Loads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, r, http.StatusOK, dto.ListLoadsResponse{Loads: dto.FromLoads(h.World.Loads())})
	case http.MethodPost:
		h.submit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *LoadHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitLoadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := strings.TrimSpace(req.LoadID)
	if id == "" {
		id = "L-" + uuid.NewString()[:8]
	}

	l, err := h.World.SubmitLoad(domain.Load{
		LoadID:      id,
		Origin:      strings.TrimSpace(req.Origin),
		Destination: strings.TrimSpace(req.Destination),
		Weight:      req.Weight,
		Profit:      req.Profit,
	})
	if err != nil {
		writeDomainError(w, r, "submit load", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.FromLoad(l))
}
