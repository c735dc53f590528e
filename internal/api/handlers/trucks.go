package handlers

import (
	"fleet-agent-service/internal/api/dto"
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/ports"
	"net/http"
	"strings"
)

// defaultStartFuel is used when a new truck's request leaves fuel out.
const defaultStartFuel = 100.0

// TruckHandler exposes per-truck commands and reads.
type TruckHandler struct {
	World  ports.FleetBoundary
	Roster ports.TruckRoster
}

// Add registers a truck and starts its agent loop.
func (h *TruckHandler) Add(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.AddTruckRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fuel := defaultStartFuel
	if req.FuelPercent != nil {
		fuel = *req.FuelPercent
	}
	waypoints := make([]string, 0, len(req.Waypoints))
	for _, wp := range req.Waypoints {
		waypoints = append(waypoints, strings.TrimSpace(wp))
	}

	spec := domain.TruckSpec{
		TruckID:       strings.TrimSpace(req.TruckID),
		StartNode:     strings.TrimSpace(req.StartNode),
		Waypoints:     waypoints,
		FuelPercent:   fuel,
		CapacityTotal: req.CapacityTotal,
		CapacityUsed:  req.CapacityUsed,
	}
	if err := h.Roster.AddTruck(spec); err != nil {
		writeDomainError(w, r, "add truck", err)
		return
	}

	v, ok := h.World.Snapshot().Truck(spec.TruckID)
	if !ok {
		// Retired or removed between the two calls.
		writeJSON(w, r, http.StatusCreated, map[string]string{"truck_id": spec.TruckID})
		return
	}
	writeJSON(w, r, http.StatusCreated, dto.FromTruck(v))
}

// Remove takes a truck out of the fleet; its undelivered loads go back on offer.
func (h *TruckHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodDelete) {
		return
	}

	if err := h.Roster.RemoveTruck(r.PathValue("id")); err != nil {
		writeDomainError(w, r, "remove truck", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TruckHandler) Decisions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	id := r.PathValue("id")
	history, err := h.World.History(id)
	if err != nil {
		writeDomainError(w, r, "list decisions", err)
		return
	}

	res := dto.ListDecisionsResponse{TruckID: id, Decisions: make([]dto.DecisionResponse, 0, len(history))}
	for _, rec := range history {
		res.Decisions = append(res.Decisions, dto.FromDecision(rec))
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Observation returns what the truck's agent would see right now.
func (h *TruckHandler) Observation(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	o, err := h.World.Observe(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, "observe truck", err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.FromObservation(o))
}

// Override applies an operator decision, bypassing reasoning.
func (h *TruckHandler) Override(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.OverrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	action, err := domain.ParseAction(strings.ToUpper(strings.TrimSpace(req.Action)))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	d := domain.Decision{
		DecisionID: strings.TrimSpace(req.DecisionID),
		Action:     action,
		Target:     strings.TrimSpace(req.Target),
		Rationale:  strings.TrimSpace(req.Rationale),
		Thoughts:   req.Thoughts,
	}
	if req.Confidence != nil {
		d.Confidence = *req.Confidence
	}

	rec, err := h.World.SubmitOverride(r.PathValue("id"), d)
	if err != nil {
		writeDomainError(w, r, "override", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.FromDecision(rec))
}
