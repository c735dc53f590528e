package handlers

import (
	"fleet-agent-service/internal/api/dto"
	"fleet-agent-service/internal/ports"
	"net/http"
	"strings"
)

type TrafficHandler struct {
	World ports.FleetBoundary
}

// Traffic lists slowed edges on GET and reports a condition on POST.
func (h *TrafficHandler) Traffic(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.report(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *TrafficHandler) list(w http.ResponseWriter, r *http.Request) {
	conds := h.World.Traffic()
	res := dto.ListTrafficResponse{Conditions: make([]dto.TrafficResponse, 0, len(conds))}
	for _, c := range conds {
		res.Conditions = append(res.Conditions, dto.TrafficResponse{From: c.From, To: c.To, Factor: c.Factor})
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *TrafficHandler) report(w http.ResponseWriter, r *http.Request) {
	var req dto.TrafficRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Factor == nil {
		writeError(w, r, http.StatusBadRequest, "factor is required")
		return
	}

	from, to := strings.TrimSpace(req.From), strings.TrimSpace(req.To)
	if err := h.World.ReportTraffic(from, to, *req.Factor, strings.TrimSpace(req.Note)); err != nil {
		writeDomainError(w, r, "report traffic", err)
		return
	}

	writeJSON(w, r, http.StatusAccepted, dto.TrafficResponse{From: from, To: to, Factor: *req.Factor})
}
