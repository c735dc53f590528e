package api

import (
	"fleet-agent-service/internal/api/handlers"
	"fleet-agent-service/internal/ports"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(world ports.FleetBoundary, roster ports.TruckRoster, clock handlers.SimClock, roads handlers.RoadMap, hub *Hub) http.Handler {
	mux := http.NewServeMux()

	healthHandler := &handlers.HealthHandler{Clock: clock}
	stateHandler := &handlers.StateHandler{World: world}
	networkHandler := &handlers.NetworkHandler{Roads: roads}
	loadHandler := &handlers.LoadHandler{World: world}
	trafficHandler := &handlers.TrafficHandler{World: world}
	truckHandler := &handlers.TruckHandler{World: world, Roster: roster}

	mux.HandleFunc("/health", healthHandler.Health)
	// The state is polled by dashboards and compresses well.
	mux.Handle("/state", gzhttp.GzipHandler(http.HandlerFunc(stateHandler.Get)))
	mux.Handle("/network", gzhttp.GzipHandler(http.HandlerFunc(networkHandler.Get)))
	mux.HandleFunc("/loads", loadHandler.Loads)
	mux.HandleFunc("/traffic", trafficHandler.Traffic)
	mux.HandleFunc("/trucks", truckHandler.Add)
	mux.HandleFunc("/trucks/{id}", truckHandler.Remove)
	mux.HandleFunc("/trucks/{id}/decisions", truckHandler.Decisions)
	mux.HandleFunc("/trucks/{id}/observation", truckHandler.Observation)
	mux.HandleFunc("/trucks/{id}/override", truckHandler.Override)
	if hub != nil {
		mux.Handle("/ws/state", hub)
	}

	return requestIDMiddleware(loggingMiddleware(mux))
}
