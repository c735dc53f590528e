package ports

import "fleet-agent-service/internal/domain"

// Port: the world model as seen by one truck's agent loop.
type AgentWorld interface {
	Observe(truckID string) (domain.Observation, error)
	ApplyDecision(d domain.Decision) (domain.DecisionRecord, error)
	// Closed once the truck has left the fleet.
	Done(truckID string) <-chan struct{}
}

// Port: the world model as seen by the fleet supervisor.
type FleetWorld interface {
	AgentWorld
	TruckIDs() []string
	AddTruck(spec domain.TruckSpec) error
	RemoveTruck(truckID string) error
}

// Port: the operator read/write boundary of the world model.
type FleetBoundary interface {
	Snapshot() domain.WorldState
	Loads() []domain.Load
	SubmitLoad(l domain.Load) (domain.Load, error)
	SubmitOverride(truckID string, d domain.Decision) (domain.DecisionRecord, error)
	History(truckID string) ([]domain.DecisionRecord, error)
	Observe(truckID string) (domain.Observation, error)
	Traffic() []domain.TrafficCondition
	ReportTraffic(from, to string, factor float64, note string) error
}

// Port: adds and removes trucks together with their agent loops.
type TruckRoster interface {
	AddTruck(spec domain.TruckSpec) error
	RemoveTruck(truckID string) error
}
