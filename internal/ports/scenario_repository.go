package ports

import (
	"context"
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/roadnet"
)

// Initial session input: the map, the trucks on it and the loads already on offer.
type Scenario struct {
	Network roadnet.Definition
	Trucks  []domain.TruckSpec
	Loads   []domain.Load
}

// Port: a boundary for reading the initial scenario from a data source.
type ScenarioRepository interface {
	LoadScenario(ctx context.Context) (Scenario, error)
}
