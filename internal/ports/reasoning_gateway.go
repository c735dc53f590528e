package ports

import (
	"context"
	"fleet-agent-service/internal/domain"
)

// Port: the boundary to whatever turns an observation into a decision.
type ReasoningGateway interface {
	// Return one decision for the observed truck.
	// Failures are reported as domain.GatewayTimeoutError, GatewayParseError or GatewayUnavailableError.
	Evaluate(ctx context.Context, obs domain.Observation) (domain.Decision, error)
}
