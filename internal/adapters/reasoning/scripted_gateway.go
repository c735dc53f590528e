package reasoning

import (
	"context"
	"fleet-agent-service/internal/domain"
	"sync"
	"time"
)

// ScriptedStep is one canned answer of a ScriptedGateway.
type ScriptedStep struct {
	Decision domain.Decision
	Err      error
	Delay    time.Duration
}

// ScriptedGateway replays canned answers in order; the last step repeats.
// With no steps it always answers CONTINUE.
type ScriptedGateway struct {
	mu    sync.Mutex
	steps []ScriptedStep
	calls []domain.Observation
}

func NewScriptedGateway(steps ...ScriptedStep) *ScriptedGateway {
	return &ScriptedGateway{steps: steps}
}

func (g *ScriptedGateway) Evaluate(ctx context.Context, o domain.Observation) (domain.Decision, error) {
	g.mu.Lock()
	step := ScriptedStep{Decision: domain.Decision{Action: domain.ActionContinue, Confidence: 1, Rationale: "scripted"}}
	if n := len(g.calls); n < len(g.steps) {
		step = g.steps[n]
	} else if len(g.steps) > 0 {
		step = g.steps[len(g.steps)-1]
	}
	g.calls = append(g.calls, o)
	g.mu.Unlock()

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.Decision{}, &domain.GatewayTimeoutError{Timeout: step.Delay, Err: ctx.Err()}
		case <-timer.C:
		}
	}
	if step.Err != nil {
		return domain.Decision{}, step.Err
	}

	d := step.Decision
	d.TruckID = o.Truck.TruckID
	d.Source = domain.SourceGateway
	d.Timestamp = o.Clock
	return d, nil
}

// Calls returns how many times Evaluate ran.
func (g *ScriptedGateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// Observations returns the observations Evaluate received, in call order.
func (g *ScriptedGateway) Observations() []domain.Observation {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Observation(nil), g.calls...)
}
