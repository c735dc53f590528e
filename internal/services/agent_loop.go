package services

import (
	"context"
	"errors"
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/platform/obs"
	"fleet-agent-service/internal/ports"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/semaphore"
)

// LoopDeps is what a truck's agent loop needs. One value is shared by every loop of a fleet.
type LoopDeps struct {
	World   ports.AgentWorld
	Gateway ports.ReasoningGateway
	// Bounds concurrent gateway calls across the fleet; nil means unbounded.
	Sem *semaphore.Weighted
	// Decision cadence.
	Interval time.Duration
	// Upper bound on one REASON step, including the wait for a semaphore slot; 0 means none.
	ReasonTimeout       time.Duration
	CriticalFuelPercent float64
}

// RunTruckLoop drives one truck: wait for the cadence, observe, reason, apply.
// It returns when ctx is cancelled or the truck leaves the fleet.
func RunTruckLoop(ctx context.Context, truckID string, deps LoopDeps) error {
	if deps.Interval <= 0 {
		return fmt.Errorf("truck loop %s: interval must be positive", truckID)
	}
	ctx = obs.WithTruckID(ctx, truckID)
	done := deps.World.Done(truckID)

	ticker := time.NewTicker(deps.Interval)
	defer ticker.Stop()

	log.Printf("truck=%s op=loop.start interval=%s", truckID, deps.Interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("truck=%s op=loop.stop reason=shutdown", truckID)
			return nil
		case <-done:
			log.Printf("truck=%s op=loop.stop reason=removed", truckID)
			return nil
		case <-ticker.C:
		}

		_, err := RunCycle(ctx, truckID, deps)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrTruckNotFound):
			log.Printf("truck=%s op=loop.stop reason=removed", truckID)
			return nil
		case ctx.Err() != nil:
			log.Printf("truck=%s op=loop.stop reason=shutdown", truckID)
			return nil
		default:
			// Rejected decisions are already recorded in the truck's history.
			log.Printf("truck=%s op=loop.cycle err=%v", truckID, err)
		}
	}
}

// RunCycle runs one OBSERVE -> REASON -> APPLY pass for truckID.
// Nothing is applied when ctx is cancelled during REASON.
func RunCycle(ctx context.Context, truckID string, deps LoopDeps) (domain.DecisionRecord, error) {
	o, err := deps.World.Observe(truckID)
	if err != nil {
		return domain.DecisionRecord{}, fmt.Errorf("cycle: observe: %w", err)
	}

	d := reason(ctx, o, deps)
	if err := ctx.Err(); err != nil {
		return domain.DecisionRecord{}, fmt.Errorf("cycle: %w", err)
	}
	d.TruckID = truckID

	rec, err := deps.World.ApplyDecision(d)
	if err != nil {
		return rec, fmt.Errorf("cycle: apply: %w", err)
	}
	log.Printf("truck=%s op=decision action=%s target=%s source=%s confidence=%.2f outcome=%s",
		truckID, d.Action, d.Target, d.Source, d.Confidence, rec.Outcome)
	return rec, nil
}

// reason never fails: gateway errors degrade to the fallback decision.
func reason(ctx context.Context, o domain.Observation, deps LoopDeps) domain.Decision {
	if d, ok := FastPath(o, deps.CriticalFuelPercent); ok {
		return d
	}

	d, err := consult(ctx, o, deps)
	if err != nil {
		log.Printf("truck=%s op=reason fallback=true err=%v", o.Truck.TruckID, err)
		return domain.FallbackDecision(o.Truck.TruckID, o.Clock)
	}
	return d
}

func consult(ctx context.Context, o domain.Observation, deps LoopDeps) (d domain.Decision, err error) {
	defer obs.Time(ctx, "gateway.evaluate")(&err)

	if deps.ReasonTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deps.ReasonTimeout)
		defer cancel()
	}

	if deps.Sem != nil {
		if err := deps.Sem.Acquire(ctx, 1); err != nil {
			return domain.Decision{}, &domain.GatewayTimeoutError{Timeout: deps.ReasonTimeout, Err: err}
		}
		defer deps.Sem.Release(1)
	}

	return deps.Gateway.Evaluate(ctx, o)
}
