package reasoning

import (
	"context"
	"fleet-agent-service/internal/domain"
	"fmt"

	"github.com/google/uuid"
)

// HeuristicGateway is a deterministic rule-based backend for runs without a model API key.
// Rules, first match wins:
//  1. fuel below the low-fuel threshold with no refuel planned: REFUEL at the nearest station;
//  2. traffic reported on the route since the last decision: REROUTE;
//  3. idle and empty: ACCEPT_LOAD the nearby load with the best profit per unit of weight that fits;
//  4. otherwise CONTINUE.
type HeuristicGateway struct {
	lowFuelPercent float64
}

func NewHeuristicGateway(lowFuelPercent float64) *HeuristicGateway {
	return &HeuristicGateway{lowFuelPercent: lowFuelPercent}
}

func (g *HeuristicGateway) Evaluate(ctx context.Context, o domain.Observation) (domain.Decision, error) {
	if err := ctx.Err(); err != nil {
		return domain.Decision{}, &domain.GatewayUnavailableError{Reason: "evaluation cancelled", Err: err}
	}

	t := o.Truck
	d := domain.Decision{
		DecisionID: uuid.NewString(),
		TruckID:    t.TruckID,
		Action:     domain.ActionContinue,
		Confidence: 0.6,
		Rationale:  "safety protocol: nothing requires a change",
		Source:     domain.SourceGateway,
		Timestamp:  o.Clock,
		Thoughts:   []string{"Heuristic backend: model reasoning not configured."},
	}

	switch {
	case t.FuelPercent < g.lowFuelPercent && !t.RefuelPending() && o.NearestFuel != nil:
		d.Action = domain.ActionRefuel
		d.Target = o.NearestFuel.NodeID
		d.Confidence = 0.9
		d.Rationale = fmt.Sprintf("safety protocol: fuel %.1f%% below %.1f%%, refueling at %s", t.FuelPercent, g.lowFuelPercent, o.NearestFuel.NodeID)
		d.Thoughts = append(d.Thoughts, fmt.Sprintf("Nearest station %s is %.1f km away.", o.NearestFuel.NodeID, o.NearestFuel.DistanceKm))

	case freshTraffic(o):
		d.Action = domain.ActionReroute
		d.Confidence = 0.7
		d.Rationale = "safety protocol: traffic reported on the route, replanning around it"

	case t.Status == domain.TruckIdle && len(t.AcceptedLoads) == 0:
		if best, ok := bestLoad(o); ok {
			d.Action = domain.ActionAcceptLoad
			d.Target = best.Load.LoadID
			d.Confidence = 0.8
			d.Rationale = fmt.Sprintf("idle with %.1f free capacity; %s pays %.1f per unit", t.CapacityFree(), best.Load.LoadID, best.Load.Profit/best.Load.Weight)
		}
	}
	return d, nil
}

// freshTraffic reports a TRAFFIC event for this truck newer than its last decision.
func freshTraffic(o domain.Observation) bool {
	t := o.Truck
	for _, ev := range o.RecentEvents {
		if ev.Kind != domain.EventTraffic || ev.TruckID != t.TruckID {
			continue
		}
		if t.LastDecision == nil || ev.At.After(t.LastDecision.AppliedAt) {
			return true
		}
	}
	return false
}

// bestLoad picks the fitting load with the highest profit per unit of weight;
// ties go to the closer, then the lower id.
func bestLoad(o domain.Observation) (domain.NearbyLoad, bool) {
	t := o.Truck
	var best domain.NearbyLoad
	found := false
	for _, nl := range o.NearbyLoads {
		if !t.CanCarry(nl.Load.Weight) {
			continue
		}
		if !found || better(nl, best) {
			best, found = nl, true
		}
	}
	return best, found
}

func better(a, b domain.NearbyLoad) bool {
	ra, rb := a.Load.Profit/a.Load.Weight, b.Load.Profit/b.Load.Weight
	if ra != rb {
		return ra > rb
	}
	if a.DistanceKm != b.DistanceKm {
		return a.DistanceKm < b.DistanceKm
	}
	return a.Load.LoadID < b.Load.LoadID
}
