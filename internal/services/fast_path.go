package services

import (
	"fleet-agent-service/internal/domain"
	"fmt"

	"github.com/google/uuid"
)

// FastPath returns a decision that needs no reasoning, if the observation calls for one.
// It always takes precedence over the gateway.
func FastPath(o domain.Observation, criticalFuelPercent float64) (domain.Decision, bool) {
	t := o.Truck
	d := domain.Decision{
		DecisionID: uuid.NewString(),
		TruckID:    t.TruckID,
		Action:     domain.ActionContinue,
		Confidence: 1,
		Source:     domain.SourceFastPath,
		Timestamp:  o.Clock,
	}

	switch {
	case t.FuelPercent <= 0 && t.Status != domain.TruckRefueling:
		// Stranded short of any station: the world refuels an empty tank in place.
		d.Action = domain.ActionRefuel
		d.Rationale = "fast-path: out of fuel; refueling where the truck stands"
		return d, true

	case t.FuelPercent < criticalFuelPercent && t.RefuelPending():
		d.Rationale = "fast-path: refuel already in progress"
		return d, true

	case t.FuelPercent < criticalFuelPercent:
		d.Action = domain.ActionRefuel
		station := "the nearest reachable station"
		if o.NearestFuel != nil {
			d.Target = o.NearestFuel.NodeID
			station = o.NearestFuel.NodeID
		}
		d.Rationale = fmt.Sprintf("fast-path: fuel %.1f%% below critical threshold %.1f%%; refueling at %s",
			t.FuelPercent, criticalFuelPercent, station)
		return d, true

	case t.Status == domain.TruckIdle && len(t.Route) == 0 && len(t.AcceptedLoads) == 0 &&
		len(o.NearbyLoads) == 0 && !hasNewEvents(o):
		d.Rationale = "fast-path: idle with no loads nearby and nothing new"
		return d, true
	}
	return domain.Decision{}, false
}

// hasNewEvents reports events observed after the truck's last decision.
func hasNewEvents(o domain.Observation) bool {
	last := o.Truck.LastDecision
	if last == nil {
		return len(o.RecentEvents) > 0
	}
	for _, ev := range o.RecentEvents {
		if ev.At.After(last.AppliedAt) {
			return true
		}
	}
	return false
}
