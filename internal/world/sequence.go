package world

import (
	"fleet-agent-service/internal/domain"
	"math"
	"slices"
)

// sequenceLoadStops orders load stops with a greedy nearest-neighbor pass starting at from.
//
// Each step picks the eligible stop with the lowest traffic-aware travel time; a delivery
// becomes eligible once its pickup has been placed. Ties keep acceptance order, so the
// result is deterministic. It does not attempt global optimization.
//
// Caller holds the truck lock.
func (w *World) sequenceLoadStops(from string, stops []domain.Stop) []domain.Stop {
	if len(stops) <= 1 {
		return stops
	}

	onShelf := make(map[string]bool)
	for _, s := range stops {
		if s.Kind == domain.StopPickup {
			onShelf[s.LoadID] = true
		}
	}

	remaining := slices.Clone(stops)
	out := make([]domain.Stop, 0, len(stops))
	current := from
	for len(remaining) > 0 {
		best := -1
		bestCost := math.Inf(1)
		for i, s := range remaining {
			if s.Kind == domain.StopDelivery && onShelf[s.LoadID] {
				continue
			}
			// Select next stop by minimum travel time (greedy step).
			if c := w.travelCost(current, s.Node); best == -1 || c < bestCost {
				best, bestCost = i, c
			}
		}

		next := remaining[best]
		out = append(out, next)
		if next.Kind == domain.StopPickup {
			delete(onShelf, next.LoadID)
		}
		current = next.Node
		remaining = slices.Delete(remaining, best, best+1)
	}
	return out
}

// travelCost is the traffic-aware travel time between two nodes; +Inf when unreachable.
func (w *World) travelCost(from, to string) float64 {
	if from == to {
		return 0
	}
	p, err := w.net.ShortestPathFunc(from, to, w.traffic.weight)
	if err != nil {
		return math.Inf(1)
	}
	return p.Cost
}
