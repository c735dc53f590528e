package world

import (
	"fleet-agent-service/internal/domain"
	"fmt"
	"slices"
	"time"
)

// buildStops derives the ordered stop list from the truck's commitments:
// a pending fuel stop first, then waypoints, then the accepted loads' pickups
// and deliveries sequenced by sequenceLoadStops.
//
// Loads found in pending are used as given; the rest are read under their lock.
// Caller holds the truck lock.
func (w *World) buildStops(t *domain.Truck, pending map[string]domain.Load) ([]domain.Stop, error) {
	var stops []domain.Stop
	if t.FuelStation != "" && t.Status != domain.TruckRefueling {
		stops = append(stops, domain.Stop{Node: t.FuelStation, Kind: domain.StopFuel})
	}
	for _, wp := range t.Waypoints {
		stops = append(stops, domain.Stop{Node: wp, Kind: domain.StopWaypoint})
	}
	var loadStops []domain.Stop
	for _, id := range t.AcceptedLoads {
		l, ok := pending[id]
		if !ok {
			le, found := w.loadEntry(id)
			if !found {
				return nil, fmt.Errorf("plan: accepted load %s: %w", id, domain.ErrLoadNotFound)
			}
			le.mu.Lock()
			l = le.load
			le.mu.Unlock()
		}
		if !l.PickedUp {
			loadStops = append(loadStops, domain.Stop{Node: l.Origin, Kind: domain.StopPickup, LoadID: id})
		}
		loadStops = append(loadStops, domain.Stop{Node: l.Destination, Kind: domain.StopDelivery, LoadID: id})
	}

	from := t.Anchor()
	if len(stops) > 0 {
		from = stops[len(stops)-1].Node
	}
	return append(stops, w.sequenceLoadStops(from, loadStops)...), nil
}

// replan rebuilds Stops and Route from the truck's commitments using
// traffic-aware shortest paths. A truck mid-edge keeps the edge it is on.
// On error t is left untouched.
func (w *World) replan(t *domain.Truck, pending map[string]domain.Load) error {
	stops, err := w.buildStops(t, pending)
	if err != nil {
		return err
	}

	var route []string
	if t.MidEdge() {
		route = []string{t.Route[0]}
	}
	cur := t.Anchor()
	for _, s := range stops {
		p, err := w.net.ShortestPathFunc(cur, s.Node, w.traffic.weight)
		if err != nil {
			return fmt.Errorf("plan %s stop at %s: %w", s.Kind, s.Node, err)
		}
		route = append(route, p.Nodes[1:]...)
		cur = s.Node
	}

	t.Stops = stops
	t.Route = route
	t.Halted = false
	return nil
}

// settle handles the stops at the truck's current node and sets the status that follows.
// Trucks mid-edge, loading or refueling are left alone. Caller holds e.mu.
func (w *World) settle(e *truckEntry, now time.Time) {
	t := &e.truck
	if t.MidEdge() || t.Status == domain.TruckLoading || t.Status == domain.TruckRefueling {
		return
	}
	w.handleStops(e, now)
	w.afterStops(e)
}

// handleStops consumes every leading stop located at the current node.
func (w *World) handleStops(e *truckEntry, now time.Time) {
	t := &e.truck
	for len(t.Stops) > 0 && t.Stops[0].Node == t.CurrentNode {
		s := t.Stops[0]
		t.Stops = t.Stops[1:]

		switch s.Kind {
		case domain.StopWaypoint:
			if i := slices.Index(t.Waypoints, s.Node); i >= 0 {
				t.Waypoints = slices.Delete(t.Waypoints, i, i+1)
			}
		case domain.StopPickup:
			w.pickUp(e, s.LoadID, now)
		case domain.StopDelivery:
			w.deliver(e, s.LoadID, now)
		case domain.StopFuel:
			// Refueling starts in afterStops once any loading dwell is over.
		}
	}
}

func (w *World) afterStops(e *truckEntry) {
	if e.truck.DwellSeconds > 0 {
		e.truck.Status = domain.TruckLoading
		return
	}
	resume(&e.truck)
}

// resume picks the status of a truck that is done loading or refueling.
func resume(t *domain.Truck) {
	t.DwellSeconds = 0
	switch {
	case t.FuelStation != "" && t.FuelStation == t.CurrentNode && !t.MidEdge():
		t.Status = domain.TruckRefueling
	case len(t.Route) > 0:
		t.Status = domain.TruckEnRoute
	default:
		t.Status = domain.TruckIdle
	}
}

func (w *World) pickUp(e *truckEntry, loadID string, now time.Time) {
	le, ok := w.loadEntry(loadID)
	if !ok {
		return
	}
	le.mu.Lock()
	if le.load.AssignedTo == e.truck.TruckID {
		le.load.PickedUp = true
	}
	le.mu.Unlock()

	e.truck.DwellSeconds += w.tuning.Truck.LoadingSeconds
	w.emitTruckAt(e, now, domain.Event{Kind: domain.EventLoadPickedUp, LoadID: loadID, NodeID: e.truck.CurrentNode, Message: "picked up " + loadID})
}

func (w *World) deliver(e *truckEntry, loadID string, now time.Time) {
	t := &e.truck
	le, ok := w.loadEntry(loadID)
	if !ok {
		return
	}
	le.mu.Lock()
	weight := le.load.Weight
	if le.load.AssignedTo == t.TruckID {
		at := now
		le.load.Status = domain.LoadDelivered
		le.load.DeliveredAt = &at
	}
	le.mu.Unlock()

	if i := slices.Index(t.AcceptedLoads, loadID); i >= 0 {
		t.AcceptedLoads = slices.Delete(t.AcceptedLoads, i, i+1)
		t.CapacityUsed = max(t.BaseCargo, t.CapacityUsed-weight)
	}
	t.DwellSeconds += w.tuning.Truck.LoadingSeconds
	w.emitTruckAt(e, now, domain.Event{Kind: domain.EventLoadDelivered, LoadID: loadID, NodeID: t.CurrentNode, Message: "delivered " + loadID})
}
