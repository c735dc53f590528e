package world

import (
	"errors"
	"fleet-agent-service/internal/domain"
	"fmt"
	"log"
	"math"
	"time"
)

// arrivalEpsilonKm absorbs float error when deciding a truck reached the end of an edge.
const arrivalEpsilonKm = 1e-9

// fuelEpsilon rounds a nearly empty tank down to empty.
const fuelEpsilon = 1e-9

// Tick advances the simulated clock by seconds and moves every truck accordingly.
// Calls are serialized; a non-positive step is a no-op.
func (w *World) Tick(seconds float64) {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return
	}

	w.tickMu.Lock()
	defer w.tickMu.Unlock()

	w.elapsed.Add(int64(seconds * float64(time.Second)))
	w.ticks.Add(1)
	now := w.Now()

	var idle []string
	for _, e := range w.truckEntries() {
		e.mu.Lock()
		if !e.removed {
			w.advance(e, seconds, now)
			if w.retireDue(&e.truck) {
				idle = append(idle, e.truck.TruckID)
			}
		}
		e.mu.Unlock()
	}

	for _, id := range idle {
		w.retire(id)
	}
}

// retire removes an idle truck unless a decision applied since the tick put it back to work.
func (w *World) retire(truckID string) bool {
	removed, err := w.removeIf(truckID, w.retireDue)
	if err != nil && !errors.Is(err, domain.ErrTruckNotFound) {
		log.Printf("retire truck=%s err=%v", truckID, err)
	}
	return removed
}

func (w *World) retireDue(t *domain.Truck) bool {
	limit := w.tuning.Truck.RetireIdleAfterSeconds
	return limit > 0 && t.Status == domain.TruckIdle && len(t.AcceptedLoads) == 0 && t.IdleSeconds >= limit
}

// advance applies dt simulated seconds to one truck. Caller holds e.mu.
func (w *World) advance(e *truckEntry, dt float64, now time.Time) {
	t := &e.truck
	e.asOf = now

	if t.Status == domain.TruckIdle && len(t.Route) == 0 && len(t.AcceptedLoads) == 0 {
		t.IdleSeconds += dt
	} else {
		t.IdleSeconds = 0
	}

	switch t.Status {
	case domain.TruckRefueling:
		w.refuel(e, dt, now)
	case domain.TruckLoading:
		t.DwellSeconds -= dt
		if t.DwellSeconds <= 0 {
			resume(t)
		}
	case domain.TruckEnRoute:
		w.move(e, dt, now)
	}
}

func (w *World) refuel(e *truckEntry, dt float64, now time.Time) {
	t := &e.truck
	t.FuelPercent = math.Min(100, t.FuelPercent+w.tuning.Truck.RefuelPercentPerMinute*dt/60)
	if t.FuelPercent < 100 {
		return
	}

	station := t.FuelStation
	if station == "" {
		station = t.CurrentNode
	}
	t.FuelStation = ""
	e.stalled = false
	resume(t)
	w.emitTruckAt(e, now, domain.Event{Kind: domain.EventRefueled, NodeID: station, Message: "tank full at " + station})
}

// move drives the truck along its route for dt seconds, burning fuel per km.
// The truck stops early at a stop that needs dwell time, at a blocked edge,
// or when the tank runs dry.
func (w *World) move(e *truckEntry, dt float64, now time.Time) {
	t := &e.truck
	budget := dt

	for budget > 0 && len(t.Route) > 0 {
		if t.FuelPercent <= 0 {
			w.stall(e, now)
			return
		}

		next := t.Route[0]
		edge, ok := w.net.Edge(t.CurrentNode, next)
		if !ok {
			log.Printf("move truck=%s err=no edge %s -> %s, dropping route", t.TruckID, t.CurrentNode, next)
			t.Route, t.Stops, t.EdgeProgressKm = nil, nil, 0
			break
		}
		factor := w.traffic.factor(edge.From, edge.To)
		if factor <= 0 {
			return
		}

		speed := edge.DistanceKm / edge.TravelSeconds * factor
		remaining := edge.DistanceKm - t.EdgeProgressKm
		step := math.Min(remaining, speed*budget)
		if rate := w.tuning.Truck.FuelPercentPerKm; rate > 0 {
			step = math.Min(step, t.FuelPercent/rate)
		}

		t.EdgeProgressKm += step
		w.burn(e, step, now)
		budget -= step / speed

		if remaining-step > arrivalEpsilonKm {
			break
		}

		t.CurrentNode = next
		t.Route = t.Route[1:]
		t.EdgeProgressKm = 0
		if w.arrive(e, now) {
			return
		}
	}

	if len(t.Route) == 0 && t.Status == domain.TruckEnRoute {
		t.Status = domain.TruckIdle
	}
	if t.FuelPercent <= 0 && len(t.Route) > 0 {
		w.stall(e, now)
	}
}

// arrive processes the stops at the node just reached and reports whether
// the truck stopped moving there.
func (w *World) arrive(e *truckEntry, now time.Time) bool {
	t := &e.truck
	w.handleStops(e, now)
	if len(t.Route) == 0 {
		w.emitTruckAt(e, now, domain.Event{Kind: domain.EventArrived, NodeID: t.CurrentNode, Message: "arrived at " + t.CurrentNode})
	}
	w.afterStops(e)
	return t.Status != domain.TruckEnRoute
}

func (w *World) burn(e *truckEntry, km float64, now time.Time) {
	t := &e.truck
	before := t.FuelPercent
	t.FuelPercent = before - km*w.tuning.Truck.FuelPercentPerKm
	if t.FuelPercent < fuelEpsilon {
		t.FuelPercent = 0
	}

	threshold := w.tuning.Truck.LowFuelPercent
	if before >= threshold && t.FuelPercent < threshold {
		w.emitTruckAt(e, now, domain.Event{
			Kind:    domain.EventLowFuel,
			NodeID:  t.CurrentNode,
			Message: fmt.Sprintf("fuel %.1f%% below %.1f%%", t.FuelPercent, threshold),
		})
	}
}

func (w *World) stall(e *truckEntry, now time.Time) {
	if e.stalled {
		return
	}
	e.stalled = true
	w.emitTruckAt(e, now, domain.Event{Kind: domain.EventOutOfFuel, NodeID: e.truck.CurrentNode, Message: "out of fuel"})
}
