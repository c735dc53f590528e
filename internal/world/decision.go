package world

import (
	"errors"
	"fleet-agent-service/internal/domain"
	"fmt"
	"slices"
	"time"
)

// ApplyDecision validates a decision against the truck's current state and commits
// it atomically. Exactly one of APPLIED, REJECTED or DUPLICATE is recorded:
//   - a decision id already in the truck's history is not re-applied; the earlier
//     record is returned with outcome DUPLICATE;
//   - a rejected decision leaves the truck and every load unchanged, is recorded
//     with its reason and returned as a *domain.ValidationError;
//   - a truck that left the fleet yields domain.ErrTruckNotFound.
func (w *World) ApplyDecision(d domain.Decision) (domain.DecisionRecord, error) {
	e, ok := w.truckEntry(d.TruckID)
	if !ok {
		return domain.DecisionRecord{}, fmt.Errorf("apply decision: truck %s: %w", d.TruckID, domain.ErrTruckNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return domain.DecisionRecord{}, fmt.Errorf("apply decision: truck %s: %w", d.TruckID, domain.ErrTruckNotFound)
	}

	if d.DecisionID != "" {
		for _, rec := range e.history.buf {
			if rec.Decision.DecisionID == d.DecisionID {
				dup := rec.Clone()
				dup.Outcome = domain.OutcomeDuplicate
				return dup, nil
			}
		}
	} else {
		d.DecisionID = w.newID()
	}
	now := e.asOf
	if d.Timestamp.IsZero() {
		d.Timestamp = now
	}
	d.Thoughts = slices.Clone(d.Thoughts)

	if err := d.Validate(); err != nil {
		return w.reject(e, d, now, err.Error(), nil)
	}

	var err error
	switch d.Action {
	case domain.ActionContinue:
	case domain.ActionReroute:
		err = w.applyReroute(e, d, now)
	case domain.ActionRefuel:
		err = w.applyRefuel(e, d, now)
	case domain.ActionAcceptLoad:
		err = w.applyAcceptLoad(e, d, now)
	case domain.ActionRejectLoad:
		err = w.applyRejectLoad(e, d, now)
	case domain.ActionStop:
		w.applyStop(e)
	}
	if err != nil {
		var re *rejection
		if errors.As(err, &re) {
			return w.reject(e, d, now, re.reason, re.err)
		}
		return w.reject(e, d, now, err.Error(), err)
	}

	rec := domain.DecisionRecord{Decision: d, Outcome: domain.OutcomeApplied, AppliedAt: now}
	w.record(e, rec)
	return rec.Clone(), nil
}

// rejection carries a human reason and the underlying cause out of an apply step.
type rejection struct {
	reason string
	err    error
}

func (r *rejection) Error() string { return r.reason }

func rejectf(cause error, format string, args ...any) error {
	return &rejection{reason: fmt.Sprintf(format, args...), err: cause}
}

func (w *World) reject(e *truckEntry, d domain.Decision, now time.Time, reason string, cause error) (domain.DecisionRecord, error) {
	rec := domain.DecisionRecord{Decision: d, Outcome: domain.OutcomeRejected, Reason: reason, AppliedAt: now}
	w.record(e, rec)
	w.emitTruckAt(e, now, domain.Event{
		Kind:    domain.EventDecisionRejected,
		NodeID:  e.truck.CurrentNode,
		LoadID:  loadTarget(d),
		Message: fmt.Sprintf("%s rejected: %s", d.Action, reason),
	})
	return rec.Clone(), &domain.ValidationError{TruckID: d.TruckID, Action: d.Action, Reason: reason, Err: cause}
}

func (w *World) record(e *truckEntry, rec domain.DecisionRecord) {
	e.history.push(rec)
	last := rec.Clone()
	e.truck.LastDecision = &last
}

func loadTarget(d domain.Decision) string {
	if d.Action.TargetsLoad() {
		return d.Target
	}
	return ""
}

// applyReroute puts an optional target node in front of the waypoints and replans.
// Committed pickups, deliveries and the pending fuel stop are kept.
func (w *World) applyReroute(e *truckEntry, d domain.Decision, now time.Time) error {
	next := e.truck.Clone()
	if d.Target != "" {
		if _, ok := w.net.Node(d.Target); !ok {
			return rejectf(domain.ErrUnknownNode, "reroute target %q is not a node", d.Target)
		}
		if len(next.Waypoints) == 0 || next.Waypoints[0] != d.Target {
			next.Waypoints = append([]string{d.Target}, next.Waypoints...)
		}
	}
	if err := w.replan(&next, nil); err != nil {
		return rejectf(err, "reroute: no viable route")
	}
	w.commit(e, next, now)
	return nil
}

// applyRefuel sends the truck to a fuel station, or starts refueling in place when it
// is already at one. A truck with an empty tank refuels where it stands.
func (w *World) applyRefuel(e *truckEntry, d domain.Decision, now time.Time) error {
	t := &e.truck
	switch {
	case t.Status == domain.TruckRefueling:
		return rejectf(nil, "already refueling")
	case t.FuelPercent >= 100:
		return rejectf(nil, "tank already full")
	}

	if t.FuelPercent <= 0 {
		t.FuelStation = ""
		t.Status = domain.TruckRefueling
		t.DwellSeconds = 0
		return nil
	}

	station := d.Target
	if station == "" {
		p, ok := w.net.NearestOfKind(t.Anchor(), domain.NodeFuelStation, w.traffic.weight)
		if !ok {
			return rejectf(nil, "no reachable fuel station")
		}
		station = p.Nodes[len(p.Nodes)-1]
	} else {
		node, ok := w.net.Node(station)
		if !ok {
			return rejectf(domain.ErrUnknownNode, "refuel target %q is not a node", station)
		}
		if node.Kind != domain.NodeFuelStation {
			return rejectf(nil, "refuel target %q is a %s, not a fuel station", station, node.Kind)
		}
	}

	next := t.Clone()
	next.FuelStation = station
	if !next.MidEdge() && next.CurrentNode == station {
		if next.Status != domain.TruckLoading {
			next.Status = domain.TruckRefueling
		}
		*t = next
		return nil
	}
	if err := w.replan(&next, nil); err != nil {
		return rejectf(err, "refuel: no route to %s", station)
	}
	w.commit(e, next, now)
	return nil
}

// applyAcceptLoad assigns an available load with a compare-and-set under the load's lock,
// so two trucks racing for the same load see exactly one success.
func (w *World) applyAcceptLoad(e *truckEntry, d domain.Decision, now time.Time) error {
	t := &e.truck
	le, ok := w.loadEntry(d.Target)
	if !ok {
		return rejectf(domain.ErrLoadNotFound, "load %s does not exist", d.Target)
	}
	if t.HasLoad(d.Target) {
		return rejectf(nil, "load %s already accepted", d.Target)
	}

	le.mu.Lock()
	l := le.load
	if l.Status != domain.LoadAvailable {
		le.mu.Unlock()
		return rejectf(nil, "load %s is %s", l.LoadID, l.Status)
	}
	if !t.CanCarry(l.Weight) {
		le.mu.Unlock()
		return rejectf(nil, "load %s weighs %.1f, only %.1f free", l.LoadID, l.Weight, t.CapacityFree())
	}

	next := t.Clone()
	next.AcceptedLoads = append(next.AcceptedLoads, l.LoadID)
	next.CapacityUsed += l.Weight
	l.Status = domain.LoadAssigned
	l.AssignedTo = t.TruckID
	if err := w.replan(&next, map[string]domain.Load{l.LoadID: l}); err != nil {
		le.mu.Unlock()
		return rejectf(err, "load %s unreachable", l.LoadID)
	}
	le.load.Status = domain.LoadAssigned
	le.load.AssignedTo = t.TruckID
	e.truck = next
	le.mu.Unlock()

	// Settling may pick the load up right here, which takes its lock again.
	w.settle(e, now)
	return nil
}

// applyRejectLoad declines an available load, or gives back one this truck accepted
// but has not picked up yet.
func (w *World) applyRejectLoad(e *truckEntry, d domain.Decision, now time.Time) error {
	t := &e.truck
	le, ok := w.loadEntry(d.Target)
	if !ok {
		return rejectf(domain.ErrLoadNotFound, "load %s does not exist", d.Target)
	}

	le.mu.Lock()
	l := &le.load
	switch {
	case l.Status == domain.LoadAvailable:
		le.mu.Unlock()
		return nil
	case l.Status == domain.LoadAssigned && l.AssignedTo == t.TruckID && !l.PickedUp:
		l.Status = domain.LoadAvailable
		l.AssignedTo = ""
		if i := slices.Index(t.AcceptedLoads, l.LoadID); i >= 0 {
			t.AcceptedLoads = slices.Delete(t.AcceptedLoads, i, i+1)
			t.CapacityUsed = max(t.BaseCargo, t.CapacityUsed-l.Weight)
		}
		le.mu.Unlock()
	case l.AssignedTo == t.TruckID && l.PickedUp:
		le.mu.Unlock()
		return rejectf(nil, "load %s is already on board", l.LoadID)
	default:
		status := l.Status
		le.mu.Unlock()
		return rejectf(nil, "load %s is %s to another truck", d.Target, status)
	}

	if t.Halted {
		t.Stops = slices.DeleteFunc(t.Stops, func(s domain.Stop) bool { return s.LoadID == d.Target })
		return nil
	}
	next := t.Clone()
	if err := w.replan(&next, nil); err != nil {
		// The remaining stops were planned before; keep the route and drop the released ones.
		t.Stops = slices.DeleteFunc(t.Stops, func(s domain.Stop) bool { return s.LoadID == d.Target })
		return nil
	}
	w.commit(e, next, now)
	return nil
}

// applyStop drops waypoints and planned route. A truck mid-edge finishes the edge it is on.
// Accepted loads stay committed and are resumed by the next REROUTE or ACCEPT_LOAD.
func (w *World) applyStop(e *truckEntry) {
	t := &e.truck
	t.Waypoints = nil
	t.Stops = nil
	if t.MidEdge() {
		t.Route = t.Route[:1]
	} else {
		t.Route = nil
	}
	if t.Status != domain.TruckRefueling {
		t.FuelStation = ""
	}
	if t.Status == domain.TruckEnRoute && len(t.Route) == 0 {
		t.Status = domain.TruckIdle
	}
	t.Halted = true
}

// commit installs a replanned truck and settles it at its current node.
func (w *World) commit(e *truckEntry, next domain.Truck, now time.Time) {
	e.truck = next
	w.settle(e, now)
}
