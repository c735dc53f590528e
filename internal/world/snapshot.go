package world

import (
	"fleet-agent-service/internal/domain"
	"fmt"
)

// snapshotEvents is how many fleet events a snapshot carries.
const snapshotEvents = 25

// Snapshot exports the world between two ticks: every truck reflects Clock and
// none is seen half-way through a tick.
func (w *World) Snapshot() domain.WorldState {
	w.tickMu.Lock()
	defer w.tickMu.Unlock()

	state := domain.WorldState{
		Clock: w.Now(),
		Tick:  w.Ticks(),
	}

	for _, e := range w.truckEntries() {
		e.mu.Lock()
		if !e.removed {
			state.Trucks = append(state.Trucks, w.view(&e.truck))
		}
		e.mu.Unlock()
	}
	state.Loads = w.Loads()
	state.RecentEvents = w.events.recent(snapshotEvents, nil)
	return state
}

// Loads returns a copy of every load ordered by id.
func (w *World) Loads() []domain.Load {
	entries := w.loadEntries()
	out := make([]domain.Load, 0, len(entries))
	for _, le := range entries {
		le.mu.Lock()
		out = append(out, le.load.Clone())
		le.mu.Unlock()
	}
	return out
}

// Load returns a copy of one load.
func (w *World) Load(loadID string) (domain.Load, error) {
	le, ok := w.loadEntry(loadID)
	if !ok {
		return domain.Load{}, fmt.Errorf("load %s: %w", loadID, domain.ErrLoadNotFound)
	}
	le.mu.Lock()
	defer le.mu.Unlock()
	return le.load.Clone(), nil
}

// Truck returns the current view of one truck.
func (w *World) Truck(truckID string) (domain.TruckView, error) {
	e, ok := w.truckEntry(truckID)
	if !ok {
		return domain.TruckView{}, fmt.Errorf("truck %s: %w", truckID, domain.ErrTruckNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return domain.TruckView{}, fmt.Errorf("truck %s: %w", truckID, domain.ErrTruckNotFound)
	}
	return w.view(&e.truck), nil
}

// SubmitLoad offers a new load to the fleet. Status, assignment and timestamps
// in the input are ignored.
func (w *World) SubmitLoad(l domain.Load) (domain.Load, error) {
	if err := l.Validate(); err != nil {
		return domain.Load{}, &domain.ValidationError{Reason: err.Error()}
	}
	for _, node := range []string{l.Origin, l.Destination} {
		if _, ok := w.net.Node(node); !ok {
			return domain.Load{}, &domain.ValidationError{Reason: fmt.Sprintf("load %s: node %q", l.LoadID, node), Err: domain.ErrUnknownNode}
		}
	}
	if l.Origin == l.Destination {
		return domain.Load{}, &domain.ValidationError{Reason: fmt.Sprintf("load %s: origin and destination are both %s", l.LoadID, l.Origin)}
	}
	if _, err := w.net.ShortestPath(l.Origin, l.Destination); err != nil {
		return domain.Load{}, &domain.ValidationError{Reason: fmt.Sprintf("load %s: destination unreachable", l.LoadID), Err: err}
	}

	l.Status = domain.LoadAvailable
	l.AssignedTo = ""
	l.PickedUp = false
	l.DeliveredAt = nil
	l.SubmittedAt = w.Now()

	w.mu.Lock()
	if _, ok := w.loads[l.LoadID]; ok {
		w.mu.Unlock()
		return domain.Load{}, &domain.DuplicateLoadError{LoadID: l.LoadID}
	}
	w.loads[l.LoadID] = &loadEntry{load: l}
	w.mu.Unlock()

	w.emit(domain.Event{
		Kind:    domain.EventLoadAvailable,
		LoadID:  l.LoadID,
		NodeID:  l.Origin,
		Message: fmt.Sprintf("load %s %s -> %s, %.1f units, profit %.0f", l.LoadID, l.Origin, l.Destination, l.Weight, l.Profit),
	})
	return l, nil
}

// SubmitOverride applies an operator decision on behalf of a truck.
func (w *World) SubmitOverride(truckID string, d domain.Decision) (domain.DecisionRecord, error) {
	d.TruckID = truckID
	d.Source = domain.SourceOverride
	if d.Rationale == "" {
		d.Rationale = "operator override"
	}
	if d.Confidence == 0 {
		d.Confidence = 1
	}
	return w.ApplyDecision(d)
}
