// Package world holds the shared, mutable state of the simulation: trucks, loads,
// the simulated clock and the event log.
//
// Locking discipline:
//   - each truck and each load has its own mutex;
//   - the registry lock only guards the truck and load maps and is never held
//     while waiting for a truck lock;
//   - lock order is truck -> load -> event log / traffic overlay;
//   - the clock is atomic and Tick callers are serialized by tickMu, which
//     Observe and ApplyDecision never take;
//   - each truck carries the instant its state reflects (asOf), so a reader
//     never pairs a truck with a clock from a tick it has not seen yet.
package world

import (
	"fleet-agent-service/internal/config"
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/roadnet"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// World is the single source of truth for dynamic state.
type World struct {
	net    *roadnet.Network
	tuning config.Tuning
	start  time.Time

	elapsed atomic.Int64
	ticks   atomic.Uint64
	tickMu  sync.Mutex

	mu     sync.RWMutex
	trucks map[string]*truckEntry
	loads  map[string]*loadEntry

	events  *eventLog
	traffic *trafficOverlay
	newID   func() string
}

type truckEntry struct {
	mu      sync.Mutex
	truck   domain.Truck
	history history[domain.DecisionRecord]
	events  history[domain.Event]
	asOf    time.Time
	removed bool
	stalled bool
	done    chan struct{}
}

type loadEntry struct {
	mu   sync.Mutex
	load domain.Load
}

// New creates an empty world over an immutable road network.
func New(net *roadnet.Network, tuning config.Tuning) *World {
	return &World{
		net:     net,
		tuning:  tuning,
		start:   tuning.Simulation.Start,
		trucks:  make(map[string]*truckEntry),
		loads:   make(map[string]*loadEntry),
		events:  newEventLog(tuning.Simulation.EventLimit),
		traffic: newTrafficOverlay(),
		newID:   uuid.NewString,
	}
}

// Network returns the road network the world runs on.
func (w *World) Network() *roadnet.Network { return w.net }

// Now returns the simulated clock.
func (w *World) Now() time.Time {
	return w.start.Add(time.Duration(w.elapsed.Load()))
}

// Ticks returns the number of ticks applied so far.
func (w *World) Ticks() uint64 { return w.ticks.Load() }

// AddTruck registers a truck and plans its route through its waypoints.
func (w *World) AddTruck(spec domain.TruckSpec) error {
	if err := spec.Validate(); err != nil {
		return &domain.ValidationError{Reason: err.Error()}
	}
	if _, ok := w.net.Node(spec.StartNode); !ok {
		return fmt.Errorf("add truck %s: start node %q: %w", spec.TruckID, spec.StartNode, domain.ErrUnknownNode)
	}
	for _, wp := range spec.Waypoints {
		if _, ok := w.net.Node(wp); !ok {
			return fmt.Errorf("add truck %s: waypoint %q: %w", spec.TruckID, wp, domain.ErrUnknownNode)
		}
	}

	e := &truckEntry{
		truck:   *domain.NewTruck(spec),
		history: newHistory[domain.DecisionRecord](w.tuning.Agent.HistoryLimit),
		events:  newHistory[domain.Event](w.tuning.Agent.EventLimit),
		done:    make(chan struct{}),
	}
	if err := w.replan(&e.truck, nil); err != nil {
		return fmt.Errorf("add truck %s: %w", spec.TruckID, err)
	}
	w.settle(e, w.Now())

	// Registering between ticks pins asOf to a clock the truck will be advanced from.
	w.tickMu.Lock()
	w.mu.Lock()
	if _, ok := w.trucks[spec.TruckID]; ok {
		w.mu.Unlock()
		w.tickMu.Unlock()
		return fmt.Errorf("add truck %s: %w", spec.TruckID, domain.ErrDuplicateTruck)
	}
	e.asOf = w.Now()
	w.trucks[spec.TruckID] = e
	w.mu.Unlock()
	w.tickMu.Unlock()

	e.mu.Lock()
	w.emitTruckAt(e, e.asOf, domain.Event{Kind: domain.EventTruckAdded, NodeID: spec.StartNode, Message: "joined the fleet"})
	e.mu.Unlock()
	return nil
}

// RemoveTruck takes a truck out of the fleet. Its undelivered loads become available
// again (picked-up cargo is dropped at the truck's current node) and Done(id) is closed.
func (w *World) RemoveTruck(truckID string) error {
	_, err := w.removeIf(truckID, nil)
	return err
}

// removeIf removes the truck when due is nil or reports true, deciding under the
// truck lock. It returns whether the truck was removed.
func (w *World) removeIf(truckID string, due func(*domain.Truck) bool) (bool, error) {
	e, ok := w.truckEntry(truckID)
	if !ok {
		return false, fmt.Errorf("remove truck %s: %w", truckID, domain.ErrTruckNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false, fmt.Errorf("remove truck %s: %w", truckID, domain.ErrTruckNotFound)
	}
	t := &e.truck
	if due != nil && !due(t) {
		return false, nil
	}
	for _, id := range t.AcceptedLoads {
		le, ok := w.loadEntry(id)
		if !ok {
			continue
		}
		le.mu.Lock()
		if le.load.AssignedTo == truckID {
			if le.load.PickedUp {
				le.load.Origin = t.CurrentNode
			}
			le.load.Status = domain.LoadAvailable
			le.load.AssignedTo = ""
			le.load.PickedUp = false
		}
		le.mu.Unlock()
	}
	t.AcceptedLoads = nil
	e.removed = true

	// Unregister before closing done, so a watcher of done never finds the id still listed.
	w.mu.Lock()
	delete(w.trucks, truckID)
	w.mu.Unlock()
	close(e.done)

	w.emitTruck(e, domain.Event{Kind: domain.EventTruckRemoved, NodeID: t.CurrentNode, Message: "left the fleet"})
	return true, nil
}

// Done returns a channel closed when the truck leaves the fleet.
// Unknown trucks yield an already closed channel.
func (w *World) Done(truckID string) <-chan struct{} {
	if e, ok := w.truckEntry(truckID); ok {
		return e.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// TruckIDs returns the ids of the trucks in the fleet, sorted.
func (w *World) TruckIDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.trucks))
	for id := range w.trucks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// History returns the truck's decision history, oldest first.
func (w *World) History(truckID string) ([]domain.DecisionRecord, error) {
	e, ok := w.truckEntry(truckID)
	if !ok {
		return nil, fmt.Errorf("history %s: %w", truckID, domain.ErrTruckNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	items := e.history.items()
	for i := range items {
		items[i] = items[i].Clone()
	}
	return items, nil
}

func (w *World) truckEntry(id string) (*truckEntry, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.trucks[id]
	return e, ok
}

func (w *World) loadEntry(id string) (*loadEntry, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	le, ok := w.loads[id]
	return le, ok
}

// truckEntries returns the registered trucks ordered by id.
func (w *World) truckEntries() []*truckEntry {
	w.mu.RLock()
	ids := make([]string, 0, len(w.trucks))
	for id := range w.trucks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*truckEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, w.trucks[id])
	}
	w.mu.RUnlock()
	return out
}

// loadEntries returns the registered loads ordered by id.
func (w *World) loadEntries() []*loadEntry {
	w.mu.RLock()
	out := make([]*loadEntry, 0, len(w.loads))
	for _, le := range w.loads {
		out = append(out, le)
	}
	w.mu.RUnlock()
	slices.SortFunc(out, func(a, b *loadEntry) int { return strings.Compare(a.load.LoadID, b.load.LoadID) })
	return out
}

// history is a bounded most-recent-N list.
type history[T any] struct {
	limit int
	buf   []T
}

func newHistory[T any](limit int) history[T] {
	if limit <= 0 {
		limit = 1
	}
	return history[T]{limit: limit}
}

func (h *history[T]) push(v T) {
	h.buf = append(h.buf, v)
	if len(h.buf) > h.limit {
		h.buf = slices.Clone(h.buf[len(h.buf)-h.limit:])
	}
}

func (h *history[T]) items() []T { return slices.Clone(h.buf) }
