package world

import (
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/roadnet"
	"fmt"
	"slices"
	"strings"
	"sync"
)

type edgeKey struct{ from, to string }

// trafficOverlay scales edge speeds without touching the immutable network.
// A factor of 1 is free flow, values in (0,1) slow the edge down and 0 blocks it.
type trafficOverlay struct {
	mu      sync.RWMutex
	factors map[edgeKey]float64
}

func newTrafficOverlay() *trafficOverlay {
	return &trafficOverlay{factors: make(map[edgeKey]float64)}
}

func (o *trafficOverlay) factor(from, to string) float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if f, ok := o.factors[edgeKey{from, to}]; ok {
		return f
	}
	return 1
}

func (o *trafficOverlay) set(from, to string, factor float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if factor >= 1 {
		delete(o.factors, edgeKey{from, to})
		return
	}
	o.factors[edgeKey{from, to}] = factor
}

// weight is the traffic-aware edge cost used by every route search in the world.
func (o *trafficOverlay) weight(e domain.Edge) float64 {
	f := o.factor(e.From, e.To)
	if f <= 0 {
		return roadnet.Impassable
	}
	return e.TravelSeconds / f
}

// Traffic lists the edges currently slowed or blocked, ordered by edge.
func (w *World) Traffic() []domain.TrafficCondition {
	w.traffic.mu.RLock()
	out := make([]domain.TrafficCondition, 0, len(w.traffic.factors))
	for k, f := range w.traffic.factors {
		out = append(out, domain.TrafficCondition{From: k.from, To: k.to, Factor: f})
	}
	w.traffic.mu.RUnlock()

	slices.SortFunc(out, func(a, b domain.TrafficCondition) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	return out
}

// ReportTraffic sets the speed factor of the edge from -> to and notifies the trucks
// whose remaining route uses it. Routes are not replanned here; that is a REROUTE decision.
func (w *World) ReportTraffic(from, to string, factor float64, note string) error {
	if _, ok := w.net.Edge(from, to); !ok {
		return &domain.ValidationError{Reason: fmt.Sprintf("traffic: no edge %q -> %q", from, to), Err: domain.ErrUnknownNode}
	}
	if factor < 0 || factor > 1 {
		return &domain.ValidationError{Reason: fmt.Sprintf("traffic: factor %.2f outside [0,1]", factor)}
	}

	w.traffic.set(from, to, factor)

	msg := trafficMessage(from, to, factor, note)
	w.emit(domain.Event{Kind: domain.EventTraffic, NodeID: to, Message: msg})

	for _, e := range w.truckEntries() {
		e.mu.Lock()
		if !e.removed && routeUses(&e.truck, from, to) {
			w.emitTruck(e, domain.Event{Kind: domain.EventTraffic, NodeID: to, Message: msg})
		}
		e.mu.Unlock()
	}
	return nil
}

func trafficMessage(from, to string, factor float64, note string) string {
	var msg string
	switch {
	case factor <= 0:
		msg = fmt.Sprintf("road %s -> %s blocked", from, to)
	case factor >= 1:
		msg = fmt.Sprintf("road %s -> %s clear", from, to)
	default:
		msg = fmt.Sprintf("road %s -> %s slowed to %.0f%% speed", from, to, factor*100)
	}
	if note != "" {
		msg += ": " + note
	}
	return msg
}

// routeUses reports whether the truck's remaining path traverses from -> to.
func routeUses(t *domain.Truck, from, to string) bool {
	prev := t.CurrentNode
	for _, next := range t.Route {
		if prev == from && next == to {
			return true
		}
		prev = next
	}
	return false
}
