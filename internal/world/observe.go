package world

import (
	"cmp"
	"fleet-agent-service/internal/domain"
	"fmt"
	"slices"
	"strings"
)

// Observe returns what one truck can see. The truck part is copied under the truck's
// lock and Clock is the instant that copy reflects; loads and fleet events are read
// afterwards and may be slightly newer.
func (w *World) Observe(truckID string) (domain.Observation, error) {
	e, ok := w.truckEntry(truckID)
	if !ok {
		return domain.Observation{}, fmt.Errorf("observe %s: %w", truckID, domain.ErrTruckNotFound)
	}

	e.mu.Lock()
	if e.removed {
		e.mu.Unlock()
		return domain.Observation{}, fmt.Errorf("observe %s: %w", truckID, domain.ErrTruckNotFound)
	}
	clock := e.asOf
	view := w.view(&e.truck)
	own := e.events.items()
	e.mu.Unlock()

	obs := domain.Observation{
		Truck:        view,
		NearbyLoads:  w.nearbyLoads(view.Location),
		RecentEvents: w.mergeEvents(own),
		Clock:        clock,
	}
	if p, ok := w.net.NearestOfKind(view.Anchor(), domain.NodeFuelStation, w.traffic.weight); ok {
		obs.NearestFuel = &domain.FuelStop{
			NodeID:        p.Nodes[len(p.Nodes)-1],
			TravelSeconds: p.Cost,
			DistanceKm:    p.DistanceKm,
		}
	}
	return obs, nil
}

// view copies a truck and derives its map position and remaining travel time.
// Caller holds the truck lock.
func (w *World) view(t *domain.Truck) domain.TruckView {
	v := domain.TruckView{Truck: t.Clone()}

	cur, _ := w.net.Node(t.CurrentNode)
	v.Location = cur.Coords
	if len(t.Route) == 0 {
		v.EtaSeconds = t.DwellSeconds
		return v
	}

	v.NextNode = t.Route[0]
	prev := t.CurrentNode
	for i, next := range t.Route {
		edge, ok := w.net.Edge(prev, next)
		if !ok {
			break
		}
		secs := edge.TravelSeconds
		if i == 0 {
			frac := t.EdgeProgressKm / edge.DistanceKm
			if to, ok := w.net.Node(next); ok {
				v.Location = cur.Coords.Interpolate(to.Coords, frac)
			}
			secs *= 1 - frac
		}
		if f := w.traffic.factor(prev, next); f > 0 {
			secs /= f
		}
		v.EtaSeconds += secs
		prev = next
	}
	v.EtaSeconds += t.DwellSeconds
	return v
}

func (w *World) nearbyLoads(at domain.Coordinates) []domain.NearbyLoad {
	radius := w.tuning.Observation.NearbyLoadRadiusKm

	var out []domain.NearbyLoad
	for _, le := range w.loadEntries() {
		le.mu.Lock()
		l := le.load.Clone()
		le.mu.Unlock()
		if l.Status != domain.LoadAvailable {
			continue
		}
		origin, ok := w.net.Node(l.Origin)
		if !ok {
			continue
		}
		if d := at.DistanceKm(origin.Coords); d <= radius {
			out = append(out, domain.NearbyLoad{Load: l, DistanceKm: d})
		}
	}

	slices.SortStableFunc(out, func(a, b domain.NearbyLoad) int {
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		return strings.Compare(a.Load.LoadID, b.Load.LoadID)
	})
	if limit := w.tuning.Observation.MaxNearbyLoads; limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// mergeEvents combines a truck's own events with fleet-wide news (new loads, traffic)
// and keeps the newest few in sequence order.
func (w *World) mergeEvents(own []domain.Event) []domain.Event {
	limit := w.tuning.Observation.MaxEvents
	fleet := w.events.recent(limit, func(ev domain.Event) bool {
		return ev.TruckID == "" && (ev.Kind == domain.EventLoadAvailable || ev.Kind == domain.EventTraffic)
	})

	all := append(own, fleet...)
	slices.SortFunc(all, func(a, b domain.Event) int { return cmp.Compare(a.Seq, b.Seq) })
	all = slices.CompactFunc(all, func(a, b domain.Event) bool { return a.Seq == b.Seq })
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all
}
