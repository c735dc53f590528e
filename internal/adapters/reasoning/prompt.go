package reasoning

import (
	"encoding/json"
	"fleet-agent-service/internal/domain"
	"fmt"
	"math"
	"time"
)

// PromptLimits bound the observation summary sent to the reasoning backend.
type PromptLimits struct {
	MaxBytes  int
	MaxLoads  int
	MaxEvents int
	MaxRoute  int
}

type promptLoad struct {
	ID          string  `json:"id"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Weight      float64 `json:"weight"`
	Profit      float64 `json:"profit"`
	DistanceKm  float64 `json:"distance_km"`
}

type promptFuel struct {
	Node       string  `json:"node"`
	Minutes    float64 `json:"minutes"`
	DistanceKm float64 `json:"distance_km"`
}

type promptEvent struct {
	Kind    string `json:"kind"`
	Node    string `json:"node,omitempty"`
	Load    string `json:"load,omitempty"`
	Message string `json:"message"`
}

type promptSummary struct {
	TruckID        string        `json:"truck_id"`
	Clock          string        `json:"clock"`
	Status         string        `json:"status"`
	Location       [2]float64    `json:"location"`
	CurrentNode    string        `json:"current_node"`
	NextNode       string        `json:"next_node,omitempty"`
	Destination    string        `json:"destination"`
	EtaMinutes     float64       `json:"eta_minutes"`
	FuelPercent    float64       `json:"fuel_percent"`
	CapacityUsed   float64       `json:"capacity_used"`
	CapacityTotal  float64       `json:"capacity_total"`
	Halted         bool          `json:"halted,omitempty"`
	RefuelPending  bool          `json:"refuel_pending,omitempty"`
	RouteRemaining []string      `json:"route_remaining"`
	RouteOmitted   int           `json:"route_omitted,omitempty"`
	AcceptedLoads  []string      `json:"accepted_loads"`
	NearbyLoads    []promptLoad  `json:"nearby_loads"`
	NearestFuel    *promptFuel   `json:"nearest_fuel,omitempty"`
	RecentEvents   []promptEvent `json:"recent_events"`
}

// BuildSummary renders the observation as compact JSON for the prompt.
// Nearby loads, then the oldest events, then the route tail are dropped until the
// summary fits MaxBytes; the truck's own state is always kept.
func BuildSummary(o domain.Observation, lim PromptLimits) ([]byte, error) {
	t := o.Truck
	s := promptSummary{
		TruckID:       t.TruckID,
		Clock:         o.Clock.UTC().Format(time.RFC3339),
		Status:        string(t.Status),
		Location:      [2]float64{round(t.Location.Lat, 5), round(t.Location.Lon, 5)},
		CurrentNode:   t.CurrentNode,
		NextNode:      t.NextNode,
		Destination:   t.FinalDestination(),
		EtaMinutes:    round(t.EtaSeconds/60, 1),
		FuelPercent:   round(t.FuelPercent, 1),
		CapacityUsed:  t.CapacityUsed,
		CapacityTotal: t.CapacityTotal,
		Halted:        t.Halted,
		RefuelPending: t.RefuelPending(),
		AcceptedLoads: append([]string{}, t.AcceptedLoads...),
	}

	route := t.Route
	if lim.MaxRoute > 0 && len(route) > lim.MaxRoute {
		s.RouteOmitted = len(route) - lim.MaxRoute
		route = route[:lim.MaxRoute]
	}
	s.RouteRemaining = append([]string{}, route...)

	loads := o.NearbyLoads
	if lim.MaxLoads > 0 && len(loads) > lim.MaxLoads {
		loads = loads[:lim.MaxLoads]
	}
	s.NearbyLoads = make([]promptLoad, 0, len(loads))
	for _, nl := range loads {
		s.NearbyLoads = append(s.NearbyLoads, promptLoad{
			ID:          nl.Load.LoadID,
			Origin:      nl.Load.Origin,
			Destination: nl.Load.Destination,
			Weight:      nl.Load.Weight,
			Profit:      nl.Load.Profit,
			DistanceKm:  round(nl.DistanceKm, 1),
		})
	}

	if f := o.NearestFuel; f != nil {
		s.NearestFuel = &promptFuel{Node: f.NodeID, Minutes: round(f.TravelSeconds/60, 1), DistanceKm: round(f.DistanceKm, 1)}
	}

	events := o.RecentEvents
	if lim.MaxEvents > 0 && len(events) > lim.MaxEvents {
		events = events[len(events)-lim.MaxEvents:]
	}
	s.RecentEvents = make([]promptEvent, 0, len(events))
	for _, ev := range events {
		s.RecentEvents = append(s.RecentEvents, promptEvent{Kind: string(ev.Kind), Node: ev.NodeID, Load: ev.LoadID, Message: ev.Message})
	}

	for {
		b, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("build summary: %w", err)
		}
		if lim.MaxBytes <= 0 || len(b) <= lim.MaxBytes {
			return b, nil
		}

		switch {
		case len(s.NearbyLoads) > 0:
			s.NearbyLoads = s.NearbyLoads[:len(s.NearbyLoads)-1]
		case len(s.RecentEvents) > 0:
			s.RecentEvents = s.RecentEvents[1:]
		case len(s.RouteRemaining) > 1:
			s.RouteOmitted += len(s.RouteRemaining) - 1
			s.RouteRemaining = s.RouteRemaining[:1]
		default:
			return nil, fmt.Errorf("build summary: %d bytes exceed the %d byte limit", len(b), lim.MaxBytes)
		}
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
