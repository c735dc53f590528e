package dto

import (
	"fleet-agent-service/internal/domain"
	"math"
	"time"
)

type TruckResponse struct {
	TruckID         string            `json:"truck_id"`
	Status          string            `json:"status"`
	CurrentNode     string            `json:"current_node"`
	NextNode        string            `json:"next_node,omitempty"`
	Location        []float64         `json:"location"`
	Route           []string          `json:"route_nodes"`
	Waypoints       []string          `json:"waypoints"`
	FuelPercent     float64           `json:"fuel_percent"`
	FuelStation     string            `json:"fuel_station,omitempty"`
	CapacityTotal   float64           `json:"capacity_total"`
	CapacityUsed    float64           `json:"capacity_used"`
	CapacityPercent float64           `json:"capacity_used_percent"`
	AcceptedLoads   []string          `json:"accepted_loads"`
	Halted          bool              `json:"halted"`
	EtaMinutes      float64           `json:"eta_minutes"`
	LastDecision    *DecisionResponse `json:"last_decision,omitempty"`
}

type LoadResponse struct {
	LoadID      string     `json:"load_id"`
	Origin      string     `json:"origin"`
	Destination string     `json:"destination"`
	Weight      float64    `json:"weight"`
	Profit      float64    `json:"profit"`
	Status      string     `json:"status"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	PickedUp    bool       `json:"picked_up"`
	SubmittedAt time.Time  `json:"submitted_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
}

type EventResponse struct {
	Seq     uint64    `json:"seq"`
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	TruckID string    `json:"truck_id,omitempty"`
	LoadID  string    `json:"load_id,omitempty"`
	NodeID  string    `json:"node_id,omitempty"`
	Message string    `json:"message"`
}

type DecisionResponse struct {
	DecisionID string    `json:"decision_id"`
	TruckID    string    `json:"truck_id"`
	Action     string    `json:"action"`
	Target     string    `json:"target,omitempty"`
	Confidence float64   `json:"confidence"`
	Rationale  string    `json:"rationale"`
	Thoughts   []string  `json:"thoughts,omitempty"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	AppliedAt  time.Time `json:"applied_at"`
}

type StateResponse struct {
	Clock        time.Time       `json:"clock"`
	Tick         uint64          `json:"tick"`
	Trucks       []TruckResponse `json:"trucks"`
	Loads        []LoadResponse  `json:"loads"`
	RecentEvents []EventResponse `json:"recent_events"`
}

type ListLoadsResponse struct {
	Loads []LoadResponse `json:"loads"`
}

type ListDecisionsResponse struct {
	TruckID   string             `json:"truck_id"`
	Decisions []DecisionResponse `json:"decisions"`
}

type NearbyLoadResponse struct {
	LoadResponse
	DistanceKm float64 `json:"distance_km"`
}

type FuelStopResponse struct {
	NodeID     string  `json:"node_id"`
	Minutes    float64 `json:"minutes"`
	DistanceKm float64 `json:"distance_km"`
}

type ObservationResponse struct {
	Clock        time.Time            `json:"clock"`
	Truck        TruckResponse        `json:"truck"`
	NearbyLoads  []NearbyLoadResponse `json:"nearby_loads"`
	NearestFuel  *FuelStopResponse    `json:"nearest_fuel"`
	RecentEvents []EventResponse      `json:"recent_events"`
}

func FromWorldState(s domain.WorldState) StateResponse {
	res := StateResponse{
		Clock:        s.Clock,
		Tick:         s.Tick,
		Trucks:       make([]TruckResponse, 0, len(s.Trucks)),
		Loads:        FromLoads(s.Loads),
		RecentEvents: FromEvents(s.RecentEvents),
	}
	for _, t := range s.Trucks {
		res.Trucks = append(res.Trucks, FromTruck(t))
	}
	return res
}

func FromTruck(v domain.TruckView) TruckResponse {
	res := TruckResponse{
		TruckID:         v.TruckID,
		Status:          string(v.Status),
		CurrentNode:     v.CurrentNode,
		NextNode:        v.NextNode,
		Location:        v.Location.CoordsToList(),
		Route:           nonNil(v.Route),
		Waypoints:       nonNil(v.Waypoints),
		FuelPercent:     round1(v.FuelPercent),
		FuelStation:     v.FuelStation,
		CapacityTotal:   v.CapacityTotal,
		CapacityUsed:    v.CapacityUsed,
		CapacityPercent: round1(v.CapacityPercent()),
		AcceptedLoads:   nonNil(v.AcceptedLoads),
		Halted:          v.Halted,
		EtaMinutes:      round1(v.EtaSeconds / 60),
	}
	if v.LastDecision != nil {
		d := FromDecision(*v.LastDecision)
		res.LastDecision = &d
	}
	return res
}

func FromLoad(l domain.Load) LoadResponse {
	return LoadResponse{
		LoadID:      l.LoadID,
		Origin:      l.Origin,
		Destination: l.Destination,
		Weight:      l.Weight,
		Profit:      l.Profit,
		Status:      string(l.Status),
		AssignedTo:  l.AssignedTo,
		PickedUp:    l.PickedUp,
		SubmittedAt: l.SubmittedAt,
		DeliveredAt: l.DeliveredAt,
	}
}

func FromLoads(loads []domain.Load) []LoadResponse {
	res := make([]LoadResponse, 0, len(loads))
	for _, l := range loads {
		res = append(res, FromLoad(l))
	}
	return res
}

func FromEvents(events []domain.Event) []EventResponse {
	res := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		res = append(res, EventResponse{
			Seq:     ev.Seq,
			At:      ev.At,
			Kind:    string(ev.Kind),
			TruckID: ev.TruckID,
			LoadID:  ev.LoadID,
			NodeID:  ev.NodeID,
			Message: ev.Message,
		})
	}
	return res
}

func FromDecision(r domain.DecisionRecord) DecisionResponse {
	d := r.Decision
	return DecisionResponse{
		DecisionID: d.DecisionID,
		TruckID:    d.TruckID,
		Action:     string(d.Action),
		Target:     d.Target,
		Confidence: d.Confidence,
		Rationale:  d.Rationale,
		Thoughts:   d.Thoughts,
		Source:     string(d.Source),
		Timestamp:  d.Timestamp,
		Outcome:    string(r.Outcome),
		Reason:     r.Reason,
		AppliedAt:  r.AppliedAt,
	}
}

func FromObservation(o domain.Observation) ObservationResponse {
	res := ObservationResponse{
		Clock:        o.Clock,
		Truck:        FromTruck(o.Truck),
		NearbyLoads:  make([]NearbyLoadResponse, 0, len(o.NearbyLoads)),
		RecentEvents: FromEvents(o.RecentEvents),
	}
	for _, nl := range o.NearbyLoads {
		res.NearbyLoads = append(res.NearbyLoads, NearbyLoadResponse{LoadResponse: FromLoad(nl.Load), DistanceKm: round1(nl.DistanceKm)})
	}
	if f := o.NearestFuel; f != nil {
		res.NearestFuel = &FuelStopResponse{NodeID: f.NodeID, Minutes: round1(f.TravelSeconds / 60), DistanceKm: round1(f.DistanceKm)}
	}
	return res
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
