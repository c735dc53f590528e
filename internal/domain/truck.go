package domain

import (
	"fmt"
	"slices"
)

// TruckStatus is the physical state of a truck.
type TruckStatus string

const (
	TruckIdle      TruckStatus = "IDLE"
	TruckEnRoute   TruckStatus = "EN_ROUTE"
	TruckRefueling TruckStatus = "REFUELING"
	TruckLoading   TruckStatus = "LOADING"
)

// StopKind says why a truck stops at a node.
type StopKind string

const (
	StopWaypoint StopKind = "WAYPOINT"
	StopPickup   StopKind = "PICKUP"
	StopDelivery StopKind = "DELIVERY"
	StopFuel     StopKind = "FUEL"
)

// Stop is a committed node the route must pass through, in order.
type Stop struct {
	Node   string
	Kind   StopKind
	LoadID string
}

// TruckSpec describes a truck entering the fleet.
type TruckSpec struct {
	TruckID       string
	StartNode     string
	Waypoints     []string
	FuelPercent   float64
	CapacityTotal float64
	CapacityUsed  float64
}

// Validate checks the fields that do not depend on the road network.
func (s TruckSpec) Validate() error {
	if s.TruckID == "" {
		return fmt.Errorf("truck spec: id must be non-empty")
	}
	if s.StartNode == "" {
		return fmt.Errorf("truck spec %s: start node must be non-empty", s.TruckID)
	}
	if s.FuelPercent < 0 || s.FuelPercent > 100 {
		return fmt.Errorf("truck spec %s: fuel %.1f outside [0,100]", s.TruckID, s.FuelPercent)
	}
	if s.CapacityTotal <= 0 {
		return fmt.Errorf("truck spec %s: capacity must be positive", s.TruckID)
	}
	if s.CapacityUsed < 0 || s.CapacityUsed > s.CapacityTotal {
		return fmt.Errorf("truck spec %s: used capacity %.1f outside [0,%.1f]", s.TruckID, s.CapacityUsed, s.CapacityTotal)
	}
	return nil
}

// Truck aggregate. Owned by the world model; values handed out are copies.
//
// Route holds the nodes still to traverse and excludes CurrentNode.
// EdgeProgressKm is the distance already covered on the edge CurrentNode -> Route[0].
type Truck struct {
	TruckID        string
	CurrentNode    string
	EdgeProgressKm float64
	Route          []string
	Stops          []Stop
	Waypoints      []string
	FuelStation    string
	FuelPercent    float64
	CapacityTotal  float64
	BaseCargo      float64
	CapacityUsed   float64
	Status         TruckStatus
	AcceptedLoads  []string
	Halted         bool
	DwellSeconds   float64
	IdleSeconds    float64
	LastDecision   *DecisionRecord
}

// NewTruck builds an idle truck at its start node. Routes are planned by the world model.
func NewTruck(spec TruckSpec) *Truck {
	return &Truck{
		TruckID:       spec.TruckID,
		CurrentNode:   spec.StartNode,
		Waypoints:     slices.Clone(spec.Waypoints),
		FuelPercent:   spec.FuelPercent,
		CapacityTotal: spec.CapacityTotal,
		BaseCargo:     spec.CapacityUsed,
		CapacityUsed:  spec.CapacityUsed,
		Status:        TruckIdle,
	}
}

// MidEdge reports whether the truck is between CurrentNode and Route[0].
func (t *Truck) MidEdge() bool {
	return t.EdgeProgressKm > 0 && len(t.Route) > 0
}

// Anchor is the node new route legs start from: the next node when mid-edge, else the current node.
func (t *Truck) Anchor() string {
	if t.MidEdge() {
		return t.Route[0]
	}
	return t.CurrentNode
}

// FinalDestination returns the last route node, or the current node when the route is empty.
func (t *Truck) FinalDestination() string {
	if len(t.Route) == 0 {
		return t.CurrentNode
	}
	return t.Route[len(t.Route)-1]
}

// CapacityFree returns the remaining carrying capacity.
func (t *Truck) CapacityFree() float64 {
	return t.CapacityTotal - t.CapacityUsed
}

// CanCarry reports whether an extra weight fits without exceeding capacity.
func (t *Truck) CanCarry(weight float64) bool {
	return weight > 0 && t.CapacityUsed+weight <= t.CapacityTotal
}

// CapacityPercent returns used capacity as a percentage of the total.
func (t *Truck) CapacityPercent() float64 {
	if t.CapacityTotal <= 0 {
		return 0
	}
	return t.CapacityUsed / t.CapacityTotal * 100
}

// HasLoad reports whether loadID is among the accepted loads.
func (t *Truck) HasLoad(loadID string) bool {
	return slices.Contains(t.AcceptedLoads, loadID)
}

// RefuelPending reports whether the truck is refueling or has a fuel stop planned.
func (t *Truck) RefuelPending() bool {
	return t.Status == TruckRefueling || t.FuelStation != ""
}

// Clone returns a deep copy safe to hand outside the owning lock.
func (t *Truck) Clone() Truck {
	c := *t
	c.Route = slices.Clone(t.Route)
	c.Stops = slices.Clone(t.Stops)
	c.Waypoints = slices.Clone(t.Waypoints)
	c.AcceptedLoads = slices.Clone(t.AcceptedLoads)
	if t.LastDecision != nil {
		rec := t.LastDecision.Clone()
		c.LastDecision = &rec
	}
	return c
}
