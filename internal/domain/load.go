package domain

import (
	"fmt"
	"time"
)

// LoadStatus is the lifecycle state of a load.
type LoadStatus string

const (
	LoadAvailable LoadStatus = "AVAILABLE"
	LoadAssigned  LoadStatus = "ASSIGNED"
	LoadDelivered LoadStatus = "DELIVERED"
)

// Represents a single unit of freight offered to the fleet.
// A Load is assigned to at most one truck at a time; AssignedTo must name a truck
// whose AcceptedLoads contains the load while the load is ASSIGNED.
type Load struct {
	LoadID      string
	Origin      string
	Destination string
	Weight      float64
	Profit      float64
	Status      LoadStatus
	AssignedTo  string
	PickedUp    bool
	SubmittedAt time.Time
	DeliveredAt *time.Time
}

// Validate checks the fields a submitted load must carry.
func (l Load) Validate() error {
	if l.LoadID == "" {
		return fmt.Errorf("load: id must be non-empty")
	}
	if l.Origin == "" || l.Destination == "" {
		return fmt.Errorf("load %s: origin and destination must be non-empty", l.LoadID)
	}
	if l.Weight <= 0 {
		return fmt.Errorf("load %s: weight must be positive", l.LoadID)
	}
	return nil
}

// Clone returns a copy that shares no pointers with l.
func (l Load) Clone() Load {
	if l.DeliveredAt != nil {
		at := *l.DeliveredAt
		l.DeliveredAt = &at
	}
	return l
}
