package domain

import "time"

// EventKind classifies world events.
type EventKind string

const (
	EventLowFuel          EventKind = "LOW_FUEL"
	EventOutOfFuel        EventKind = "OUT_OF_FUEL"
	EventArrived          EventKind = "ARRIVED"
	EventLoadAvailable    EventKind = "LOAD_AVAILABLE"
	EventLoadPickedUp     EventKind = "LOAD_PICKED_UP"
	EventLoadDelivered    EventKind = "LOAD_DELIVERED"
	EventRefueled         EventKind = "REFUELED"
	EventTraffic          EventKind = "TRAFFIC"
	EventDecisionRejected EventKind = "DECISION_REJECTED"
	EventTruckAdded       EventKind = "TRUCK_ADDED"
	EventTruckRemoved     EventKind = "TRUCK_REMOVED"
)

// Event is something that happened in the world at a simulated instant.
type Event struct {
	Seq     uint64
	At      time.Time
	Kind    EventKind
	TruckID string
	LoadID  string
	NodeID  string
	Message string
}
