package domain

import "time"

// TruckView is a truck copy enriched with values derived from the road network.
type TruckView struct {
	Truck
	Location   Coordinates
	NextNode   string
	EtaSeconds float64
}

// NearbyLoad is an available load close to the observing truck.
type NearbyLoad struct {
	Load       Load
	DistanceKm float64
}

// FuelStop is the nearest reachable fuel station.
type FuelStop struct {
	NodeID        string
	TravelSeconds float64
	DistanceKm    float64
}

// Observation is the read-only slice of the world one truck reasons about.
// It reflects a single instant for that truck.
type Observation struct {
	Truck        TruckView
	NearbyLoads  []NearbyLoad
	NearestFuel  *FuelStop
	RecentEvents []Event
	Clock        time.Time
}
