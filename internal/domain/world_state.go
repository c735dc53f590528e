package domain

import "time"

// WorldState is an immutable point-in-time export of the world model.
type WorldState struct {
	Clock        time.Time
	Tick         uint64
	Trucks       []TruckView
	Loads        []Load
	RecentEvents []Event
}

// Truck returns the view of truckID, if present.
func (s WorldState) Truck(truckID string) (TruckView, bool) {
	for _, t := range s.Trucks {
		if t.TruckID == truckID {
			return t, true
		}
	}
	return TruckView{}, false
}
