package world

import (
	"fleet-agent-service/internal/domain"
	"slices"
	"testing"
)

func TestLoadStopsFollowNearestNeighbor(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 100)
	submitLoad(t, w, "FAR", "C", "D", 10)
	submitLoad(t, w, "NEAR", "B", "C", 10)

	for _, id := range []string{"FAR", "NEAR"} {
		if _, err := apply(w, "T1", domain.ActionAcceptLoad, id); err != nil {
			t.Fatalf("accept %s: %v", id, err)
		}
	}

	v := truck(t, w, "T1")
	want := []domain.Stop{
		{Node: "B", Kind: domain.StopPickup, LoadID: "NEAR"},
		{Node: "C", Kind: domain.StopPickup, LoadID: "FAR"},
		{Node: "C", Kind: domain.StopDelivery, LoadID: "NEAR"},
		{Node: "D", Kind: domain.StopDelivery, LoadID: "FAR"},
	}
	if !slices.Equal(v.Stops, want) {
		t.Fatalf("stops = %+v, want %+v", v.Stops, want)
	}
	if !slices.Equal(v.Route, []string{"B", "C", "D"}) {
		t.Fatalf("route = %v, want [B C D]", v.Route)
	}
}

func TestSequenceKeepsPickupBeforeDelivery(t *testing.T) {
	w := testWorld(t)

	// The delivery at B is closest to A but must wait for the pickup at D.
	stops := []domain.Stop{
		{Node: "D", Kind: domain.StopPickup, LoadID: "L1"},
		{Node: "B", Kind: domain.StopDelivery, LoadID: "L1"},
		{Node: "C", Kind: domain.StopDelivery, LoadID: "L2"},
	}
	got := w.sequenceLoadStops("A", stops)

	want := []domain.Stop{stops[2], stops[0], stops[1]}
	if !slices.Equal(got, want) {
		t.Fatalf("sequence = %+v, want %+v", got, want)
	}
}
