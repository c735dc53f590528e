package world

import (
	"errors"
	"fleet-agent-service/internal/config"
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/roadnet"
	"fmt"
	"math"
	"slices"
	"sync"
	"testing"
)

// testWorld builds a small map at 60 km/h, so one simulated minute covers one km:
//
//	A --10-- B --10-- C --10-- D
//	         |
//	         5
//	         |
//	         F (fuel)
//
// X is isolated.
func testWorld(t *testing.T) *World {
	t.Helper()

	net, err := roadnet.Build(roadnet.Definition{
		DefaultSpeedKph: 60,
		Nodes: []roadnet.NodeDef{
			{ID: "A", Kind: domain.NodeCity, Lat: 18.50, Lon: 73.80},
			{ID: "B", Kind: domain.NodeJunction, Lat: 18.55, Lon: 73.80},
			{ID: "C", Kind: domain.NodeWarehouse, Lat: 18.60, Lon: 73.80},
			{ID: "D", Kind: domain.NodeCity, Lat: 18.65, Lon: 73.80},
			{ID: "F", Kind: domain.NodeFuelStation, Lat: 18.55, Lon: 73.85},
			{ID: "X", Kind: domain.NodeCity, Lat: 19.50, Lon: 74.50},
		},
		Edges: []roadnet.EdgeDef{
			{From: "A", To: "B", DistanceKm: 10},
			{From: "B", To: "C", DistanceKm: 10},
			{From: "C", To: "D", DistanceKm: 10},
			{From: "B", To: "F", DistanceKm: 5},
		},
	})
	if err != nil {
		t.Fatalf("build network: %v", err)
	}

	tuning := config.DefaultTuning()
	tuning.Truck.FuelPercentPerKm = 1
	tuning.Truck.LoadingSeconds = 120
	tuning.Truck.LowFuelPercent = 15
	tuning.Truck.RefuelPercentPerMinute = 10
	return New(net, tuning)
}

func addTruck(t *testing.T, w *World, id string, fuel float64, waypoints ...string) {
	t.Helper()
	err := w.AddTruck(domain.TruckSpec{
		TruckID:       id,
		StartNode:     "A",
		Waypoints:     waypoints,
		FuelPercent:   fuel,
		CapacityTotal: 100,
	})
	if err != nil {
		t.Fatalf("add truck %s: %v", id, err)
	}
}

func submitLoad(t *testing.T, w *World, id, origin, dest string, weight float64) {
	t.Helper()
	if _, err := w.SubmitLoad(domain.Load{LoadID: id, Origin: origin, Destination: dest, Weight: weight, Profit: 500}); err != nil {
		t.Fatalf("submit load %s: %v", id, err)
	}
}

func truck(t *testing.T, w *World, id string) domain.TruckView {
	t.Helper()
	v, err := w.Truck(id)
	if err != nil {
		t.Fatalf("truck %s: %v", id, err)
	}
	return v
}

func apply(w *World, truckID string, action domain.Action, target string) (domain.DecisionRecord, error) {
	return w.ApplyDecision(domain.Decision{TruckID: truckID, Action: action, Target: target, Confidence: 0.9, Source: domain.SourceGateway})
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func countEvents(events []domain.Event, kind domain.EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestAddTruckPlansThroughWaypoints(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 80, "C")

	v := truck(t, w, "T1")
	if v.Status != domain.TruckEnRoute {
		t.Fatalf("status = %s, want EN_ROUTE", v.Status)
	}
	if !slices.Equal(v.Route, []string{"B", "C"}) {
		t.Fatalf("route = %v, want [B C]", v.Route)
	}
	if len(v.Stops) != 1 || v.Stops[0].Node != "C" || v.Stops[0].Kind != domain.StopWaypoint {
		t.Fatalf("stops = %+v, want waypoint C", v.Stops)
	}

	if err := w.AddTruck(domain.TruckSpec{TruckID: "T1", StartNode: "A", FuelPercent: 50, CapacityTotal: 10}); !errors.Is(err, domain.ErrDuplicateTruck) {
		t.Fatalf("duplicate add err = %v, want ErrDuplicateTruck", err)
	}
	if err := w.AddTruck(domain.TruckSpec{TruckID: "T2", StartNode: "A", Waypoints: []string{"X"}, FuelPercent: 50, CapacityTotal: 10}); err == nil {
		t.Fatalf("expected unreachable waypoint to fail")
	}
}

func TestTickMovesAndBurnsFuel(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 80, "C")

	w.Tick(300)
	v := truck(t, w, "T1")
	if v.CurrentNode != "A" || !approx(v.EdgeProgressKm, 5) || !approx(v.FuelPercent, 75) {
		t.Fatalf("after 5 min: node=%s progress=%.3f fuel=%.3f, want A 5 75", v.CurrentNode, v.EdgeProgressKm, v.FuelPercent)
	}
	if v.NextNode != "B" || !approx(v.Location.Lat, 18.525) {
		t.Fatalf("view next=%s lat=%.4f, want B 18.525", v.NextNode, v.Location.Lat)
	}

	w.Tick(900)
	v = truck(t, w, "T1")
	if v.CurrentNode != "C" || len(v.Route) != 0 || v.Status != domain.TruckIdle {
		t.Fatalf("after 20 km: node=%s route=%v status=%s, want idle at C", v.CurrentNode, v.Route, v.Status)
	}
	if !approx(v.FuelPercent, 60) {
		t.Fatalf("fuel = %.3f, want 60", v.FuelPercent)
	}
	if len(v.Waypoints) != 0 {
		t.Fatalf("waypoints = %v, want none left", v.Waypoints)
	}
	if countEvents(w.RecentEvents(0), domain.EventArrived) != 1 {
		t.Fatalf("expected exactly one ARRIVED event")
	}
	if got := w.Now().Sub(w.tuning.Simulation.Start).Seconds(); got != 1200 {
		t.Fatalf("clock advanced %.0fs, want 1200", got)
	}
}

func TestFuelNeverGoesNegativeAndStallsOnce(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 3, "D")

	w.Tick(3600)
	w.Tick(3600)

	v := truck(t, w, "T1")
	if v.FuelPercent != 0 {
		t.Fatalf("fuel = %v, want 0", v.FuelPercent)
	}
	if !approx(v.EdgeProgressKm, 3) || v.CurrentNode != "A" {
		t.Fatalf("stalled at %s +%.3f km, want A +3", v.CurrentNode, v.EdgeProgressKm)
	}
	if v.Status != domain.TruckEnRoute {
		t.Fatalf("status = %s, want EN_ROUTE while stalled", v.Status)
	}
	events := w.RecentEvents(0)
	if countEvents(events, domain.EventOutOfFuel) != 1 {
		t.Fatalf("OUT_OF_FUEL events = %d, want 1", countEvents(events, domain.EventOutOfFuel))
	}
	if countEvents(events, domain.EventLowFuel) != 0 {
		t.Fatalf("a truck starting below the threshold must not report a crossing")
	}

	if _, err := apply(w, "T1", domain.ActionRefuel, ""); err != nil {
		t.Fatalf("roadside refuel: %v", err)
	}
	if v = truck(t, w, "T1"); v.Status != domain.TruckRefueling {
		t.Fatalf("status = %s, want REFUELING", v.Status)
	}

	w.Tick(600)
	v = truck(t, w, "T1")
	if v.FuelPercent != 100 || v.Status != domain.TruckEnRoute {
		t.Fatalf("after refuel: fuel=%.1f status=%s, want 100 EN_ROUTE", v.FuelPercent, v.Status)
	}
	if !slices.Equal(v.Route, []string{"B", "C", "D"}) {
		t.Fatalf("route = %v, want the original route kept", v.Route)
	}
}

func TestLowFuelEventOnCrossing(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 17, "C")

	for i := 0; i < 5; i++ {
		w.Tick(60)
	}

	events := w.RecentEvents(0)
	if got := countEvents(events, domain.EventLowFuel); got != 1 {
		t.Fatalf("LOW_FUEL events = %d, want 1", got)
	}
	if v := truck(t, w, "T1"); !approx(v.FuelPercent, 12) {
		t.Fatalf("fuel = %.3f, want 12", v.FuelPercent)
	}
}

func TestConcurrentAcceptLoadHasOneWinner(t *testing.T) {
	for round := 0; round < 50; round++ {
		w := testWorld(t)
		addTruck(t, w, "T1", 90)
		addTruck(t, w, "T2", 90)
		submitLoad(t, w, "L1", "B", "C", 10)

		errs := make(map[string]error)
		var mu sync.Mutex
		var wg sync.WaitGroup
		start := make(chan struct{})
		for _, id := range []string{"T1", "T2"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				<-start
				_, err := apply(w, id, domain.ActionAcceptLoad, "L1")
				mu.Lock()
				errs[id] = err
				mu.Unlock()
			}(id)
		}
		close(start)
		wg.Wait()

		var winner, loser string
		for id, err := range errs {
			if err == nil {
				winner = id
			} else {
				loser = id
			}
		}
		if winner == "" || loser == "" {
			t.Fatalf("round %d: errs = %v, want exactly one success", round, errs)
		}
		var ve *domain.ValidationError
		if !errors.As(errs[loser], &ve) {
			t.Fatalf("round %d: loser err = %v, want ValidationError", round, errs[loser])
		}

		l, err := w.Load("L1")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if l.Status != domain.LoadAssigned || l.AssignedTo != winner {
			t.Fatalf("round %d: load = %+v, want assigned to %s", round, l, winner)
		}
		if v := truck(t, w, winner); !v.HasLoad("L1") || v.CapacityUsed != 10 {
			t.Fatalf("winner loads=%v used=%.1f", v.AcceptedLoads, v.CapacityUsed)
		}
		if v := truck(t, w, loser); v.HasLoad("L1") || v.CapacityUsed != 0 {
			t.Fatalf("loser loads=%v used=%.1f", v.AcceptedLoads, v.CapacityUsed)
		}
	}
}

func TestAcceptLoadOverCapacityIsRejected(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 90)
	submitLoad(t, w, "HEAVY", "B", "C", 150)

	before := truck(t, w, "T1")
	rec, err := apply(w, "T1", domain.ActionAcceptLoad, "HEAVY")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if rec.Outcome != domain.OutcomeRejected || rec.Reason == "" {
		t.Fatalf("record = %+v, want REJECTED with reason", rec)
	}

	after := truck(t, w, "T1")
	if after.CapacityUsed != before.CapacityUsed || len(after.AcceptedLoads) != 0 || after.Status != before.Status {
		t.Fatalf("truck changed by a rejected decision: %+v", after.Truck)
	}
	if l, _ := w.Load("HEAVY"); l.Status != domain.LoadAvailable {
		t.Fatalf("load status = %s, want AVAILABLE", l.Status)
	}
	if countEvents(w.RecentEvents(0), domain.EventDecisionRejected) != 1 {
		t.Fatalf("expected a DECISION_REJECTED event")
	}
	hist, _ := w.History("T1")
	if len(hist) != 1 || hist[0].Outcome != domain.OutcomeRejected {
		t.Fatalf("history = %+v", hist)
	}
}

func TestPickupAndDelivery(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 100)
	submitLoad(t, w, "L1", "B", "C", 10)

	if _, err := apply(w, "T1", domain.ActionAcceptLoad, "L1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	v := truck(t, w, "T1")
	if !slices.Equal(v.Route, []string{"B", "C"}) || v.Status != domain.TruckEnRoute {
		t.Fatalf("route=%v status=%s, want [B C] EN_ROUTE", v.Route, v.Status)
	}

	w.Tick(600)
	v = truck(t, w, "T1")
	if v.CurrentNode != "B" || v.Status != domain.TruckLoading {
		t.Fatalf("at pickup: node=%s status=%s, want B LOADING", v.CurrentNode, v.Status)
	}
	if l, _ := w.Load("L1"); !l.PickedUp {
		t.Fatalf("load not picked up")
	}

	w.Tick(120)
	if v = truck(t, w, "T1"); v.Status != domain.TruckEnRoute {
		t.Fatalf("after dwell status = %s, want EN_ROUTE", v.Status)
	}

	w.Tick(600)
	v = truck(t, w, "T1")
	if v.CurrentNode != "C" || v.Status != domain.TruckLoading {
		t.Fatalf("at delivery: node=%s status=%s", v.CurrentNode, v.Status)
	}
	if v.CapacityUsed != 0 || len(v.AcceptedLoads) != 0 {
		t.Fatalf("capacity not released: used=%.1f loads=%v", v.CapacityUsed, v.AcceptedLoads)
	}
	l, _ := w.Load("L1")
	if l.Status != domain.LoadDelivered || l.DeliveredAt == nil {
		t.Fatalf("load = %+v, want DELIVERED with timestamp", l)
	}

	w.Tick(120)
	if v = truck(t, w, "T1"); v.Status != domain.TruckIdle {
		t.Fatalf("final status = %s, want IDLE", v.Status)
	}
}

func TestAcceptLoadAtCurrentNodePicksUpImmediately(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 100)
	submitLoad(t, w, "L1", "A", "B", 10)

	if _, err := apply(w, "T1", domain.ActionAcceptLoad, "L1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	v := truck(t, w, "T1")
	if v.Status != domain.TruckLoading || !slices.Equal(v.Route, []string{"B"}) {
		t.Fatalf("status=%s route=%v, want LOADING with route [B]", v.Status, v.Route)
	}
	if l, _ := w.Load("L1"); !l.PickedUp {
		t.Fatalf("load should be on board")
	}
}

func TestDuplicateDecisionIsNotReapplied(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 100)
	submitLoad(t, w, "L1", "B", "C", 10)
	submitLoad(t, w, "L2", "B", "C", 10)

	d := domain.Decision{DecisionID: "d-1", TruckID: "T1", Action: domain.ActionAcceptLoad, Target: "L1", Confidence: 0.8}
	first, err := w.ApplyDecision(d)
	if err != nil || first.Outcome != domain.OutcomeApplied {
		t.Fatalf("first apply = %+v, %v", first, err)
	}

	// Same id, different payload: still treated as the same decision.
	d.Target = "L2"
	second, err := w.ApplyDecision(d)
	if err != nil {
		t.Fatalf("duplicate apply err = %v", err)
	}
	if second.Outcome != domain.OutcomeDuplicate || second.Decision.Target != "L1" {
		t.Fatalf("duplicate record = %+v", second)
	}

	v := truck(t, w, "T1")
	if v.CapacityUsed != 10 || len(v.AcceptedLoads) != 1 {
		t.Fatalf("decision applied twice: used=%.1f loads=%v", v.CapacityUsed, v.AcceptedLoads)
	}
	hist, _ := w.History("T1")
	if len(hist) != 1 {
		t.Fatalf("history length = %d, want 1", len(hist))
	}
}

func TestRejectLoadReleasesUnpickedLoad(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 100)
	submitLoad(t, w, "L1", "B", "C", 10)

	if _, err := apply(w, "T1", domain.ActionRejectLoad, "L1"); err != nil {
		t.Fatalf("reject available load: %v", err)
	}
	if _, err := apply(w, "T1", domain.ActionAcceptLoad, "L1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := apply(w, "T1", domain.ActionRejectLoad, "L1"); err != nil {
		t.Fatalf("release: %v", err)
	}

	v := truck(t, w, "T1")
	if v.CapacityUsed != 0 || v.HasLoad("L1") || len(v.Stops) != 0 || len(v.Route) != 0 {
		t.Fatalf("truck still holds the load: %+v", v.Truck)
	}
	l, _ := w.Load("L1")
	if l.Status != domain.LoadAvailable || l.AssignedTo != "" {
		t.Fatalf("load = %+v, want AVAILABLE", l)
	}

	if _, err := apply(w, "T1", domain.ActionRejectLoad, "NOPE"); !errors.Is(err, domain.ErrLoadNotFound) {
		t.Fatalf("unknown load err = %v, want ErrLoadNotFound", err)
	}
}

func TestRerouteKeepsCommittedStops(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 100, "C")
	w.Tick(300)

	if _, err := apply(w, "T1", domain.ActionReroute, "F"); err != nil {
		t.Fatalf("reroute: %v", err)
	}
	v := truck(t, w, "T1")
	if !slices.Equal(v.Route, []string{"B", "F", "B", "C"}) {
		t.Fatalf("route = %v, want [B F B C]", v.Route)
	}
	if !approx(v.EdgeProgressKm, 5) {
		t.Fatalf("progress reset to %.3f", v.EdgeProgressKm)
	}
	if v.FinalDestination() != "C" {
		t.Fatalf("final destination = %s, want C", v.FinalDestination())
	}

	before := v.Route
	if _, err := apply(w, "T1", domain.ActionReroute, "NOWHERE"); err == nil {
		t.Fatalf("expected unknown reroute target to be rejected")
	}
	if v = truck(t, w, "T1"); !slices.Equal(v.Route, before) {
		t.Fatalf("rejected reroute changed route to %v", v.Route)
	}
}

func TestRefuelAtNearestStation(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 50)

	if _, err := apply(w, "T1", domain.ActionRefuel, "C"); err == nil {
		t.Fatalf("expected refuel at a warehouse to be rejected")
	}
	if _, err := apply(w, "T1", domain.ActionRefuel, ""); err != nil {
		t.Fatalf("refuel: %v", err)
	}
	v := truck(t, w, "T1")
	if v.FuelStation != "F" || !slices.Equal(v.Route, []string{"B", "F"}) || !v.RefuelPending() {
		t.Fatalf("fuel station=%s route=%v", v.FuelStation, v.Route)
	}

	w.Tick(900)
	v = truck(t, w, "T1")
	if v.CurrentNode != "F" || v.Status != domain.TruckRefueling || !approx(v.FuelPercent, 35) {
		t.Fatalf("at station: node=%s status=%s fuel=%.2f", v.CurrentNode, v.Status, v.FuelPercent)
	}
	if _, err := apply(w, "T1", domain.ActionRefuel, ""); err == nil {
		t.Fatalf("expected refuel while refueling to be rejected")
	}

	w.Tick(390)
	v = truck(t, w, "T1")
	if v.FuelPercent != 100 || v.Status != domain.TruckIdle || v.FuelStation != "" {
		t.Fatalf("after refuel: fuel=%.2f status=%s station=%q", v.FuelPercent, v.Status, v.FuelStation)
	}
	if countEvents(w.RecentEvents(0), domain.EventRefueled) != 1 {
		t.Fatalf("expected one REFUELED event")
	}
	if _, err := apply(w, "T1", domain.ActionRefuel, ""); err == nil {
		t.Fatalf("expected refuel on a full tank to be rejected")
	}
}

func TestStopHaltsAfterCurrentEdge(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 100, "D")
	w.Tick(300)

	if _, err := apply(w, "T1", domain.ActionStop, ""); err != nil {
		t.Fatalf("stop: %v", err)
	}
	v := truck(t, w, "T1")
	if !v.Halted || !slices.Equal(v.Route, []string{"B"}) || len(v.Waypoints) != 0 {
		t.Fatalf("after stop: halted=%v route=%v waypoints=%v", v.Halted, v.Route, v.Waypoints)
	}

	w.Tick(600)
	v = truck(t, w, "T1")
	if v.CurrentNode != "B" || v.Status != domain.TruckIdle || !v.Halted {
		t.Fatalf("after edge: node=%s status=%s halted=%v", v.CurrentNode, v.Status, v.Halted)
	}

	if _, err := apply(w, "T1", domain.ActionReroute, "D"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if v = truck(t, w, "T1"); v.Halted || v.Status != domain.TruckEnRoute {
		t.Fatalf("after reroute: halted=%v status=%s", v.Halted, v.Status)
	}
}

func TestBlockedEdgeStopsMovement(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 100, "C")

	if err := w.ReportTraffic("A", "B", 0, "crash"); err != nil {
		t.Fatalf("report traffic: %v", err)
	}
	obs, err := w.Observe("T1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if countEvents(obs.RecentEvents, domain.EventTraffic) == 0 {
		t.Fatalf("truck on the blocked road was not told: %+v", obs.RecentEvents)
	}

	w.Tick(600)
	if v := truck(t, w, "T1"); v.EdgeProgressKm != 0 || v.CurrentNode != "A" {
		t.Fatalf("truck moved across a blocked edge: %+v", v.Truck)
	}

	_, err = apply(w, "T1", domain.ActionReroute, "")
	var np *domain.NoPathError
	if !errors.As(err, &np) {
		t.Fatalf("reroute err = %v, want NoPathError inside", err)
	}

	if err := w.ReportTraffic("A", "B", 0.5, ""); err != nil {
		t.Fatalf("clear traffic: %v", err)
	}
	w.Tick(600)
	if v := truck(t, w, "T1"); !approx(v.EdgeProgressKm, 5) {
		t.Fatalf("progress at half speed = %.3f, want 5", v.EdgeProgressKm)
	}

	if err := w.ReportTraffic("A", "C", 0.5, ""); err == nil {
		t.Fatalf("expected traffic on a missing edge to fail")
	}
}

func TestObserveNearbyLoadsAndFuel(t *testing.T) {
	w := testWorld(t)
	w.tuning.Observation.NearbyLoadRadiusKm = 10
	addTruck(t, w, "T1", 60)
	submitLoad(t, w, "NEAR", "B", "C", 10)
	submitLoad(t, w, "FAR", "D", "C", 10)

	obs, err := w.Observe("T1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if len(obs.NearbyLoads) != 1 || obs.NearbyLoads[0].Load.LoadID != "NEAR" {
		t.Fatalf("nearby = %+v, want only NEAR", obs.NearbyLoads)
	}
	if obs.NearestFuel == nil || obs.NearestFuel.NodeID != "F" || !approx(obs.NearestFuel.DistanceKm, 15) {
		t.Fatalf("nearest fuel = %+v, want F at 15 km", obs.NearestFuel)
	}
	if countEvents(obs.RecentEvents, domain.EventLoadAvailable) != 2 {
		t.Fatalf("events = %+v, want both LOAD_AVAILABLE events", obs.RecentEvents)
	}
	if !obs.Clock.Equal(w.Now()) {
		t.Fatalf("clock = %s, want %s", obs.Clock, w.Now())
	}

	if _, err := w.Observe("NOPE"); !errors.Is(err, domain.ErrTruckNotFound) {
		t.Fatalf("observe unknown err = %v", err)
	}
}

func TestSubmitLoadValidation(t *testing.T) {
	w := testWorld(t)
	submitLoad(t, w, "L1", "A", "C", 5)

	_, err := w.SubmitLoad(domain.Load{LoadID: "L1", Origin: "A", Destination: "B", Weight: 1})
	var dup *domain.DuplicateLoadError
	if !errors.As(err, &dup) || dup.LoadID != "L1" {
		t.Fatalf("err = %v, want DuplicateLoadError", err)
	}

	_, err = w.SubmitLoad(domain.Load{LoadID: "L2", Origin: "A", Destination: "MOON", Weight: 1})
	if !errors.Is(err, domain.ErrUnknownNode) {
		t.Fatalf("err = %v, want ErrUnknownNode", err)
	}

	_, err = w.SubmitLoad(domain.Load{LoadID: "L3", Origin: "A", Destination: "X", Weight: 1})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError for an unreachable destination", err)
	}
}

func TestRemoveTruckReleasesLoads(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 100)
	submitLoad(t, w, "L1", "B", "C", 10)
	if _, err := apply(w, "T1", domain.ActionAcceptLoad, "L1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	done := w.Done("T1")
	if err := w.RemoveTruck("T1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	select {
	case <-done:
	default:
		t.Fatalf("done channel not closed")
	}

	if l, _ := w.Load("L1"); l.Status != domain.LoadAvailable || l.AssignedTo != "" {
		t.Fatalf("load = %+v, want released", l)
	}
	if _, err := apply(w, "T1", domain.ActionContinue, ""); !errors.Is(err, domain.ErrTruckNotFound) {
		t.Fatalf("apply after removal err = %v, want ErrTruckNotFound", err)
	}
	if err := w.RemoveTruck("T1"); !errors.Is(err, domain.ErrTruckNotFound) {
		t.Fatalf("second remove err = %v", err)
	}
	if len(w.Snapshot().Trucks) != 0 {
		t.Fatalf("removed truck still in snapshot")
	}
}

func TestIdleTruckRetires(t *testing.T) {
	w := testWorld(t)
	w.tuning.Truck.RetireIdleAfterSeconds = 600
	addTruck(t, w, "T1", 100)

	w.Tick(300)
	if len(w.TruckIDs()) != 1 {
		t.Fatalf("retired too early")
	}
	w.Tick(300)
	if len(w.TruckIDs()) != 0 {
		t.Fatalf("idle truck not retired")
	}
}

func TestRetirementSkipsTruckPutBackToWork(t *testing.T) {
	w := testWorld(t)
	w.tuning.Truck.RetireIdleAfterSeconds = 600
	addTruck(t, w, "T1", 100)
	submitLoad(t, w, "L1", "B", "C", 10)

	// Due for retirement as of the last tick.
	e, _ := w.truckEntry("T1")
	e.mu.Lock()
	e.truck.IdleSeconds = 600
	e.mu.Unlock()

	if _, err := apply(w, "T1", domain.ActionAcceptLoad, "L1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if w.retire("T1") {
		t.Fatalf("truck retired right after accepting a load")
	}
	if v := truck(t, w, "T1"); !v.HasLoad("L1") {
		t.Fatalf("truck lost its load: %+v", v.Truck)
	}
	if l, _ := w.Load("L1"); l.Status != domain.LoadAssigned || l.AssignedTo != "T1" {
		t.Fatalf("load = %+v, want ASSIGNED to T1", l)
	}
}

func TestRemovedTruckIsUnlistedOnceDone(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 100)
	done := w.Done("T1")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-done
		if slices.Contains(w.TruckIDs(), "T1") {
			t.Errorf("T1 still listed after its done channel closed")
		}
	}()
	if err := w.RemoveTruck("T1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	wg.Wait()
}

func TestSnapshotNeverShowsHalfAppliedTick(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 100, "D")

	offset := map[string]float64{"A": 0, "B": 10, "C": 20, "D": 30}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			w.Tick(1)
		}
	}()

	prev := w.Now()
	for i := 0; i < 500; i++ {
		s := w.Snapshot()
		if s.Clock.Before(prev) {
			t.Fatalf("clock went backwards: %s after %s", s.Clock, prev)
		}
		prev = s.Clock

		v, ok := s.Truck("T1")
		if !ok {
			t.Fatalf("truck missing from snapshot")
		}
		traveled := offset[v.CurrentNode] + v.EdgeProgressKm
		if math.Abs(v.FuelPercent-(100-traveled)) > 1e-6 {
			t.Fatalf("snapshot %d: fuel %.6f does not match %.6f km traveled", i, v.FuelPercent, traveled)
		}
		if want := math.Min(30, s.Clock.Sub(w.start).Minutes()); math.Abs(traveled-want) > 1e-6 {
			t.Fatalf("snapshot %d: clock %s but %.6f km traveled, want %.6f", i, s.Clock.Sub(w.start), traveled, want)
		}
	}
	wg.Wait()

	if v := truck(t, w, "T1"); v.CurrentNode != "D" || !approx(v.FuelPercent, 70) {
		t.Fatalf("end: node=%s fuel=%.3f, want D 70", v.CurrentNode, v.FuelPercent)
	}
}

func TestObserveClockMatchesTruckState(t *testing.T) {
	w := testWorld(t)
	// Enough trucks that a tick is still walking the fleet while T299 is observed.
	for i := 0; i < 300; i++ {
		addTruck(t, w, fmt.Sprintf("T%03d", i), 100, "D")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			w.Tick(1)
		}
	}()

	for i := 0; i < 500; i++ {
		o, err := w.Observe("T299")
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		elapsed := o.Clock.Sub(w.start)
		if want := elapsed.Minutes(); math.Abs(o.Truck.EdgeProgressKm-want) > 1e-6 {
			t.Fatalf("observation %d: clock %s but truck traveled %.6f km, want %.6f", i, elapsed, o.Truck.EdgeProgressKm, want)
		}

		rec, err := apply(w, "T299", domain.ActionContinue, "")
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		if rec.AppliedAt.Before(o.Clock) {
			t.Fatalf("applied at %s, before the observed %s", rec.AppliedAt, o.Clock)
		}
	}
	wg.Wait()
}
