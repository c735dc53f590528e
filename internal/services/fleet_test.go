package services

import (
	"context"
	"fleet-agent-service/internal/adapters/reasoning"
	"fleet-agent-service/internal/domain"
	"sync/atomic"
	"testing"
	"time"
)

// leavingWorld still lists T1 while its done channel is already closed,
// as seen by a loop exiting in the middle of a removal.
type leavingWorld struct {
	doneCalls atomic.Int32
}

func (w *leavingWorld) Observe(string) (domain.Observation, error) {
	return domain.Observation{}, domain.ErrTruckNotFound
}

func (w *leavingWorld) ApplyDecision(domain.Decision) (domain.DecisionRecord, error) {
	return domain.DecisionRecord{}, domain.ErrTruckNotFound
}

func (w *leavingWorld) Done(string) <-chan struct{} {
	w.doneCalls.Add(1)
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (w *leavingWorld) TruckIDs() []string               { return []string{"T1"} }
func (w *leavingWorld) AddTruck(domain.TruckSpec) error { return nil }
func (w *leavingWorld) RemoveTruck(string) error        { return nil }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFleetRunsLoopsForInitialAndAddedTrucks(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 80)

	f := NewFleet(w, testDeps(w, reasoning.NewScriptedGateway()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	waitFor(t, "first loop", func() bool { return f.Running() == 1 })

	err := f.AddTruck(domain.TruckSpec{TruckID: "T2", StartNode: "B", FuelPercent: 50, CapacityTotal: 40})
	if err != nil {
		t.Fatalf("add truck: %v", err)
	}
	waitFor(t, "second loop", func() bool { return f.Running() == 2 })
	waitFor(t, "T2 decisions", func() bool {
		h, _ := w.History("T2")
		return len(h) > 0
	})

	if err := f.RemoveTruck("T1"); err != nil {
		t.Fatalf("remove truck: %v", err)
	}
	waitFor(t, "T1 loop exit", func() bool { return f.Running() == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("fleet did not stop")
	}
	if f.Running() != 0 {
		t.Fatalf("running = %d after stop, want 0", f.Running())
	}
}

func TestFleetAddTruckRejectsDuplicates(t *testing.T) {
	w := testWorld(t)
	addTruck(t, w, "T1", 80)

	f := NewFleet(w, testDeps(w, reasoning.NewScriptedGateway()))
	err := f.AddTruck(domain.TruckSpec{TruckID: "T1", StartNode: "A", FuelPercent: 50, CapacityTotal: 40})
	if err == nil {
		t.Fatalf("expected duplicate truck to fail")
	}
}

func TestTickDriverAdvancesWorld(t *testing.T) {
	w := testWorld(t)
	start := w.Now()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunTickDriver(ctx, w, time.Millisecond, 30) }()

	waitFor(t, "ticks", func() bool { return w.Ticks() >= 3 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("driver err = %v", err)
	}

	if got, want := w.Now().Sub(start), time.Duration(w.Ticks())*30*time.Second; got != want {
		t.Fatalf("clock advanced %s, want %s", got, want)
	}
	if err := RunTickDriver(context.Background(), w, 0, 30); err == nil {
		t.Fatalf("expected zero interval to fail")
	}
}

func TestFleetDoesNotRestartLoopOfLeavingTruck(t *testing.T) {
	lw := &leavingWorld{}
	f := NewFleet(lw, LoopDeps{Gateway: reasoning.NewScriptedGateway(), Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- f.Run(ctx) }()

	waitFor(t, "loop to exit", func() bool { return lw.doneCalls.Load() >= 2 && f.Running() == 0 })
	time.Sleep(20 * time.Millisecond)
	// One call when the loop starts, one when its exit checks for a re-added truck.
	if n := lw.doneCalls.Load(); n != 2 {
		t.Fatalf("done checked %d times, want 2", n)
	}

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("run: %v", err)
	}
}
