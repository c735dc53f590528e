package services

import (
	"context"
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/ports"
	"fmt"
	"log"
	"sync"
)

// Fleet supervises one agent loop per truck, including trucks added while it runs.
type Fleet struct {
	world ports.FleetWorld
	deps  LoopDeps

	mu      sync.Mutex
	ctx     context.Context
	running map[string]bool
	wg      sync.WaitGroup
}

func NewFleet(world ports.FleetWorld, deps LoopDeps) *Fleet {
	deps.World = world
	return &Fleet{world: world, deps: deps, running: make(map[string]bool)}
}

// Run starts a loop for every truck in the world and blocks until ctx is cancelled
// and every loop has finished its in-flight cycle.
func (f *Fleet) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.ctx != nil {
		f.mu.Unlock()
		return fmt.Errorf("fleet: already running")
	}
	f.ctx = ctx
	for _, id := range f.world.TruckIDs() {
		f.startLocked(id)
	}
	f.mu.Unlock()

	<-ctx.Done()

	f.mu.Lock()
	f.ctx = nil
	f.mu.Unlock()
	f.wg.Wait()
	return nil
}

// AddTruck adds a truck to the world and starts its loop when the fleet is running.
func (f *Fleet) AddTruck(spec domain.TruckSpec) error {
	if err := f.world.AddTruck(spec); err != nil {
		return fmt.Errorf("fleet: add truck: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ctx != nil {
		f.startLocked(spec.TruckID)
	}
	return nil
}

// RemoveTruck removes a truck from the world; its loop stops on its own.
func (f *Fleet) RemoveTruck(truckID string) error {
	if err := f.world.RemoveTruck(truckID); err != nil {
		return fmt.Errorf("fleet: remove truck: %w", err)
	}
	return nil
}

// Running returns how many loops are active.
func (f *Fleet) Running() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.running)
}

func (f *Fleet) startLocked(truckID string) {
	if f.running[truckID] {
		return
	}
	f.running[truckID] = true
	f.wg.Add(1)

	ctx := f.ctx
	go func() {
		defer f.wg.Done()
		if err := RunTruckLoop(ctx, truckID, f.deps); err != nil {
			log.Printf("truck=%s op=loop err=%v", truckID, err)
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.running, truckID)
		// A truck re-added under the same id while this loop was exiting gets a fresh loop.
		if f.ctx != nil && f.ctx.Err() == nil && !closed(f.world.Done(truckID)) {
			f.startLocked(truckID)
		}
	}()
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
