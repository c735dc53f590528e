package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Ticker is the world's simulation step.
type Ticker interface {
	Tick(simSeconds float64)
}

// RunTickDriver is the single global tick source: every interval of wall time
// the world advances by simSecondsPerTick simulated seconds.
func RunTickDriver(ctx context.Context, w Ticker, interval time.Duration, simSecondsPerTick float64) error {
	if interval <= 0 {
		return fmt.Errorf("tick driver: interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("op=tick.start interval=%s sim_seconds=%.1f", interval, simSecondsPerTick)
	for {
		select {
		case <-ctx.Done():
			log.Printf("op=tick.stop")
			return nil
		case <-ticker.C:
			w.Tick(simSecondsPerTick)
		}
	}
}
