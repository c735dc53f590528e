package api

import (
	"context"
	"encoding/json"
	"fleet-agent-service/internal/api/dto"
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/ports"
	"fmt"
	"log"
	"time"
)

// Snapshotter is the part of the world model the streamer reads.
type Snapshotter interface {
	Snapshot() domain.WorldState
}

// StateStreamer encodes the world state once per interval and hands the same bytes
// to every publisher. A failing publisher is logged and retried on the next interval.
type StateStreamer struct {
	World      Snapshotter
	Publishers []ports.StatePublisher
	Interval   time.Duration
}

func (s *StateStreamer) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		return fmt.Errorf("state streamer: interval must be positive")
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.PublishOnce(ctx); err != nil {
				log.Printf("op=stream.publish err=%v", err)
			}
		}
	}
}

// PublishOnce encodes one snapshot and offers it to every publisher.
// It returns the first publisher error after trying them all.
func (s *StateStreamer) PublishOnce(ctx context.Context) error {
	payload, err := json.Marshal(dto.FromWorldState(s.World.Snapshot()))
	if err != nil {
		return fmt.Errorf("publish state: encode snapshot: %w", err)
	}

	var first error
	for _, p := range s.Publishers {
		if err := p.Publish(ctx, payload); err != nil && first == nil {
			first = fmt.Errorf("publish state: %w", err)
		}
	}
	return first
}
