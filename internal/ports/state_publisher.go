package ports

import "context"

// Port: a sink for encoded world snapshots (WebSocket clients, Redis, ...).
type StatePublisher interface {
	// Publish one encoded snapshot. Implementations may keep payload; callers never modify it.
	Publish(ctx context.Context, payload []byte) error
}
