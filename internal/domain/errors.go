package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrTruckNotFound  = errors.New("truck not found")
	ErrLoadNotFound   = errors.New("load not found")
	ErrUnknownNode    = errors.New("unknown node")
	ErrDuplicateTruck = errors.New("truck already exists")
)

// NoPathError reports that two nodes are not connected.
type NoPathError struct {
	From   string
	To     string
	Reason string
}

func (e *NoPathError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("no path from %q to %q: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("no path from %q to %q", e.From, e.To)
}

// ValidationError reports a decision or command rejected by the world model.
type ValidationError struct {
	TruckID string
	Action  Action
	Reason  string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.TruckID == "" {
		return "validation: " + msg
	}
	return fmt.Sprintf("validation: truck %s %s: %s", e.TruckID, e.Action, msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DuplicateLoadError reports a load submitted with an identifier already in use.
type DuplicateLoadError struct {
	LoadID string
}

func (e *DuplicateLoadError) Error() string {
	return fmt.Sprintf("load %q already exists", e.LoadID)
}

// GatewayTimeoutError reports a reasoning backend that did not answer in time.
type GatewayTimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *GatewayTimeoutError) Error() string {
	return fmt.Sprintf("reasoning gateway timed out after %s: %v", e.Timeout, e.Err)
}

func (e *GatewayTimeoutError) Unwrap() error { return e.Err }

// GatewayParseError reports a reply that could not be turned into a Decision.
type GatewayParseError struct {
	Reason string
	Err    error
}

func (e *GatewayParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reasoning gateway parse: %s: %v", e.Reason, e.Err)
	}
	return "reasoning gateway parse: " + e.Reason
}

func (e *GatewayParseError) Unwrap() error { return e.Err }

// GatewayUnavailableError reports a backend that refused the request (HTTP error, rate-limit cooldown).
type GatewayUnavailableError struct {
	Reason string
	Err    error
}

func (e *GatewayUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reasoning gateway unavailable: %s: %v", e.Reason, e.Err)
	}
	return "reasoning gateway unavailable: " + e.Reason
}

func (e *GatewayUnavailableError) Unwrap() error { return e.Err }
