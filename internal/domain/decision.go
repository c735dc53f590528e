package domain

import (
	"fmt"
	"slices"
	"time"
)

// Action is what a truck decides to do in one evaluation cycle.
type Action string

const (
	ActionContinue   Action = "CONTINUE"
	ActionReroute    Action = "REROUTE"
	ActionRefuel     Action = "REFUEL"
	ActionAcceptLoad Action = "ACCEPT_LOAD"
	ActionRejectLoad Action = "REJECT_LOAD"
	ActionStop       Action = "STOP"
)

// Actions lists every valid action in a stable order.
var Actions = []Action{
	ActionContinue,
	ActionReroute,
	ActionRefuel,
	ActionAcceptLoad,
	ActionRejectLoad,
	ActionStop,
}

// ParseAction validates a textual action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !slices.Contains(Actions, a) {
		return "", fmt.Errorf("parse action: unknown action %q", s)
	}
	return a, nil
}

// TargetsLoad reports whether the action's target names a load rather than a node.
func (a Action) TargetsLoad() bool {
	return a == ActionAcceptLoad || a == ActionRejectLoad
}

// Source records where a decision came from.
type Source string

const (
	SourceFastPath Source = "FAST_PATH"
	SourceGateway  Source = "GATEWAY"
	SourceFallback Source = "FALLBACK"
	SourceOverride Source = "OVERRIDE"
)

// FallbackRationale is the rationale of the decision used when reasoning fails.
const FallbackRationale = "fallback: reasoning unavailable"

// Decision is the immutable output of one reasoning cycle.
type Decision struct {
	DecisionID string
	TruckID    string
	Action     Action
	Target     string
	Confidence float64
	Rationale  string
	Thoughts   []string
	Source     Source
	Timestamp  time.Time
}

// Validate checks the decision shape, independent of world state.
func (d Decision) Validate() error {
	if d.TruckID == "" {
		return fmt.Errorf("decision: truck id must be non-empty")
	}
	if _, err := ParseAction(string(d.Action)); err != nil {
		return fmt.Errorf("decision: %w", err)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("decision: confidence %.3f outside [0,1]", d.Confidence)
	}
	if d.Action.TargetsLoad() && d.Target == "" {
		return fmt.Errorf("decision: %s requires a load target", d.Action)
	}
	return nil
}

// FallbackDecision is the deterministic default applied when the reasoning backend fails.
func FallbackDecision(truckID string, at time.Time) Decision {
	return Decision{
		TruckID:    truckID,
		Action:     ActionContinue,
		Confidence: 0,
		Rationale:  FallbackRationale,
		Source:     SourceFallback,
		Timestamp:  at,
	}
}

// Outcome is the result of applying a decision to the world model.
type Outcome string

const (
	OutcomeApplied   Outcome = "APPLIED"
	OutcomeRejected  Outcome = "REJECTED"
	OutcomeDuplicate Outcome = "DUPLICATE"
)

// DecisionRecord is one entry of a truck's decision history.
type DecisionRecord struct {
	Decision  Decision
	Outcome   Outcome
	Reason    string
	AppliedAt time.Time
}

// Clone returns a deep copy of the record.
func (r DecisionRecord) Clone() DecisionRecord {
	r.Decision.Thoughts = slices.Clone(r.Decision.Thoughts)
	return r
}
