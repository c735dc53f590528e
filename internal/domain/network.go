package domain

import "fmt"

// NodeKind classifies a road network node.
type NodeKind string

const (
	NodeCity        NodeKind = "CITY"
	NodeWarehouse   NodeKind = "WAREHOUSE"
	NodeFuelStation NodeKind = "FUEL_STATION"
	NodeJunction    NodeKind = "JUNCTION"
)

// ParseNodeKind validates a textual node kind. An empty kind defaults to JUNCTION.
func ParseNodeKind(s string) (NodeKind, error) {
	switch k := NodeKind(s); k {
	case NodeCity, NodeWarehouse, NodeFuelStation, NodeJunction:
		return k, nil
	case "":
		return NodeJunction, nil
	default:
		return "", fmt.Errorf("parse node kind: unknown kind %q", s)
	}
}

// Node is an immutable point in the road network.
type Node struct {
	ID     string
	Kind   NodeKind
	Coords Coordinates
}

// Edge is an immutable directed road segment.
// TravelSeconds is the traversal cost used by routing.
type Edge struct {
	From          string
	To            string
	DistanceKm    float64
	TravelSeconds float64
}

// SpeedKph returns the free-flow speed implied by distance and travel time.
func (e Edge) SpeedKph() float64 {
	if e.TravelSeconds <= 0 {
		return 0
	}
	return e.DistanceKm / (e.TravelSeconds / 3600)
}

// Path is the output of a shortest path query.
// Nodes includes both endpoints; a path from a node to itself has one node and zero cost.
type Path struct {
	Nodes      []string
	Cost       float64
	DistanceKm float64
}

// TrafficCondition is one edge currently off free flow.
// Factor is the fraction of free-flow speed; 0 means blocked.
type TrafficCondition struct {
	From   string
	To     string
	Factor float64
}
