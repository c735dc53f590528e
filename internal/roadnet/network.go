package roadnet

import (
	"fleet-agent-service/internal/domain"
	"fmt"
	"math"
	"slices"
	"strings"
)

// roadFactor converts great-circle distance into an approximate road distance
// when a definition leaves the edge length out.
const roadFactor = 1.3

// NodeDef declares a node in a network definition.
type NodeDef struct {
	ID   string
	Kind domain.NodeKind
	Lat  float64
	Lon  float64
}

// EdgeDef declares a road. Roads are two-way unless OneWay is set.
// Zero DistanceKm or SpeedKph are derived from coordinates and the default speed.
type EdgeDef struct {
	From       string
	To         string
	DistanceKm float64
	SpeedKph   float64
	OneWay     bool
}

// Definition is the raw input to Build.
type Definition struct {
	Nodes           []NodeDef
	Edges           []EdgeDef
	DefaultSpeedKph float64
}

// Network is an immutable road graph. It is safe for concurrent use without locking.
// Topology changes require building a new Network.
type Network struct {
	nodes map[string]domain.Node
	order []string
	adj   map[string][]domain.Edge
}

// Build validates a definition and freezes it into a Network.
func Build(def Definition) (*Network, error) {
	if len(def.Nodes) == 0 {
		return nil, fmt.Errorf("build network: no nodes")
	}

	speed := def.DefaultSpeedKph
	if speed <= 0 {
		return nil, fmt.Errorf("build network: default speed must be positive, got %.1f", speed)
	}

	n := &Network{
		nodes: make(map[string]domain.Node, len(def.Nodes)),
		order: make([]string, 0, len(def.Nodes)),
		adj:   make(map[string][]domain.Edge, len(def.Nodes)),
	}

	for i, nd := range def.Nodes {
		id := strings.TrimSpace(nd.ID)
		if id == "" {
			return nil, fmt.Errorf("build network: node #%d has empty id", i+1)
		}
		if _, ok := n.nodes[id]; ok {
			return nil, fmt.Errorf("build network: duplicate node %q", id)
		}
		kind, err := domain.ParseNodeKind(string(nd.Kind))
		if err != nil {
			return nil, fmt.Errorf("build network: node %q: %w", id, err)
		}
		n.nodes[id] = domain.Node{ID: id, Kind: kind, Coords: domain.Coordinates{Lat: nd.Lat, Lon: nd.Lon}}
		n.order = append(n.order, id)
	}
	slices.Sort(n.order)

	for i, ed := range def.Edges {
		from, okFrom := n.nodes[ed.From]
		to, okTo := n.nodes[ed.To]
		if !okFrom || !okTo {
			return nil, fmt.Errorf("build network: edge #%d %q -> %q references unknown node", i+1, ed.From, ed.To)
		}
		if ed.From == ed.To {
			return nil, fmt.Errorf("build network: edge #%d is a self loop on %q", i+1, ed.From)
		}
		if ed.DistanceKm < 0 || ed.SpeedKph < 0 {
			return nil, fmt.Errorf("build network: edge #%d %q -> %q has negative distance or speed", i+1, ed.From, ed.To)
		}

		dist := ed.DistanceKm
		if dist == 0 {
			dist = from.Coords.DistanceKm(to.Coords) * roadFactor
		}
		if dist <= 0 {
			return nil, fmt.Errorf("build network: edge #%d %q -> %q has zero length", i+1, ed.From, ed.To)
		}

		kph := ed.SpeedKph
		if kph == 0 {
			kph = speed
		}
		travel := dist / kph * 3600

		if err := n.addEdge(domain.Edge{From: ed.From, To: ed.To, DistanceKm: dist, TravelSeconds: travel}); err != nil {
			return nil, fmt.Errorf("build network: edge #%d: %w", i+1, err)
		}
		if !ed.OneWay {
			if err := n.addEdge(domain.Edge{From: ed.To, To: ed.From, DistanceKm: dist, TravelSeconds: travel}); err != nil {
				return nil, fmt.Errorf("build network: edge #%d reverse: %w", i+1, err)
			}
		}
	}

	// Sorted adjacency makes path discovery order, and therefore tie-breaks, reproducible.
	for id := range n.adj {
		slices.SortFunc(n.adj[id], func(a, b domain.Edge) int { return strings.Compare(a.To, b.To) })
	}

	return n, nil
}

func (n *Network) addEdge(e domain.Edge) error {
	for _, existing := range n.adj[e.From] {
		if existing.To == e.To {
			return fmt.Errorf("duplicate edge %q -> %q", e.From, e.To)
		}
	}
	n.adj[e.From] = append(n.adj[e.From], e)
	return nil
}

// Node returns a node by id.
func (n *Network) Node(id string) (domain.Node, bool) {
	node, ok := n.nodes[id]
	return node, ok
}

// Nodes returns every node ordered by id.
func (n *Network) Nodes() []domain.Node {
	out := make([]domain.Node, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, n.nodes[id])
	}
	return out
}

// Edge returns the directed edge from -> to.
func (n *Network) Edge(from, to string) (domain.Edge, bool) {
	for _, e := range n.adj[from] {
		if e.To == to {
			return e, true
		}
	}
	return domain.Edge{}, false
}

// Edges returns every directed edge, ordered by origin then destination.
func (n *Network) Edges() []domain.Edge {
	var out []domain.Edge
	for _, id := range n.order {
		out = append(out, n.adj[id]...)
	}
	return out
}

// Neighbor is a node directly reachable from another, with the connecting edge cost.
type Neighbor struct {
	Node       string
	Cost       float64
	DistanceKm float64
}

// Neighbors returns the nodes directly reachable from node, ordered by id.
func (n *Network) Neighbors(node string) []Neighbor {
	edges := n.adj[node]
	out := make([]Neighbor, 0, len(edges))
	for _, e := range edges {
		out = append(out, Neighbor{Node: e.To, Cost: e.TravelSeconds, DistanceKm: e.DistanceKm})
	}
	return out
}

// TravelTime returns the free-flow cost of an edge.
func TravelTime(e domain.Edge) float64 { return e.TravelSeconds }

// Impassable is the weight that removes an edge from path search.
var Impassable = math.Inf(1)
