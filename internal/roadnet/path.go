package roadnet

import (
	"container/heap"
	"fleet-agent-service/internal/domain"
	"math"
	"slices"
)

// WeightFunc returns the cost of traversing an edge. A result of +Inf (or NaN)
// makes the edge impassable for that search.
type WeightFunc func(domain.Edge) float64

// ShortestPath returns the lowest travel-time path from a to b.
// On equal-cost paths the one discovered first in sorted adjacency order wins.
func (n *Network) ShortestPath(from, to string) (domain.Path, error) {
	return n.ShortestPathFunc(from, to, TravelTime)
}

// ShortestPathFunc is ShortestPath with a caller-provided edge weight.
func (n *Network) ShortestPathFunc(from, to string, weight WeightFunc) (domain.Path, error) {
	if _, ok := n.nodes[from]; !ok {
		return domain.Path{}, &domain.NoPathError{From: from, To: to, Reason: "unknown node " + from}
	}
	if _, ok := n.nodes[to]; !ok {
		return domain.Path{}, &domain.NoPathError{From: from, To: to, Reason: "unknown node " + to}
	}
	if from == to {
		return domain.Path{Nodes: []string{from}}, nil
	}

	s := n.search(from, weight, func(node string) bool { return node == to })
	if _, ok := s.dist[to]; !ok {
		return domain.Path{}, &domain.NoPathError{From: from, To: to}
	}
	return s.path(to), nil
}

// NearestOfKind returns the cheapest path from `from` to any node of the given kind.
// The origin itself counts when it has that kind.
func (n *Network) NearestOfKind(from string, kind domain.NodeKind, weight WeightFunc) (domain.Path, bool) {
	if _, ok := n.nodes[from]; !ok {
		return domain.Path{}, false
	}

	var found string
	s := n.search(from, weight, func(node string) bool {
		if n.nodes[node].Kind == kind {
			found = node
			return true
		}
		return false
	})
	if found == "" {
		return domain.Path{}, false
	}
	return s.path(found), true
}

type searchState struct {
	from string
	dist map[string]float64
	prev map[string]domain.Edge
}

// search runs Dijkstra from `from` until done reports true for a settled node
// or the reachable set is exhausted.
func (n *Network) search(from string, weight WeightFunc, done func(string) bool) *searchState {
	s := &searchState{
		from: from,
		dist: map[string]float64{from: 0},
		prev: make(map[string]domain.Edge),
	}
	settled := make(map[string]bool)

	pq := &priorityQueue{}
	seq := 0
	heap.Push(pq, &item{node: from, cost: 0, seq: seq})

	for pq.Len() > 0 {
		it := heap.Pop(pq).(*item)
		u := it.node
		if settled[u] {
			continue
		}
		settled[u] = true
		if done(u) {
			break
		}

		for _, e := range n.adj[u] {
			w := weight(e)
			if math.IsInf(w, 1) || math.IsNaN(w) || w < 0 {
				continue
			}
			alt := s.dist[u] + w
			if cur, ok := s.dist[e.To]; ok && alt >= cur {
				continue
			}
			s.dist[e.To] = alt
			s.prev[e.To] = e
			seq++
			heap.Push(pq, &item{node: e.To, cost: alt, seq: seq})
		}
	}

	return s
}

func (s *searchState) path(to string) domain.Path {
	nodes := []string{to}
	km := 0.0
	for u := to; u != s.from; {
		e := s.prev[u]
		km += e.DistanceKm
		nodes = append(nodes, e.From)
		u = e.From
	}
	slices.Reverse(nodes)
	return domain.Path{Nodes: nodes, Cost: s.dist[to], DistanceKm: km}
}

// ---------- internal PQ ----------
type item struct {
	node string
	cost float64
	seq  int
}

type priorityQueue []*item

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].cost != pq[j].cost {
		return pq[i].cost < pq[j].cost
	}
	return pq[i].seq < pq[j].seq
}
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(*item)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	it := old[n-1]
	*pq = old[:n-1]
	return it
}
