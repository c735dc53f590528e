package dto

import "fleet-agent-service/internal/domain"

type NodeResponse struct {
	NodeID   string    `json:"node_id"`
	Kind     string    `json:"kind"`
	Location []float64 `json:"location"`
}

type EdgeResponse struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	DistanceKm float64 `json:"distance_km"`
	SpeedKph   float64 `json:"speed_kph"`
}

type NetworkResponse struct {
	Nodes []NodeResponse `json:"nodes"`
	Edges []EdgeResponse `json:"edges"`
}

func FromNetwork(nodes []domain.Node, edges []domain.Edge) NetworkResponse {
	res := NetworkResponse{
		Nodes: make([]NodeResponse, 0, len(nodes)),
		Edges: make([]EdgeResponse, 0, len(edges)),
	}
	for _, n := range nodes {
		res.Nodes = append(res.Nodes, NodeResponse{NodeID: n.ID, Kind: string(n.Kind), Location: n.Coords.CoordsToList()})
	}
	for _, e := range edges {
		res.Edges = append(res.Edges, EdgeResponse{From: e.From, To: e.To, DistanceKm: round1(e.DistanceKm), SpeedKph: round1(e.SpeedKph())})
	}
	return res
}
