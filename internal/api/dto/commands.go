package dto

type SubmitLoadRequest struct {
	LoadID      string  `json:"load_id"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Weight      float64 `json:"weight"`
	Profit      float64 `json:"profit"`
}

type AddTruckRequest struct {
	TruckID       string   `json:"truck_id"`
	StartNode     string   `json:"start_node"`
	Waypoints     []string `json:"waypoints"`
	FuelPercent   *float64 `json:"fuel_percent"`
	CapacityTotal float64  `json:"capacity_total"`
	CapacityUsed  float64  `json:"capacity_used"`
}

type OverrideRequest struct {
	DecisionID string   `json:"decision_id"`
	Action     string   `json:"action"`
	Target     string   `json:"target"`
	Confidence *float64 `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Thoughts   []string `json:"thoughts"`
}

type TrafficRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	// Speed fraction of free flow: 1 clears, 0 blocks.
	Factor *float64 `json:"factor"`
	Note   string   `json:"note"`
}

type TrafficResponse struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Factor float64 `json:"factor"`
}

type ListTrafficResponse struct {
	Conditions []TrafficResponse `json:"conditions"`
}
