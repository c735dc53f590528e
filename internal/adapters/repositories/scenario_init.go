package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/platform/db"
	"fmt"
	"os"
	"strings"
)

// Initialize the scenario schema. The DDL is valid for both SQLite and Postgres.
func InitSchema(conn *sql.DB) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createSettingsQuery := `
	CREATE TABLE IF NOT EXISTS scenario_settings (
		name TEXT PRIMARY KEY,
		default_speed_kph DOUBLE PRECISION NOT NULL
	);
	`

	createNodesQuery := `
	CREATE TABLE IF NOT EXISTS nodes (
		node_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL
	);
	`

	createEdgesQuery := `
	CREATE TABLE IF NOT EXISTS edges (
		from_node TEXT NOT NULL,
		to_node TEXT NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
		speed_kph DOUBLE PRECISION NOT NULL DEFAULT 0,
		one_way BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (from_node, to_node)
	);
	`

	createTrucksQuery := `
	CREATE TABLE IF NOT EXISTS trucks (
		truck_id TEXT PRIMARY KEY,
		start_node TEXT NOT NULL,
		waypoints TEXT NOT NULL DEFAULT '[]',
		fuel_percent DOUBLE PRECISION NOT NULL,
		capacity_total DOUBLE PRECISION NOT NULL,
		capacity_used DOUBLE PRECISION NOT NULL DEFAULT 0
	);
	`

	createLoadsQuery := `
	CREATE TABLE IF NOT EXISTS loads (
		load_id TEXT PRIMARY KEY,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		profit DOUBLE PRECISION NOT NULL DEFAULT 0
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_edges_to_from
	ON edges(to_node, from_node);
	`

	statements := []string{
		createSettingsQuery,
		createNodesQuery,
		createEdgesQuery,
		createTrucksQuery,
		createLoadsQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// scenarioName keys the single row of scenario_settings.
const scenarioName = "default"

type ScenarioSeed struct {
	DefaultSpeedKph float64     `json:"default_speed_kph"`
	Nodes           []NodeSeed  `json:"nodes"`
	Edges           []EdgeSeed  `json:"edges"`
	Trucks          []TruckSeed `json:"trucks"`
	Loads           []LoadSeed  `json:"loads"`
}

type NodeSeed struct {
	ID   string  `json:"id"`
	Kind string  `json:"kind"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type EdgeSeed struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	DistanceKm float64 `json:"distance_km"`
	SpeedKph   float64 `json:"speed_kph"`
	OneWay     bool    `json:"one_way"`
}

type TruckSeed struct {
	TruckID       string   `json:"truck_id"`
	StartNode     string   `json:"start_node"`
	Waypoints     []string `json:"waypoints"`
	FuelPercent   float64  `json:"fuel_percent"`
	CapacityTotal float64  `json:"capacity_total"`
	CapacityUsed  float64  `json:"capacity_used"`
}

type LoadSeed struct {
	LoadID      string  `json:"load_id"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Weight      float64 `json:"weight"`
	Profit      float64 `json:"profit"`
}

// Validate checks the seed rows one by one. Graph-level checks happen when the network is built.
func (s ScenarioSeed) Validate() error {
	if s.DefaultSpeedKph <= 0 {
		return fmt.Errorf("default_speed_kph must be positive, got %.1f", s.DefaultSpeedKph)
	}
	for i, n := range s.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("node at index %d: id cannot be empty", i+1)
		}
		if _, err := domain.ParseNodeKind(n.Kind); err != nil {
			return fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for i, e := range s.Edges {
		if strings.TrimSpace(e.From) == "" || strings.TrimSpace(e.To) == "" {
			return fmt.Errorf("edge at index %d: endpoints cannot be empty", i+1)
		}
	}
	for _, t := range s.Trucks {
		if err := t.spec().Validate(); err != nil {
			return err
		}
	}
	for _, l := range s.Loads {
		if err := l.load().Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t TruckSeed) spec() domain.TruckSpec {
	return domain.TruckSpec{
		TruckID:       strings.TrimSpace(t.TruckID),
		StartNode:     strings.TrimSpace(t.StartNode),
		Waypoints:     t.Waypoints,
		FuelPercent:   t.FuelPercent,
		CapacityTotal: t.CapacityTotal,
		CapacityUsed:  t.CapacityUsed,
	}
}

func (l LoadSeed) load() domain.Load {
	return domain.Load{
		LoadID:      strings.TrimSpace(l.LoadID),
		Origin:      strings.TrimSpace(l.Origin),
		Destination: strings.TrimSpace(l.Destination),
		Weight:      l.Weight,
		Profit:      l.Profit,
	}
}

// Populate the database with the scenario from a JSON file.
// Rows are upserted, so seeding twice is harmless.
func SeedFromJSON(conn *sql.DB, dialect db.Dialect, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed scenario: read %q: %w", jsonPath, err)
	}

	var seed ScenarioSeed
	if err := json.Unmarshal(bytes, &seed); err != nil {
		return fmt.Errorf("seed scenario: parse json: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return fmt.Errorf("seed scenario: %w", err)
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("seed scenario: begin tx: %w", err)
	}
	defer tx.Rollback()

	p := dialect.Placeholder

	settingsQuery := fmt.Sprintf(`
	INSERT INTO scenario_settings (name, default_speed_kph)
	VALUES (%s, %s)
	ON CONFLICT (name) DO UPDATE SET default_speed_kph = excluded.default_speed_kph;
	`, p(1), p(2))
	if _, err := tx.Exec(settingsQuery, scenarioName, seed.DefaultSpeedKph); err != nil {
		return fmt.Errorf("seed scenario: upsert settings: %w", err)
	}

	nodeQuery := fmt.Sprintf(`
	INSERT INTO nodes (node_id, kind, lat, lon)
	VALUES (%s, %s, %s, %s)
	ON CONFLICT (node_id) DO UPDATE SET
		kind = excluded.kind,
		lat = excluded.lat,
		lon = excluded.lon;
	`, p(1), p(2), p(3), p(4))
	err = execEach(tx, nodeQuery, seed.Nodes, func(n NodeSeed) (string, []any) {
		kind, _ := domain.ParseNodeKind(n.Kind)
		return "node_id=" + n.ID, []any{strings.TrimSpace(n.ID), string(kind), n.Lat, n.Lon}
	})
	if err != nil {
		return fmt.Errorf("seed scenario: %w", err)
	}

	edgeQuery := fmt.Sprintf(`
	INSERT INTO edges (from_node, to_node, distance_km, speed_kph, one_way)
	VALUES (%s, %s, %s, %s, %s)
	ON CONFLICT (from_node, to_node) DO UPDATE SET
		distance_km = excluded.distance_km,
		speed_kph = excluded.speed_kph,
		one_way = excluded.one_way;
	`, p(1), p(2), p(3), p(4), p(5))
	err = execEach(tx, edgeQuery, seed.Edges, func(e EdgeSeed) (string, []any) {
		return "edge=" + e.From + "->" + e.To, []any{strings.TrimSpace(e.From), strings.TrimSpace(e.To), e.DistanceKm, e.SpeedKph, e.OneWay}
	})
	if err != nil {
		return fmt.Errorf("seed scenario: %w", err)
	}

	truckQuery := fmt.Sprintf(`
	INSERT INTO trucks (truck_id, start_node, waypoints, fuel_percent, capacity_total, capacity_used)
	VALUES (%s, %s, %s, %s, %s, %s)
	ON CONFLICT (truck_id) DO UPDATE SET
		start_node = excluded.start_node,
		waypoints = excluded.waypoints,
		fuel_percent = excluded.fuel_percent,
		capacity_total = excluded.capacity_total,
		capacity_used = excluded.capacity_used;
	`, p(1), p(2), p(3), p(4), p(5), p(6))
	for _, t := range seed.Trucks {
		s := t.spec()
		waypoints, err := json.Marshal(nonNil(s.Waypoints))
		if err != nil {
			return fmt.Errorf("seed scenario: encode waypoints truck_id=%s: %w", s.TruckID, err)
		}
		if _, err := tx.Exec(truckQuery, s.TruckID, s.StartNode, string(waypoints), s.FuelPercent, s.CapacityTotal, s.CapacityUsed); err != nil {
			return fmt.Errorf("seed scenario: insert truck_id=%s: %w", s.TruckID, err)
		}
	}

	loadQuery := fmt.Sprintf(`
	INSERT INTO loads (load_id, origin, destination, weight, profit)
	VALUES (%s, %s, %s, %s, %s)
	ON CONFLICT (load_id) DO UPDATE SET
		origin = excluded.origin,
		destination = excluded.destination,
		weight = excluded.weight,
		profit = excluded.profit;
	`, p(1), p(2), p(3), p(4), p(5))
	err = execEach(tx, loadQuery, seed.Loads, func(l LoadSeed) (string, []any) {
		ld := l.load()
		return "load_id=" + ld.LoadID, []any{ld.LoadID, ld.Origin, ld.Destination, ld.Weight, ld.Profit}
	})
	if err != nil {
		return fmt.Errorf("seed scenario: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed scenario: commit tx: %w", err)
	}

	return nil
}

// execEach runs one prepared statement per row.
func execEach[T any](tx *sql.Tx, query string, rows []T, args func(T) (string, []any)) error {
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		label, values := args(row)
		if _, err := stmt.Exec(values...); err != nil {
			return fmt.Errorf("insert %s: %w", label, err)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
