package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fleet-agent-service/internal/domain"
	"fleet-agent-service/internal/platform/obs"
	"fleet-agent-service/internal/ports"
	"fleet-agent-service/internal/roadnet"
	"fmt"
)

// SQL-backed implementation of the ScenarioRepository port (SQLite or Postgres).
type SQLScenarioRepository struct{ DB *sql.DB }

func NewSQLScenarioRepository(conn *sql.DB) *SQLScenarioRepository {
	return &SQLScenarioRepository{DB: conn}
}

// Return the stored map, trucks and loads.
func (s *SQLScenarioRepository) LoadScenario(ctx context.Context) (sc ports.Scenario, err error) {
	defer obs.Time(ctx, "scenario.load")(&err)

	if s.DB == nil {
		return ports.Scenario{}, errors.New("sql scenario repository: DB is nil")
	}

	settingsQuery := `
	SELECT default_speed_kph
	FROM scenario_settings
	WHERE name = 'default';
	`
	if err := s.DB.QueryRowContext(ctx, settingsQuery).Scan(&sc.Network.DefaultSpeedKph); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ports.Scenario{}, fmt.Errorf("load scenario: no scenario seeded")
		}
		return ports.Scenario{}, fmt.Errorf("load scenario: query settings: %w", err)
	}

	if sc.Network.Nodes, err = s.listNodes(ctx); err != nil {
		return ports.Scenario{}, err
	}
	if sc.Network.Edges, err = s.listEdges(ctx); err != nil {
		return ports.Scenario{}, err
	}
	if sc.Trucks, err = s.listTrucks(ctx); err != nil {
		return ports.Scenario{}, err
	}
	if sc.Loads, err = s.listLoads(ctx); err != nil {
		return ports.Scenario{}, err
	}

	return sc, nil
}

func (s *SQLScenarioRepository) listNodes(ctx context.Context) ([]roadnet.NodeDef, error) {
	query := `
	SELECT
		node_id,
		kind,
		lat,
		lon
	FROM nodes
	ORDER BY node_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list nodes: query nodes table: %w", err)
	}
	defer rows.Close()

	nodes := make([]roadnet.NodeDef, 0, 32)
	for rows.Next() {
		var n roadnet.NodeDef
		var kind string
		if err := rows.Scan(&n.ID, &kind, &n.Lat, &n.Lon); err != nil {
			return nil, fmt.Errorf("list nodes: scan row: %w", err)
		}
		if n.Kind, err = domain.ParseNodeKind(kind); err != nil {
			return nil, fmt.Errorf("list nodes: node_id=%s: %w", n.ID, err)
		}
		nodes = append(nodes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list nodes: row iteration: %w", err)
	}

	return nodes, nil
}

func (s *SQLScenarioRepository) listEdges(ctx context.Context) ([]roadnet.EdgeDef, error) {
	query := `
	SELECT
		from_node,
		to_node,
		distance_km,
		speed_kph,
		one_way
	FROM edges
	ORDER BY from_node, to_node;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list edges: query edges table: %w", err)
	}
	defer rows.Close()

	edges := make([]roadnet.EdgeDef, 0, 64)
	for rows.Next() {
		var e roadnet.EdgeDef
		if err := rows.Scan(&e.From, &e.To, &e.DistanceKm, &e.SpeedKph, &e.OneWay); err != nil {
			return nil, fmt.Errorf("list edges: scan row: %w", err)
		}
		edges = append(edges, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list edges: row iteration: %w", err)
	}

	return edges, nil
}

func (s *SQLScenarioRepository) listTrucks(ctx context.Context) ([]domain.TruckSpec, error) {
	query := `
	SELECT
		truck_id,
		start_node,
		waypoints,
		fuel_percent,
		capacity_total,
		capacity_used
	FROM trucks
	ORDER BY truck_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list trucks: query trucks table: %w", err)
	}
	defer rows.Close()

	trucks := make([]domain.TruckSpec, 0, 8)
	for rows.Next() {
		var t domain.TruckSpec
		var waypoints string
		if err := rows.Scan(&t.TruckID, &t.StartNode, &waypoints, &t.FuelPercent, &t.CapacityTotal, &t.CapacityUsed); err != nil {
			return nil, fmt.Errorf("list trucks: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(waypoints), &t.Waypoints); err != nil {
			return nil, fmt.Errorf("list trucks: truck_id=%s: decode waypoints: %w", t.TruckID, err)
		}
		trucks = append(trucks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trucks: row iteration: %w", err)
	}

	return trucks, nil
}

func (s *SQLScenarioRepository) listLoads(ctx context.Context) ([]domain.Load, error) {
	query := `
	SELECT
		load_id,
		origin,
		destination,
		weight,
		profit
	FROM loads
	ORDER BY load_id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list loads: query loads table: %w", err)
	}
	defer rows.Close()

	loads := make([]domain.Load, 0, 16)
	for rows.Next() {
		var l domain.Load
		if err := rows.Scan(&l.LoadID, &l.Origin, &l.Destination, &l.Weight, &l.Profit); err != nil {
			return nil, fmt.Errorf("list loads: scan row: %w", err)
		}
		loads = append(loads, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list loads: row iteration: %w", err)
	}

	return loads, nil
}
