package repositories

import (
	"context"
	"database/sql"
	"fleet-agent-service/internal/platform/db"
	"fleet-agent-service/internal/roadnet"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

const repoSeed = "../../../data/seeds/scenario.json"

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "scenario.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := InitSchema(conn); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return conn
}

func TestSeedAndLoadScenario(t *testing.T) {
	conn := openTestDB(t)

	// Seeding twice upserts instead of failing on primary keys.
	for i := 0; i < 2; i++ {
		if err := SeedFromJSON(conn, db.SQLite, repoSeed); err != nil {
			t.Fatalf("seed #%d: %v", i+1, err)
		}
	}

	sc, err := NewSQLScenarioRepository(conn).LoadScenario(context.Background())
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}

	if sc.Network.DefaultSpeedKph != 40 {
		t.Fatalf("default speed = %v, want 40", sc.Network.DefaultSpeedKph)
	}
	if len(sc.Network.Nodes) != 14 || len(sc.Network.Edges) != 14 {
		t.Fatalf("nodes=%d edges=%d, want 14 and 14", len(sc.Network.Nodes), len(sc.Network.Edges))
	}
	if len(sc.Trucks) != 3 || len(sc.Loads) != 4 {
		t.Fatalf("trucks=%d loads=%d, want 3 and 4", len(sc.Trucks), len(sc.Loads))
	}

	t1 := sc.Trucks[0]
	if t1.TruckID != "T1" || t1.StartNode != "PUNE_C" || len(t1.Waypoints) != 1 || t1.Waypoints[0] != "HINJ" {
		t.Fatalf("T1 = %+v", t1)
	}

	if _, err := roadnet.Build(sc.Network); err != nil {
		t.Fatalf("seeded network does not build: %v", err)
	}
}

func TestSeedRejectsInvalidRowsAtomically(t *testing.T) {
	conn := openTestDB(t)

	bad := filepath.Join(t.TempDir(), "bad.json")
	raw := `{
		"default_speed_kph": 40,
		"nodes": [{"id": "A", "kind": "CITY"}, {"id": "B", "kind": "HARBOUR"}],
		"edges": [{"from": "A", "to": "B"}]
	}`
	if err := os.WriteFile(bad, []byte(raw), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	if err := SeedFromJSON(conn, db.SQLite, bad); err == nil {
		t.Fatalf("expected unknown node kind to fail")
	}

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		t.Fatalf("count nodes: %v", err)
	}
	if n != 0 {
		t.Fatalf("nodes = %d after failed seed, want 0", n)
	}
}

func TestLoadScenarioRequiresSeed(t *testing.T) {
	conn := openTestDB(t)
	if _, err := NewSQLScenarioRepository(conn).LoadScenario(context.Background()); err == nil {
		t.Fatalf("expected empty database to fail")
	}
}
