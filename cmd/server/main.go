package main

import (
	"context"
	"database/sql"
	"errors"
	"fleet-agent-service/internal/adapters/publish"
	"fleet-agent-service/internal/adapters/reasoning"
	"fleet-agent-service/internal/adapters/repositories"
	"fleet-agent-service/internal/api"
	"fleet-agent-service/internal/config"
	"fleet-agent-service/internal/platform/db"
	"fleet-agent-service/internal/ports"
	"fleet-agent-service/internal/roadnet"
	"fleet-agent-service/internal/services"
	"fleet-agent-service/internal/world"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	_ "modernc.org/sqlite"
)

// main is the application composition root.
// It loads the scenario, wires the reasoning backend and publishers behind ports,
// and runs the tick driver, agent loops, state streamer and HTTP server until a signal arrives.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	port := config.Get("PORT", "8080")
	seedPath := config.Get("SEED_PATH", "data/seeds/scenario.json")
	tuningPath := config.Get("TUNING_PATH", "config/tuning.yaml")

	tuning, err := config.LoadTuning(tuningPath)
	if err != nil {
		log.Fatal(err)
	}
	tuning.Reasoning.BaseURL = config.Get("REASONING_BASE_URL", tuning.Reasoning.BaseURL)
	tuning.Reasoning.Model = config.Get("REASONING_MODEL", tuning.Reasoning.Model)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := openScenarioDB(seedPath)
	if err != nil {
		log.Fatal(err)
	}
	sc, err := repositories.NewSQLScenarioRepository(conn).LoadScenario(ctx)
	conn.Close()
	if err != nil {
		log.Fatal(err)
	}

	w, err := buildWorld(sc, tuning)
	if err != nil {
		log.Fatal(err)
	}

	gateway, err := newGateway(tuning)
	if err != nil {
		log.Fatal(err)
	}

	fleet := services.NewFleet(w, services.LoopDeps{
		Gateway:             gateway,
		Sem:                 semaphore.NewWeighted(int64(tuning.Agent.MaxConcurrentReasoning)),
		Interval:            tuning.Agent.DecisionInterval,
		ReasonTimeout:       tuning.Reasoning.Timeout,
		CriticalFuelPercent: tuning.Truck.CriticalFuelPercent,
	})

	hub := api.NewHub()
	publishers := []ports.StatePublisher{hub}
	if redisURL := config.Get("REDIS_URL", ""); redisURL != "" {
		rp, err := publish.NewRedisPublisher(ctx, redisURL, config.GetDuration("REDIS_STATE_TTL", 10*time.Minute))
		if err != nil {
			log.Fatal(err)
		}
		defer rp.Close()
		publishers = append(publishers, rp)
		log.Printf("Publishing state to redis key=%s channel=%s", publish.DefaultStateKey, publish.DefaultStateChannel)
	}
	streamer := &api.StateStreamer{World: w, Publishers: publishers, Interval: tuning.Simulation.PublishInterval}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           api.NewRouter(w, fleet, w, w.Network(), hub),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return services.RunTickDriver(ctx, w, tuning.Simulation.TickInterval, tuning.Simulation.SimSecondsPerTick)
	})
	g.Go(func() error { return fleet.Run(ctx) })
	g.Go(func() error { return streamer.Run(ctx) })
	g.Go(func() error {
		log.Printf("Server listening addr=:%s trucks=%d", port, len(w.TruckIDs()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
	log.Println("Server stopped")
}

// openScenarioDB opens Postgres when DATABASE_URL is set (seeded by cmd/dbtool),
// otherwise a local SQLite file that is initialized and seeded on startup.
func openScenarioDB(seedPath string) (*sql.DB, error) {
	if databaseURL := config.Get("DATABASE_URL", ""); databaseURL != "" {
		return db.Open(databaseURL)
	}

	conn, err := db.OpenSQLite(config.Get("DB_PATH", "data/app.db"))
	if err != nil {
		return nil, err
	}
	if err := initAndSeed(conn, seedPath); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func initAndSeed(conn *sql.DB, seedPath string) error {
	if err := repositories.InitSchema(conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if err := repositories.SeedFromJSON(conn, db.SQLite, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

// buildWorld freezes the scenario map and places the seed trucks and loads on it.
// A seed truck that cannot be planned is fatal; a bad seed load is only logged.
func buildWorld(sc ports.Scenario, tuning config.Tuning) (*world.World, error) {
	if sc.Network.DefaultSpeedKph <= 0 {
		sc.Network.DefaultSpeedKph = tuning.Truck.DefaultSpeedKph
	}
	net, err := roadnet.Build(sc.Network)
	if err != nil {
		return nil, fmt.Errorf("build world: %w", err)
	}

	w := world.New(net, tuning)
	for _, spec := range sc.Trucks {
		if err := w.AddTruck(spec); err != nil {
			return nil, fmt.Errorf("build world: %w", err)
		}
	}
	for _, l := range sc.Loads {
		if _, err := w.SubmitLoad(l); err != nil {
			log.Printf("seed load skipped: load_id=%s err=%v", l.LoadID, err)
		}
	}
	return w, nil
}

// newGateway uses the chat model when an API key is configured and the heuristic backend otherwise.
func newGateway(tuning config.Tuning) (ports.ReasoningGateway, error) {
	apiKey := config.Get("REASONING_API_KEY", "")
	if apiKey == "" {
		log.Println("REASONING_API_KEY not set, using heuristic reasoning")
		return reasoning.NewHeuristicGateway(tuning.Truck.LowFuelPercent), nil
	}

	gw, err := reasoning.NewChatGateway(apiKey, tuning.Reasoning)
	if err != nil {
		return nil, fmt.Errorf("new gateway: %w", err)
	}
	log.Printf("Reasoning via chat model=%s", tuning.Reasoning.Model)
	return gw, nil
}
