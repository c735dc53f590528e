package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds the simulation thresholds and cadences.
// Every field has a documented default; a tuning file only overrides what it sets.
type Tuning struct {
	Simulation  Simulation  `yaml:"simulation"`
	Truck       Truck       `yaml:"truck"`
	Agent       Agent       `yaml:"agent"`
	Reasoning   Reasoning   `yaml:"reasoning"`
	Observation Observation `yaml:"observation"`
}

type Simulation struct {
	// Wall-clock period of the global tick driver.
	TickInterval time.Duration `yaml:"tick_interval"`
	// Simulated seconds advanced per tick.
	SimSecondsPerTick float64 `yaml:"sim_seconds_per_tick"`
	// Simulated clock value at session start.
	Start time.Time `yaml:"start"`
	// Wall-clock period of state publication (WebSocket, Redis).
	PublishInterval time.Duration `yaml:"publish_interval"`
	// Fleet-wide event ring size.
	EventLimit int `yaml:"event_limit"`
}

type Truck struct {
	LowFuelPercent         float64 `yaml:"low_fuel_percent"`
	CriticalFuelPercent    float64 `yaml:"critical_fuel_percent"`
	FuelPercentPerKm       float64 `yaml:"fuel_percent_per_km"`
	RefuelPercentPerMinute float64 `yaml:"refuel_percent_per_minute"`
	LoadingSeconds         float64 `yaml:"loading_seconds"`
	DefaultSpeedKph        float64 `yaml:"default_speed_kph"`
	// Simulated seconds an empty idle truck waits before leaving the fleet; 0 keeps it forever.
	RetireIdleAfterSeconds float64 `yaml:"retire_idle_after_seconds"`
}

type Agent struct {
	DecisionInterval       time.Duration `yaml:"decision_interval"`
	HistoryLimit           int           `yaml:"history_limit"`
	EventLimit             int           `yaml:"event_limit"`
	MaxConcurrentReasoning int           `yaml:"max_concurrent_reasoning"`
}

type Reasoning struct {
	Timeout           time.Duration `yaml:"timeout"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	Temperature       float64       `yaml:"temperature"`
	MaxSummaryBytes   int           `yaml:"max_summary_bytes"`
	MaxPromptLoads    int           `yaml:"max_prompt_loads"`
	MaxPromptEvents   int           `yaml:"max_prompt_events"`
	MaxPromptRoute    int           `yaml:"max_prompt_route"`
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown"`
}

type Observation struct {
	NearbyLoadRadiusKm float64 `yaml:"nearby_load_radius_km"`
	MaxNearbyLoads     int     `yaml:"max_nearby_loads"`
	MaxEvents          int     `yaml:"max_events"`
}

// DefaultTuning returns the documented defaults.
func DefaultTuning() Tuning {
	return Tuning{
		Simulation: Simulation{
			TickInterval:      time.Second,
			SimSecondsPerTick: 60,
			Start:             time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
			PublishInterval:   time.Second,
			EventLimit:        200,
		},
		Truck: Truck{
			LowFuelPercent:         15,
			CriticalFuelPercent:    15,
			FuelPercentPerKm:       0.5,
			RefuelPercentPerMinute: 10,
			LoadingSeconds:         300,
			DefaultSpeedKph:        40,
		},
		Agent: Agent{
			DecisionInterval:       2 * time.Second,
			HistoryLimit:           50,
			EventLimit:             20,
			MaxConcurrentReasoning: 4,
		},
		Reasoning: Reasoning{
			Timeout:           5 * time.Second,
			Model:             "llama-3.1-8b-instant",
			BaseURL:           "https://api.groq.com/openai/v1",
			Temperature:       0.1,
			MaxSummaryBytes:   4096,
			MaxPromptLoads:    5,
			MaxPromptEvents:   3,
			MaxPromptRoute:    8,
			RateLimitCooldown: 2 * time.Minute,
		},
		Observation: Observation{
			NearbyLoadRadiusKm: 25,
			MaxNearbyLoads:     10,
			MaxEvents:          10,
		},
	}
}

// LoadTuning reads a YAML tuning file over the defaults.
// A missing file is not an error: the defaults are returned.
func LoadTuning(path string) (Tuning, error) {
	t := DefaultTuning()

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, fmt.Errorf("load tuning: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("load tuning: parse %q: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("load tuning: %q: %w", path, err)
	}
	return t, nil
}

// Validate rejects values the simulation cannot run with.
func (t Tuning) Validate() error {
	switch {
	case t.Simulation.TickInterval <= 0:
		return errors.New("simulation.tick_interval must be positive")
	case t.Simulation.SimSecondsPerTick <= 0:
		return errors.New("simulation.sim_seconds_per_tick must be positive")
	case t.Truck.LowFuelPercent < 0 || t.Truck.LowFuelPercent > 100:
		return errors.New("truck.low_fuel_percent must be within [0,100]")
	case t.Truck.CriticalFuelPercent < 0 || t.Truck.CriticalFuelPercent > 100:
		return errors.New("truck.critical_fuel_percent must be within [0,100]")
	case t.Truck.FuelPercentPerKm < 0:
		return errors.New("truck.fuel_percent_per_km must not be negative")
	case t.Truck.RefuelPercentPerMinute <= 0:
		return errors.New("truck.refuel_percent_per_minute must be positive")
	case t.Truck.DefaultSpeedKph <= 0:
		return errors.New("truck.default_speed_kph must be positive")
	case t.Agent.DecisionInterval <= 0:
		return errors.New("agent.decision_interval must be positive")
	case t.Agent.HistoryLimit <= 0:
		return errors.New("agent.history_limit must be positive")
	case t.Agent.MaxConcurrentReasoning <= 0:
		return errors.New("agent.max_concurrent_reasoning must be positive")
	case t.Reasoning.Timeout <= 0:
		return errors.New("reasoning.timeout must be positive")
	}
	return nil
}
