package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pddlsim configuration.
type Config struct {
	// Core settings
	Name string `yaml:"name"`

	// Grounding backend
	Solver SolverConfig `yaml:"solver"`

	// Episode settings
	Simulation SimulationConfig `yaml:"simulation"`

	// Episode log
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Prometheus collectors
	Metrics MetricsConfig `yaml:"metrics"`
}

// SimulationConfig configures episodes started from the CLI.
type SimulationConfig struct {
	Seed     uint64 `yaml:"seed"`
	MaxSteps int    `yaml:"max_steps"` // walk budget
}

// StoreConfig configures the SQLite episode store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// MetricsConfig configures metric collection.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "pddlsim",

		Solver: SolverConfig{
			Backend:      BackendMangle,
			FactLimit:    1000000,
			QueryTimeout: "30s",
			Parallelism:  0,
		},

		Simulation: SimulationConfig{
			Seed:     1,
			MaxSteps: 1000,
		},

		Store: StoreConfig{
			DatabasePath: "data/episodes.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},

		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "pddlsim",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Defaults if the file doesn't exist; env overrides still apply.
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if backend := os.Getenv("PDDLSIM_SOLVER"); backend != "" {
		c.Solver.Backend = backend
	}
	if seed := os.Getenv("PDDLSIM_SEED"); seed != "" {
		v, err := strconv.ParseUint(seed, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid PDDLSIM_SEED %q: %w", seed, err)
		}
		c.Simulation.Seed = v
	}
	if path := os.Getenv("PDDLSIM_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if level := os.Getenv("PDDLSIM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if n := os.Getenv("PDDLSIM_PARALLELISM"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			return fmt.Errorf("invalid PDDLSIM_PARALLELISM %q: %w", n, err)
		}
		c.Solver.Parallelism = v
	}
	return nil
}

// GetQueryTimeout returns the solver query timeout as a duration.
func (c *Config) GetQueryTimeout() time.Duration {
	d, err := time.ParseDuration(c.Solver.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !isValidBackend(c.Solver.Backend) {
		return fmt.Errorf("invalid solver backend: %s (valid: %v)", c.Solver.Backend, ValidBackends)
	}
	if c.Solver.FactLimit < 0 {
		return fmt.Errorf("solver fact_limit must not be negative, got %d", c.Solver.FactLimit)
	}
	if c.Solver.QueryTimeout != "" {
		if _, err := time.ParseDuration(c.Solver.QueryTimeout); err != nil {
			return fmt.Errorf("invalid solver query_timeout %q: %w", c.Solver.QueryTimeout, err)
		}
	}
	if c.Simulation.MaxSteps < 1 {
		return fmt.Errorf("simulation max_steps must be positive, got %d", c.Simulation.MaxSteps)
	}
	switch c.Logging.Format {
	case "", "json", "text", "console":
	default:
		return fmt.Errorf("invalid logging format: %s (valid: json, text)", c.Logging.Format)
	}
	return nil
}
