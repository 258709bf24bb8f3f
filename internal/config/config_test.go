package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every override so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PDDLSIM_SOLVER", "PDDLSIM_SEED", "PDDLSIM_DB", "PDDLSIM_LOG_LEVEL", "PDDLSIM_PARALLELISM"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "pddlsim" {
		t.Errorf("expected Name=pddlsim, got %s", cfg.Name)
	}
	if cfg.Solver.Backend != BackendMangle {
		t.Errorf("expected Backend=mangle, got %s", cfg.Solver.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Solver.Backend = BackendDatalog
	cfg.Solver.Parallelism = 3
	cfg.Simulation.Seed = 99
	cfg.Metrics.Enabled = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assert.Equal(t, cfg, loaded)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver:\n  backend: datalog\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendDatalog, cfg.Solver.Backend)
	assert.Equal(t, 1000000, cfg.Solver.FactLimit)
	assert.Equal(t, 1000, cfg.Simulation.MaxSteps)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("solver: [not, a, map"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("all overrides", func(t *testing.T) {
		t.Setenv("PDDLSIM_SOLVER", "datalog")
		t.Setenv("PDDLSIM_SEED", "7")
		t.Setenv("PDDLSIM_DB", "/tmp/ep.db")
		t.Setenv("PDDLSIM_LOG_LEVEL", "debug")
		t.Setenv("PDDLSIM_PARALLELISM", "2")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, "datalog", cfg.Solver.Backend)
		assert.Equal(t, uint64(7), cfg.Simulation.Seed)
		assert.Equal(t, "/tmp/ep.db", cfg.Store.DatabasePath)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 2, cfg.Solver.Parallelism)
	})

	t.Run("empty values leave config alone", func(t *testing.T) {
		clearEnv(t)
		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("bad seed", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PDDLSIM_SEED", "-1")
		assert.Error(t, DefaultConfig().applyEnvOverrides())
	})

	t.Run("bad parallelism", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PDDLSIM_PARALLELISM", "many")
		assert.Error(t, DefaultConfig().applyEnvOverrides())
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Solver.Backend = "clingo" }},
		{"negative fact limit", func(c *Config) { c.Solver.FactLimit = -1 }},
		{"bad timeout", func(c *Config) { c.Solver.QueryTimeout = "soon" }},
		{"no steps", func(c *Config) { c.Simulation.MaxSteps = 0 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.GetQueryTimeout())

	cfg.Solver.QueryTimeout = "250ms"
	assert.Equal(t, 250*time.Millisecond, cfg.GetQueryTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.MangleConfig().QueryTimeout)
	assert.Equal(t, cfg.Solver.FactLimit, cfg.DatalogConfig().FactLimit)

	cfg.Solver.QueryTimeout = "garbage"
	assert.Equal(t, 30*time.Second, cfg.GetQueryTimeout(), "unparsable values fall back")
}
