package config

import (
	"pddlsim/internal/datalog"
	"pddlsim/internal/mangle"
)

// Grounding backends.
const (
	BackendMangle  = "mangle"
	BackendDatalog = "datalog"
)

// ValidBackends lists all supported grounding backends.
var ValidBackends = []string{BackendMangle, BackendDatalog}

func isValidBackend(b string) bool {
	for _, v := range ValidBackends {
		if b == v {
			return true
		}
	}
	return false
}

// SolverConfig configures the grounding backend.
type SolverConfig struct {
	Backend      string `yaml:"backend"`       // mangle, datalog
	FactLimit    int    `yaml:"fact_limit"`    // derived facts per evaluation, 0 = unlimited
	QueryTimeout string `yaml:"query_timeout"` // per-schema evaluation budget
	Parallelism  int    `yaml:"parallelism"`   // schemas grounded at once, 0 = GOMAXPROCS
}

// MangleConfig returns the Mangle engine settings.
func (c *Config) MangleConfig() mangle.Config {
	return mangle.Config{
		FactLimit:    c.Solver.FactLimit,
		QueryTimeout: c.GetQueryTimeout(),
	}
}

// DatalogConfig returns the built-in evaluator settings.
func (c *Config) DatalogConfig() datalog.Config {
	return datalog.Config{
		FactLimit:    c.Solver.FactLimit,
		QueryTimeout: c.GetQueryTimeout(),
	}
}
