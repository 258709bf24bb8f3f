package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"pddlsim/internal/config"
	"pddlsim/internal/datalog"
	"pddlsim/internal/fixture"
	"pddlsim/internal/grounding"
	"pddlsim/internal/mangle"
	"pddlsim/internal/metrics"
	"pddlsim/internal/pddl"
	"pddlsim/internal/simulation"
)

// newSolver builds the grounding backend named by the config.
func newSolver(c *config.Config) (grounding.Solver, error) {
	switch c.Solver.Backend {
	case config.BackendMangle, "":
		return mangle.NewEngine(c.MangleConfig(), logger), nil
	case config.BackendDatalog:
		return datalog.NewEngine(c.DatalogConfig(), logger), nil
	default:
		return nil, fmt.Errorf("unknown solver backend %q", c.Solver.Backend)
	}
}

// loadProblem reads a fixture that must carry a problem.
func loadProblem(path string) (*pddl.Domain, *pddl.Problem, error) {
	d, p, err := fixture.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, fmt.Errorf("%s: fixture has no problem section", path)
	}
	return d, p, nil
}

// episodeSeed prefers --seed over the configured seed.
func episodeSeed(cmd *cobra.Command) uint64 {
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		return seedFlag
	}
	return cfg.Simulation.Seed
}

// simulationOptions wires the configured backend, logger and parallelism.
func simulationOptions(extra ...simulation.Option) ([]simulation.Option, error) {
	solver, err := newSolver(cfg)
	if err != nil {
		return nil, err
	}
	opts := []simulation.Option{
		simulation.WithSolver(solver),
		simulation.WithLogger(logger),
		simulation.WithParallelism(cfg.Solver.Parallelism),
	}
	return append(opts, extra...), nil
}

// startEpisode loads a fixture and starts an unrecorded episode on it.
func startEpisode(ctx context.Context, cmd *cobra.Command, path string) (*simulation.Simulation, error) {
	d, p, err := loadProblem(path)
	if err != nil {
		return nil, err
	}
	opts, err := simulationOptions()
	if err != nil {
		return nil, err
	}
	return simulation.New(ctx, d, p, episodeSeed(cmd), opts...)
}

// newMetrics registers fresh collectors on a private registry.
func newMetrics() (*prometheus.Registry, *metrics.Collectors, error) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, cfg.Metrics.Namespace)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return reg, m, nil
}

// writeMetrics dumps every gathered family in the text exposition format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
