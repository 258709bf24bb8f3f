// Package metrics exposes simulation and grounding measurements as
// Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"pddlsim/internal/pddl"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "pddlsim"

// Collectors implements simulation.Metrics (and so grounding.Observer).
type Collectors struct {
	groundingDuration *prometheus.HistogramVec
	groundedActions   *prometheus.CounterVec
	appliedActions    *prometheus.CounterVec
	violations        *prometheus.CounterVec
	episodesSolved    prometheus.Counter
}

// New creates the collectors and registers them on reg. An empty namespace
// means DefaultNamespace.
func New(reg prometheus.Registerer, namespace string) (*Collectors, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	c := &Collectors{
		groundingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "grounding_duration_seconds",
				Help:      "Time to ground one action schema against a state.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"action"},
		),
		groundedActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "grounded_actions_total",
				Help:      "Legal action instances produced by grounding.",
			},
			[]string{"action"},
		),
		appliedActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "applied_actions_total",
				Help:      "Actions whose effect was applied.",
			},
			[]string{"action"},
		),
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "precondition_violations_total",
				Help:      "Actions rejected because their precondition did not hold.",
			},
			[]string{"action"},
		),
		episodesSolved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "episodes_solved_total",
				Help:      "Episodes that reached their goal.",
			},
		),
	}
	for _, col := range []prometheus.Collector{
		c.groundingDuration, c.groundedActions, c.appliedActions, c.violations, c.episodesSolved,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collectors) ObserveGrounding(action pddl.ActionName, elapsed time.Duration, groundings int) {
	c.groundingDuration.WithLabelValues(string(action)).Observe(elapsed.Seconds())
	c.groundedActions.WithLabelValues(string(action)).Add(float64(groundings))
}

func (c *Collectors) ObserveApplied(action pddl.ActionName) {
	c.appliedActions.WithLabelValues(string(action)).Inc()
}

func (c *Collectors) ObserveViolation(action pddl.ActionName) {
	c.violations.WithLabelValues(string(action)).Inc()
}

func (c *Collectors) ObserveSolved() {
	c.episodesSolved.Inc()
}
