// Package pddlsim is the public face of the simulator for code outside this
// module, such as a network layer serving remote agents. It re-exports the
// types an agent exchanges with a simulation and the constructors that build
// one, without adding behavior of its own.
package pddlsim

import (
	"pddlsim/internal/datalog"
	"pddlsim/internal/fixture"
	"pddlsim/internal/grounding"
	"pddlsim/internal/mangle"
	"pddlsim/internal/pddl"
	"pddlsim/internal/simulation"
)

// Episodes
type (
	Simulation        = simulation.Simulation
	Option            = simulation.Option
	Recorder          = simulation.Recorder
	Metrics           = simulation.Metrics
	EpisodeInfo       = simulation.EpisodeInfo
	StepRecord        = simulation.StepRecord
	Outcome           = simulation.Outcome
	PreconditionError = simulation.PreconditionError
	Solver            = grounding.Solver
)

// Domain model
type (
	Domain         = pddl.Domain
	Problem        = pddl.Problem
	GroundedAction = pddl.GroundedAction
	ActionName     = pddl.ActionName
	Object         = pddl.Object
	Fact           = pddl.Predicate[pddl.Object]
)

const (
	OutcomeApplied   = simulation.OutcomeApplied
	OutcomeViolation = simulation.OutcomeViolation
)

var (
	New    = simulation.New
	Replay = simulation.Replay

	WithSolver      = simulation.WithSolver
	WithLogger      = simulation.WithLogger
	WithMetrics     = simulation.WithMetrics
	WithRecorder    = simulation.WithRecorder
	WithParallelism = simulation.WithParallelism

	LoadFixture  = fixture.Load
	ParseFixture = fixture.Parse
)

var (
	ErrPreconditionViolation = simulation.ErrPreconditionViolation
	ErrSimulationCompleted   = simulation.ErrSimulationCompleted
	ErrUnknownAction         = simulation.ErrUnknownAction
	ErrInvalidGrounding      = simulation.ErrInvalidGrounding
	ErrDomainMismatch        = pddl.ErrDomainMismatch
)

// NewMangleSolver returns the default grounding backend.
func NewMangleSolver() Solver {
	return mangle.NewEngine(mangle.DefaultConfig(), nil)
}

// NewDatalogSolver returns the built-in semi-naive backend with no fact limit
// or timeout.
func NewDatalogSolver() Solver {
	return datalog.NewEngine(datalog.Config{}, nil)
}
