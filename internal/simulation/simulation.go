// Package simulation runs one episode of a planning domain: it owns the world
// state and the episode's random source, lists the legal actions of the
// current state and applies the ones an agent picks until the goal holds.
//
// A Simulation serves one caller at a time. Every operation either completes
// or leaves the state untouched.
package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pddlsim/internal/grounding"
	"pddlsim/internal/intern"
	"pddlsim/internal/logging"
	"pddlsim/internal/mangle"
	"pddlsim/internal/pddl"
	"pddlsim/internal/world"
)

// streamSeed fixes the PCG stream so an episode is determined by its seed alone.
const streamSeed = 0x9e3779b97f4a7c15

// Outcome classifies a recorded step.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeViolation Outcome = "precondition_violation"
)

// EpisodeInfo identifies a recorded episode.
type EpisodeInfo struct {
	ID      string
	Domain  string
	Problem string
	Seed    uint64
}

// StepRecord is one action attempt of an episode.
type StepRecord struct {
	EpisodeID string
	Step      int
	Action    pddl.GroundedAction
	Outcome   Outcome
}

// Recorder persists episodes. Recorder errors are logged and never change the
// outcome of a step.
type Recorder interface {
	StartEpisode(ctx context.Context, ep EpisodeInfo) error
	RecordStep(ctx context.Context, step StepRecord) error
	MarkSolved(ctx context.Context, episodeID string) error
}

// Metrics receives episode events in addition to per-schema grounding timings.
type Metrics interface {
	grounding.Observer
	ObserveApplied(action pddl.ActionName)
	ObserveViolation(action pddl.ActionName)
	ObserveSolved()
}

// Option configures a Simulation.
type Option func(*options)

type options struct {
	solver      grounding.Solver
	logger      *zap.Logger
	metrics     Metrics
	recorder    Recorder
	parallelism int
}

// WithSolver selects the grounding backend. The default is a Mangle engine
// with mangle.DefaultConfig.
func WithSolver(s grounding.Solver) Option {
	return func(o *options) { o.solver = s }
}

// WithLogger sets the base logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics reports grounding timings and episode events to m.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRecorder persists the episode and every step to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithParallelism bounds how many schemas are grounded at once.
func WithParallelism(n int) Option {
	return func(o *options) { o.parallelism = n }
}

// Simulation is one episode over a validated domain and problem.
type Simulation struct {
	id      string
	seed    uint64
	domain  *pddl.Domain
	problem *pddl.Problem
	state   *world.State
	rng     *rand.Rand
	engine  *grounding.Engine

	logger   *zap.Logger
	metrics  Metrics
	recorder Recorder

	steps  int
	solved bool
}

// New starts an episode in the problem's initial state. If the goal already
// holds there, the episode starts out solved.
func New(ctx context.Context, domain *pddl.Domain, problem *pddl.Problem, seed uint64, opts ...Option) (*Simulation, error) {
	if domain == nil || problem == nil {
		return nil, fmt.Errorf("simulation needs a domain and a problem")
	}
	if problem.DomainName() != domain.Name() {
		return nil, fmt.Errorf("%w: problem %s targets %s, not %s",
			pddl.ErrDomainMismatch, problem.Name(), problem.DomainName(), domain.Name())
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.solver == nil {
		o.solver = mangle.NewEngine(mangle.DefaultConfig(), o.logger)
	}

	id := uuid.NewString()
	logger := logging.For(o.logger, logging.CategorySimulation).With(zap.String("episode", id))

	engineOpts := []grounding.Option{
		grounding.WithLogger(o.logger),
		grounding.WithParallelism(o.parallelism),
	}
	if o.metrics != nil {
		engineOpts = append(engineOpts, grounding.WithObserver(o.metrics))
	}

	s := &Simulation{
		id:       id,
		seed:     seed,
		domain:   domain,
		problem:  problem,
		state:    world.New(problem.Init()),
		rng:      rand.New(rand.NewPCG(seed, streamSeed)),
		engine:   grounding.NewEngine(domain, problem, intern.New(), o.solver, engineOpts...),
		logger:   logger,
		metrics:  o.metrics,
		recorder: o.recorder,
	}

	if s.recorder != nil {
		ep := EpisodeInfo{ID: id, Domain: domain.Name(), Problem: problem.Name(), Seed: seed}
		if err := s.recorder.StartEpisode(ctx, ep); err != nil {
			logger.Warn("failed to record episode start", zap.Error(err))
		}
	}
	logger.Info("episode started",
		zap.String("domain", domain.Name()),
		zap.String("problem", problem.Name()),
		zap.Uint64("seed", seed))

	if s.state.DoesConditionHold(problem.Goal()) {
		s.markSolved(ctx)
	}
	return s, nil
}

// ID returns the episode id.
func (s *Simulation) ID() string { return s.id }

// Seed returns the seed the episode's random source was created with.
func (s *Simulation) Seed() uint64 { return s.seed }

// Steps returns how many actions have been applied.
func (s *Simulation) Steps() int { return s.steps }

func (s *Simulation) Domain() *pddl.Domain   { return s.domain }
func (s *Simulation) Problem() *pddl.Problem { return s.problem }

// State returns a copy of the current world state.
func (s *Simulation) State() *world.State { return s.state.Clone() }

// TruePredicates is the perception snapshot of the current state.
func (s *Simulation) TruePredicates() []pddl.Predicate[pddl.Object] {
	return s.state.TruePredicates()
}

// IsSolved reports whether the goal has been reached. Once true it stays true.
func (s *Simulation) IsSolved() bool { return s.solved }

// GroundedActions lists every legal action in the current state, schema by
// schema in declaration order. Errors are solver failures, never domain errors.
func (s *Simulation) GroundedActions(ctx context.Context) ([]pddl.GroundedAction, error) {
	timer := logging.StartTimer(s.logger, "ground actions", zap.Int("step", s.steps))
	actions, err := s.engine.GroundAll(ctx, s.state)
	if err != nil {
		return nil, err
	}
	timer.Stop()
	return actions, nil
}

// ApplyGroundedAction checks action's precondition against the current state
// and, if it holds, applies the action's effect. A failed precondition returns
// a *PreconditionError and leaves the state unchanged.
func (s *Simulation) ApplyGroundedAction(ctx context.Context, action pddl.GroundedAction) error {
	if s.solved {
		return fmt.Errorf("%w: rejected %s", ErrSimulationCompleted, action)
	}

	def, binding, err := s.bind(action)
	if err != nil {
		return err
	}
	pre, err := pddl.GroundCondition(def.Precondition, binding)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidGrounding, action, err)
	}
	eff, err := pddl.GroundEffect(def.Effect, binding)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidGrounding, action, err)
	}

	if !s.state.DoesConditionHold(pre) {
		s.logger.Debug("precondition violated", zap.Stringer("action", action), zap.Int("step", s.steps))
		if s.metrics != nil {
			s.metrics.ObserveViolation(action.Name)
		}
		s.record(ctx, action, OutcomeViolation)
		return &PreconditionError{Action: action}
	}

	s.state.ApplyEffect(eff, s.rng)
	s.steps++
	if s.metrics != nil {
		s.metrics.ObserveApplied(action.Name)
	}
	s.logger.Debug("applied action",
		zap.Stringer("action", action),
		zap.Int("step", s.steps),
		zap.Int("facts", s.state.Len()))
	s.record(ctx, action, OutcomeApplied)

	if s.state.DoesConditionHold(s.problem.Goal()) {
		s.markSolved(ctx)
	}
	return nil
}

// bind resolves the schema and checks the grounding against its parameters.
func (s *Simulation) bind(action pddl.GroundedAction) (*pddl.ActionDefinition, pddl.Binding, error) {
	def, ok := s.domain.Action(action.Name)
	if !ok {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownAction, action.Name)
	}
	binding, err := def.Bind(action.Grounding)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidGrounding, err)
	}
	for i, o := range action.Grounding {
		t, ok := s.problem.TypeOf(o)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s: object %q is not in the problem", ErrInvalidGrounding, action, o)
		}
		param := def.Params[i]
		if !s.domain.IsCompatible(t, param.Type) {
			return nil, nil, fmt.Errorf("%w: %s: %s has type %s, parameter %s needs %s",
				ErrInvalidGrounding, action, o, t, param.Name, param.Type)
		}
	}
	return def, binding, nil
}

func (s *Simulation) markSolved(ctx context.Context) {
	s.solved = true
	s.logger.Info("goal reached", zap.Int("steps", s.steps))
	if s.metrics != nil {
		s.metrics.ObserveSolved()
	}
	if s.recorder != nil {
		if err := s.recorder.MarkSolved(ctx, s.id); err != nil {
			s.logger.Warn("failed to record solved episode", zap.Error(err))
		}
	}
}

func (s *Simulation) record(ctx context.Context, action pddl.GroundedAction, outcome Outcome) {
	if s.recorder == nil {
		return
	}
	step := StepRecord{EpisodeID: s.id, Step: s.steps, Action: action, Outcome: outcome}
	if err := s.recorder.RecordStep(ctx, step); err != nil {
		s.logger.Warn("failed to record step",
			zap.Stringer("action", action),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
	}
}

// Replay starts a fresh episode with seed and applies actions in order. It
// stops at the first action that fails and returns the episode as it stands.
func Replay(ctx context.Context, domain *pddl.Domain, problem *pddl.Problem, seed uint64, actions []pddl.GroundedAction, opts ...Option) (*Simulation, error) {
	start := time.Now()
	s, err := New(ctx, domain, problem, seed, opts...)
	if err != nil {
		return nil, err
	}
	for i, a := range actions {
		if err := s.ApplyGroundedAction(ctx, a); err != nil {
			return s, fmt.Errorf("replay step %d: %w", i, err)
		}
	}
	s.logger.Info("episode replayed",
		zap.Int("actions", len(actions)),
		zap.Bool("solved", s.solved),
		zap.Duration("elapsed", time.Since(start)))
	return s, nil
}
