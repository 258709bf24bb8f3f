// Package grounding computes the legal instances of action schemas in a world
// state. Each schema's precondition is compiled once into a rule program over
// interned symbols; every call adds the current facts, lets a Solver compute
// the model and decodes the schema's head atoms back into groundings.
package grounding

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pddlsim/internal/intern"
	"pddlsim/internal/logging"
	"pddlsim/internal/pddl"
	"pddlsim/internal/world"
)

// Observer receives per-schema grounding measurements.
type Observer interface {
	ObserveGrounding(action pddl.ActionName, elapsed time.Duration, groundings int)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the base logger. The engine logs under the grounding category.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.For(l, logging.CategoryGrounding) }
}

// WithObserver reports every schema evaluation to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithParallelism bounds how many schemas GroundAll solves at once.
// Values below 1 mean GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

type schema struct {
	action *pddl.ActionDefinition
	frag   *Fragment
	show   Pred
	static []*Fragment
}

// Engine grounds the schemas of one domain against one problem's universe.
// The types fragment and each schema fragment are compiled in NewEngine and
// reused for the engine's lifetime; only state facts are rebuilt per call.
type Engine struct {
	compiler    *Compiler
	interner    *intern.Interner
	solver      Solver
	logger      *zap.Logger
	observer    Observer
	parallelism int

	types   *Fragment
	schemas []*schema
	byName  map[pddl.ActionName]*schema
}

// NewEngine compiles every schema of domain. in must be dedicated to this
// engine's episode.
func NewEngine(domain *pddl.Domain, problem *pddl.Problem, in *intern.Interner, solver Solver, opts ...Option) *Engine {
	e := &Engine{
		interner: in,
		solver:   solver,
		logger:   zap.NewNop(),
		byName:   make(map[pddl.ActionName]*schema),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parallelism < 1 {
		e.parallelism = runtime.GOMAXPROCS(0)
	}

	timer := logging.StartTimer(e.logger, "compile schemas", zap.String("domain", domain.Name()))
	e.compiler = NewCompiler(domain, problem, in)
	e.types = e.compiler.CompileTypes()
	for i, a := range domain.Actions() {
		frag, show := e.compiler.CompileSchema(i, a)
		s := &schema{action: a, frag: frag, show: show, static: []*Fragment{e.types, frag}}
		e.schemas = append(e.schemas, s)
		e.byName[a.Name] = s
		e.logger.Debug("compiled schema",
			zap.String("action", string(a.Name)),
			zap.Int("rules", len(frag.Rules)),
			zap.Int("decls", len(frag.Decls)))
	}
	timer.Stop()
	return e
}

// TypesFragment returns the cached object/type fragment.
func (e *Engine) TypesFragment() *Fragment { return e.types }

// SchemaFragment returns the cached fragment of the named schema.
func (e *Engine) SchemaFragment(name pddl.ActionName) (*Fragment, bool) {
	s, ok := e.byName[name]
	if !ok {
		return nil, false
	}
	return s.frag, true
}

// Ground returns every legal instance of the named schema in state, ordered
// by the universe position of their arguments.
func (e *Engine) Ground(ctx context.Context, name pddl.ActionName, state *world.State) ([]pddl.GroundedAction, error) {
	s, ok := e.byName[name]
	if !ok {
		return nil, fmt.Errorf("no action schema %q", name)
	}
	return e.ground(ctx, s, e.compiler.CompileState(state))
}

// GroundAll grounds every schema against state. Schemas are solved
// concurrently, up to the configured parallelism, and all of them finish
// before GroundAll returns. Results are concatenated in declaration order.
func (e *Engine) GroundAll(ctx context.Context, state *world.State) ([]pddl.GroundedAction, error) {
	facts := e.compiler.CompileState(state)
	results := make([][]pddl.GroundedAction, len(e.schemas))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, s := range e.schemas {
		g.Go(func() error {
			out, err := e.ground(gctx, s, facts)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slices.Concat(results...), nil
}

func (e *Engine) ground(ctx context.Context, s *schema, facts []Atom) ([]pddl.GroundedAction, error) {
	start := time.Now()
	prog := Program{Static: s.static, Facts: facts, Show: s.show}

	type found struct {
		ids []intern.ID
		ga  pddl.GroundedAction
	}
	var out []found
	err := e.solver.Solve(ctx, prog, func(a Atom) error {
		ga, err := e.decode(s, a)
		if err != nil {
			return err
		}
		out = append(out, found{ids: a.Args, ga: ga})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: grounding %s: %w", ErrSolver, s.action.Name, err)
	}

	slices.SortFunc(out, func(a, b found) int {
		return slices.CompareFunc(a.ids, b.ids, func(x, y intern.ID) int {
			return int(x.Index) - int(y.Index)
		})
	})
	groundings := make([]pddl.GroundedAction, len(out))
	for i, f := range out {
		groundings[i] = f.ga
	}

	elapsed := time.Since(start)
	if e.observer != nil {
		e.observer.ObserveGrounding(s.action.Name, elapsed, len(groundings))
	}
	e.logger.Debug("grounded schema",
		zap.String("action", string(s.action.Name)),
		zap.Int("facts", len(facts)),
		zap.Int("groundings", len(groundings)),
		zap.Duration("elapsed", elapsed))
	return groundings, nil
}

// decode maps a head atom back to objects in parameter order.
func (e *Engine) decode(s *schema, a Atom) (pddl.GroundedAction, error) {
	if a.Pred != s.show || len(a.Args) != len(s.action.Params) {
		return pddl.GroundedAction{}, fmt.Errorf("unexpected atom %s for %s", a, s.show)
	}
	ga := pddl.GroundedAction{Name: s.action.Name, Grounding: make([]pddl.Object, len(a.Args))}
	for i, id := range a.Args {
		if id.Kind != intern.Object {
			return pddl.GroundedAction{}, fmt.Errorf("argument %d of %s is a %s, not an object", i, a, id.Kind)
		}
		name, ok := e.interner.Value(id)
		if !ok {
			return pddl.GroundedAction{}, fmt.Errorf("argument %d of %s was never interned", i, a)
		}
		ga.Grounding[i] = pddl.Object(name)
	}
	return ga, nil
}
