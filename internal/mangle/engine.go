// Package mangle evaluates grounding programs with the Google Mangle Datalog
// engine. Static fragments are rendered to Mangle source and analyzed once;
// each call evaluates them over a fresh in-memory store seeded with the
// current state facts.
package mangle

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"

	"pddlsim/internal/grounding"
	"pddlsim/internal/logging"
)

// Config holds Mangle engine configuration.
type Config struct {
	FactLimit    int           `json:"fact_limit"`    // derived facts allowed per evaluation, 0 = unlimited
	QueryTimeout time.Duration `json:"query_timeout"` // evaluation budget, 0 = unlimited
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FactLimit:    1000000,
		QueryTimeout: 30 * time.Second,
	}
}

// Stats counts analyzed programs and evaluations.
type Stats struct {
	Programs    int `json:"programs"`
	CacheHits   int `json:"cache_hits"`
	Evaluations int `json:"evaluations"`
}

// program is one analyzed set of static fragments.
type program struct {
	frags []*grounding.Fragment // keeps the key's pointers alive
	info  *analysis.ProgramInfo
}

// Engine is a grounding.Solver backed by Mangle.
type Engine struct {
	config Config
	logger *zap.Logger

	mu       sync.Mutex
	programs map[string]*program
	stats    Stats
}

// NewEngine creates a new Mangle engine instance.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		config:   cfg,
		logger:   logging.For(logger, logging.CategorySolver),
		programs: make(map[string]*program),
	}
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Solve implements grounding.Solver. Evaluation runs on the calling goroutine
// under a deadline of QueryTimeout; once it passes, or ctx is done, store
// lookups come back empty so evaluation winds down, and the partial result is
// discarded with grounding.ErrSolverTimeout or the context error.
func (e *Engine) Solve(ctx context.Context, prog grounding.Program, emit func(grounding.Atom) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("evaluation not started: %w", err)
	}
	p, err := e.analyze(prog.Static)
	if err != nil {
		return err
	}

	store := factstore.NewSimpleInMemoryStore()
	for _, fact := range prog.Facts {
		atom, err := toAtom(fact)
		if err != nil {
			return err
		}
		store.Add(atom)
	}

	var opts []mengine.EvalOption
	if e.config.FactLimit > 0 {
		opts = append(opts, mengine.WithCreatedFactLimit(e.config.FactLimit))
	}
	evalCtx := ctx
	if e.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		evalCtx, cancel = context.WithTimeout(ctx, e.config.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	stats, err := mengine.EvalProgramWithStats(p.info, deadlineStore{FactStore: store, ctx: evalCtx}, opts...)
	elapsed := time.Since(start)
	if cerr := ctx.Err(); cerr != nil {
		return fmt.Errorf("evaluate %s interrupted: %w", prog.Show.Name, cerr)
	}
	if e.config.QueryTimeout > 0 && (evalCtx.Err() != nil || elapsed > e.config.QueryTimeout) {
		return fmt.Errorf("%w: %s took %v (budget %v)", grounding.ErrSolverTimeout, prog.Show.Name, elapsed, e.config.QueryTimeout)
	}
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", prog.Show.Name, err)
	}

	e.mu.Lock()
	e.stats.Evaluations++
	e.mu.Unlock()
	e.logger.Debug("evaluated program",
		zap.String("show", prog.Show.Name),
		zap.Int("state_facts", len(prog.Facts)),
		zap.Int("strata", len(stats.Strata)),
		zap.Duration("elapsed", elapsed))

	return store.GetFacts(ast.NewQuery(predicateSym(prog.Show)), func(a ast.Atom) error {
		decoded, err := fromAtom(prog.Show, a)
		if err != nil {
			return err
		}
		return emit(decoded)
	})
}

// analyze returns the analyzed program for frags, parsing and analyzing on
// first use.
func (e *Engine) analyze(frags []*grounding.Fragment) (*program, error) {
	key := programKey(frags)

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.programs[key]; ok {
		e.stats.CacheHits++
		return p, nil
	}

	source := renderFragments(frags)
	unit, err := parse.Unit(strings.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse program %s: %w", key, err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze program %s: %w", key, err)
	}
	p := &program{frags: frags, info: info}
	e.programs[key] = p
	e.stats.Programs++
	e.logger.Debug("analyzed program",
		zap.String("key", key),
		zap.Int("rules", len(info.Rules)),
		zap.Int("decls", len(info.Decls)))
	return p, nil
}

// programKey identifies a fragment list by fragment identity.
func programKey(frags []*grounding.Fragment) string {
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = fmt.Sprintf("%s@%p", f.Name, f)
	}
	return strings.Join(parts, "+")
}

// deadlineStore answers no lookups once ctx is done. Mangle has no context
// option of its own; with every join coming back empty it reaches a fixpoint
// and returns.
type deadlineStore struct {
	factstore.FactStore
	ctx context.Context
}

func (s deadlineStore) GetFacts(query ast.Atom, fn func(ast.Atom) error) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return s.FactStore.GetFacts(query, fn)
}
