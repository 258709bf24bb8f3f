// Package datalog is a small stratified Datalog evaluator implementing
// grounding.Solver without external dependencies. Rules are evaluated
// bottom-up and semi-naively, stratum by stratum, to a fixpoint; rule bodies
// are joined by backtracking, expanding the positive literal over the
// smallest relation first and applying filters as soon as their variables
// are bound.
package datalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"pddlsim/internal/grounding"
	"pddlsim/internal/logging"
)

// Config bounds one evaluation.
type Config struct {
	FactLimit    int           // derived facts allowed per evaluation, 0 = unlimited
	QueryTimeout time.Duration // evaluation budget, 0 = unlimited
}

// Engine is a grounding.Solver. Prepared programs are cached by fragment
// identity; Solve may be called concurrently.
type Engine struct {
	config Config
	logger *zap.Logger

	mu       sync.Mutex
	programs map[string]*program
}

// NewEngine returns an evaluator with an empty program cache.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	return &Engine{
		config:   cfg,
		logger:   logging.For(logger, logging.CategorySolver),
		programs: make(map[string]*program),
	}
}

// Solve implements grounding.Solver.
func (e *Engine) Solve(ctx context.Context, prog grounding.Program, emit func(grounding.Atom) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("evaluation not started: %w", err)
	}
	p, err := e.prepare(prog.Static)
	if err != nil {
		return err
	}

	start := time.Now()
	db := newDatabase(e.config.FactLimit)
	for _, f := range p.facts {
		if err := insertFact(db, f); err != nil {
			return err
		}
	}
	for _, f := range prog.Facts {
		if err := insertFact(db, f); err != nil {
			return err
		}
	}

	rounds := 0
	for _, stratum := range p.strata {
		n, err := db.fixpoint(stratum, func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%s interrupted: %w", prog.Show.Name, err)
			}
			if e.config.QueryTimeout > 0 && time.Since(start) > e.config.QueryTimeout {
				return fmt.Errorf("%w: %s after %v", grounding.ErrSolverTimeout, prog.Show.Name, e.config.QueryTimeout)
			}
			return nil
		})
		rounds += n
		if err != nil {
			if errors.Is(err, grounding.ErrSolverTimeout) || ctx.Err() != nil {
				return err
			}
			return fmt.Errorf("evaluate %s: %w", prog.Show.Name, err)
		}
	}
	e.logger.Debug("evaluated program",
		zap.String("show", prog.Show.Name),
		zap.Int("strata", len(p.strata)),
		zap.Int("rounds", rounds),
		zap.Int("derived", db.derived),
		zap.Duration("elapsed", time.Since(start)))

	r, ok := db.relations[prog.Show]
	if !ok {
		return nil
	}
	for _, t := range r.tuples {
		if err := emit(grounding.Atom{Pred: prog.Show, Args: t}); err != nil {
			return err
		}
	}
	return nil
}

func insertFact(db *database, a grounding.Atom) error {
	for _, t := range a.Args {
		if grounding.IsVar(t) {
			return fmt.Errorf("fact %s is not ground", a)
		}
	}
	db.insert(a.Pred, a.Args)
	return nil
}

func (e *Engine) prepare(frags []*grounding.Fragment) (*program, error) {
	key := programKey(frags)
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.programs[key]; ok {
		return p, nil
	}
	p, err := prepare(frags)
	if err != nil {
		return nil, err
	}
	e.programs[key] = p
	return p, nil
}

func programKey(frags []*grounding.Fragment) string {
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = fmt.Sprintf("%s@%p", f.Name, f)
	}
	return strings.Join(parts, "+")
}
