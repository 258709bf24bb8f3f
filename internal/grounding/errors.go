package grounding

import "errors"

var (
	// ErrSolver marks a backend failure. It is an environment error: the
	// domain and problem are valid and retrying the same call will not help.
	ErrSolver = errors.New("solver failure")

	// ErrSolverTimeout marks an evaluation that exceeded its time budget.
	ErrSolverTimeout = errors.New("solver timed out")
)
