package pddl

import (
	"errors"
	"fmt"
)

// Validation error kinds. Every error returned by NewTypeHierarchy, NewDomain,
// NewProblem and NewProbabilisticEffect unwraps to exactly one of these.
var (
	ErrDuplicateName      = errors.New("duplicate name")
	ErrUndefinedType      = errors.New("undefined type")
	ErrUndefinedPredicate = errors.New("undefined predicate")
	ErrUndefinedVariable  = errors.New("undefined variable")
	ErrUndefinedObject    = errors.New("undefined object")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrArityMismatch      = errors.New("arity mismatch")
	ErrMissingRequirement = errors.New("missing requirement")
	ErrDomainMismatch     = errors.New("domain mismatch")
	ErrCyclicHierarchy    = errors.New("cyclic type hierarchy")
	ErrInvalidProbability = errors.New("invalid probability")
	ErrMalformed          = errors.New("malformed expression")
)

// ValidationError describes the first violated constraint found while
// building a domain or problem.
type ValidationError struct {
	Kind   error  // one of the Err* kinds above
	Scope  string // where the violation was found, e.g. `action "move" precondition`
	Symbol string // the offending name
	Detail string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%v %q", e.Kind, e.Symbol)
	if e.Scope != "" {
		msg = e.Scope + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func invalid(kind error, scope string, symbol fmt.Stringer, format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:   kind,
		Scope:  scope,
		Symbol: symbol.String(),
		Detail: fmt.Sprintf(format, args...),
	}
}

// label adapts plain strings (domain and problem names) to invalid's symbol argument.
type label string

func (l label) String() string { return string(l) }
