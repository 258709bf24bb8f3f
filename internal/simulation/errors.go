package simulation

import (
	"errors"
	"fmt"

	"pddlsim/internal/pddl"
)

var (
	// ErrPreconditionViolation is expected and recoverable: the caller reports
	// it to the acting agent and the episode continues unchanged.
	ErrPreconditionViolation = errors.New("precondition violation")

	// ErrSimulationCompleted means an action arrived after the goal was reached.
	ErrSimulationCompleted = errors.New("simulation already completed")

	// ErrUnknownAction means the grounded action names no schema of the domain.
	ErrUnknownAction = errors.New("unknown action")

	// ErrInvalidGrounding covers arity mismatches, objects outside the
	// problem's universe and objects whose type the parameter does not accept.
	ErrInvalidGrounding = errors.New("invalid grounding")
)

// PreconditionError names the rejected action.
type PreconditionError struct {
	Action pddl.GroundedAction
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%v: %s", ErrPreconditionViolation, e.Action)
}

func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionViolation
}
