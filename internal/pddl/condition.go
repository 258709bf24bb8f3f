package pddl

import (
	"fmt"
	"strings"
)

// Condition is a closed sum over And, Or, Not, Equality and Predicate.
// A is Term inside action schemas and Object for ground conditions.
// Consumers switch over the variants and treat anything else as unreachable.
type Condition[A comparable] interface {
	isCondition()
	String() string
}

// And holds when every sub-condition holds. An empty And is true.
type And[A comparable] struct {
	Conditions []Condition[A]
}

// Or holds when any sub-condition holds. An empty Or is false.
// Requires RequireDisjunctivePreconditions.
type Or[A comparable] struct {
	Conditions []Condition[A]
}

// Not negates its sub-condition.
type Not[A comparable] struct {
	Condition Condition[A]
}

// Equality holds when both sides name the same value.
// Requires RequireEquality.
type Equality[A comparable] struct {
	Left, Right A
}

// Predicate is an atomic fact pattern. It is a Condition, an Effect and an Atom.
type Predicate[A comparable] struct {
	Name PredicateName
	Args []A
}

func (And[A]) isCondition()       {}
func (Or[A]) isCondition()        {}
func (Not[A]) isCondition()       {}
func (Equality[A]) isCondition()  {}
func (Predicate[A]) isCondition() {}

// Pred is shorthand for a Predicate literal.
func Pred[A comparable](name PredicateName, args ...A) Predicate[A] {
	return Predicate[A]{Name: name, Args: args}
}

func (c And[A]) String() string { return joinConditions("and", c.Conditions) }
func (c Or[A]) String() string  { return joinConditions("or", c.Conditions) }
func (c Not[A]) String() string { return "(not " + c.Condition.String() + ")" }

func (c Equality[A]) String() string {
	return fmt.Sprintf("(= %v %v)", c.Left, c.Right)
}

func (p Predicate[A]) String() string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(string(p.Name))
	for _, arg := range p.Args {
		fmt.Fprintf(&b, " %v", arg)
	}
	b.WriteString(")")
	return b.String()
}

func joinConditions[A comparable](op string, conds []Condition[A]) string {
	parts := make([]string, 0, len(conds)+1)
	parts = append(parts, op)
	for _, c := range conds {
		parts = append(parts, c.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Key returns a string identifying the ground predicate, usable as a map key.
func Key(p Predicate[Object]) string {
	var b strings.Builder
	b.WriteString(string(p.Name))
	for _, arg := range p.Args {
		b.WriteByte(0)
		b.WriteString(string(arg))
	}
	return b.String()
}
