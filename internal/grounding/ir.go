package grounding

import (
	"context"
	"fmt"
	"strings"

	"pddlsim/internal/intern"
)

// Pred names a relation of the compiled program.
type Pred struct {
	Name  string
	Arity int
}

func (p Pred) String() string { return fmt.Sprintf("%s/%d", p.Name, p.Arity) }

// Atom is a relation applied to terms. A term whose Kind is intern.Variable is
// a rule variable; every other kind is a constant.
type Atom struct {
	Pred Pred
	Args []intern.ID
}

func (a Atom) String() string {
	parts := make([]string, len(a.Args))
	for i, t := range a.Args {
		parts[i] = t.String()
	}
	return a.Pred.Name + "(" + strings.Join(parts, ", ") + ")"
}

// IsVar reports whether t is a rule variable.
func IsVar(t intern.ID) bool { return t.Kind == intern.Variable }

// LiteralKind selects how a body literal is read.
type LiteralKind uint8

const (
	Positive LiteralKind = iota
	Negative
	Equal
	NotEqual
)

// Literal is one body element. Positive and Negative use Atom; Equal and
// NotEqual compare Left and Right.
type Literal struct {
	Kind        LiteralKind
	Atom        Atom
	Left, Right intern.ID
}

func (l Literal) String() string {
	switch l.Kind {
	case Positive:
		return l.Atom.String()
	case Negative:
		return "!" + l.Atom.String()
	case Equal:
		return l.Left.String() + " = " + l.Right.String()
	case NotEqual:
		return l.Left.String() + " != " + l.Right.String()
	default:
		return fmt.Sprintf("literal(%d)", l.Kind)
	}
}

// Vars returns the variables the literal mentions, in argument order.
func (l Literal) Vars() []intern.ID {
	var terms []intern.ID
	switch l.Kind {
	case Positive, Negative:
		terms = l.Atom.Args
	default:
		terms = []intern.ID{l.Left, l.Right}
	}
	var out []intern.ID
	for _, t := range terms {
		if IsVar(t) {
			out = append(out, t)
		}
	}
	return out
}

// Rule derives Head whenever every Body literal holds.
type Rule struct {
	Head Atom
	Body []Literal
}

func (r Rule) String() string {
	if len(r.Body) == 0 {
		return r.Head.String() + "."
	}
	parts := make([]string, len(r.Body))
	for i, l := range r.Body {
		parts[i] = l.String()
	}
	return r.Head.String() + " :- " + strings.Join(parts, ", ") + "."
}

// Fragment is a named, self-contained slice of a program: the relations it
// declares, ground facts and rules. Fragments are immutable once compiled.
type Fragment struct {
	Name  string
	Decls []Pred
	Facts []Atom
	Rules []Rule
}

// Program is what a Solver evaluates. Static fragments are stable for an
// episode and may be cached by the backend keyed on their identity. Facts
// change on every call. Only atoms of Show are reported.
type Program struct {
	Static []*Fragment
	Facts  []Atom
	Show   Pred
}

// Solver evaluates a program to its model and calls emit once for every atom
// of prog.Show, then returns. Solve must not retain or modify prog.Facts.
// Failures to start or finish evaluation are returned as errors; a program
// with no Show atoms is not an error.
type Solver interface {
	Solve(ctx context.Context, prog Program, emit func(Atom) error) error
}
