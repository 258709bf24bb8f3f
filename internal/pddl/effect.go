package pddl

import (
	"fmt"
	"math"
	"strings"
)

// probabilityTolerance absorbs float rounding when outcome probabilities sum to 1.
const probabilityTolerance = 1e-9

// Effect is a closed sum over AndEffect, Probabilistic and the Atom variants
// Predicate (add) and NotPredicate (delete).
type Effect[A comparable] interface {
	isEffect()
	String() string
}

// Atom is the effect-legal subset of conditions: Predicate or NotPredicate.
type Atom[A comparable] interface {
	Effect[A]
	isAtom()
}

// AndEffect applies its sub-effects in order. An empty AndEffect does nothing.
type AndEffect[A comparable] struct {
	Effects []Effect[A]
}

// NotPredicate removes a fact from the state.
type NotPredicate[A comparable] struct {
	Predicate Predicate[A]
}

// Outcome is one possibility of a Probabilistic effect. Bound is the
// cumulative probability up to and including this outcome.
type Outcome[A comparable] struct {
	Bound  float64
	Effect Effect[A]
}

// Probabilistic selects at most one outcome. Probability mass not assigned to
// any outcome selects the empty effect. Requires RequireProbabilisticEffects.
type Probabilistic[A comparable] struct {
	Outcomes []Outcome[A]
}

// Weighted pairs an effect with its own (non-cumulative) probability.
type Weighted[A comparable] struct {
	Probability float64
	Effect      Effect[A]
}

func (AndEffect[A]) isEffect()     {}
func (Probabilistic[A]) isEffect() {}
func (Predicate[A]) isEffect()     {}
func (NotPredicate[A]) isEffect()  {}

func (Predicate[A]) isAtom()    {}
func (NotPredicate[A]) isAtom() {}

// NewProbabilisticEffect accumulates the given probabilities into outcome
// bounds. Negative or non-finite probabilities, or a total above 1, fail.
func NewProbabilisticEffect[A comparable](choices ...Weighted[A]) (Probabilistic[A], error) {
	outcomes := make([]Outcome[A], 0, len(choices))
	total := 0.0
	for i, c := range choices {
		if c.Probability < 0 || math.IsNaN(c.Probability) || math.IsInf(c.Probability, 0) {
			return Probabilistic[A]{}, invalid(ErrInvalidProbability, "probabilistic effect", label(fmt.Sprint(c.Probability)), "outcome %d", i)
		}
		if c.Effect == nil {
			c.Effect = AndEffect[A]{}
		}
		total += c.Probability
		if total > 1+probabilityTolerance {
			return Probabilistic[A]{}, invalid(ErrInvalidProbability, "probabilistic effect", label(fmt.Sprint(total)), "probabilities sum above 1")
		}
		outcomes = append(outcomes, Outcome[A]{Bound: total, Effect: c.Effect})
	}
	return Probabilistic[A]{Outcomes: outcomes}, nil
}

// checkBounds verifies that cumulative bounds never decrease and stay within [0, 1].
func (p Probabilistic[A]) checkBounds() error {
	prev := 0.0
	for i, o := range p.Outcomes {
		if math.IsNaN(o.Bound) || o.Bound < prev || o.Bound > 1+probabilityTolerance {
			return invalid(ErrInvalidProbability, "probabilistic effect", label(fmt.Sprint(o.Bound)), "outcome %d bound out of order or above 1", i)
		}
		prev = o.Bound
	}
	return nil
}

func (e AndEffect[A]) String() string {
	parts := []string{"and"}
	for _, sub := range e.Effects {
		parts = append(parts, sub.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (e NotPredicate[A]) String() string {
	return "(not " + e.Predicate.String() + ")"
}

func (e Probabilistic[A]) String() string {
	parts := []string{"probabilistic"}
	prev := 0.0
	for _, o := range e.Outcomes {
		parts = append(parts, fmt.Sprintf("%g %s", o.Bound-prev, o.Effect))
		prev = o.Bound
	}
	return "(" + strings.Join(parts, " ") + ")"
}
