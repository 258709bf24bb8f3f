// Package world holds the mutable world state of one simulation episode: the
// set of ground predicates that currently hold, condition evaluation against
// that set, and effect application.
package world

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"

	"pddlsim/internal/pddl"
)

// State is the set of true ground predicates. It is owned by exactly one
// simulation and is not safe for concurrent mutation.
type State struct {
	facts map[string]pddl.Predicate[pddl.Object]
}

// New builds a state holding exactly the given facts. Duplicates collapse.
func New(init []pddl.Predicate[pddl.Object]) *State {
	s := &State{facts: make(map[string]pddl.Predicate[pddl.Object], len(init))}
	for _, p := range init {
		s.add(p)
	}
	return s
}

// Holds reports whether the exact ground tuple is in the true set.
func (s *State) Holds(p pddl.Predicate[pddl.Object]) bool {
	_, ok := s.facts[pddl.Key(p)]
	return ok
}

// Len returns the number of true predicates.
func (s *State) Len() int { return len(s.facts) }

// Range calls fn for every true predicate in unspecified order until fn
// returns false.
func (s *State) Range(fn func(pddl.Predicate[pddl.Object]) bool) {
	for _, p := range s.facts {
		if !fn(p) {
			return
		}
	}
}

// TruePredicates returns a snapshot of the true set sorted by predicate name,
// then argument tuple.
func (s *State) TruePredicates() []pddl.Predicate[pddl.Object] {
	out := make([]pddl.Predicate[pddl.Object], 0, len(s.facts))
	for _, p := range s.facts {
		out = append(out, p)
	}
	slices.SortFunc(out, ComparePredicates)
	return out
}

// ComparePredicates orders ground predicates by name, then arguments.
func ComparePredicates(a, b pddl.Predicate[pddl.Object]) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return slices.Compare(a.Args, b.Args)
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	c := &State{facts: make(map[string]pddl.Predicate[pddl.Object], len(s.facts))}
	for k, p := range s.facts {
		c.facts[k] = p
	}
	return c
}

// Equal reports whether both states hold the same facts.
func (s *State) Equal(other *State) bool {
	if len(s.facts) != len(other.facts) {
		return false
	}
	for k := range s.facts {
		if _, ok := other.facts[k]; !ok {
			return false
		}
	}
	return true
}

func (s *State) add(p pddl.Predicate[pddl.Object]) {
	key := pddl.Key(p)
	if _, ok := s.facts[key]; ok {
		return
	}
	var args []pddl.Object
	if len(p.Args) > 0 {
		args = slices.Clone(p.Args)
	}
	s.facts[key] = pddl.Predicate[pddl.Object]{Name: p.Name, Args: args}
}

func (s *State) remove(p pddl.Predicate[pddl.Object]) {
	delete(s.facts, pddl.Key(p))
}

// DoesConditionHold evaluates a ground condition against the true set.
// An empty And holds; an empty Or does not.
func (s *State) DoesConditionHold(c pddl.Condition[pddl.Object]) bool {
	switch c := c.(type) {
	case pddl.And[pddl.Object]:
		for _, sub := range c.Conditions {
			if !s.DoesConditionHold(sub) {
				return false
			}
		}
		return true
	case pddl.Or[pddl.Object]:
		for _, sub := range c.Conditions {
			if s.DoesConditionHold(sub) {
				return true
			}
		}
		return false
	case pddl.Not[pddl.Object]:
		return !s.DoesConditionHold(c.Condition)
	case pddl.Equality[pddl.Object]:
		return c.Left == c.Right
	case pddl.Predicate[pddl.Object]:
		return s.Holds(c)
	default:
		panic(fmt.Sprintf("world: unknown condition %T", c))
	}
}

// ApplyEffect mutates the state by e. It never fails: adding a fact that
// already holds and deleting one that does not are both no-ops. rng is drawn
// once per probabilistic node reached, so a fixed seed and a fixed sequence of
// effects reproduce the same state.
func (s *State) ApplyEffect(e pddl.Effect[pddl.Object], rng *rand.Rand) {
	switch e := e.(type) {
	case pddl.AndEffect[pddl.Object]:
		for _, sub := range e.Effects {
			s.ApplyEffect(sub, rng)
		}
	case pddl.Probabilistic[pddl.Object]:
		if chosen, ok := choose(e, rng.Float64()); ok {
			s.ApplyEffect(chosen, rng)
		}
	case pddl.Predicate[pddl.Object]:
		s.add(e)
	case pddl.NotPredicate[pddl.Object]:
		s.remove(e.Predicate)
	default:
		panic(fmt.Sprintf("world: unknown effect %T", e))
	}
}

// choose returns the first outcome whose cumulative bound exceeds draw.
// Draws past the last bound select the empty effect.
func choose(p pddl.Probabilistic[pddl.Object], draw float64) (pddl.Effect[pddl.Object], bool) {
	i := sort.Search(len(p.Outcomes), func(i int) bool {
		return p.Outcomes[i].Bound > draw
	})
	if i == len(p.Outcomes) {
		return nil, false
	}
	return p.Outcomes[i].Effect, true
}
