// Package pddltest builds small validated domains and problems shared by tests.
package pddltest

import (
	"testing"

	"pddlsim/internal/pddl"
)

type (
	v = pddl.Variable
	o = pddl.Object
)

func tv(name string, t pddl.Type) pddl.TypedVariable {
	return pddl.TypedVariable{Name: v(name), Type: t}
}

func pt(name pddl.PredicateName, args ...pddl.Term) pddl.Predicate[pddl.Term] {
	return pddl.Predicate[pddl.Term]{Name: name, Args: args}
}

func po(name pddl.PredicateName, args ...pddl.Object) pddl.Predicate[pddl.Object] {
	return pddl.Predicate[pddl.Object]{Name: name, Args: args}
}

func and(conds ...pddl.Condition[pddl.Term]) pddl.Condition[pddl.Term] {
	return pddl.And[pddl.Term]{Conditions: conds}
}

func or(conds ...pddl.Condition[pddl.Term]) pddl.Condition[pddl.Term] {
	return pddl.Or[pddl.Term]{Conditions: conds}
}

func not(c pddl.Condition[pddl.Term]) pddl.Condition[pddl.Term] {
	return pddl.Not[pddl.Term]{Condition: c}
}

func eq(l, r pddl.Term) pddl.Condition[pddl.Term] {
	return pddl.Equality[pddl.Term]{Left: l, Right: r}
}

func effects(es ...pddl.Effect[pddl.Term]) pddl.Effect[pddl.Term] {
	return pddl.AndEffect[pddl.Term]{Effects: es}
}

func del(p pddl.Predicate[pddl.Term]) pddl.Effect[pddl.Term] {
	return pddl.NotPredicate[pddl.Term]{Predicate: p}
}

// RoomsDomain is a single-gripper world: two rooms, a ball and one robot
// that can pick up, move and drop.
func RoomsDomain() pddl.RawDomain {
	room, ball := pddl.CustomType("room"), pddl.CustomType("ball")
	return pddl.RawDomain{
		Name:         "rooms",
		Requirements: pddl.RequireStrips | pddl.RequireTyping | pddl.RequireEquality | pddl.RequireNegativePreconditions,
		Types: []pddl.TypeDecl{
			{Name: room},
			{Name: ball},
		},
		Predicates: []pddl.PredicateDefinition{
			{Name: "at", Params: []pddl.TypedVariable{tv("?b", ball), tv("?r", room)}},
			{Name: "robot-at", Params: []pddl.TypedVariable{tv("?r", room)}},
			{Name: "holding", Params: []pddl.TypedVariable{tv("?b", ball)}},
			{Name: "hand-empty"},
		},
		Actions: []pddl.ActionDefinition{
			{
				Name:   "pick-up",
				Params: []pddl.TypedVariable{tv("?b", ball), tv("?r", room)},
				Precondition: and(
					pt("at", v("?b"), v("?r")),
					pt("robot-at", v("?r")),
					pt("hand-empty"),
				),
				Effect: effects(
					pt("holding", v("?b")),
					del(pt("at", v("?b"), v("?r"))),
					del(pt("hand-empty")),
				),
			},
			{
				Name:   "move",
				Params: []pddl.TypedVariable{tv("?from", room), tv("?to", room)},
				Precondition: and(
					pt("robot-at", v("?from")),
					not(eq(v("?from"), v("?to"))),
				),
				Effect: effects(
					pt("robot-at", v("?to")),
					del(pt("robot-at", v("?from"))),
				),
			},
			{
				Name:   "drop",
				Params: []pddl.TypedVariable{tv("?b", ball), tv("?r", room)},
				Precondition: and(
					pt("holding", v("?b")),
					pt("robot-at", v("?r")),
				),
				Effect: effects(
					pt("at", v("?b"), v("?r")),
					pt("hand-empty"),
					del(pt("holding", v("?b"))),
				),
			},
		},
	}
}

// RoomsProblem places the ball and the robot in room A; the goal is the ball in B.
func RoomsProblem() pddl.RawProblem {
	room, ball := pddl.CustomType("room"), pddl.CustomType("ball")
	return pddl.RawProblem{
		Name:   "move-ball",
		Domain: "rooms",
		Objects: []pddl.TypedObject{
			{Name: "A", Type: room},
			{Name: "B", Type: room},
			{Name: "ball", Type: ball},
		},
		Init: []pddl.Predicate[pddl.Object]{
			po("at", "ball", "A"),
			po("robot-at", "A"),
			po("hand-empty"),
		},
		Goal: po("at", "ball", "B"),
	}
}

// BlocksDomain exercises every condition construct: typing with a two-level
// hierarchy, a constant, disjunction, equality, nested negation, a predicate
// that never holds, an empty precondition, comparisons of a parameter with a
// constant and a probabilistic effect.
func BlocksDomain() pddl.RawDomain {
	thing, block := pddl.CustomType("thing"), pddl.CustomType("block")
	surface := pddl.CustomType("surface")
	x, y := v("?x"), v("?y")
	floor := o("floor")

	flip, err := pddl.NewProbabilisticEffect(
		pddl.Weighted[pddl.Term]{Probability: 0.5, Effect: pt("red", x)},
		pddl.Weighted[pddl.Term]{Probability: 0.3, Effect: del(pt("red", x))},
	)
	if err != nil {
		panic(err)
	}

	return pddl.RawDomain{
		Name: "blocks",
		Requirements: pddl.RequireStrips | pddl.RequireTyping | pddl.RequireEquality |
			pddl.RequireNegativePreconditions | pddl.RequireDisjunctivePreconditions |
			pddl.RequireProbabilisticEffects,
		Types: []pddl.TypeDecl{
			{Name: thing},
			{Name: block, Supertype: thing},
			{Name: surface, Supertype: thing},
		},
		Constants: []pddl.TypedObject{{Name: floor, Type: surface}},
		Predicates: []pddl.PredicateDefinition{
			{Name: "on", Params: []pddl.TypedVariable{tv("?x", block), tv("?y", thing)}},
			{Name: "clear", Params: []pddl.TypedVariable{tv("?x", thing)}},
			{Name: "red", Params: []pddl.TypedVariable{tv("?x", block)}},
			{Name: "broken", Params: []pddl.TypedVariable{tv("?x", block)}},
		},
		Actions: []pddl.ActionDefinition{
			{
				Name:   "stack",
				Params: []pddl.TypedVariable{tv("?x", block), tv("?y", block)},
				Precondition: and(
					pt("clear", x),
					pt("clear", y),
					not(eq(x, y)),
					or(pt("red", x), not(pt("on", x, floor))),
				),
				Effect: effects(pt("on", x, y), del(pt("clear", y))),
			},
			{
				Name:   "paint",
				Params: []pddl.TypedVariable{tv("?x", block)},
				Precondition: or(
					not(pt("red", x)),
					and(pt("clear", x), pt("on", x, floor)),
				),
				Effect: pt("red", x),
			},
			{
				Name:   "wipe",
				Params: []pddl.TypedVariable{tv("?x", block)},
				Precondition: not(or(
					pt("red", x),
					and(pt("clear", x), not(pt("on", x, floor))),
				)),
				Effect: del(pt("clear", x)),
			},
			{
				Name:   "touch",
				Params: []pddl.TypedVariable{tv("?x", thing), tv("?y", thing)},
			},
			{
				Name:         "rest",
				Precondition: pt("clear", floor),
			},
			{
				Name:         "repair",
				Params:       []pddl.TypedVariable{tv("?x", block)},
				Precondition: and(pt("broken", x), pt("clear", x)),
				Effect:       del(pt("broken", x)),
			},
			{
				Name:         "flip",
				Params:       []pddl.TypedVariable{tv("?x", block)},
				Precondition: or(eq(x, x), pt("broken", x)),
				Effect:       flip,
			},
			{
				Name:         "sweep",
				Params:       []pddl.TypedVariable{tv("?x", thing)},
				Precondition: not(eq(x, floor)),
				Effect:       pt("clear", x),
			},
			{
				Name:         "anchor",
				Params:       []pddl.TypedVariable{tv("?x", thing)},
				Precondition: eq(x, floor),
			},
		},
	}
}

// BlocksProblem has three blocks: a and b on the floor, c on a.
func BlocksProblem() pddl.RawProblem {
	block := pddl.CustomType("block")
	return pddl.RawProblem{
		Name:   "three-blocks",
		Domain: "blocks",
		Objects: []pddl.TypedObject{
			{Name: "a", Type: block},
			{Name: "b", Type: block},
			{Name: "c", Type: block},
		},
		Init: []pddl.Predicate[pddl.Object]{
			po("on", "a", "floor"),
			po("on", "b", "floor"),
			po("on", "c", "a"),
			po("clear", "b"),
			po("clear", "c"),
			po("clear", "floor"),
			po("red", "c"),
		},
		Goal: pddl.And[pddl.Object]{Conditions: []pddl.Condition[pddl.Object]{
			po("on", "a", "b"),
			po("red", "a"),
		}},
	}
}

// Build validates a raw domain and problem, failing the test on error.
func Build(t testing.TB, rd pddl.RawDomain, rp pddl.RawProblem) (*pddl.Domain, *pddl.Problem) {
	t.Helper()
	d, err := pddl.NewDomain(rd)
	if err != nil {
		t.Fatalf("NewDomain(%s) error = %v", rd.Name, err)
	}
	p, err := pddl.NewProblem(rp, d)
	if err != nil {
		t.Fatalf("NewProblem(%s) error = %v", rp.Name, err)
	}
	return d, p
}

// Rooms builds the validated rooms scenario.
func Rooms(t testing.TB) (*pddl.Domain, *pddl.Problem) {
	return Build(t, RoomsDomain(), RoomsProblem())
}

// Blocks builds the validated blocks scenario.
func Blocks(t testing.TB) (*pddl.Domain, *pddl.Problem) {
	return Build(t, BlocksDomain(), BlocksProblem())
}
