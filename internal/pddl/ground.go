package pddl

import (
	"fmt"
	"strings"
)

// Binding maps schema variables to the objects substituted for them.
type Binding map[Variable]Object

// GroundedAction is an executable action instance. Grounding follows the
// schema's parameter order. The JSON shape is what remote agents exchange.
type GroundedAction struct {
	Name      ActionName `json:"name"`
	Grounding []Object   `json:"grounding"`
}

func (g GroundedAction) String() string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(string(g.Name))
	for _, o := range g.Grounding {
		b.WriteString(" ")
		b.WriteString(string(o))
	}
	b.WriteString(")")
	return b.String()
}

// resolve substitutes t under b. Objects pass through unchanged.
func (b Binding) resolve(t Term) (Object, error) {
	switch t := t.(type) {
	case Object:
		return t, nil
	case Variable:
		o, ok := b[t]
		if !ok {
			return "", fmt.Errorf("%w %q: not bound", ErrUndefinedVariable, t)
		}
		return o, nil
	default:
		panic(fmt.Sprintf("pddl: unknown term %T", t))
	}
}

func (b Binding) predicate(p Predicate[Term]) (Predicate[Object], error) {
	args := make([]Object, len(p.Args))
	for i, t := range p.Args {
		o, err := b.resolve(t)
		if err != nil {
			return Predicate[Object]{}, err
		}
		args[i] = o
	}
	return Predicate[Object]{Name: p.Name, Args: args}, nil
}

// GroundCondition substitutes every variable of c under b.
func GroundCondition(c Condition[Term], b Binding) (Condition[Object], error) {
	switch c := c.(type) {
	case And[Term]:
		subs, err := groundAll(c.Conditions, b)
		if err != nil {
			return nil, err
		}
		return And[Object]{Conditions: subs}, nil
	case Or[Term]:
		subs, err := groundAll(c.Conditions, b)
		if err != nil {
			return nil, err
		}
		return Or[Object]{Conditions: subs}, nil
	case Not[Term]:
		sub, err := GroundCondition(c.Condition, b)
		if err != nil {
			return nil, err
		}
		return Not[Object]{Condition: sub}, nil
	case Equality[Term]:
		l, err := b.resolve(c.Left)
		if err != nil {
			return nil, err
		}
		r, err := b.resolve(c.Right)
		if err != nil {
			return nil, err
		}
		return Equality[Object]{Left: l, Right: r}, nil
	case Predicate[Term]:
		return b.predicate(c)
	default:
		panic(fmt.Sprintf("pddl: unknown condition %T", c))
	}
}

func groundAll(conds []Condition[Term], b Binding) ([]Condition[Object], error) {
	out := make([]Condition[Object], len(conds))
	for i, c := range conds {
		g, err := GroundCondition(c, b)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}

// GroundEffect substitutes every variable of e under b.
func GroundEffect(e Effect[Term], b Binding) (Effect[Object], error) {
	switch e := e.(type) {
	case AndEffect[Term]:
		subs := make([]Effect[Object], len(e.Effects))
		for i, sub := range e.Effects {
			g, err := GroundEffect(sub, b)
			if err != nil {
				return nil, err
			}
			subs[i] = g
		}
		return AndEffect[Object]{Effects: subs}, nil
	case Probabilistic[Term]:
		outcomes := make([]Outcome[Object], len(e.Outcomes))
		for i, o := range e.Outcomes {
			g, err := GroundEffect(o.Effect, b)
			if err != nil {
				return nil, err
			}
			outcomes[i] = Outcome[Object]{Bound: o.Bound, Effect: g}
		}
		return Probabilistic[Object]{Outcomes: outcomes}, nil
	case Predicate[Term]:
		return b.predicate(e)
	case NotPredicate[Term]:
		p, err := b.predicate(e.Predicate)
		if err != nil {
			return nil, err
		}
		return NotPredicate[Object]{Predicate: p}, nil
	default:
		panic(fmt.Sprintf("pddl: unknown effect %T", e))
	}
}
