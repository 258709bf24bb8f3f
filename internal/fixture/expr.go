package fixture

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"pddlsim/internal/pddl"
)

// expr is one decoded condition or effect node. Each node is a single-key
// mapping whose key names the construct:
//
//	{and: [...]} {or: [...]} {not: {...}} {eq: [a, b]} {pred: [name, args...]}
//	{add: [name, args...]} {del: [name, args...]} {prob: [{p: 0.5, effect: {...}}]}
type expr struct {
	op    string
	subs  []expr
	args  []string
	probs []float64
	line  int
}

type weightedNode struct {
	P      float64 `yaml:"p"`
	Effect expr    `yaml:"effect"`
}

func (e *expr) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: expected a single-key mapping like {and: [...]}", node.Line)
	}
	key, value := node.Content[0], node.Content[1]
	e.op = strings.ToLower(key.Value)
	e.line = node.Line

	switch e.op {
	case "and", "or":
		return value.Decode(&e.subs)
	case "not":
		var sub expr
		if err := value.Decode(&sub); err != nil {
			return err
		}
		e.subs = []expr{sub}
		return nil
	case "eq", "pred", "add", "del":
		if err := value.Decode(&e.args); err != nil {
			return err
		}
		if e.op == "eq" && len(e.args) != 2 {
			return fmt.Errorf("line %d: eq takes exactly two terms, got %d", node.Line, len(e.args))
		}
		if e.op != "eq" && len(e.args) == 0 {
			return fmt.Errorf("line %d: %s needs a predicate name", node.Line, e.op)
		}
		return nil
	case "prob":
		var ws []weightedNode
		if err := value.Decode(&ws); err != nil {
			return err
		}
		for _, w := range ws {
			e.probs = append(e.probs, w.P)
			e.subs = append(e.subs, w.Effect)
		}
		return nil
	default:
		return fmt.Errorf("line %d: unknown construct %q", node.Line, key.Value)
	}
}

func schemaTerm(s string) pddl.Term {
	if strings.HasPrefix(s, "?") {
		return pddl.Variable(s)
	}
	return pddl.Object(s)
}

func objectTerm(s string) pddl.Object { return pddl.Object(s) }

func predicate[A comparable](args []string, term func(string) A) pddl.Predicate[A] {
	p := pddl.Predicate[A]{Name: pddl.PredicateName(args[0])}
	for _, a := range args[1:] {
		p.Args = append(p.Args, term(a))
	}
	return p
}

func condition[A comparable](e expr, term func(string) A) (pddl.Condition[A], error) {
	switch e.op {
	case "and", "or":
		subs := make([]pddl.Condition[A], len(e.subs))
		for i, s := range e.subs {
			c, err := condition(s, term)
			if err != nil {
				return nil, err
			}
			subs[i] = c
		}
		if e.op == "and" {
			return pddl.And[A]{Conditions: subs}, nil
		}
		return pddl.Or[A]{Conditions: subs}, nil
	case "not":
		c, err := condition(e.subs[0], term)
		if err != nil {
			return nil, err
		}
		return pddl.Not[A]{Condition: c}, nil
	case "eq":
		return pddl.Equality[A]{Left: term(e.args[0]), Right: term(e.args[1])}, nil
	case "pred":
		return predicate(e.args, term), nil
	default:
		return nil, fmt.Errorf("line %d: %s is not a condition", e.line, e.op)
	}
}

func effect(e expr) (pddl.Effect[pddl.Term], error) {
	switch e.op {
	case "and":
		subs := make([]pddl.Effect[pddl.Term], len(e.subs))
		for i, s := range e.subs {
			eff, err := effect(s)
			if err != nil {
				return nil, err
			}
			subs[i] = eff
		}
		return pddl.AndEffect[pddl.Term]{Effects: subs}, nil
	case "add", "pred":
		return predicate(e.args, schemaTerm), nil
	case "del":
		return pddl.NotPredicate[pddl.Term]{Predicate: predicate(e.args, schemaTerm)}, nil
	case "prob":
		choices := make([]pddl.Weighted[pddl.Term], len(e.subs))
		for i, s := range e.subs {
			eff, err := effect(s)
			if err != nil {
				return nil, err
			}
			choices[i] = pddl.Weighted[pddl.Term]{Probability: e.probs[i], Effect: eff}
		}
		p, err := pddl.NewProbabilisticEffect(choices...)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", e.line, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("line %d: %s is not an effect", e.line, e.op)
	}
}
