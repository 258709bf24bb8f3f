package datalog

import (
	"errors"
	"fmt"

	"pddlsim/internal/grounding"
	"pddlsim/internal/intern"
)

// ErrUnstratifiable reports negation inside a recursive cycle.
var ErrUnstratifiable = errors.New("program is not stratifiable")

// ErrUnsafeRule reports a rule with a variable no positive literal binds.
var ErrUnsafeRule = errors.New("unsafe rule")

// program is a prepared set of static fragments: base facts plus rules
// grouped into strata in evaluation order.
type program struct {
	frags  []*grounding.Fragment // keeps the cache key's pointers alive
	facts  []grounding.Atom
	strata [][]grounding.Rule
}

func prepare(frags []*grounding.Fragment) (*program, error) {
	p := &program{frags: frags}
	var rules []grounding.Rule
	for _, f := range frags {
		p.facts = append(p.facts, f.Facts...)
		for _, r := range f.Rules {
			if err := checkSafe(r); err != nil {
				return nil, fmt.Errorf("fragment %s: %w", f.Name, err)
			}
			rules = append(rules, r)
		}
	}
	strata, err := stratify(rules)
	if err != nil {
		return nil, err
	}
	p.strata = strata
	return p, nil
}

// checkSafe verifies that every variable of the rule is bound by a positive
// literal, directly or through a chain of equalities.
func checkSafe(r grounding.Rule) error {
	bound := make(map[intern.ID]bool)
	for _, l := range r.Body {
		if l.Kind == grounding.Positive {
			for _, v := range l.Vars() {
				bound[v] = true
			}
		}
	}
	for changed := true; changed; {
		changed = false
		for _, l := range r.Body {
			if l.Kind != grounding.Equal {
				continue
			}
			lb := !grounding.IsVar(l.Left) || bound[l.Left]
			rb := !grounding.IsVar(l.Right) || bound[l.Right]
			if lb && !rb {
				bound[l.Right] = true
				changed = true
			} else if rb && !lb {
				bound[l.Left] = true
				changed = true
			}
		}
	}

	check := func(vars []intern.ID) error {
		for _, v := range vars {
			if !bound[v] {
				return fmt.Errorf("%w: %s: variable %s is not bound", ErrUnsafeRule, r, v)
			}
		}
		return nil
	}
	if err := check(headVars(r.Head)); err != nil {
		return err
	}
	for _, l := range r.Body {
		if err := check(l.Vars()); err != nil {
			return err
		}
	}
	return nil
}

func headVars(a grounding.Atom) []intern.ID {
	var out []intern.ID
	for _, t := range a.Args {
		if grounding.IsVar(t) {
			out = append(out, t)
		}
	}
	return out
}

// stratify groups rules by the strongly connected components of the
// dependency graph (head depends on every body relation) and orders the
// components so that every relation is complete before it is negated.
func stratify(rules []grounding.Rule) ([][]grounding.Rule, error) {
	type edge struct {
		to       grounding.Pred
		negative bool
	}
	deps := make(map[grounding.Pred][]edge)
	var heads []grounding.Pred
	for _, r := range rules {
		h := r.Head.Pred
		if _, seen := deps[h]; !seen {
			heads = append(heads, h)
			deps[h] = nil
		}
		for _, l := range r.Body {
			switch l.Kind {
			case grounding.Positive:
				deps[h] = append(deps[h], edge{to: l.Atom.Pred})
			case grounding.Negative:
				deps[h] = append(deps[h], edge{to: l.Atom.Pred, negative: true})
			}
		}
	}

	// Tarjan's algorithm emits components dependencies-first.
	var (
		index   = make(map[grounding.Pred]int)
		low     = make(map[grounding.Pred]int)
		onStack = make(map[grounding.Pred]bool)
		stack   []grounding.Pred
		comps   [][]grounding.Pred
		next    int
	)
	var visit func(v grounding.Pred)
	visit = func(v grounding.Pred) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, e := range deps[v] {
			if _, idb := deps[e.to]; !idb {
				continue
			}
			if _, seen := index[e.to]; !seen {
				visit(e.to)
				low[v] = min(low[v], low[e.to])
			} else if onStack[e.to] {
				low[v] = min(low[v], index[e.to])
			}
		}
		if low[v] != index[v] {
			return
		}
		var comp []grounding.Pred
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		comps = append(comps, comp)
	}
	for _, h := range heads {
		if _, seen := index[h]; !seen {
			visit(h)
		}
	}

	compOf := make(map[grounding.Pred]int, len(heads))
	for i, comp := range comps {
		for _, p := range comp {
			compOf[p] = i
		}
	}
	for h, es := range deps {
		for _, e := range es {
			if c, idb := compOf[e.to]; idb && e.negative && c == compOf[h] {
				return nil, fmt.Errorf("%w: %s negates %s within a cycle", ErrUnstratifiable, h, e.to)
			}
		}
	}

	strata := make([][]grounding.Rule, len(comps))
	for _, r := range rules {
		c := compOf[r.Head.Pred]
		strata[c] = append(strata[c], r)
	}
	return strata, nil
}
