package grounding

import (
	"fmt"
	"slices"

	"pddlsim/internal/intern"
	"pddlsim/internal/pddl"
	"pddlsim/internal/world"
)

// Relations shared by every compiled program.
var (
	ObjectTypePred = Pred{Name: "object_type", Arity: 2}
	SubtypePred    = Pred{Name: "subtype", Arity: 2}
	IsAPred        = Pred{Name: "is_a", Arity: 2}
)

// Compiler turns a domain and problem into program fragments. All names that
// can appear in a program are interned by NewCompiler, so compiling state and
// schemas afterwards only reads the interner.
type Compiler struct {
	domain   *pddl.Domain
	problem  *pddl.Problem
	interner *intern.Interner
}

// NewCompiler interns the problem's universe, the type hierarchy, the domain
// predicates and every schema parameter into in.
func NewCompiler(domain *pddl.Domain, problem *pddl.Problem, in *intern.Interner) *Compiler {
	c := &Compiler{domain: domain, problem: problem, interner: in}
	for _, o := range problem.Universe() {
		c.object(o.Name)
	}
	c.typ(pddl.ObjectType{})
	for _, t := range domain.Types().Types() {
		c.typ(t)
	}
	for _, p := range domain.Predicates() {
		in.IDOrInsert(intern.Predicate, string(p.Name))
	}
	for _, a := range domain.Actions() {
		for _, p := range a.Params {
			c.variable(p.Name)
		}
	}
	return c
}

func (c *Compiler) object(o pddl.Object) intern.ID {
	return c.interner.IDOrInsert(intern.Object, string(o))
}

func (c *Compiler) typ(t pddl.Type) intern.ID {
	return c.interner.IDOrInsert(intern.Type, t.String())
}

func (c *Compiler) variable(v pddl.Variable) intern.ID {
	return c.interner.IDOrInsert(intern.Variable, string(v))
}

// predicate returns the program relation standing for a domain predicate.
func (c *Compiler) predicate(name pddl.PredicateName, arity int) Pred {
	id := c.interner.IDOrInsert(intern.Predicate, string(name))
	return Pred{Name: fmt.Sprintf("p%d", id.Index), Arity: arity}
}

func (c *Compiler) term(t pddl.Term) intern.ID {
	switch t := t.(type) {
	case pddl.Variable:
		return c.variable(t)
	case pddl.Object:
		return c.object(t)
	default:
		panic(fmt.Sprintf("grounding: unknown term %T", t))
	}
}

// CompileTypes builds the object/type fragment: declarations of every domain
// predicate, the declared type of every object and constant, the supertype of
// every custom type and the transitive is_a closure over both.
func (c *Compiler) CompileTypes() *Fragment {
	f := &Fragment{Name: "types"}
	for _, p := range c.domain.Predicates() {
		f.Decls = append(f.Decls, c.predicate(p.Name, len(p.Params)))
	}
	f.Decls = append(f.Decls, ObjectTypePred, SubtypePred, IsAPred)

	for _, o := range c.problem.Universe() {
		f.Facts = append(f.Facts, Atom{Pred: ObjectTypePred, Args: []intern.ID{c.object(o.Name), c.typ(o.Type)}})
	}
	types := c.domain.Types()
	for _, t := range types.Types() {
		super, _ := types.Supertype(t)
		f.Facts = append(f.Facts, Atom{Pred: SubtypePred, Args: []intern.ID{c.typ(t), c.typ(super)}})
	}

	o, t, s := c.variable("?o"), c.variable("?t"), c.variable("?s")
	f.Rules = append(f.Rules,
		Rule{
			Head: Atom{Pred: IsAPred, Args: []intern.ID{o, t}},
			Body: []Literal{{Kind: Positive, Atom: Atom{Pred: ObjectTypePred, Args: []intern.ID{o, t}}}},
		},
		Rule{
			Head: Atom{Pred: IsAPred, Args: []intern.ID{o, t}},
			Body: []Literal{
				{Kind: Positive, Atom: Atom{Pred: IsAPred, Args: []intern.ID{o, s}}},
				{Kind: Positive, Atom: Atom{Pred: SubtypePred, Args: []intern.ID{s, t}}},
			},
		},
	)
	return f
}

// CompileState turns the true set into facts of the domain relations.
func (c *Compiler) CompileState(state *world.State) []Atom {
	facts := make([]Atom, 0, state.Len())
	state.Range(func(p pddl.Predicate[pddl.Object]) bool {
		args := make([]intern.ID, len(p.Args))
		for i, o := range p.Args {
			args[i] = c.object(o)
		}
		facts = append(facts, Atom{Pred: c.predicate(p.Name, len(p.Args)), Args: args})
		return true
	})
	return facts
}

// CompileSchema builds the static fragment of the index-th action schema and
// returns it with the relation whose atoms are the schema's groundings. The
// head's arguments follow the schema's parameter order.
func (c *Compiler) CompileSchema(index int, a *pddl.ActionDefinition) (*Fragment, Pred) {
	sc := &schemaCompiler{
		Compiler: c,
		index:    index,
		types:    make(map[intern.ID]pddl.Type, len(a.Params)),
		frag:     &Fragment{Name: "schema:" + string(a.Name)},
	}
	head := Atom{Pred: Pred{Name: fmt.Sprintf("act_%d", index), Arity: len(a.Params)}}
	for _, p := range a.Params {
		v := c.variable(p.Name)
		sc.order = append(sc.order, v)
		sc.types[v] = p.Type
		head.Args = append(head.Args, v)
	}
	sc.frag.Decls = append(sc.frag.Decls, head.Pred)

	if body, ok := sc.conj(a.Precondition); ok {
		sc.frag.Rules = append(sc.frag.Rules, sc.rule(head, body, true))
	}
	return sc.frag, head.Pred
}

type schemaCompiler struct {
	*Compiler
	index int
	order []intern.ID // parameters in declaration order
	types map[intern.ID]pddl.Type
	frag  *Fragment
	aux   int
}

// conj translates cond into a conjunction of literals. ok is false when cond
// can never hold; an empty, ok result means cond always holds.
func (s *schemaCompiler) conj(cond pddl.Condition[pddl.Term]) ([]Literal, bool) {
	switch cond := cond.(type) {
	case pddl.And[pddl.Term]:
		var out []Literal
		for _, sub := range cond.Conditions {
			lits, ok := s.conj(sub)
			if !ok {
				return nil, false
			}
			out = append(out, lits...)
		}
		return out, true

	case pddl.Or[pddl.Term]:
		var branches [][]Literal
		for _, sub := range cond.Conditions {
			lits, ok := s.conj(sub)
			if !ok {
				continue
			}
			if len(lits) == 0 {
				return nil, true
			}
			branches = append(branches, lits)
		}
		switch len(branches) {
		case 0:
			return nil, false
		case 1:
			return branches[0], true
		}
		head := s.auxHead(cond)
		for _, lits := range branches {
			s.frag.Rules = append(s.frag.Rules, s.rule(head, lits, false))
		}
		return []Literal{{Kind: Positive, Atom: head}}, true

	case pddl.Not[pddl.Term]:
		return s.negate(cond.Condition)

	case pddl.Equality[pddl.Term]:
		l, r := s.term(cond.Left), s.term(cond.Right)
		if l == r {
			return nil, true
		}
		if !IsVar(l) && !IsVar(r) {
			return nil, false
		}
		return []Literal{{Kind: Equal, Left: l, Right: r}}, true

	case pddl.Predicate[pddl.Term]:
		return []Literal{{Kind: Positive, Atom: s.atom(cond)}}, true

	default:
		panic(fmt.Sprintf("grounding: unknown condition %T", cond))
	}
}

func (s *schemaCompiler) negate(cond pddl.Condition[pddl.Term]) ([]Literal, bool) {
	switch cond := cond.(type) {
	case pddl.Predicate[pddl.Term]:
		return []Literal{{Kind: Negative, Atom: s.atom(cond)}}, true
	case pddl.Not[pddl.Term]:
		return s.conj(cond.Condition)
	case pddl.Equality[pddl.Term]:
		l, r := s.term(cond.Left), s.term(cond.Right)
		if l == r {
			return nil, false
		}
		if !IsVar(l) && !IsVar(r) {
			return nil, true
		}
		return []Literal{{Kind: NotEqual, Left: l, Right: r}}, true
	}

	lits, ok := s.conj(cond)
	switch {
	case !ok:
		return nil, true
	case len(lits) == 0:
		return nil, false
	case len(lits) == 1:
		l := lits[0]
		switch l.Kind {
		case Positive:
			l.Kind = Negative
		case Negative:
			l.Kind = Positive
		case Equal:
			l.Kind = NotEqual
		case NotEqual:
			l.Kind = Equal
		}
		return []Literal{l}, true
	}
	head := s.auxHead(cond)
	s.frag.Rules = append(s.frag.Rules, s.rule(head, lits, false))
	return []Literal{{Kind: Negative, Atom: head}}, true
}

func (s *schemaCompiler) atom(p pddl.Predicate[pddl.Term]) Atom {
	args := make([]intern.ID, len(p.Args))
	for i, t := range p.Args {
		args[i] = s.term(t)
	}
	return Atom{Pred: s.predicate(p.Name, len(p.Args)), Args: args}
}

// auxHead allocates a fresh relation over the free variables of cond.
func (s *schemaCompiler) auxHead(cond pddl.Condition[pddl.Term]) Atom {
	free := make(map[intern.ID]bool)
	s.collect(cond, free)
	var args []intern.ID
	for _, v := range s.order {
		if free[v] {
			args = append(args, v)
		}
	}
	p := Pred{Name: fmt.Sprintf("aux_%d_%d", s.index, s.aux), Arity: len(args)}
	s.aux++
	s.frag.Decls = append(s.frag.Decls, p)
	return Atom{Pred: p, Args: args}
}

func (s *schemaCompiler) collect(cond pddl.Condition[pddl.Term], into map[intern.ID]bool) {
	add := func(t pddl.Term) {
		if v, ok := t.(pddl.Variable); ok {
			into[s.variable(v)] = true
		}
	}
	switch cond := cond.(type) {
	case pddl.And[pddl.Term]:
		for _, sub := range cond.Conditions {
			s.collect(sub, into)
		}
	case pddl.Or[pddl.Term]:
		for _, sub := range cond.Conditions {
			s.collect(sub, into)
		}
	case pddl.Not[pddl.Term]:
		s.collect(cond.Condition, into)
	case pddl.Equality[pddl.Term]:
		add(cond.Left)
		add(cond.Right)
	case pddl.Predicate[pddl.Term]:
		for _, t := range cond.Args {
			add(t)
		}
	default:
		panic(fmt.Sprintf("grounding: unknown condition %T", cond))
	}
}

// rule orders the body as positive literals, then is_a guards, then the
// remaining filters. Every variable of the rule that no positive literal binds
// gets a guard on its parameter type; guardAll guards every head variable too.
func (s *schemaCompiler) rule(head Atom, body []Literal, guardAll bool) Rule {
	bound := make(map[intern.ID]bool)
	used := make(map[intern.ID]bool)
	for _, v := range head.Args {
		used[v] = true
	}
	var positive, filters []Literal
	for _, l := range body {
		for _, v := range l.Vars() {
			used[v] = true
		}
		if l.Kind == Positive {
			positive = append(positive, l)
			for _, v := range l.Vars() {
				bound[v] = true
			}
		} else {
			filters = append(filters, l)
		}
	}

	var guards []Literal
	for _, v := range s.order {
		if !used[v] || (bound[v] && !guardAll) {
			continue
		}
		guards = append(guards, Literal{
			Kind: Positive,
			Atom: Atom{Pred: IsAPred, Args: []intern.ID{v, s.typ(s.types[v])}},
		})
	}
	return Rule{Head: head, Body: slices.Concat(positive, guards, filters)}
}
