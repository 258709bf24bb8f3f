package pddl

import "fmt"

// PredicateDefinition declares a predicate and its ordered typed parameters.
type PredicateDefinition struct {
	Name   PredicateName
	Params []TypedVariable
}

// ActionDefinition is a parametrized action schema.
type ActionDefinition struct {
	Name         ActionName
	Params       []TypedVariable
	Precondition Condition[Term]
	Effect       Effect[Term]
}

// Bind zips the schema's parameters with grounding, in order.
func (a *ActionDefinition) Bind(grounding []Object) (Binding, error) {
	if len(grounding) != len(a.Params) {
		return nil, fmt.Errorf("%w: action %s takes %d objects, got %d", ErrArityMismatch, a.Name, len(a.Params), len(grounding))
	}
	b := make(Binding, len(grounding))
	for i, p := range a.Params {
		b[p.Name] = grounding[i]
	}
	return b, nil
}

// RawDomain is the unchecked syntax of a domain, in declaration order.
type RawDomain struct {
	Name         string
	Requirements Requirements
	Types        []TypeDecl
	Constants    []TypedObject
	Predicates   []PredicateDefinition
	Actions      []ActionDefinition
}

// Domain is a validated planning domain. It is immutable once built.
type Domain struct {
	name         string
	requirements Requirements
	types        *TypeHierarchy

	constants    map[Object]Type
	constantList []TypedObject

	predicates    map[PredicateName]*PredicateDefinition
	predicateList []*PredicateDefinition

	actions    map[ActionName]*ActionDefinition
	actionList []*ActionDefinition
}

// NewDomain validates raw and builds a Domain, failing on the first violated
// constraint: duplicate names, undefined references, type mismatches and
// constructs used without their requirement.
func NewDomain(raw RawDomain) (*Domain, error) {
	d := &Domain{
		name:         raw.Name,
		requirements: raw.Requirements,
		constants:    make(map[Object]Type, len(raw.Constants)),
		predicates:   make(map[PredicateName]*PredicateDefinition, len(raw.Predicates)),
		actions:      make(map[ActionName]*ActionDefinition, len(raw.Actions)),
	}

	if len(raw.Types) > 0 {
		if err := d.require("types", RequireTyping, "type declarations"); err != nil {
			return nil, err
		}
		types, err := NewTypeHierarchy(raw.Types)
		if err != nil {
			return nil, err
		}
		d.types = types
	}

	for _, c := range raw.Constants {
		if _, dup := d.constants[c.Name]; dup {
			return nil, invalid(ErrDuplicateName, "constants", c.Name, "constant declared twice")
		}
		t := normalizeType(c.Type)
		if err := d.checkType("constants", t); err != nil {
			return nil, err
		}
		d.constants[c.Name] = t
		d.constantList = append(d.constantList, TypedObject{Name: c.Name, Type: t})
	}

	for _, p := range raw.Predicates {
		scope := fmt.Sprintf("predicate %q", p.Name)
		if _, dup := d.predicates[p.Name]; dup {
			return nil, invalid(ErrDuplicateName, "predicates", p.Name, "predicate declared twice")
		}
		params, _, err := d.checkParams(scope, p.Params)
		if err != nil {
			return nil, err
		}
		def := &PredicateDefinition{Name: p.Name, Params: params}
		d.predicates[p.Name] = def
		d.predicateList = append(d.predicateList, def)
	}

	for _, a := range raw.Actions {
		def, err := d.checkAction(a)
		if err != nil {
			return nil, err
		}
		d.actions[def.Name] = def
		d.actionList = append(d.actionList, def)
	}
	return d, nil
}

func (d *Domain) checkAction(a ActionDefinition) (*ActionDefinition, error) {
	scope := fmt.Sprintf("action %q", a.Name)
	if _, dup := d.actions[a.Name]; dup {
		return nil, invalid(ErrDuplicateName, "actions", a.Name, "action declared twice")
	}
	params, vars, err := d.checkParams(scope, a.Params)
	if err != nil {
		return nil, err
	}
	typeOf := func(t Term) (Type, error) {
		switch t := t.(type) {
		case Variable:
			if vt, ok := vars[t]; ok {
				return vt, nil
			}
			return nil, invalid(ErrUndefinedVariable, scope, t, "not a parameter")
		case Object:
			if ct, ok := d.constants[t]; ok {
				return ct, nil
			}
			return nil, invalid(ErrUndefinedObject, scope, t, "not a domain constant")
		default:
			return nil, invalid(ErrMalformed, scope, label(fmt.Sprint(t)), "unknown term")
		}
	}

	pre := a.Precondition
	if pre == nil {
		pre = And[Term]{}
	}
	if err := checkCondition(d, scope+" precondition", pre, typeOf); err != nil {
		return nil, err
	}
	eff := a.Effect
	if eff == nil {
		eff = AndEffect[Term]{}
	}
	if err := checkEffect(d, scope+" effect", eff, typeOf); err != nil {
		return nil, err
	}
	return &ActionDefinition{Name: a.Name, Params: params, Precondition: pre, Effect: eff}, nil
}

func (d *Domain) Name() string { return d.name }
func (d *Domain) Requirements() Requirements { return d.requirements }
func (d *Domain) Types() *TypeHierarchy { return d.types }
func (d *Domain) Constants() []TypedObject { return append([]TypedObject(nil), d.constantList...) }
func (d *Domain) Actions() []*ActionDefinition { return append([]*ActionDefinition(nil), d.actionList...) }

// Predicates returns the predicate definitions in declaration order.
func (d *Domain) Predicates() []*PredicateDefinition {
	return append([]*PredicateDefinition(nil), d.predicateList...)
}

// Constant returns the declared type of a domain constant.
func (d *Domain) Constant(o Object) (Type, bool) {
	t, ok := d.constants[o]
	return t, ok
}

// Predicate looks up a predicate definition by name.
func (d *Domain) Predicate(name PredicateName) (*PredicateDefinition, bool) {
	p, ok := d.predicates[name]
	return p, ok
}

// Action looks up an action schema by name.
func (d *Domain) Action(name ActionName) (*ActionDefinition, bool) {
	a, ok := d.actions[name]
	return a, ok
}

// IsCompatible applies the domain's type hierarchy.
func (d *Domain) IsCompatible(declared, required Type) bool {
	return d.types.IsCompatible(declared, required)
}
