package pddl

import "fmt"

// typeOfFunc resolves the declared type of an argument in the current scope.
type typeOfFunc[A comparable] func(arg A) (Type, error)

func (d *Domain) checkType(scope string, t Type) error {
	switch t := t.(type) {
	case ObjectType:
		return nil
	case CustomType:
		if !d.requirements.Has(RequireTyping) {
			return invalid(ErrMissingRequirement, scope, t, "custom types need :typing")
		}
		if !d.types.Has(t) {
			return invalid(ErrUndefinedType, scope, t, "")
		}
		return nil
	default:
		return invalid(ErrUndefinedType, scope, label(fmt.Sprint(t)), "")
	}
}

func (d *Domain) require(scope string, r Requirements, construct string) error {
	if d.requirements.Has(r) {
		return nil
	}
	return invalid(ErrMissingRequirement, scope, label(r.String()), "%s used without it", construct)
}

func checkCondition[A comparable](d *Domain, scope string, c Condition[A], typeOf typeOfFunc[A]) error {
	switch c := c.(type) {
	case And[A]:
		for _, sub := range c.Conditions {
			if err := checkCondition(d, scope, sub, typeOf); err != nil {
				return err
			}
		}
		return nil
	case Or[A]:
		if err := d.require(scope, RequireDisjunctivePreconditions, "disjunction"); err != nil {
			return err
		}
		for _, sub := range c.Conditions {
			if err := checkCondition(d, scope, sub, typeOf); err != nil {
				return err
			}
		}
		return nil
	case Not[A]:
		return checkCondition(d, scope, c.Condition, typeOf)
	case Equality[A]:
		if err := d.require(scope, RequireEquality, "equality"); err != nil {
			return err
		}
		if _, err := typeOf(c.Left); err != nil {
			return err
		}
		_, err := typeOf(c.Right)
		return err
	case Predicate[A]:
		return checkPredicate(d, scope, c, typeOf)
	case nil:
		return invalid(ErrMalformed, scope, label("<nil>"), "missing condition")
	default:
		panic(fmt.Sprintf("pddl: unknown condition %T", c))
	}
}

func checkPredicate[A comparable](d *Domain, scope string, p Predicate[A], typeOf typeOfFunc[A]) error {
	def, ok := d.predicates[p.Name]
	if !ok {
		return invalid(ErrUndefinedPredicate, scope, p.Name, "")
	}
	if len(p.Args) != len(def.Params) {
		return invalid(ErrArityMismatch, scope, p.Name, "expects %d arguments, got %d", len(def.Params), len(p.Args))
	}
	for i, arg := range p.Args {
		t, err := typeOf(arg)
		if err != nil {
			return err
		}
		want := def.Params[i].Type
		if !d.types.IsCompatible(t, want) {
			return invalid(ErrTypeMismatch, scope, label(fmt.Sprint(arg)),
				"argument %d of %s has type %s, want %s", i, p.Name, t, want)
		}
	}
	return nil
}

func checkEffect[A comparable](d *Domain, scope string, e Effect[A], typeOf typeOfFunc[A]) error {
	switch e := e.(type) {
	case AndEffect[A]:
		for _, sub := range e.Effects {
			if err := checkEffect(d, scope, sub, typeOf); err != nil {
				return err
			}
		}
		return nil
	case Probabilistic[A]:
		if err := d.require(scope, RequireProbabilisticEffects, "probabilistic effect"); err != nil {
			return err
		}
		if err := e.checkBounds(); err != nil {
			return err
		}
		for _, o := range e.Outcomes {
			if err := checkEffect(d, scope, o.Effect, typeOf); err != nil {
				return err
			}
		}
		return nil
	case Predicate[A]:
		return checkPredicate(d, scope, e, typeOf)
	case NotPredicate[A]:
		return checkPredicate(d, scope, e.Predicate, typeOf)
	case nil:
		return invalid(ErrMalformed, scope, label("<nil>"), "missing effect")
	default:
		panic(fmt.Sprintf("pddl: unknown effect %T", e))
	}
}

// normalizeType treats a missing type as the root type.
func normalizeType(t Type) Type {
	if t == nil {
		return ObjectType{}
	}
	return t
}

// checkParams validates parameter names and types and returns them as a scope map.
func (d *Domain) checkParams(scope string, params []TypedVariable) ([]TypedVariable, map[Variable]Type, error) {
	out := make([]TypedVariable, len(params))
	vars := make(map[Variable]Type, len(params))
	for i, p := range params {
		if _, dup := vars[p.Name]; dup {
			return nil, nil, invalid(ErrDuplicateName, scope, p.Name, "parameter declared twice")
		}
		t := normalizeType(p.Type)
		if err := d.checkType(scope, t); err != nil {
			return nil, nil, err
		}
		vars[p.Name] = t
		out[i] = TypedVariable{Name: p.Name, Type: t}
	}
	return out, vars, nil
}
