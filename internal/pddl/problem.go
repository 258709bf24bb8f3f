package pddl

import "fmt"

// RawProblem is the unchecked syntax of a problem instance.
type RawProblem struct {
	Name    string
	Domain  string
	Objects []TypedObject
	Init    []Predicate[Object]
	Goal    Condition[Object]
}

// Problem is a validated problem instance paired with one Domain.
type Problem struct {
	name       string
	domainName string

	objects    []TypedObject
	universe   map[Object]Type // problem objects and domain constants
	universeOf []TypedObject

	init []Predicate[Object]
	goal Condition[Object]
}

// NewProblem validates raw against domain and builds a Problem. Duplicate
// initial facts are dropped, keeping the first occurrence.
func NewProblem(raw RawProblem, domain *Domain) (*Problem, error) {
	if domain == nil {
		return nil, invalid(ErrDomainMismatch, "problem", label(raw.Name), "no domain given")
	}
	if raw.Domain != domain.Name() {
		return nil, invalid(ErrDomainMismatch, fmt.Sprintf("problem %q", raw.Name), label(raw.Domain),
			"domain is %q", domain.Name())
	}

	p := &Problem{
		name:       raw.Name,
		domainName: raw.Domain,
		universe:   make(map[Object]Type, len(domain.constantList)+len(raw.Objects)),
	}
	for _, c := range domain.constantList {
		p.universe[c.Name] = c.Type
		p.universeOf = append(p.universeOf, c)
	}
	for _, o := range raw.Objects {
		if _, dup := p.universe[o.Name]; dup {
			return nil, invalid(ErrDuplicateName, "objects", o.Name, "object declared twice or shadows a constant")
		}
		t := normalizeType(o.Type)
		if err := domain.checkType("objects", t); err != nil {
			return nil, err
		}
		typed := TypedObject{Name: o.Name, Type: t}
		p.universe[o.Name] = t
		p.universeOf = append(p.universeOf, typed)
		p.objects = append(p.objects, typed)
	}

	typeOf := func(scope string) typeOfFunc[Object] {
		return func(o Object) (Type, error) {
			if t, ok := p.universe[o]; ok {
				return t, nil
			}
			return nil, invalid(ErrUndefinedObject, scope, o, "")
		}
	}

	seen := make(map[string]bool, len(raw.Init))
	for _, fact := range raw.Init {
		if err := checkPredicate(domain, "init", fact, typeOf("init")); err != nil {
			return nil, err
		}
		key := Key(fact)
		if seen[key] {
			continue
		}
		seen[key] = true
		p.init = append(p.init, Predicate[Object]{Name: fact.Name, Args: append([]Object(nil), fact.Args...)})
	}

	goal := raw.Goal
	if goal == nil {
		goal = And[Object]{}
	}
	if err := checkCondition(domain, "goal", goal, typeOf("goal")); err != nil {
		return nil, err
	}
	p.goal = goal
	return p, nil
}

func (p *Problem) Name() string { return p.name }

// DomainName is the name of the domain this problem was validated against.
func (p *Problem) DomainName() string { return p.domainName }

// Objects returns the problem's own objects in declaration order.
func (p *Problem) Objects() []TypedObject { return append([]TypedObject(nil), p.objects...) }

// Universe returns every object usable in this problem: domain constants
// first, then problem objects, each in declaration order.
func (p *Problem) Universe() []TypedObject { return append([]TypedObject(nil), p.universeOf...) }

// TypeOf returns the declared type of a problem object or domain constant.
func (p *Problem) TypeOf(o Object) (Type, bool) {
	t, ok := p.universe[o]
	return t, ok
}

// Init returns the deduplicated initial facts.
func (p *Problem) Init() []Predicate[Object] { return append([]Predicate[Object](nil), p.init...) }

func (p *Problem) Goal() Condition[Object] { return p.goal }
