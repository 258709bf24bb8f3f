// Package fixture loads domains and problems written as YAML documents. It is
// a convenience format for tests and the CLI, not the PDDL grammar: the
// document spells out the raw parts that pddl.NewDomain and pddl.NewProblem
// validate.
//
//	domain:
//	  name: rooms
//	  requirements: [strips, typing, negative-preconditions]
//	  types: [room, ball]
//	  predicates:
//	    - at ?b - ball ?r - room
//	  actions:
//	    - name: move
//	      parameters: ["?from ?to - room"]
//	      precondition: {and: [{pred: [robot-at, "?from"]}, {not: {eq: ["?from", "?to"]}}]}
//	      effect: {and: [{add: [robot-at, "?to"]}, {del: [robot-at, "?from"]}]}
//	problem:
//	  name: move-ball
//	  domain: rooms
//	  objects: [A B - room, ball - ball]
//	  init: [[at, ball, A], [robot-at, A]]
//	  goal: {pred: [at, ball, B]}
//
// Typed lists follow PDDL: names up to a "- type" marker share that type, and
// names without a marker are of type object. Variables inside flow sequences
// must be quoted, since YAML reads a leading ? there as a key indicator.
package fixture

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pddlsim/internal/pddl"
)

// Document is one fixture file.
type Document struct {
	Domain  DomainDoc   `yaml:"domain"`
	Problem *ProblemDoc `yaml:"problem,omitempty"`
}

type DomainDoc struct {
	Name         string      `yaml:"name"`
	Requirements []string    `yaml:"requirements"`
	Types        []string    `yaml:"types"`
	Constants    []string    `yaml:"constants"`
	Predicates   []string    `yaml:"predicates"`
	Actions      []ActionDoc `yaml:"actions"`
}

type ActionDoc struct {
	Name         string   `yaml:"name"`
	Parameters   []string `yaml:"parameters"`
	Precondition *expr    `yaml:"precondition"`
	Effect       *expr    `yaml:"effect"`
}

type ProblemDoc struct {
	Name    string     `yaml:"name"`
	Domain  string     `yaml:"domain"`
	Objects []string   `yaml:"objects"`
	Init    [][]string `yaml:"init"`
	Goal    *expr      `yaml:"goal"`
}

// Load reads and validates a fixture file. The problem is nil when the file
// holds only a domain.
func Load(path string) (*pddl.Domain, *pddl.Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	d, p, err := Parse(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, p, nil
}

// Parse decodes and validates a fixture document.
func Parse(data []byte) (*pddl.Domain, *pddl.Problem, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	rd, err := doc.Domain.Raw()
	if err != nil {
		return nil, nil, err
	}
	d, err := pddl.NewDomain(rd)
	if err != nil {
		return nil, nil, err
	}
	if doc.Problem == nil {
		return d, nil, nil
	}
	rp, err := doc.Problem.Raw()
	if err != nil {
		return nil, nil, err
	}
	p, err := pddl.NewProblem(rp, d)
	if err != nil {
		return nil, nil, err
	}
	return d, p, nil
}

// Raw converts the document to unchecked domain parts.
func (dd DomainDoc) Raw() (pddl.RawDomain, error) {
	rd := pddl.RawDomain{Name: dd.Name}
	for _, r := range dd.Requirements {
		flag, err := pddl.ParseRequirement(r)
		if err != nil {
			return pddl.RawDomain{}, fmt.Errorf("domain %s: %w", dd.Name, err)
		}
		rd.Requirements |= flag
	}

	types, err := typedList(dd.Types)
	if err != nil {
		return pddl.RawDomain{}, fmt.Errorf("domain %s types: %w", dd.Name, err)
	}
	for _, t := range types {
		decl := pddl.TypeDecl{Name: pddl.CustomType(t.name)}
		if t.typ != nil {
			decl.Supertype = t.typ
		}
		rd.Types = append(rd.Types, decl)
	}

	constants, err := typedList(dd.Constants)
	if err != nil {
		return pddl.RawDomain{}, fmt.Errorf("domain %s constants: %w", dd.Name, err)
	}
	for _, c := range constants {
		rd.Constants = append(rd.Constants, pddl.TypedObject{Name: pddl.Object(c.name), Type: c.typeOrObject()})
	}

	for _, line := range dd.Predicates {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return pddl.RawDomain{}, fmt.Errorf("domain %s: empty predicate declaration", dd.Name)
		}
		params, err := parameters(fields[1:])
		if err != nil {
			return pddl.RawDomain{}, fmt.Errorf("predicate %s: %w", fields[0], err)
		}
		rd.Predicates = append(rd.Predicates, pddl.PredicateDefinition{Name: pddl.PredicateName(fields[0]), Params: params})
	}

	for _, ad := range dd.Actions {
		a, err := ad.raw()
		if err != nil {
			return pddl.RawDomain{}, fmt.Errorf("action %s: %w", ad.Name, err)
		}
		rd.Actions = append(rd.Actions, a)
	}
	return rd, nil
}

func (ad ActionDoc) raw() (pddl.ActionDefinition, error) {
	a := pddl.ActionDefinition{Name: pddl.ActionName(ad.Name)}
	var words []string
	for _, p := range ad.Parameters {
		words = append(words, strings.Fields(p)...)
	}
	params, err := parameters(words)
	if err != nil {
		return a, err
	}
	a.Params = params

	if ad.Precondition != nil {
		pre, err := condition(*ad.Precondition, schemaTerm)
		if err != nil {
			return a, err
		}
		a.Precondition = pre
	}
	if ad.Effect != nil {
		eff, err := effect(*ad.Effect)
		if err != nil {
			return a, err
		}
		a.Effect = eff
	}
	return a, nil
}

// Raw converts the document to unchecked problem parts.
func (pd ProblemDoc) Raw() (pddl.RawProblem, error) {
	rp := pddl.RawProblem{Name: pd.Name, Domain: pd.Domain}

	objects, err := typedList(pd.Objects)
	if err != nil {
		return pddl.RawProblem{}, fmt.Errorf("problem %s objects: %w", pd.Name, err)
	}
	for _, o := range objects {
		rp.Objects = append(rp.Objects, pddl.TypedObject{Name: pddl.Object(o.name), Type: o.typeOrObject()})
	}

	for _, fact := range pd.Init {
		if len(fact) == 0 {
			return pddl.RawProblem{}, fmt.Errorf("problem %s: empty init fact", pd.Name)
		}
		rp.Init = append(rp.Init, predicate(fact, objectTerm))
	}

	if pd.Goal != nil {
		goal, err := condition(*pd.Goal, objectTerm)
		if err != nil {
			return pddl.RawProblem{}, err
		}
		rp.Goal = goal
	}
	return rp, nil
}

type typedName struct {
	name string
	typ  pddl.Type
}

func (t typedName) typeOrObject() pddl.Type {
	if t.typ == nil {
		return pddl.ObjectType{}
	}
	return t.typ
}

func typeNamed(name string) pddl.Type {
	if name == "object" {
		return pddl.ObjectType{}
	}
	return pddl.CustomType(name)
}

// typedList parses entries such as "a b - block" or "floor". Each entry may
// hold several whitespace-separated names sharing one type marker.
func typedList(entries []string) ([]typedName, error) {
	var out []typedName
	for _, entry := range entries {
		var pending []string
		fields := strings.Fields(entry)
		for i := 0; i < len(fields); i++ {
			if fields[i] != "-" {
				pending = append(pending, fields[i])
				continue
			}
			if i+1 >= len(fields) || len(pending) == 0 {
				return nil, fmt.Errorf("dangling type marker in %q", entry)
			}
			t := typeNamed(fields[i+1])
			for _, n := range pending {
				out = append(out, typedName{name: n, typ: t})
			}
			pending = nil
			i++
		}
		for _, n := range pending {
			out = append(out, typedName{name: n})
		}
	}
	return out, nil
}

func parameters(words []string) ([]pddl.TypedVariable, error) {
	names, err := typedList([]string{strings.Join(words, " ")})
	if err != nil {
		return nil, err
	}
	params := make([]pddl.TypedVariable, 0, len(names))
	for _, n := range names {
		if !strings.HasPrefix(n.name, "?") {
			return nil, fmt.Errorf("parameter %q must start with ?", n.name)
		}
		params = append(params, pddl.TypedVariable{Name: pddl.Variable(n.name), Type: n.typeOrObject()})
	}
	return params, nil
}
