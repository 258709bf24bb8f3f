// Package pddl holds the symbolic model of a planning domain: identifiers, the
// type hierarchy, condition and effect trees, and the validated Domain and
// Problem aggregates built from raw, unchecked parts.
package pddl

// Variable is a schema-local parameter name such as "?b".
type Variable string

// Object is a problem object or a domain constant.
type Object string

// PredicateName names a relation over objects.
type PredicateName string

// ActionName names an action schema.
type ActionName string

func (v Variable) String() string      { return string(v) }
func (o Object) String() string        { return string(o) }
func (p PredicateName) String() string { return string(p) }
func (a ActionName) String() string    { return string(a) }

// Term is an argument inside an action schema: either a Variable bound by the
// schema's parameters or an Object naming a domain constant.
type Term interface {
	isTerm()
	String() string
}

func (Variable) isTerm() {}
func (Object) isTerm()   {}

// Type is either the root ObjectType or a declared CustomType.
type Type interface {
	isType()
	String() string
}

// ObjectType is the root of every type hierarchy.
type ObjectType struct{}

// CustomType is a type declared in the domain's hierarchy.
type CustomType string

func (ObjectType) isType() {}
func (CustomType) isType() {}

func (ObjectType) String() string   { return "object" }
func (t CustomType) String() string { return string(t) }

// TypedVariable is one (Variable, Type) parameter of a predicate or action.
type TypedVariable struct {
	Name Variable
	Type Type
}

// TypedObject is one (Object, Type) declaration of a constant or problem object.
type TypedObject struct {
	Name Object
	Type Type
}
