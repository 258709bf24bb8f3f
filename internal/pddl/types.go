package pddl

// TypeDecl declares a custom type and its single supertype.
type TypeDecl struct {
	Name      CustomType
	Supertype Type
}

// TypeHierarchy maps every declared custom type to its supertype.
// It is guaranteed acyclic, every chain ends at ObjectType.
type TypeHierarchy struct {
	parents map[CustomType]Type
	order   []CustomType
}

// NewTypeHierarchy validates decls and builds the hierarchy. A nil Supertype
// means ObjectType.
func NewTypeHierarchy(decls []TypeDecl) (*TypeHierarchy, error) {
	h := &TypeHierarchy{
		parents: make(map[CustomType]Type, len(decls)),
		order:   make([]CustomType, 0, len(decls)),
	}
	const scope = "types"
	for _, d := range decls {
		if d.Name == CustomType(ObjectType{}.String()) {
			return nil, invalid(ErrDuplicateName, scope, d.Name, "redeclares the root type")
		}
		if _, ok := h.parents[d.Name]; ok {
			return nil, invalid(ErrDuplicateName, scope, d.Name, "type declared twice")
		}
		super := d.Supertype
		if super == nil {
			super = ObjectType{}
		}
		h.parents[d.Name] = super
		h.order = append(h.order, d.Name)
	}

	for _, name := range h.order {
		if custom, ok := h.parents[name].(CustomType); ok {
			if _, declared := h.parents[custom]; !declared {
				return nil, invalid(ErrUndefinedType, scope, custom, "supertype of %q", name)
			}
		}
	}

	// Walk each chain once; a type seen twice on the same walk closes a cycle.
	done := make(map[CustomType]bool, len(h.order))
	for _, start := range h.order {
		onPath := make(map[CustomType]bool)
		for t := start; ; {
			if done[t] {
				break
			}
			if onPath[t] {
				return nil, invalid(ErrCyclicHierarchy, scope, t, "reached again from %q", start)
			}
			onPath[t] = true
			next, ok := h.parents[t].(CustomType)
			if !ok {
				break
			}
			t = next
		}
		for t := range onPath {
			done[t] = true
		}
	}
	return h, nil
}

// Types returns the declared custom types in declaration order.
func (h *TypeHierarchy) Types() []CustomType {
	if h == nil {
		return nil
	}
	return append([]CustomType(nil), h.order...)
}

// Supertype returns the declared supertype of t.
func (h *TypeHierarchy) Supertype(t CustomType) (Type, bool) {
	if h == nil {
		return nil, false
	}
	super, ok := h.parents[t]
	return super, ok
}

// Has reports whether t is ObjectType or a declared custom type.
func (h *TypeHierarchy) Has(t Type) bool {
	switch t := t.(type) {
	case ObjectType:
		return true
	case CustomType:
		_, ok := h.Supertype(t)
		return ok
	default:
		return false
	}
}

// IsCompatible reports whether a value declared with type declared may be used
// where required is expected: the types are equal, or declared's supertype is
// itself compatible. ObjectType is compatible only with itself.
func (h *TypeHierarchy) IsCompatible(declared, required Type) bool {
	for {
		if declared == required {
			return true
		}
		custom, ok := declared.(CustomType)
		if !ok {
			return false
		}
		super, ok := h.Supertype(custom)
		if !ok {
			return false
		}
		declared = super
	}
}

// Ancestors returns t followed by every supertype up to and including ObjectType.
func (h *TypeHierarchy) Ancestors(t Type) []Type {
	chain := []Type{t}
	for {
		custom, ok := t.(CustomType)
		if !ok {
			return chain
		}
		super, ok := h.Supertype(custom)
		if !ok {
			return chain
		}
		chain = append(chain, super)
		t = super
	}
}
